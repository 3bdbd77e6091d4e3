package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/harentsoaR/clinic-api/internal/apperr"
	"github.com/harentsoaR/clinic-api/internal/middleware"
)

// respondError writes err as {"error", "code", "kind"} with the status its
// kind maps to. Untyped errors are logged and reported as internal.
func (h *Handler) respondError(c *gin.Context, err error) {
	ae := apperr.As(err)
	if ae.Kind == apperr.KindInternal || ae.Kind == apperr.KindTransactionFailed {
		_ = c.Error(err)
		h.Logger.Error().
			Err(err).
			Str("request_id", c.GetString(middleware.CtxRequestID)).
			Str("path", c.Request.URL.Path).
			Msg("request failed")
	}
	c.AbortWithStatusJSON(apperr.HTTPStatus(ae.Kind), gin.H{
		"error": ae.Message,
		"code":  ae.Code,
		"kind":  ae.Kind,
	})
}

// bindJSON binds the request body, answering 400 on failure.
func (h *Handler) bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		h.respondError(c, apperr.Validation("%s", err.Error()))
		return false
	}
	return true
}
