package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/harentsoaR/clinic-api/internal/apperr"
	"github.com/harentsoaR/clinic-api/internal/booking"
	"github.com/harentsoaR/clinic-api/internal/config"
	"github.com/harentsoaR/clinic-api/internal/logging"
	"github.com/harentsoaR/clinic-api/internal/services"
	"github.com/harentsoaR/clinic-api/internal/store"
	"github.com/harentsoaR/clinic-api/internal/store/memstore"
	"github.com/harentsoaR/clinic-api/internal/store/mongostore"
	"github.com/harentsoaR/clinic-api/internal/utils"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "clinic-api",
		Short:        "Clinic appointment booking API",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(ensureIndexesCmd())
	rootCmd.AddCommand(reconcileCmd())
	rootCmd.AddCommand(createAdminCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads and validates configuration and builds the logger.
func setup(requireMongo bool) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	logger := logging.New(cfg.LogLevel, cfg.IsDev())
	if cfg.DotEnvErr != nil {
		logger.Debug().Err(cfg.DotEnvErr).Msg("No .env file found, relying on environment variables")
	}
	if err := cfg.Validate(requireMongo); err != nil {
		return nil, logger, err
	}
	utils.BcryptCost = cfg.BcryptCost
	return cfg, logger, nil
}

// openStore returns the configured backend and a function that releases it.
func openStore(ctx context.Context, cfg *config.Config, memory bool, logger zerolog.Logger) (store.Store, func(), error) {
	if memory {
		logger.Warn().Msg("using the in-memory store; all data is lost on exit")
		return memstore.New(), func() {}, nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	s, err := mongostore.Connect(connectCtx, cfg.MongoURI, cfg.MongoDatabase, cfg.TxnTimeout)
	if err != nil {
		return nil, nil, err
	}
	logger.Info().Str("database", cfg.MongoDatabase).Msg("connected to MongoDB")
	closeFn := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.Close(ctx); err != nil {
			logger.Warn().Err(err).Msg("mongo disconnect failed")
		}
	}
	return s, closeFn, nil
}

func ensureIndexesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ensure-indexes",
		Short: "Create the MongoDB collections and unique indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(true)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			s, err := mongostore.Connect(connectCtx, cfg.MongoURI, cfg.MongoDatabase, cfg.TxnTimeout)
			if err != nil {
				return err
			}
			defer s.Close(context.Background())

			if err := s.EnsureIndexes(ctx); err != nil {
				return err
			}
			logger.Info().Msg("indexes ensured")
			return nil
		},
	}
}

func reconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Audit the slot ledger against appointments and exit non-zero on drift",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(true)
			if err != nil {
				return err
			}
			s, closeStore, err := openStore(cmd.Context(), cfg, false, logger)
			if err != nil {
				return err
			}
			defer closeStore()

			report, err := booking.NewReconciler(s, logger).Run(cmd.Context())
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return err
			}
			if !report.Consistent() {
				return fmt.Errorf("slot ledger inconsistent: %d orphaned, %d missing", len(report.Orphaned), len(report.Missing))
			}
			return nil
		},
	}
}

func createAdminCmd() *cobra.Command {
	var name, email, password string
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an admin account",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(true)
			if err != nil {
				return err
			}
			s, closeStore, err := openStore(cmd.Context(), cfg, false, logger)
			if err != nil {
				return err
			}
			defer closeStore()

			tokens := utils.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL)
			admin, err := services.NewAccountService(s, tokens, logger).CreateAdmin(cmd.Context(), name, email, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "admin %s created with id %s\n", admin.Email, admin.ID.Hex())
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "Admin", "display name")
	cmd.Flags().StringVar(&email, "email", "", "login email")
	cmd.Flags().StringVar(&password, "password", "", "login password, at least 8 characters")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

// bootstrapAdmin creates the admin account unless it already exists.
func bootstrapAdmin(ctx context.Context, accounts *services.AccountService, email, password string, logger zerolog.Logger) error {
	_, err := accounts.CreateAdmin(ctx, "Admin", email, password)
	if errors.Is(err, apperr.ErrEmailTaken) {
		logger.Debug().Str("email", email).Msg("bootstrap admin already exists")
		return nil
	}
	return err
}
