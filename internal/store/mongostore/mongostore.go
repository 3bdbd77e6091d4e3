// Package mongostore implements store.Store on MongoDB. Booking, cancellation
// and completion run inside multi-document session transactions, which need a
// replica set or sharded cluster.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	"github.com/harentsoaR/clinic-api/internal/store"
)

const (
	usersColl        = "users"
	adminsColl       = "admins"
	doctorsColl      = "doctors"
	appointmentsColl = "appointments"
	ledgerColl       = "slot_ledger"
	outboxColl       = "outbox"

	writeConflictCode  = 112
	unknownCommitLabel = "UnknownTransactionCommitResult"

	maxCommitAttempts  = 3
	commitRetryTimeout = 5 * time.Second
)

type Store struct {
	client     *mongo.Client
	db         *mongo.Database
	txnTimeout time.Duration
}

var _ store.Store = (*Store)(nil)

// Connect dials uri, verifies the connection and returns a Store bound to
// database dbName.
func Connect(ctx context.Context, uri, dbName string, txnTimeout time.Duration) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}
	return New(client, client.Database(dbName), txnTimeout), nil
}

func New(client *mongo.Client, db *mongo.Database, txnTimeout time.Duration) *Store {
	return &Store{client: client, db: db, txnTimeout: txnTimeout}
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// InTransaction runs fn inside a snapshot-isolated session transaction. It is
// never retried; a lost write conflict surfaces as store.ErrConflict.
func (s *Store) InTransaction(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	if s.txnTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.txnTimeout)
		defer cancel()
	}

	sess, err := s.client.StartSession()
	if err != nil {
		return translate(err)
	}
	defer sess.EndSession(context.Background())

	opts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())
	if err := sess.StartTransaction(opts); err != nil {
		return translate(err)
	}

	sessCtx := mongo.NewSessionContext(ctx, sess)
	if err := fn(sessCtx, &txn{db: s.db}); err != nil {
		// ctx may already be expired; the abort must still reach the server.
		_ = sess.AbortTransaction(context.Background())
		return err
	}
	// A commit attempt may have applied the writes, so it is never followed by
	// an abort.
	return commitWithRetry(sessCtx, sess.CommitTransaction)
}

// commitWithRetry retries only the commit while its outcome is unknown, each
// retry on a fresh bounded context. A commit that stays unconfirmed is
// reported as store.ErrCommitUnknown.
func commitWithRetry(ctx context.Context, commit func(context.Context) error) error {
	err := commit(ctx)
	for attempt := 1; attempt < maxCommitAttempts && commitOutcomeUnknown(err); attempt++ {
		retryCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), commitRetryTimeout)
		err = commit(retryCtx)
		cancel()
	}
	switch {
	case err == nil:
		return nil
	case commitOutcomeUnknown(err):
		return fmt.Errorf("%w: %v", store.ErrCommitUnknown, err)
	default:
		return translate(err)
	}
}

func commitOutcomeUnknown(err error) bool {
	if err == nil {
		return false
	}
	return hasLabel(err, unknownCommitLabel) ||
		errors.Is(err, context.DeadlineExceeded) ||
		mongo.IsTimeout(err) ||
		mongo.IsNetworkError(err)
}

func hasLabel(err error, label string) bool {
	var se mongo.ServerError
	return errors.As(err, &se) && se.HasErrorLabel(label)
}

func hasCode(err error, code int) bool {
	var se mongo.ServerError
	return errors.As(err, &se) && se.HasErrorCode(code)
}

// translate maps driver errors onto the store sentinels, keeping the driver
// error text for logs.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return store.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %v", store.ErrDuplicate, err)
	case errors.Is(err, context.DeadlineExceeded), mongo.IsTimeout(err):
		return fmt.Errorf("%w: %v", store.ErrTimeout, err)
	case hasCode(err, writeConflictCode), hasLabel(err, "TransientTransactionError"):
		return fmt.Errorf("%w: %v", store.ErrConflict, err)
	default:
		return err
	}
}
