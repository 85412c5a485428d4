package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/amora-economy/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	defaultStorageTimeout = 5 * time.Second
	maxTxRetries          = 2
)

// Clock returns the current time. Tests swap it for a fixed clock.
type Clock func() time.Time

// SystemClock returns UTC wall time at the precision PostgreSQL stores.
func SystemClock() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// Options carries settings shared by every service.
type Options struct {
	StorageTimeout time.Duration
	Now            Clock
}

// store wraps the database handle with the timeout and retry policy every
// service uses.
type store struct {
	db      *gorm.DB
	timeout time.Duration
	now     Clock
}

func newStore(db *gorm.DB, opts Options) store {
	s := store{db: db, timeout: opts.StorageTimeout, now: opts.Now}
	if s.timeout <= 0 {
		s.timeout = defaultStorageTimeout
	}
	if s.now == nil {
		s.now = SystemClock
	}
	return s
}

// transact runs fn in a single database transaction. Serialization failures,
// deadlocks and unique-key races are retried; after the last attempt they
// surface as ErrConflict.
func (s store) transact(ctx context.Context, fn func(tx *gorm.DB) error) error {
	var err error
	for attempt := 0; attempt <= maxTxRetries; attempt++ {
		err = s.transactOnce(ctx, fn)
		if err == nil || !isRetryable(err) {
			break
		}
		slog.Warn("retrying transaction", "attempt", attempt+1, "error", err)
	}
	return translateStorageError(err)
}

func (s store) transactOnce(ctx context.Context, fn func(tx *gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.db.WithContext(ctx).Transaction(fn)
}

// read runs fn outside a transaction, bounded by the storage timeout.
func (s store) read(ctx context.Context, fn func(db *gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return translateStorageError(fn(s.db.WithContext(ctx)))
}

func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	var e *Error
	if errors.As(err, &e) {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "23505":
			return true
		}
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "UNIQUE constraint failed")
}

// Actor identifies who performed a mutation.
type Actor struct {
	ID            uuid.UUID
	Kind          models.ActorKind
	SourceAddress string
}

func AdminActor(id uuid.UUID, sourceAddress string) Actor {
	return Actor{ID: id, Kind: models.ActorAdmin, SourceAddress: sourceAddress}
}

func UserActor(id uuid.UUID, sourceAddress string) Actor {
	return Actor{ID: id, Kind: models.ActorUser, SourceAddress: sourceAddress}
}

// SystemActor is used for mutations triggered by events or scheduled jobs.
func SystemActor() Actor {
	return Actor{Kind: models.ActorSystem}
}

func (a Actor) actorID() *uuid.UUID {
	if a.ID == uuid.Nil {
		return nil
	}
	id := a.ID
	return &id
}

func (a Actor) kind() models.ActorKind {
	if a.Kind == "" {
		return models.ActorSystem
	}
	return a.Kind
}

func notFound(err error, sentinel error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return err
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
