//go:build integration

// Package testdb starts a disposable Postgres for integration tests.
package testdb

import (
	"context"
	"errors"
	"time"

	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/mo-amir99/elearning-server-go/internal/bootstrap"
	"github.com/mo-amir99/elearning-server-go/pkg/database"
	"github.com/mo-amir99/elearning-server-go/pkg/logger"
)

// Handle owns the container and the connection to it.
type Handle struct {
	DB     *gorm.DB
	cancel func()
	stop   func(context.Context) error
}

// Close drops the connection and terminates the container.
func (h *Handle) Close() {
	if h.DB != nil {
		_ = database.Close(h.DB, logger.Discard())
	}
	if h.stop != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = h.stop(ctx)
	}
	if h.cancel != nil {
		h.cancel()
	}
}

// Start runs postgres, connects with GORM and migrates every model.
func Start(ctx context.Context) (*Handle, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)

	pg, err := postgres.RunContainer(ctx,
		tc.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("elearning"),
		postgres.WithUsername("elearning"),
		postgres.WithPassword("elearning"),
	)
	if err != nil {
		cancel()
		return nil, err
	}

	fail := func(err error) (*Handle, error) {
		_ = pg.Terminate(ctx)
		cancel()
		return nil, err
	}

	uri, err := pg.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return fail(err)
	}

	db, err := gorm.Open(gormpostgres.Open(uri), &gorm.Config{
		Logger:         database.NewCustomLogger(logger.Discard(), time.Second),
		TranslateError: true,
	})
	if err != nil {
		return fail(err)
	}
	if err := waitReady(ctx, db); err != nil {
		return fail(err)
	}

	if err := database.Migrate(db, logger.Discard(), bootstrap.Models()...); err != nil {
		return fail(err)
	}

	return &Handle{DB: db, cancel: cancel, stop: pg.Terminate}, nil
}

// Truncate empties every table between tests.
func (h *Handle) Truncate() error {
	return h.DB.Exec(`TRUNCATE monthly_rankings, completion_records, enrollments, videos, modules, courses, users CASCADE`).Error
}

func waitReady(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	dead := time.Now().Add(20 * time.Second)
	for time.Now().Before(dead) {
		if err := sqlDB.PingContext(ctx); err == nil {
			return nil
		}
		time.Sleep(200 * time.Millisecond)
	}
	return errors.New("db not ready")
}
