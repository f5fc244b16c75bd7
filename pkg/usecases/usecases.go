package usecases

import (
	"context"
	"time"

	"tapandstamp/pkg/repo"
	"tapandstamp/utilities"
)

const defaultHealthTimeout = 5 * time.Second

type UseCases struct {
	repo    repo.Imply
	timeout time.Duration
}

type UseCaseImply interface {
	DBHealthHandler(context.Context) error
}

// NewUseCases bounds every database health check by timeout, or five seconds when unset.
func NewUseCases(repo repo.Imply, timeout time.Duration) UseCaseImply {
	if timeout <= 0 {
		timeout = defaultHealthTimeout
	}
	return &UseCases{
		repo:    repo,
		timeout: timeout,
	}
}

// DBHealthHandler reports whether Cassandra answers within the configured timeout.
func (usecase *UseCases) DBHealthHandler(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, usecase.timeout)
	defer cancel()

	if err := usecase.repo.DBHealthCheck(ctx); err != nil {
		utilities.NewLogger("DBHealthHandler").WithError(err).Error("database health check failed")
		return err
	}
	return nil
}
