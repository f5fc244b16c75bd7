package repo

import (
	"context"
	"errors"

	"github.com/gocql/gocql"

	"tapandstamp/config"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrConflict means a conditional write lost against a concurrent update.
	ErrConflict = errors.New("concurrent update")
)

type Repo struct {
	db   *gocql.Session
	conf *config.TapAndStampConfModel
}
type Imply interface {
	DBHealthCheck(context.Context) error
}

// NewRepo
func NewRepo(db *gocql.Session, conf *config.TapAndStampConfModel) Imply {
	return &Repo{db: db, conf: conf}
}

// DBHealthCheck runs a trivial query against system.local.
func (repo *Repo) DBHealthCheck(ctx context.Context) error {
	if err := repo.db.Query("SELECT now() FROM system.local").WithContext(ctx).Exec(); err != nil {
		return err
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, gocql.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
