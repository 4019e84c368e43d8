package handlers

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"seam/internal/pkg/logger"
	"seam/internal/ports"
	"seam/internal/repositories"
)

// DB is the slice of pgxpool.Pool the handlers need.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Stat() *pgxpool.Stat
}

type Deps struct {
	Pool *pgxpool.Pool
	RDB  *redis.Client
	SP   ports.StorageProvider
	Log  *logger.Logger
}

type Handler struct {
	pool     DB
	rdb      *redis.Client
	sp       ports.StorageProvider
	log      *logger.Logger
	profiles *repositories.ProfileRepository
}

func New(d Deps) *Handler {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}
	return &Handler{
		pool:     d.Pool,
		rdb:      d.RDB,
		sp:       d.SP,
		log:      log.WithComponent("handlers"),
		profiles: repositories.NewProfileRepository(d.Pool),
	}
}
