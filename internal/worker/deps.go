package worker

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"seam/internal/pkg/logger"
	"seam/internal/ports"
)

type Deps struct {
	Pool         *pgxpool.Pool
	RDB          *redis.Client
	QueueName    string
	StorageRoot  string
	CleanupLocal bool
	SP           ports.StorageProvider
	Log          *logger.Logger
}
