package monitor

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	redislib "github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Check probes one dependency. Only required checks decide IsOnline.
type Check struct {
	Name     string
	Required bool
	Ping     func(ctx context.Context) error
}

func PostgresCheck(pool *pgxpool.Pool) Check {
	return Check{Name: "postgres", Required: true, Ping: func(ctx context.Context) error {
		return pool.Ping(ctx)
	}}
}

func MongoCheck(client *mongo.Client) Check {
	return Check{Name: "mongo", Required: true, Ping: func(ctx context.Context) error {
		return client.Ping(ctx, readpref.Primary())
	}}
}

// RedisCheck is optional: sessions fail closed without Redis, audit replay does not need it.
func RedisCheck(client redislib.UniversalClient) Check {
	return Check{Name: "redis", Ping: func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}}
}
