package health

import (
	"context"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type DBChecker struct {
	db *gorm.DB
}

func NewDBChecker(db *gorm.DB) DBChecker { return DBChecker{db: db} }

func (c DBChecker) Check(ctx context.Context) CheckResult {
	sqlDB, err := c.db.DB()
	if err != nil {
		return CheckResult{Name: "db", Error: err.Error()}
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return CheckResult{Name: "db", Error: err.Error()}
	}
	return CheckResult{Name: "db", Healthy: true}
}

type RedisChecker struct {
	client redis.UniversalClient
}

func NewRedisChecker(client redis.UniversalClient) RedisChecker { return RedisChecker{client: client} }

func (c RedisChecker) Check(ctx context.Context) CheckResult {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return CheckResult{Name: "redis", Error: err.Error()}
	}
	return CheckResult{Name: "redis", Healthy: true}
}
