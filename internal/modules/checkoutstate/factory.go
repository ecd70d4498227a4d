package checkoutstate

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"zocheckout.com/app/internal/config"
)

type FactoryResult struct {
	Driver string
	Repo   Repo
	// Close releases the backing connection, if any.
	Close func() error
}

func FromConfig(ctx context.Context, cfg config.Config) (FactoryResult, error) {
	driver := cfg.State.Driver
	if driver == "" {
		driver = "memory"
	}

	switch driver {
	case "memory":
		return FactoryResult{Driver: driver, Repo: NewMemoryRepo(cfg.State.TTL), Close: func() error { return nil }}, nil

	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.State.RedisAddr,
			Password: cfg.State.RedisPassword,
			DB:       cfg.State.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return FactoryResult{}, fmt.Errorf("redis ping failed: %w", err)
		}
		return FactoryResult{Driver: driver, Repo: NewRedisRepo(client, cfg.State.TTL), Close: client.Close}, nil

	case "mysql":
		if cfg.State.MySQLDSN == "" {
			return FactoryResult{}, fmt.Errorf("DB_DSN is required for CHECKOUT_STATE_DRIVER=mysql")
		}
		db, err := gorm.Open(mysql.Open(cfg.State.MySQLDSN), &gorm.Config{})
		if err != nil {
			return FactoryResult{}, fmt.Errorf("failed to connect to database: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return FactoryResult{}, err
		}
		return FactoryResult{Driver: driver, Repo: NewGormRepo(db), Close: sqlDB.Close}, nil

	default:
		return FactoryResult{}, fmt.Errorf("unknown CHECKOUT_STATE_DRIVER: %s", driver)
	}
}
