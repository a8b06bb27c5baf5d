package database

import (
	"context"
	"fmt"
	"time"

	"ecochain/config"
	"ecochain/logger"
	"ecochain/store"
	"ecochain/store/memory"
)

// Backend is a document store that can also persist request logs.
type Backend interface {
	store.Store
	logger.LogSink
}

var (
	_ Backend = (*GormStore)(nil)
	_ Backend = (*MongoStore)(nil)
	_ Backend = (*memory.Store)(nil)
)

// Open connects the backend selected by STORE_DRIVER.
func Open(cfg *config.Config) (Backend, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		db, err := InitDB(cfg.Postgres, !cfg.IsProduction())
		if err != nil {
			return nil, err
		}
		return NewGormStore(db), nil

	case config.DriverMongo:
		client, err := ConnectMongo(cfg.Mongo)
		if err != nil {
			return nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		s, err := NewMongoStore(ctx, client, cfg.Mongo.Database)
		if err != nil {
			_ = client.Disconnect(context.Background())
			return nil, err
		}
		return s, nil

	case config.DriverMemory:
		logger.Warning("Using the in-memory store, data is lost on restart")
		return memory.New(), nil

	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
}
