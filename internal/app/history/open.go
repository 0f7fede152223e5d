package history

import (
	"context"
	"fmt"

	"labchat/internal/app/db"
	"labchat/internal/configs"
	"labchat/internal/pkg/logx"
)

// Open builds the Store selected by cfg.HistoryDriver. The returned close function
// releases the underlying connection or file handle.
func Open(ctx context.Context, cfg *configs.AppConfig) (Store, func() error, error) {
	nop := func() error { return nil }

	switch cfg.HistoryDriver {
	case configs.DriverMemory:
		logx.Warn("Using in-memory history; messages are lost on restart.")
		return NewMemoryStore(DefaultMemoryRoomCap), nop, nil

	case configs.DriverPostgres:
		pool, err := db.NewPool(cfg.DatabaseDSN)
		if err != nil {
			return nil, nil, err
		}
		return NewPostgresStore(pool), func() error { pool.Close(); return nil }, nil

	case configs.DriverSQLite:
		sqlDB, err := db.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return NewSQLiteStore(sqlDB), sqlDB.Close, nil

	case configs.DriverBadger:
		bdb, err := OpenBadger(cfg.BadgerPath)
		if err != nil {
			return nil, nil, err
		}
		return NewBadgerStore(bdb), bdb.Close, nil

	case configs.DriverMongo:
		client, err := ConnectMongo(ctx, cfg.MongoURI)
		if err != nil {
			return nil, nil, err
		}
		store, err := NewMongoStore(ctx, client.Database(cfg.MongoDatabase))
		if err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, err
		}
		return store, func() error { return client.Disconnect(context.Background()) }, nil
	}

	return nil, nil, fmt.Errorf("unknown history driver %q", cfg.HistoryDriver)
}
