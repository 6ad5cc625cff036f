// Package app opens the configured backends for the binaries under cmd/.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/mind-engage/mindengage-french/internal/config"
	"github.com/mind-engage/mindengage-french/internal/db"
	"github.com/mind-engage/mindengage-french/internal/events"
	"github.com/mind-engage/mindengage-french/internal/store"
	"github.com/mind-engage/mindengage-french/internal/store/cache"
	"github.com/mind-engage/mindengage-french/internal/store/mongostore"
	"github.com/mind-engage/mindengage-french/internal/store/sqlstore"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// Backend bundles the content/student store with the event publishers.
type Backend struct {
	Store  store.Store
	Events events.Publisher
	// DB is the SQL handle when the store is SQL backed, else nil.
	DB *sql.DB

	ping    pinger
	closers []func() error
}

// Open connects the store selected by cfg.StoreDriver, wraps it with the
// Redis quiz cache when REDIS_ADDR is set, and builds the event publishers:
// the SQL event log for SQL stores plus AMQP when AMQP_URL is set.
func Open(ctx context.Context, cfg config.Config) (*Backend, error) {
	b := &Backend{}
	switch cfg.StoreDriver {
	case config.StoreSQLite, config.StorePostgres:
		dbh, err := db.Open(ctx, db.Driver(cfg.StoreDriver), cfg.DBDSN)
		if err != nil {
			return nil, fmt.Errorf("db open: %w", err)
		}
		s := sqlstore.New(dbh, db.Driver(cfg.StoreDriver))
		b.Store, b.DB, b.ping = s, dbh, s
	case config.StoreMongo:
		s, err := mongostore.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, err
		}
		b.Store, b.ping = s, s
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}

	if cfg.RedisAddr != "" {
		rdb := cache.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Printf("redis %s unreachable, quiz cache disabled: %v", cfg.RedisAddr, err)
			_ = rdb.Close()
		} else {
			b.Store = cache.New(b.Store, rdb, cfg.QuizCacheTTL)
		}
	}

	var pubs events.Multi
	if b.DB != nil {
		pubs = append(pubs, events.NewSQLLog(b.DB, ""))
	}
	if cfg.AMQPURL != "" {
		p, err := events.DialAMQP(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			_ = b.Store.Close(ctx)
			return nil, err
		}
		pubs = append(pubs, p)
		b.closers = append(b.closers, p.Close)
	}
	switch len(pubs) {
	case 0:
		b.Events = events.Nop{}
	case 1:
		b.Events = pubs[0]
	default:
		b.Events = pubs
	}
	return b, nil
}

// Ping checks the primary store.
func (b *Backend) Ping(ctx context.Context) error {
	if b.ping == nil {
		return nil
	}
	return b.ping.Ping(ctx)
}

func (b *Backend) Close(ctx context.Context) error {
	for _, c := range b.closers {
		if err := c(); err != nil {
			log.Printf("close: %v", err)
		}
	}
	return b.Store.Close(ctx)
}
