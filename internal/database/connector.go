package database

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// OpenFunc opens a database connection
type OpenFunc func(url string, zlog zerolog.Logger) (*gorm.DB, error)

// SetupFunc runs once against a freshly opened connection (migrations, seeding)
type SetupFunc func(ctx context.Context, db *gorm.DB) error

// Connector opens the shared database connection in the background. The HTTP
// server starts listening before the connection is ready; callers use DB to
// find out whether it is usable yet.
type Connector struct {
	url           string
	logger        zerolog.Logger
	open          OpenFunc
	setup         []SetupFunc
	retryInterval time.Duration

	db        atomic.Pointer[gorm.DB]
	ready     chan struct{}
	readyOnce sync.Once
}

// ConnectorOption configures a Connector
type ConnectorOption func(*Connector)

// WithOpenFunc replaces the function used to open connections
func WithOpenFunc(open OpenFunc) ConnectorOption {
	return func(c *Connector) {
		c.open = open
	}
}

// WithSetup registers functions run after the connection opens and before it
// is published
func WithSetup(setup ...SetupFunc) ConnectorOption {
	return func(c *Connector) {
		c.setup = append(c.setup, setup...)
	}
}

// WithRetryInterval sets the delay between connection attempts
func WithRetryInterval(d time.Duration) ConnectorOption {
	return func(c *Connector) {
		c.retryInterval = d
	}
}

// NewConnector creates a connector for url. Nothing is opened until Start.
func NewConnector(url string, zlog zerolog.Logger, opts ...ConnectorOption) *Connector {
	c := &Connector{
		url:           url,
		logger:        zlog.With().Str("component", "database").Logger(),
		open:          Open,
		retryInterval: 10 * time.Second,
		ready:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connected wraps an already opened connection
func Connected(db *gorm.DB, zlog zerolog.Logger) *Connector {
	c := NewConnector("", zlog)
	c.publish(db)
	return c
}

// Start connects in a background goroutine, retrying until it succeeds or ctx
// is cancelled. Failures are logged and never stop the process.
func (c *Connector) Start(ctx context.Context) {
	go c.run(ctx)
}

func (c *Connector) run(ctx context.Context) {
	for attempt := 1; ; attempt++ {
		err := c.connect(ctx)
		if err == nil {
			c.logger.Info().Int("attempt", attempt).Msg("Connected to database")
			return
		}

		c.logger.Error().Err(err).
			Int("attempt", attempt).
			Dur("retry_in", c.retryInterval).
			Msg("Error connecting to database")

		select {
		case <-ctx.Done():
			return
		case <-time.After(c.retryInterval):
		}
	}
}

func (c *Connector) connect(ctx context.Context) error {
	db, err := c.open(c.url, c.logger)
	if err != nil {
		return err
	}

	for _, setup := range c.setup {
		if err := setup(ctx, db); err != nil {
			_ = Close(db)
			return err
		}
	}

	c.publish(db)
	return nil
}

func (c *Connector) publish(db *gorm.DB) {
	c.db.Store(db)
	c.readyOnce.Do(func() { close(c.ready) })
}

// DB returns the connection and whether it is ready
func (c *Connector) DB() (*gorm.DB, bool) {
	db := c.db.Load()
	return db, db != nil
}

// Ready is closed once the connection has been published
func (c *Connector) Ready() <-chan struct{} {
	return c.ready
}

// Close closes the connection if one was opened
func (c *Connector) Close() error {
	db, ok := c.DB()
	if !ok {
		return nil
	}
	return Close(db)
}
