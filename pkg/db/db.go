package db

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"routinedash/pkg/config"
)

const (
	applicationName = "routinedash"
	defaultMaxConns = 5
)

// DSN builds the pgx connection string for the mutation journal. The password
// is escaped, so it may carry any character.
func DSN(cfg config.DBConfig) string {
	q := url.Values{}
	q.Set("sslmode", sslMode(cfg))
	q.Set("application_name", applicationName)

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     cfg.Host + ":" + strconv.Itoa(cfg.Port),
		Path:     "/" + cfg.Name,
		RawQuery: q.Encode(),
	}
	return u.String()
}

// NewConnection opens the journal pool and pings it once; the caller decides
// whether a failure is fatal.
func NewConnection(cfg config.DBConfig, logger *zap.Logger) (*pgxpool.Pool, error) {
	log := logger.With(zap.String("component", "mutation_journal"))

	poolCfg, err := pgxpool.ParseConfig(DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("parse journal db config: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	if poolCfg.MaxConns <= 0 {
		poolCfg.MaxConns = defaultMaxConns
	}
	// dispatcher 常驻一条连接
	poolCfg.MinConns = 1
	poolCfg.MaxConnIdleTime = time.Minute
	poolCfg.ConnConfig.Tracer = NewSlowQueryTracer(log, cfg.SlowQuery)

	log.Info("Connecting to journal database",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("db", cfg.Name),
		zap.String("ssl_mode", sslMode(cfg)),
		zap.Int32("max_conns", poolCfg.MaxConns),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open journal pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping journal db %s:%d: %w", cfg.Host, cfg.Port, err)
	}

	log.Info("Journal database ready")
	return pool, nil
}

func sslMode(cfg config.DBConfig) string {
	if cfg.SSLMode == "" {
		return "disable"
	}
	return cfg.SSLMode
}
