package database

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"solar-registry/pkg/logging"
)

// ClickHouseConfig holds audit sink connection configuration
type ClickHouseConfig struct {
	Addr     string
	Database string
	User     string
	Password string
}

// NewClickHouseConn opens a native-protocol ClickHouse connection for the
// audit sink. The configured database must already exist; table DDL is the
// caller's responsibility.
func NewClickHouseConn(cfg *ClickHouseConfig, logger *logging.StructuredLogger) (driver.Conn, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
		MaxOpenConns:    2,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Hour,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open clickhouse connection: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}

	logger.Info(context.Background(), "[CH_INIT] ClickHouse connection established", logging.Fields{
		"addr":     cfg.Addr,
		"database": cfg.Database,
	})

	return conn, nil
}
