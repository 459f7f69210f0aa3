package database

import (
	"context"
	"fmt"
	"time"

	"epay-gateway/pkg/logger"
)

// Ping is used by the /health and /ready endpoints.
func (db *PostgresDB) Ping(ctx context.Context) error {
	if db.Pool == nil {
		return fmt.Errorf("database pool is not initialized")
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.Pool.Ping(pingCtx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

// Close is safe to call more than once.
func (db *PostgresDB) Close() error {
	if db.Pool == nil {
		return nil
	}

	if db.sqlDB != nil {
		if err := db.sqlDB.Close(); err != nil {
			logger.Error("[DATABASE] Failed to close sql handle", err)
		}
		db.sqlDB = nil
	}

	db.Pool.Close()
	db.Pool = nil

	logger.Info("[DATABASE] Connection pool closed", nil)
	return nil
}

// PoolStats is a snapshot of pool usage for logs.
type PoolStats struct {
	TotalConns    int32 `json:"total_conns"`
	IdleConns     int32 `json:"idle_conns"`
	AcquiredConns int32 `json:"acquired_conns"`
	MaxConns      int32 `json:"max_conns"`
}

func (db *PostgresDB) Stats() PoolStats {
	if db.Pool == nil {
		return PoolStats{}
	}
	s := db.Pool.Stat()
	return PoolStats{
		TotalConns:    s.TotalConns(),
		IdleConns:     s.IdleConns(),
		AcquiredConns: s.AcquiredConns(),
		MaxConns:      s.MaxConns(),
	}
}
