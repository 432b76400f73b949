// Package storage persists detected opportunities and their resulting order
// groups to Postgres for later analysis. Writes are synchronous; the engine
// logs a failed write and carries on with the trade.
package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/goccy/go-json"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/mselser95/kalshi-arb/pkg/types"
)

// Storage is the write sink the engine reports detected opportunities and
// completed order groups to.
type Storage interface {
	StoreOpportunity(ctx context.Context, opp types.Opportunity) error
	StoreOrderGroup(ctx context.Context, group types.OrderGroup) error
	Close() error
}

// PostgresStorage implements Storage using PostgreSQL.
type PostgresStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

// Config holds PostgreSQL connection configuration.
type Config struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
}

// New opens a PostgreSQL connection and verifies it with a ping.
func New(cfg Config, logger *zap.Logger) (*PostgresStorage, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logger.Info("postgres-storage-connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database))

	return &PostgresStorage{db: db, logger: logger}, nil
}

// StoreOpportunity records a detected arbitrage opportunity. Legs are stored
// as a JSONB column rather than normalized, since they are read back only
// for audit, never re-queried by leg.
func (p *PostgresStorage) StoreOpportunity(ctx context.Context, opp types.Opportunity) error {
	legsJSON, err := json.Marshal(opp.Legs)
	if err != nil {
		return fmt.Errorf("marshal legs: %w", err)
	}

	const query = `
		INSERT INTO arbitrage_opportunities (
			id, type, event_ticker, legs, total_cost, guaranteed_return,
			gross_profit, est_fees, net_profit, max_quantity, confidence, detected_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		)
	`

	_, err = p.db.ExecContext(ctx, query,
		opp.ID,
		string(opp.Type),
		opp.EventTicker,
		legsJSON,
		opp.TotalCost,
		opp.GuaranteedReturn,
		opp.GrossProfit,
		opp.EstFees,
		opp.NetProfit,
		opp.MaxQuantity,
		opp.Confidence,
		opp.DetectedAt,
	)
	if err != nil {
		return fmt.Errorf("insert opportunity: %w", err)
	}

	p.logger.Debug("opportunity-stored",
		zap.String("opportunity_id", opp.ID),
		zap.String("event_ticker", opp.EventTicker),
		zap.Int("legs", len(opp.Legs)))

	return nil
}

// StoreOrderGroup records a completed order group along with its orders and
// fills, each as a JSONB column.
func (p *PostgresStorage) StoreOrderGroup(ctx context.Context, group types.OrderGroup) error {
	ordersJSON, err := json.Marshal(group.Orders)
	if err != nil {
		return fmt.Errorf("marshal orders: %w", err)
	}
	fillsJSON, err := json.Marshal(group.Fills)
	if err != nil {
		return fmt.Errorf("marshal fills: %w", err)
	}

	const query = `
		INSERT INTO order_groups (
			id, opportunity_id, orders, fills, status, error
		) VALUES (
			$1, $2, $3, $4, $5, $6
		)
	`

	_, err = p.db.ExecContext(ctx, query,
		group.ID,
		group.OpportunityID,
		ordersJSON,
		fillsJSON,
		string(group.Status),
		group.Error,
	)
	if err != nil {
		return fmt.Errorf("insert order group: %w", err)
	}

	p.logger.Debug("order-group-stored",
		zap.String("group_id", group.ID),
		zap.String("status", string(group.Status)))

	return nil
}

// Close closes the database connection.
func (p *PostgresStorage) Close() error {
	p.logger.Info("closing-postgres-storage")
	return p.db.Close()
}
