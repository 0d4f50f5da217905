package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"retail-rfm/pkg/models"
)

var rfmColumns = []string{
	"dataset_id", "customer_id", "last_purchase", "recency", "frequency", "monetary",
	"r_score", "f_score", "m_score", "rfm_score", "segment", "generated_at",
}

// NewPool ouvre un pool Postgres et vérifie la connexion.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	poolConfig.MaxConns = 5
	poolConfig.MaxConnLifetime = 1 * time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// PostgresSink persiste la table RFM d'un jeu de données.
type PostgresSink struct {
	pool  *pgxpool.Pool
	table string
}

func NewPostgresSink(pool *pgxpool.Pool, table string) (*PostgresSink, error) {
	if err := validTable(table); err != nil {
		return nil, err
	}
	return &PostgresSink{pool: pool, table: table}, nil
}

func (s *PostgresSink) Name() string { return "postgres" }

// Deliver remplace les lignes du jeu de données en une seule transaction.
func (s *PostgresSink) Deliver(ctx context.Context, d models.Delivery) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, createTableSQL(s.table)); err != nil {
		return fmt.Errorf("create %s: %w", s.table, err)
	}
	if _, err := tx.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE dataset_id = $1", s.table), d.DatasetID); err != nil {
		return fmt.Errorf("purge %s: %w", s.table, err)
	}
	n, err := tx.CopyFrom(ctx, pgx.Identifier{s.table}, rfmColumns, pgx.CopyFromRows(copyRows(d)))
	if err != nil {
		return fmt.Errorf("copy %s: %w", s.table, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}

	slog.Debug("rfm rows stored", "table", s.table, "dataset_id", d.DatasetID, "rows", n)
	return nil
}

func createTableSQL(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	dataset_id    TEXT             NOT NULL,
	customer_id   TEXT             NOT NULL,
	last_purchase TIMESTAMPTZ      NOT NULL,
	recency       INTEGER          NOT NULL,
	frequency     INTEGER          NOT NULL,
	monetary      DOUBLE PRECISION NOT NULL,
	r_score       SMALLINT         NOT NULL,
	f_score       SMALLINT         NOT NULL,
	m_score       SMALLINT         NOT NULL,
	rfm_score     CHAR(3)          NOT NULL,
	segment       TEXT             NOT NULL,
	generated_at  TIMESTAMPTZ      NOT NULL,
	PRIMARY KEY (dataset_id, customer_id)
)`, table)
}

func copyRows(d models.Delivery) [][]any {
	rows := make([][]any, 0, len(d.Customers))
	for _, c := range d.Customers {
		rows = append(rows, []any{
			d.DatasetID, c.CustomerID, c.LastPurchase, int32(c.Recency), int32(c.Frequency), c.Monetary,
			int16(c.R), int16(c.F), int16(c.M), c.RFMScore, string(c.Segment), d.GeneratedAt,
		})
	}
	return rows
}
