package data

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xb1002/FactorFrameworkV2/internal/contracts"
)

// PriceSchema creates the daily price table read by PriceRepository.
var PriceSchema = []string{
	`CREATE SCHEMA IF NOT EXISTS market`,
	`CREATE TABLE IF NOT EXISTS market.daily_prices (
		entity      TEXT             NOT NULL,
		trade_date  DATE             NOT NULL,
		open_price  DOUBLE PRECISION,
		high_price  DOUBLE PRECISION,
		low_price   DOUBLE PRECISION,
		close_price DOUBLE PRECISION,
		volume      DOUBLE PRECISION,
		amount      DOUBLE PRECISION,
		PRIMARY KEY (entity, trade_date)
	)`,
}

// PriceRepository reads and writes daily prices in Postgres and serves them as a panel.
type PriceRepository struct {
	pool *pgxpool.Pool
}

// NewPriceRepository creates a new price repository
func NewPriceRepository(pool *pgxpool.Pool) *PriceRepository {
	return &PriceRepository{pool: pool}
}

// Load implements contracts.PanelSource
func (r *PriceRepository) Load(ctx context.Context, q contracts.PanelQuery) (*contracts.Panel, error) {
	query := `
		SELECT entity, trade_date, open_price, high_price, low_price, close_price, volume, amount
		FROM market.daily_prices
		WHERE ($1::date IS NULL OR trade_date >= $1)
		  AND ($2::date IS NULL OR trade_date <= $2)
		  AND (cardinality($3::text[]) = 0 OR entity = ANY($3))
		ORDER BY trade_date ASC, entity ASC
	`

	entities := q.Entities
	if entities == nil {
		entities = []string{}
	}
	rows, err := r.pool.Query(ctx, query, nullDate(q.From), nullDate(q.To), entities)
	if err != nil {
		return nil, fmt.Errorf("query daily prices: %w", err)
	}
	defer rows.Close()

	var out []contracts.Row
	for rows.Next() {
		var (
			entity string
			date   time.Time
			vals   [6]*float64
		)
		if err := rows.Scan(&entity, &date, &vals[0], &vals[1], &vals[2], &vals[3], &vals[4], &vals[5]); err != nil {
			return nil, fmt.Errorf("scan daily price: %w", err)
		}
		fields := make(map[string]float64, len(vals))
		for i, name := range []string{"open", "high", "low", "close", "volume", "amount"} {
			fields[name] = deref(vals[i])
		}
		out = append(out, contracts.Row{Date: date, Entity: entity, Fields: fields})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read daily prices: %w", err)
	}
	return contracts.NewPanel(out)
}

// SaveBatch upserts panel rows in one round trip
func (r *PriceRepository) SaveBatch(ctx context.Context, panel *contracts.Panel) error {
	if panel.Len() == 0 {
		return nil
	}

	query := `
		INSERT INTO market.daily_prices (entity, trade_date, open_price, high_price, low_price, close_price, volume, amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (entity, trade_date) DO UPDATE SET
			open_price = EXCLUDED.open_price,
			high_price = EXCLUDED.high_price,
			low_price = EXCLUDED.low_price,
			close_price = EXCLUDED.close_price,
			volume = EXCLUDED.volume,
			amount = EXCLUDED.amount
	`

	batch := &pgx.Batch{}
	for i := 0; i < panel.Len(); i++ {
		row := panel.Row(i)
		batch.Queue(query, row.Entity, row.Date,
			field(row, "open"), field(row, "high"), field(row, "low"),
			field(row, "close"), field(row, "volume"), field(row, "amount"),
		)
	}

	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("save %d daily prices: %w", panel.Len(), err)
	}
	return nil
}

func field(row contracts.Row, name string) *float64 {
	v, ok := row.Value(name)
	if !ok {
		return nil
	}
	return &v
}

func deref(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

func nullDate(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
