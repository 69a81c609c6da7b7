package contracts

import (
	"context"
	"time"
)

// PanelQuery selects the slice of market data to load.
// Zero From/To are unbounded; empty Entities means all.
type PanelQuery struct {
	From     time.Time
	To       time.Time
	Entities []string
}

// PanelSource loads a price panel (CSV file, Postgres table, ...).
type PanelSource interface {
	Load(ctx context.Context, q PanelQuery) (*Panel, error)
}
