package data

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/xb1002/FactorFrameworkV2/internal/contracts"
	"github.com/xb1002/FactorFrameworkV2/pkg/logger"
)

// Column names every panel file must have. All other columns are numeric fields.
const (
	ColDate   = "date"
	ColEntity = "entity"

	dateLayout = "2006-01-02"
)

// CSVSource loads a long-format panel file: one row per (date, entity).
type CSVSource struct {
	path   string
	logger *logger.Logger
}

// NewCSVSource creates a CSV panel source
func NewCSVSource(path string, log *logger.Logger) *CSVSource {
	if log == nil {
		log = logger.NewNop()
	}
	return &CSVSource{path: path, logger: log.WithComponent("csv_source")}
}

// Load reads the file and applies the query filters
func (s *CSVSource) Load(ctx context.Context, q contracts.PanelQuery) (*contracts.Panel, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open panel file: %w", err)
	}
	defer f.Close()

	df := dataframe.ReadCSV(f, dataframe.WithTypes(map[string]series.Type{
		ColDate:   series.String,
		ColEntity: series.String,
	}))
	if df.Err != nil {
		return nil, fmt.Errorf("parse panel file %s: %w", s.path, df.Err)
	}

	rows, err := rowsFromFrame(ctx, df, q)
	if err != nil {
		return nil, fmt.Errorf("panel file %s: %w", s.path, err)
	}

	panel, err := contracts.NewPanel(rows)
	if err != nil {
		return nil, fmt.Errorf("panel file %s: %w", s.path, err)
	}

	s.logger.WithFields(map[string]interface{}{
		"path":     s.path,
		"rows":     panel.Len(),
		"dates":    len(panel.Dates()),
		"entities": len(panel.Entities()),
	}).Info("Loaded panel")
	return panel, nil
}

func rowsFromFrame(ctx context.Context, df dataframe.DataFrame, q contracts.PanelQuery) ([]contracts.Row, error) {
	names := df.Names()
	if !contains(names, ColDate) || !contains(names, ColEntity) {
		return nil, fmt.Errorf("columns %q and %q are required, got %v", ColDate, ColEntity, names)
	}

	dates := df.Col(ColDate).Records()
	entities := df.Col(ColEntity).Records()

	fields := make(map[string][]float64)
	for _, name := range names {
		if name == ColDate || name == ColEntity {
			continue
		}
		fields[strings.ToLower(name)] = df.Col(name).Float()
	}

	want := entityFilter(q.Entities)
	rows := make([]contracts.Row, 0, df.Nrow())
	for i := 0; i < df.Nrow(); i++ {
		if i%10000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		date, err := time.Parse(dateLayout, strings.TrimSpace(dates[i]))
		if err != nil {
			return nil, fmt.Errorf("row %d: bad date %q", i+1, dates[i])
		}
		entity := strings.TrimSpace(entities[i])
		if !inRange(date, q) || !want(entity) {
			continue
		}
		values := make(map[string]float64, len(fields))
		for name, col := range fields {
			values[name] = col[i]
		}
		rows = append(rows, contracts.Row{Date: date, Entity: entity, Fields: values})
	}
	return rows, nil
}

func inRange(d time.Time, q contracts.PanelQuery) bool {
	if !q.From.IsZero() && d.Before(q.From) {
		return false
	}
	if !q.To.IsZero() && d.After(q.To) {
		return false
	}
	return true
}

func entityFilter(entities []string) func(string) bool {
	if len(entities) == 0 {
		return func(string) bool { return true }
	}
	set := make(map[string]struct{}, len(entities))
	for _, e := range entities {
		set[e] = struct{}{}
	}
	return func(e string) bool {
		_, ok := set[e]
		return ok
	}
}

func contains(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}
