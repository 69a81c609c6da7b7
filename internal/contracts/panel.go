package contracts

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Key identifies one panel observation.
// Dates are normalized to UTC without monotonic clock so keys compare by value.
type Key struct {
	Date   time.Time
	Entity string
}

// KeyOf builds a normalized Key.
func KeyOf(date time.Time, entity string) Key {
	return Key{Date: date.UTC().Round(0), Entity: entity}
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s", k.Date.Format("2006-01-02"), k.Entity)
}

// Row is one (date, entity) observation with named numeric fields (close, volume, ...).
type Row struct {
	Date   time.Time          `json:"date"`
	Entity string             `json:"entity"`
	Fields map[string]float64 `json:"fields"`
}

// Key returns the normalized key of the row.
func (r Row) Key() Key {
	return KeyOf(r.Date, r.Entity)
}

// Value returns a field value. Absent and NaN values report false.
func (r Row) Value(field string) (float64, bool) {
	v, ok := r.Fields[field]
	if !ok || math.IsNaN(v) {
		return math.NaN(), false
	}
	return v, true
}

// Panel is an immutable, date-ordered set of uniquely keyed rows.
// Rows sharing a date keep their insertion order.
type Panel struct {
	rows   []Row
	index  map[Key]int
	fields map[string]struct{}
	dates  []time.Time

	fpOnce sync.Once
	fp     string
}

// NewPanel validates key uniqueness and orders rows by date.
func NewPanel(rows []Row) (*Panel, error) {
	sorted := make([]Row, len(rows))
	for i, r := range rows {
		r.Date = r.Date.UTC().Round(0)
		sorted[i] = r
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	p := &Panel{
		rows:   sorted,
		index:  make(map[Key]int, len(sorted)),
		fields: make(map[string]struct{}),
	}
	for i, r := range sorted {
		if r.Entity == "" {
			return nil, fmt.Errorf("row %d: empty entity", i)
		}
		k := r.Key()
		if _, dup := p.index[k]; dup {
			return nil, fmt.Errorf("duplicate panel key %s", k)
		}
		p.index[k] = i
		for name := range r.Fields {
			p.fields[name] = struct{}{}
		}
		if n := len(p.dates); n == 0 || !p.dates[n-1].Equal(r.Date) {
			p.dates = append(p.dates, r.Date)
		}
	}
	return p, nil
}

// Len returns the number of rows.
func (p *Panel) Len() int {
	return len(p.rows)
}

// Row returns the i-th row in date order. Callers must not modify Fields.
func (p *Panel) Row(i int) Row {
	return p.rows[i]
}

// Lookup returns the row stored under k.
func (p *Panel) Lookup(k Key) (Row, bool) {
	i, ok := p.index[KeyOf(k.Date, k.Entity)]
	if !ok {
		return Row{}, false
	}
	return p.rows[i], true
}

// HasField reports whether any row carries the field.
func (p *Panel) HasField(name string) bool {
	_, ok := p.fields[name]
	return ok
}

// Fields returns the sorted union of field names.
func (p *Panel) Fields() []string {
	out := make([]string, 0, len(p.fields))
	for name := range p.fields {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Dates returns the distinct dates in ascending order.
func (p *Panel) Dates() []time.Time {
	out := make([]time.Time, len(p.dates))
	copy(out, p.dates)
	return out
}

// Entities returns the distinct entity ids, sorted.
func (p *Panel) Entities() []string {
	seen := make(map[string]struct{})
	for _, r := range p.rows {
		seen[r.Entity] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for e := range seen {
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}

// ByEntity returns, per entity, the row indices in chronological order.
func (p *Panel) ByEntity() map[string][]int {
	out := make(map[string][]int)
	for i, r := range p.rows {
		out[r.Entity] = append(out[r.Entity], i)
	}
	return out
}

// Fingerprint is a digest of every key and field value. Panels with the same content
// share it; a nil panel has an empty fingerprint.
func (p *Panel) Fingerprint() string {
	if p == nil {
		return ""
	}
	p.fpOnce.Do(func() {
		d := xxhash.New()
		fields := p.Fields()
		for _, f := range fields {
			_, _ = d.WriteString(f)
			_, _ = d.Write([]byte{0})
		}
		var buf [8]byte
		for _, r := range p.rows {
			binary.LittleEndian.PutUint64(buf[:], uint64(r.Date.UnixNano()))
			_, _ = d.Write(buf[:])
			_, _ = d.WriteString(r.Entity)
			_, _ = d.Write([]byte{0})
			for _, f := range fields {
				v, ok := r.Fields[f]
				if !ok {
					v = math.NaN()
				}
				binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
				_, _ = d.Write(buf[:])
			}
		}
		p.fp = strconv.FormatUint(d.Sum64(), 16)
	})
	return p.fp
}
