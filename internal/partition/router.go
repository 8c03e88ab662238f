// Package partition maps the ingestion date to the ledger partition of its
// month ("MM-YYYY" keys) through a table fixed at startup.
package partition

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// KeyLayout is the time layout of a partition key.
const KeyLayout = "01-2006"

// Key identifies a calendar month, e.g. "07-2025".
type Key string

// KeyFor formats t's month in t's own location.
func KeyFor(t time.Time) Key {
	return Key(t.Format(KeyLayout))
}

// ParseKey validates a "MM-YYYY" key.
func ParseKey(s string) (Key, error) {
	s = strings.TrimSpace(s)
	if _, err := time.Parse(KeyLayout, s); err != nil || len(s) != len(KeyLayout) {
		return "", fmt.Errorf("invalid partition key %q: want MM-YYYY", s)
	}
	return Key(s), nil
}

func (k Key) String() string { return string(k) }

// Table maps month keys to partition identifiers. It is read-only once built.
type Table struct {
	ids map[Key]string
}

// NewTable validates and copies entries.
func NewTable(entries map[string]string) (Table, error) {
	ids := make(map[Key]string, len(entries))
	for k, id := range entries {
		key, err := ParseKey(k)
		if err != nil {
			return Table{}, err
		}
		id = strings.TrimSpace(id)
		if id == "" {
			return Table{}, fmt.Errorf("empty partition id for %s", key)
		}
		ids[key] = id
	}
	return Table{ids: ids}, nil
}

// Lookup is an exact-match lookup; there is no fallback to nearby months.
func (t Table) Lookup(k Key) (string, bool) {
	id, ok := t.ids[k]
	return id, ok
}

func (t Table) Len() int { return len(t.ids) }

// Keys returns the configured keys in chronological order.
func (t Table) Keys() []Key {
	keys := make([]Key, 0, len(t.ids))
	for k := range t.ids {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, _ := time.Parse(KeyLayout, string(keys[i]))
		b, _ := time.Parse(KeyLayout, string(keys[j]))
		return a.Before(b)
	})
	return keys
}

// Router resolves instants to partitions in a fixed time zone.
type Router struct {
	table Table
	loc   *time.Location
}

// NewRouter uses loc to decide which month an instant belongs to; nil means local time.
func NewRouter(table Table, loc *time.Location) *Router {
	if loc == nil {
		loc = time.Local
	}
	return &Router{table: table, loc: loc}
}

// Location is the time zone months are computed in.
func (r *Router) Location() *time.Location { return r.loc }

// Resolve returns the key of t's month and its partition, if configured.
func (r *Router) Resolve(t time.Time) (Key, string, bool) {
	key := KeyFor(t.In(r.loc))
	id, ok := r.table.Lookup(key)
	return key, id, ok
}

// Next resolves the month following t's month.
func (r *Router) Next(t time.Time) (Key, string, bool) {
	local := t.In(r.loc)
	first := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, r.loc)
	return r.Resolve(first.AddDate(0, 1, 0))
}

func (r *Router) Table() Table { return r.table }
