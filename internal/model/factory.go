package model

import (
	"fmt"
	"sort"
	"sync"
)

// Dialect names a transcript format.
type Dialect string

const (
	// DialectChat is written by the customer and audit chat widgets.
	DialectChat Dialect = "chat"
	// DialectBank is written by the multi-agent banking dashboard.
	DialectBank Dialect = "bank"
)

// ParserFactory creates a Parser. Dialect packages register one from init
// so that model does not import them.
type ParserFactory func() Parser

var (
	factoriesMu sync.RWMutex
	factories   = map[Dialect]ParserFactory{}
)

// RegisterParser registers the factory for a dialect, replacing any earlier one.
func RegisterParser(dialect Dialect, factory ParserFactory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[dialect] = factory
}

// NewParser creates a parser for the given dialect.
func NewParser(dialect Dialect) (Parser, error) {
	factoriesMu.RLock()
	factory, ok := factories[dialect]
	factoriesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown transcript dialect: %s", dialect)
	}
	return factory(), nil
}

// Dialects returns the registered dialect names in sorted order.
func Dialects() []Dialect {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	out := make([]Dialect, 0, len(factories))
	for d := range factories {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
