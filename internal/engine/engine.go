// Package engine implements the core operations of Intent-Engine: the
// declarative plan evaluator, the status projector, event logging, and
// the dual-path search router. All state transition rules live here so
// they have one audit site.
package engine

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/wayfind/intent-engine/internal/store"
)

// Engine executes top-level commands against the store. Every operation
// runs inside a single transaction; on failure nothing is written.
type Engine struct {
	store    *store.Store
	validate *validator.Validate
	now      func() time.Time
}

// New builds an engine over an open store.
func New(s *store.Store) *Engine {
	return &Engine{
		store:    s,
		validate: validator.New(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}
