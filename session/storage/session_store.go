package storage

import (
	"time"

	"github.com/rimmartin/loom/session"
)

type SessionStore interface {
	Close() error
	Has(id string) bool
	Get(id string) (map[string]any, error)
	Save(session session.Session) error
	Delete(id string) error

	// Prune deletes every stored session last touched more than idleFor
	// ago and reports how many were removed.
	Prune(idleFor time.Duration) int
}
