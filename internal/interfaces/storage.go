package interfaces

import (
	"time"

	"github.com/mhorvat/xapiport/internal/models"
)

// DefinitionsStorage persists and reloads compiled endpoint definitions.
type DefinitionsStorage interface {
	// Get returns the current definitions, or an error when none exist
	Get() (*models.DefinitionsStore, error)

	// Save persists new definitions and makes them current
	Save(defs *models.DefinitionsStore) error

	// Fresh reports whether the current definitions are younger than maxAge
	Fresh(maxAge time.Duration) bool
}
