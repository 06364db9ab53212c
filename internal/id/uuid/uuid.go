// Package uuid mints scrape-run identifiers.
package uuid

import (
	"fmt"

	"github.com/google/uuid"
)

// Generator implements ingest.IDGenerator with UUIDv7: run listings sort by
// id in creation order, which keeps the audit trail readable without a
// secondary sort key.
type Generator struct{}

// New returns a Generator.
func New() *Generator {
	return &Generator{}
}

// NewID returns one UUIDv7 string.
func (Generator) NewID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate run id: %w", err)
	}
	return id.String(), nil
}
