package models

import (
	"fmt"

	"github.com/google/uuid"
)

func NewID() uuid.UUID {
	return uuid.New()
}

// ParseID turns a wire identifier into a store key. Anything that is not a
// UUID cannot name a stored row, so it fails with ErrNotFound.
func ParseID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("id %q: %w", s, ErrNotFound)
	}
	return id, nil
}
