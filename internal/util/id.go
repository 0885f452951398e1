package util

import "github.com/google/uuid"

// NewID returns a random identifier for flows, artworks and requests.
func NewID() string {
	return uuid.NewString()
}
