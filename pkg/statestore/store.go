package statestore

import (
	"context"
	"time"
)

// Entry is what we remember about an in-flight consent round-trip.
type Entry struct {
	RedirectURI string `json:"redirect_uri"`
}

// Store holds one-shot OAuth state tokens. Take consumes the token: a second
// Take with the same state must miss, which is what defeats replay.
type Store interface {
	Put(ctx context.Context, state string, entry Entry) error
	Take(ctx context.Context, state string) (Entry, bool, error)
}

// DefaultTTL bounds how long a consent round-trip may take.
const DefaultTTL = 15 * time.Minute
