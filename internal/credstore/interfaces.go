package credstore

import "context"

// Store reads and writes the credential set to persistent storage.
type Store interface {
	// Load returns the stored credential set, or (nil, nil) when no usable
	// prior state exists. Absence is not an error.
	Load(ctx context.Context) (*Credentials, error)

	// Save persists the complete credential set, replacing any prior state
	// atomically. A reader never observes a partially written set.
	Save(ctx context.Context, creds *Credentials) error
}
