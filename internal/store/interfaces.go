package store

import "context"

//go:generate mockgen -source=interfaces.go -destination=../mock/store_mock.go -package=mock

// KeyValue is the local persistence contract of the sync engine: load, save
// and remove of serialized values by key. The operation queue, identifier map,
// change history and conflict log all persist through it.
//
// Implementations must treat a missing key as [ErrKeyNotFound], not as an
// empty value.
type KeyValue interface {
	// Load returns the value stored under key.
	Load(ctx context.Context, key string) ([]byte, error)

	// Save stores value under key, replacing any previous value.
	Save(ctx context.Context, key string, value []byte) error

	// Remove deletes the value stored under key. Removing a missing key is
	// not an error.
	Remove(ctx context.Context, key string) error
}
