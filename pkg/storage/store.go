// Package storage provides the key-value backends that hold kpiboard's
// persistent state: settings, the cached metrics response and the MRR history.
//
// Every value is an opaque string blob. Set replaces the prior value wholesale;
// there are no partial updates and no transactions.
package storage

import "context"

// Store is a string key-value store.
type Store interface {
	// Get returns the value for key. found is false when the key was never set.
	Get(ctx context.Context, key string) (value string, found bool, err error)

	// Set overwrites the value for key.
	Set(ctx context.Context, key, value string) error
}
