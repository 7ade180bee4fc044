// Package adapter defines the resource abstractions shared by the database and storage adapters.
package adapter

import (
	"context"
)

// ResourceConnection represents a named connection to an external resource.
type ResourceConnection interface {
	// Close closes the resource connection.
	Close() error
	// Type returns the backend type (e.g., "postgres", "gcs").
	Type() string
	// Name returns the connection name as configured (e.g., "workload", "export").
	Name() string
}

// ResourceConnectionResolver resolves a connection by its configured name.
type ResourceConnectionResolver interface {
	// ResolveConnection returns a live connection, re-establishing it if necessary.
	ResolveConnection(ctx context.Context, name string) (ResourceConnection, error)
}

// Closer is implemented by providers that own connections and must release them on shutdown.
type Closer interface {
	CloseAll() error
}
