// Package middleware decorates process stores with cross-cutting behavior.
package middleware

import "github.com/aretw0/atsim/pkg/ports"

// Middleware allows wrapping a ProcessStore to add behavior.
type Middleware func(ports.ProcessStore) ports.ProcessStore

// Chain wraps store with mws. The first middleware is the outermost one.
func Chain(store ports.ProcessStore, mws ...Middleware) ports.ProcessStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}
