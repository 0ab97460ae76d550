//go:build !swagger

package httpapi

import "github.com/go-chi/chi/v5"

// MountSwagger serves the API docs under /swagger/ in builds tagged swagger.
// This build carries no docs and mounts nothing.
func MountSwagger(chi.Router) {}
