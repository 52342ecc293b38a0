// Package storage is the durable key-value store behind the session layer:
// the Go counterpart of the browser's localStorage. The session store writes
// the serialized identity and the token pair here before it announces any
// identity change, so subscribers always read consistent state.
package storage

import (
	"context"
	"errors"
)

// Well-known keys. Logout (and forced logout on refresh failure) clears all
// three together.
const (
	KeyCurrentUser  = "currentUser"
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
)

var ErrKeyNotFound = errors.New("storage: key not found")

type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	// Delete removes the given keys; missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error
}
