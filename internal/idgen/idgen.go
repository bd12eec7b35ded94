// Package idgen provides short, URL-safe unique ID generation backed by nanoid.
package idgen

import (
	"fmt"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// Prefixes for the ID families the pipeline mints.
const (
	ClientPrefix  = "cl-" // client records
	SessionPrefix = "cs-" // realtime channel sessions
	RequestPrefix = "rq-" // move request ids
)

// Alphabet defines the character set used for the random portion of the ID.
var Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Length is the number of random characters generated (excluding the prefix).
var Length = 10

// NewClientID returns a new unique client record ID.
func NewClientID() (string, error) {
	return generate(ClientPrefix)
}

// NewSessionID returns a new unique channel session ID.
func NewSessionID() (string, error) {
	return generate(SessionPrefix)
}

// NewRequestID returns a new unique move request ID. Clients attach it to a
// move so server-side retries stay idempotent.
func NewRequestID() (string, error) {
	return generate(RequestPrefix)
}

func generate(prefix string) (string, error) {
	id, err := nanoid.Generate(Alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return prefix + id, nil
}
