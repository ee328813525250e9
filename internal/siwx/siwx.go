// Package siwx implements Sign-In-With-X: chain agnostic sign-in messages,
// per namespace signature verification and persistence of verified
// sessions.
package siwx

import "context"

// Messenger builds the messages users are asked to sign.
type Messenger interface {
	CreateMessage(ctx context.Context, input Input) (*Message, error)
}

// Verifier checks signatures for a single chain namespace. Verify never
// returns an error: malformed input of any kind is reported as false.
type Verifier interface {
	ShouldVerify(session Session) bool
	Verify(ctx context.Context, session Session) bool
}

// Storage persists sessions. Storage implementations do not verify
// sessions themselves; Config only hands them verified ones.
type Storage interface {
	Add(ctx context.Context, session Session) error
	// Set atomically replaces all sessions the backend is responsible for.
	Set(ctx context.Context, sessions []Session) error
	// Get returns the sessions stored for chainID and address, or an empty
	// slice when there are none.
	Get(ctx context.Context, chainID, address string) ([]Session, error)
	Delete(ctx context.Context, chainID, address string) error
}
