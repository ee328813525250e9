package siwx

import (
	"errors"
	"fmt"
)

var (
	// ErrVerificationFailed is matched by every *VerificationError.
	ErrVerificationFailed = errors.New("siwx: session verification failed")
	// ErrNoApplicableVerifier is the reason of a *VerificationError when no
	// configured verifier handles the namespace of the session.
	ErrNoApplicableVerifier = errors.New("siwx: no verifier handles the session chain")
	// ErrSignatureRejected is the reason of a *VerificationError when at
	// least one applicable verifier refused the signature.
	ErrSignatureRejected = errors.New("siwx: signature was rejected")
	// ErrUnsupportedOperation is returned by storage backends for actions
	// they deliberately do not implement.
	ErrUnsupportedOperation = errors.New("siwx: operation is not supported by this storage")
)

// VerificationError is returned when a session does not pass
// verification. Nothing is persisted when it is returned.
type VerificationError struct {
	Session Session
	Reason  error
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("siwx: session for %s on %s failed verification: %v", e.Session.Data.AccountAddress, e.Session.Data.ChainID, e.Reason)
}

func (e *VerificationError) Is(target error) bool {
	return target == ErrVerificationFailed
}

func (e *VerificationError) Unwrap() error {
	return e.Reason
}

// Static parser errors
var (
	ErrMessageTooShort          = errors.New("siwx: message needs at least 6 lines")
	ErrCRLFLineEndings          = errors.New("siwx: message lines must end with \"\\n\", found \"\\r\\n\"")
	ErrInvalidHeader            = errors.New("siwx: message first line does not match \"<domain> wants you to sign in with your <network> account:\"")
	ErrInvalidAddress           = errors.New("siwx: account address is empty")
	ErrThirdLineNotEmpty        = errors.New("siwx: third line must be empty")
	ErrInvalidIssuedAt          = errors.New("siwx: Issued At is not a valid ISO8601 timestamp")
	ErrInvalidExpirationTime    = errors.New("siwx: Expiration Time is not a valid ISO8601 timestamp")
	ErrInvalidNotBefore         = errors.New("siwx: Not Before is not a valid ISO8601 timestamp")
	ErrMissingURI               = errors.New("siwx: URI is not specified")
	ErrMissingVersion           = errors.New("siwx: Version is not specified")
	ErrMissingChainID           = errors.New("siwx: Chain ID is not specified")
	ErrMissingNonce             = errors.New("siwx: Nonce is not specified")
	ErrIssuedAfterExpiration    = errors.New("siwx: Issued At is after Expiration Time")
	ErrNotBeforeAfterExpiration = errors.New("siwx: Not Before is after Expiration Time")
)

// Dynamic error constructors
func errUnparsableLine(index int) error {
	return fmt.Errorf("siwx: encountered unparsable line at index %d", index)
}
