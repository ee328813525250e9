package verifier

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"strings"

	"github.com/btcsuite/btcutil/base58"
	"github.com/supabase/siwx/internal/siwx"
)

// SolanaVerifier checks ed25519 signatures of the raw message bytes by the
// base58 encoded public key that is the account address.
type SolanaVerifier struct {
	namespace
}

func NewSolanaVerifier() *SolanaVerifier {
	return &SolanaVerifier{namespace: NamespaceSolana}
}

func (v *SolanaVerifier) Verify(ctx context.Context, session siwx.Session) bool {
	if err := VerifySolanaMessage(session.Message, session.Signature, session.Data.AccountAddress); err != nil {
		v.logger(session).WithError(err).Debug("solana signature rejected")
		return false
	}
	return true
}

// VerifySolanaMessage returns nil when signature, encoded as base58 or as
// base64 (standard or URL alphabet, padded or not), is a valid signature
// of message by address.
func VerifySolanaMessage(message, signature, address string) error {
	pubKey := base58.Decode(address)
	if len(pubKey) != ed25519.PublicKeySize {
		return errors.New("solana: invalid base58 public key or wrong size (must be 32 bytes)")
	}

	sig, err := decodeSolanaSignature(signature)
	if err != nil {
		return err
	}

	if !ed25519.Verify(pubKey, []byte(message), sig) {
		return errors.New("solana: signature verification failed")
	}

	return nil
}

func decodeSolanaSignature(signature string) ([]byte, error) {
	if sig := base58.Decode(signature); len(sig) == ed25519.SignatureSize {
		return sig, nil
	}

	if len(signature) != 86 && len(signature) != 88 {
		return nil, errors.New("solana: signature must be 64 bytes encoded as base58 or base64")
	}

	base64URLSignature := strings.ReplaceAll(strings.ReplaceAll(strings.TrimRight(signature, "="), "+", "-"), "/", "_")
	sig, err := base64.RawURLEncoding.DecodeString(base64URLSignature)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return nil, errors.New("solana: signature does not contain valid base64 characters")
	}

	return sig, nil
}
