package verifier

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/supabase/siwx/internal/siwx"
)

// EIP155Verifier checks EIP-191 personal_sign signatures produced by
// externally owned accounts.
type EIP155Verifier struct {
	namespace
}

func NewEIP155Verifier() *EIP155Verifier {
	return &EIP155Verifier{namespace: NamespaceEIP155}
}

func (v *EIP155Verifier) Verify(ctx context.Context, session siwx.Session) bool {
	if err := VerifyEthereumMessage(session.Message, session.Signature, session.Data.AccountAddress); err != nil {
		v.logger(session).WithError(err).Debug("ethereum signature rejected")
		return false
	}
	return true
}

// VerifyEthereumMessage returns nil when signature, a 65 byte hex encoded
// [R || S || V] signature, was produced over message by address.
func VerifyEthereumMessage(message, signature, address string) error {
	if !common.IsHexAddress(address) {
		return errors.New("eip155: address is not a valid Ethereum address")
	}

	sig, err := hex.DecodeString(removeHexPrefix(signature))
	if err != nil {
		return fmt.Errorf("eip155: invalid signature hex: %w", err)
	}

	if len(sig) != 65 {
		return errors.New("eip155: invalid signature length")
	}

	// Normalize V if needed
	if sig[64] >= 27 {
		sig[64] -= 27
	}

	hash := accounts.TextHash([]byte(message))

	pubKey, err := crypto.SigToPub(hash, sig)
	if err != nil {
		return fmt.Errorf("eip155: error recovering public key: %w", err)
	}

	if crypto.PubkeyToAddress(*pubKey) != common.HexToAddress(address) {
		return errors.New("eip155: signature not from expected address")
	}

	return nil
}

func removeHexPrefix(s string) string {
	if len(s) >= 2 && (strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X")) {
		return s[2:]
	}
	return s
}
