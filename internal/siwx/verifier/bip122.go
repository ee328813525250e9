package verifier

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcutil/base58"
	"github.com/btcsuite/btcutil/bech32"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/supabase/siwx/internal/siwx"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // hash160 is defined with RIPEMD-160
)

const bitcoinMessagePrefix = "Bitcoin Signed Message:\n"

// Header byte ranges of BIP-137 signatures: 27-30 uncompressed P2PKH,
// 31-34 compressed P2PKH, 35-38 P2SH-P2WPKH, 39-42 P2WPKH.
const (
	flagUncompressed = 27
	flagCompressed   = 31
	flagMax          = 42
)

const (
	p2pkhMainnet = 0x00
	p2pkhTestnet = 0x6f
	p2shMainnet  = 0x05
	p2shTestnet  = 0xc4
)

var (
	errInvalidSignatureLength = errors.New("bip122: signature must be 65 bytes")
	errInvalidSignatureFlag   = errors.New("bip122: signature header byte is out of range")
	errUncompressedSegwit     = errors.New("bip122: segwit addresses require a compressed public key")
	errAddressMismatch        = errors.New("bip122: signature was not produced by the address")
)

// BIP122Verifier checks Bitcoin "signmessage" signatures (BIP-137): a
// base64 encoded 65 byte compact signature over the double SHA-256 of the
// prefixed message. P2PKH, P2SH-P2WPKH and P2WPKH addresses are supported.
type BIP122Verifier struct {
	namespace
}

func NewBIP122Verifier() *BIP122Verifier {
	return &BIP122Verifier{namespace: NamespaceBIP122}
}

func (v *BIP122Verifier) Verify(ctx context.Context, session siwx.Session) bool {
	if err := VerifyBitcoinMessage(session.Message, session.Signature, session.Data.AccountAddress); err != nil {
		v.logger(session).WithError(err).Debug("bitcoin signature rejected")
		return false
	}
	return true
}

// VerifyBitcoinMessage returns nil when signature is a valid BIP-137
// signature of message by address.
func VerifyBitcoinMessage(message, signature, address string) error {
	sig, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return fmt.Errorf("bip122: invalid signature base64: %w", err)
	}
	if len(sig) != 65 {
		return errInvalidSignatureLength
	}

	flag := sig[0]
	if flag < flagUncompressed || flag > flagMax {
		return errInvalidSignatureFlag
	}

	recoveryID := (flag - flagUncompressed) & 3
	compressed := flag >= flagCompressed

	// RecoverCompact only understands the legacy P2PKH header range.
	compact := make([]byte, 65)
	copy(compact, sig)
	compact[0] = flagUncompressed + recoveryID
	if compressed {
		compact[0] += 4
	}

	pubKey, _, err := ecdsa.RecoverCompact(compact, bitcoinMessageHash(message))
	if err != nil {
		return fmt.Errorf("bip122: error recovering public key: %w", err)
	}

	var serialized []byte
	if compressed {
		serialized = pubKey.SerializeCompressed()
	} else {
		serialized = pubKey.SerializeUncompressed()
	}
	keyHash := hash160(serialized)

	if isBech32Address(address) {
		if !compressed {
			return errUncompressedSegwit
		}
		program, err := decodeWitnessV0(address)
		if err != nil {
			return err
		}
		return compareHash(program, keyHash)
	}

	payload, version, err := base58.CheckDecode(address)
	if err != nil {
		return fmt.Errorf("bip122: invalid base58 address: %w", err)
	}

	switch version {
	case p2pkhMainnet, p2pkhTestnet:
		return compareHash(payload, keyHash)

	case p2shMainnet, p2shTestnet:
		if !compressed {
			return errUncompressedSegwit
		}
		// P2SH-P2WPKH: the script hash commits to OP_0 <20 byte key hash>.
		redeemScript := append([]byte{0x00, 0x14}, keyHash...)
		return compareHash(payload, hash160(redeemScript))

	default:
		return fmt.Errorf("bip122: unsupported address version 0x%02x", version)
	}
}

func bitcoinMessageHash(message string) []byte {
	var buf bytes.Buffer
	writeVarString(&buf, bitcoinMessagePrefix)
	writeVarString(&buf, message)

	first := sha256.Sum256(buf.Bytes())
	second := sha256.Sum256(first[:])
	return second[:]
}

// writeVarString writes s prefixed with its length as a Bitcoin
// CompactSize integer.
func writeVarString(buf *bytes.Buffer, s string) {
	n := uint64(len(s))
	switch {
	case n < 0xfd:
		buf.WriteByte(byte(n))
	case n <= 0xffff:
		buf.WriteByte(0xfd)
		buf.WriteByte(byte(n))
		buf.WriteByte(byte(n >> 8))
	case n <= 0xffffffff:
		buf.WriteByte(0xfe)
		for i := 0; i < 4; i++ {
			buf.WriteByte(byte(n >> (8 * i)))
		}
	default:
		buf.WriteByte(0xff)
		for i := 0; i < 8; i++ {
			buf.WriteByte(byte(n >> (8 * i)))
		}
	}
	buf.WriteString(s)
}

func hash160(b []byte) []byte {
	sum := sha256.Sum256(b)
	h := ripemd160.New()
	h.Write(sum[:])
	return h.Sum(nil)
}

func isBech32Address(address string) bool {
	lower := strings.ToLower(address)
	return strings.HasPrefix(lower, "bc1") || strings.HasPrefix(lower, "tb1") || strings.HasPrefix(lower, "bcrt1")
}

func decodeWitnessV0(address string) ([]byte, error) {
	_, data, err := bech32.Decode(address)
	if err != nil {
		return nil, fmt.Errorf("bip122: invalid bech32 address: %w", err)
	}
	if len(data) < 1 || data[0] != 0 {
		return nil, errors.New("bip122: only witness version 0 addresses are supported")
	}
	program, err := bech32.ConvertBits(data[1:], 5, 8, false)
	if err != nil {
		return nil, fmt.Errorf("bip122: invalid witness program: %w", err)
	}
	if len(program) != 20 {
		return nil, errors.New("bip122: only P2WPKH addresses are supported")
	}
	return program, nil
}

func compareHash(expected, actual []byte) error {
	if !bytes.Equal(expected, actual) {
		return errAddressMismatch
	}
	return nil
}
