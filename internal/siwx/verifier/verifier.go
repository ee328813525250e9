// Package verifier holds the per namespace signature verifiers.
package verifier

import (
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/supabase/siwx/internal/siwx"
)

const (
	NamespaceBIP122 = "bip122"
	NamespaceEIP155 = "eip155"
	NamespaceSolana = "solana"
)

// namespace implements ShouldVerify for every verifier.
type namespace string

// ShouldVerify reports whether the session chain belongs to the namespace.
func (n namespace) ShouldVerify(session siwx.Session) bool {
	return strings.HasPrefix(session.Data.ChainID, string(n)+":")
}

func (n namespace) logger(session siwx.Session) logrus.FieldLogger {
	return logrus.WithFields(logrus.Fields{
		"component": "siwx_verifier",
		"namespace": string(n),
		"chain_id":  session.Data.ChainID,
		"address":   session.Data.AccountAddress,
	})
}

// All returns one verifier for every supported namespace.
func All() []siwx.Verifier {
	return []siwx.Verifier{
		NewBIP122Verifier(),
		NewEIP155Verifier(),
		NewSolanaVerifier(),
	}
}
