package siwx

import (
	"fmt"
	"strings"
)

// UnknownNetworkName is rendered in the header line when the chain of a
// message cannot be resolved to a network name.
const UnknownNetworkName = "Unknown Network"

// Stringify builds the canonical text of a sign-in message. The output is
// a pure function of its arguments; lines of absent optional fields are
// left out entirely.
func Stringify(data Data, networkName string) string {
	if networkName == "" {
		networkName = UnknownNetworkName
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%s wants you to sign in with your %s account:\n", data.Domain, networkName))
	sb.WriteString(fmt.Sprintf("%s\n\n", data.AccountAddress))

	if data.Statement != "" {
		sb.WriteString(fmt.Sprintf("%s\n\n", data.Statement))
	}

	sb.WriteString(fmt.Sprintf("URI: %s\n", data.URI))
	sb.WriteString(fmt.Sprintf("Version: %s\n", data.Version))
	sb.WriteString(fmt.Sprintf("Chain ID: %s\n", data.ChainID))
	sb.WriteString(fmt.Sprintf("Nonce: %s\n", data.Nonce))

	if data.IssuedAt != "" {
		sb.WriteString(fmt.Sprintf("Issued At: %s\n", data.IssuedAt))
	}
	if data.ExpirationTime != "" {
		sb.WriteString(fmt.Sprintf("Expiration Time: %s\n", data.ExpirationTime))
	}
	if data.NotBefore != "" {
		sb.WriteString(fmt.Sprintf("Not Before: %s\n", data.NotBefore))
	}
	if data.RequestID != "" {
		sb.WriteString(fmt.Sprintf("Request ID: %s\n", data.RequestID))
	}

	if len(data.Resources) > 0 {
		sb.WriteString("Resources:\n")
		for _, resource := range data.Resources {
			sb.WriteString(fmt.Sprintf("- %s\n", resource))
		}
	}

	return strings.TrimSpace(sb.String())
}
