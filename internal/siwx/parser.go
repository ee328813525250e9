package siwx

import (
	"strings"
	"time"
)

const (
	headerInfix  = " wants you to sign in with your "
	headerSuffix = " account:"
)

// ParseMessage is the inverse of Stringify: it reads the canonical text of
// a sign-in message back into its Data and the network name found in the
// header line. Timestamps are validated but kept verbatim, so that
// Stringify(parsed.Data, parsed.NetworkName) reproduces raw.
// REF: https://github.com/ChainAgnostic/CAIPs/blob/main/CAIPs/caip-122.md
func ParseMessage(raw string) (*Message, error) {
	// A signature covers the exact bytes, so CRLF text is never rewritten.
	if strings.Contains(raw, "\r\n") {
		return nil, ErrCRLFLineEndings
	}

	lines := strings.Split(raw, "\n")
	if len(lines) < 6 {
		return nil, ErrMessageTooShort
	}

	header := lines[0]
	if !strings.HasSuffix(header, headerSuffix) {
		return nil, ErrInvalidHeader
	}

	domain, network, found := strings.Cut(strings.TrimSuffix(header, headerSuffix), headerInfix)
	if !found || strings.TrimSpace(domain) == "" || strings.TrimSpace(network) == "" {
		return nil, ErrInvalidHeader
	}

	address := strings.TrimSpace(lines[1])
	if address == "" {
		return nil, ErrInvalidAddress
	}

	msg := &Message{
		Data: Data{
			Domain:         domain,
			AccountAddress: address,
		},
		NetworkName: network,
	}

	if lines[2] != "" {
		return nil, ErrThirdLineNotEmpty
	}

	startIndex := 3
	if lines[3] != "" && lines[4] == "" {
		msg.Statement = lines[3]
		startIndex = 5
	}

	var issuedAt, expirationTime, notBefore time.Time

	inResources := false
	for i := startIndex; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])

		if inResources {
			if after, ok := strings.CutPrefix(line, "- "); ok {
				msg.Resources = append(msg.Resources, strings.TrimSpace(after))
				continue
			}
			inResources = false
		}

		if line == "Resources:" {
			inResources = true
			continue
		}

		if line == "" {
			continue
		}

		key, value, found := strings.Cut(line, ":")
		if !found {
			return nil, errUnparsableLine(i)
		}

		value = strings.TrimSpace(value)

		switch key {
		case "URI":
			msg.URI = value

		case "Version":
			msg.Version = value

		case "Chain ID":
			msg.ChainID = value

		case "Nonce":
			msg.Nonce = value

		case "Issued At":
			ts, err := ParseTimestamp(value)
			if err != nil {
				return nil, ErrInvalidIssuedAt
			}
			issuedAt = ts
			msg.IssuedAt = value

		case "Expiration Time":
			ts, err := ParseTimestamp(value)
			if err != nil {
				return nil, ErrInvalidExpirationTime
			}
			expirationTime = ts
			msg.ExpirationTime = value

		case "Not Before":
			ts, err := ParseTimestamp(value)
			if err != nil {
				return nil, ErrInvalidNotBefore
			}
			notBefore = ts
			msg.NotBefore = value

		case "Request ID":
			msg.RequestID = value
		}
	}

	if msg.URI == "" {
		return nil, ErrMissingURI
	}

	if msg.Version == "" {
		return nil, ErrMissingVersion
	}

	if msg.ChainID == "" {
		return nil, ErrMissingChainID
	}

	if msg.Nonce == "" {
		return nil, ErrMissingNonce
	}

	if !issuedAt.IsZero() && !expirationTime.IsZero() && issuedAt.After(expirationTime) {
		return nil, ErrIssuedAfterExpiration
	}

	if !notBefore.IsZero() && !expirationTime.IsZero() && notBefore.After(expirationTime) {
		return nil, ErrNotBeforeAfterExpiration
	}

	return msg, nil
}
