package siwx

import (
	"strings"
	"time"
)

// TimestampFormat is the ISO-8601 layout used for every timestamp that
// ends up inside a signed message. Timestamps are always rendered in UTC
// with millisecond precision, e.g. 2024-12-05T16:02:32.905Z.
const TimestampFormat = "2006-01-02T15:04:05.000Z07:00"

// FormatTimestamp renders t using TimestampFormat.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampFormat)
}

// ParseTimestamp accepts any RFC 3339 timestamp, with or without
// fractional seconds.
func ParseTimestamp(value string) (time.Time, error) {
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		ts, err = time.Parse(time.RFC3339Nano, value)
		if err != nil {
			return time.Time{}, err
		}
	}
	return ts, nil
}

// Input is what differs between users of the same application when a
// message is created.
type Input struct {
	AccountAddress string     `json:"accountAddress"`
	ChainID        string     `json:"chainId"`
	NotBefore      *time.Time `json:"notBefore,omitempty"`
}

// Data is the content of a sign-in message. Its canonical text form is
// produced by Stringify.
type Data struct {
	Domain         string   `json:"domain"`
	URI            string   `json:"uri"`
	AccountAddress string   `json:"accountAddress"`
	ChainID        string   `json:"chainId"`
	Version        string   `json:"version"`
	Statement      string   `json:"statement,omitempty"`
	Nonce          string   `json:"nonce"`
	IssuedAt       string   `json:"issuedAt,omitempty"`
	ExpirationTime string   `json:"expirationTime,omitempty"`
	NotBefore      string   `json:"notBefore,omitempty"`
	RequestID      string   `json:"requestId,omitempty"`
	Resources      []string `json:"resources,omitempty"`
}

// Namespace returns the chain namespace of d.ChainID, i.e. the part
// before the first colon.
func (d Data) Namespace() string {
	namespace, _ := SplitChainID(d.ChainID)
	return namespace
}

// Expired reports whether d carries an expiration time that is not after
// now. Data with a missing or unparsable expiration time never expires.
func (d Data) Expired(now time.Time) bool {
	if d.ExpirationTime == "" {
		return false
	}
	exp, err := ParseTimestamp(d.ExpirationTime)
	if err != nil {
		return false
	}
	return !exp.After(now)
}

// SplitChainID splits a chain-agnostic identifier of the form
// namespace:reference.
func SplitChainID(chainID string) (namespace, reference string) {
	namespace, reference, found := strings.Cut(chainID, ":")
	if !found {
		return "", chainID
	}
	return namespace, reference
}

// Message is a Data value together with the human readable network name
// that is rendered in its header line.
type Message struct {
	Data

	NetworkName string `json:"-"`
	// ClearChainIDNamespace renders only the chain reference on the
	// "Chain ID:" line.
	ClearChainIDNamespace bool `json:"-"`
}

// String returns the text that has to be signed by the wallet.
func (m *Message) String() string {
	data := m.Data
	if m.ClearChainIDNamespace {
		_, data.ChainID = SplitChainID(data.ChainID)
	}
	return Stringify(data, m.NetworkName)
}

// Session is a signed message. A session is only ever persisted after
// its signature has been verified.
type Session struct {
	Data      Data   `json:"data"`
	Message   string `json:"message"`
	Signature string `json:"signature"`
}
