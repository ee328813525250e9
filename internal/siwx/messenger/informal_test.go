package messenger

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/require"
	"github.com/supabase/siwx/internal/conf"
	"github.com/supabase/siwx/internal/siwx"
)

var fixedNow = time.Date(2024, 12, 5, 16, 2, 32, 905000000, time.UTC)

func sequentialNonces() NonceFunc {
	n := 0
	return func(context.Context, siwx.Input) (string, error) {
		n++
		return "nonce" + strings.Repeat("x", n), nil
	}
}

func TestCreateMessage(t *testing.T) {
	m, err := NewInformalMessenger(Params{
		Domain:   "mocked.com",
		URI:      "http://mocked.com/",
		GetNonce: func(context.Context, siwx.Input) (string, error) { return "mock_nonce", nil },
		Networks: conf.DefaultChains(),
		Now:      func() time.Time { return fixedNow },
	})
	require.NoError(t, err)

	msg, err := m.CreateMessage(context.Background(), siwx.Input{
		AccountAddress: "0x1234567890abcdef1234567890abcdef12345678",
		ChainID:        "eip155:1",
	})
	require.NoError(t, err)

	require.Equal(t, "mock_nonce", msg.Nonce)
	require.Equal(t, "1", msg.Version)
	require.Equal(t, "2024-12-05T16:02:32.905Z", msg.IssuedAt)
	require.Empty(t, msg.ExpirationTime)
	require.Empty(t, msg.NotBefore)
	require.Empty(t, msg.RequestID)

	require.Equal(t, `mocked.com wants you to sign in with your Ethereum account:
0x1234567890abcdef1234567890abcdef12345678

URI: http://mocked.com/
Version: 1
Chain ID: eip155:1
Nonce: mock_nonce
Issued At: 2024-12-05T16:02:32.905Z`, msg.String())
}

func TestCreateMessageNonceDifferentiation(t *testing.T) {
	m, err := NewInformalMessenger(Params{
		Domain:   "example.com",
		URI:      "https://example.com",
		GetNonce: sequentialNonces(),
		Networks: conf.DefaultChains(),
		Now:      func() time.Time { return fixedNow },
	})
	require.NoError(t, err)

	input := siwx.Input{AccountAddress: "0xabc", ChainID: "eip155:1"}

	first, err := m.CreateMessage(context.Background(), input)
	require.NoError(t, err)
	second, err := m.CreateMessage(context.Background(), input)
	require.NoError(t, err)

	require.NotEqual(t, first.String(), second.String())

	firstLines := strings.Split(first.String(), "\n")
	secondLines := strings.Split(second.String(), "\n")
	require.Len(t, secondLines, len(firstLines))

	for i := range firstLines {
		if strings.HasPrefix(firstLines[i], "Nonce: ") {
			require.NotEqual(t, firstLines[i], secondLines[i])
			continue
		}
		require.Equal(t, firstLines[i], secondLines[i])
	}
}

func TestCreateMessageExpiration(t *testing.T) {
	m, err := NewInformalMessenger(Params{
		Domain:       "example.com",
		URI:          "https://example.com",
		Statement:    "Sign in to Example",
		Resources:    []string{"https://example.com/terms"},
		Expiration:   10 * time.Minute,
		GetNonce:     LocalNonces(12),
		GetRequestID: func(context.Context, siwx.Input) (string, error) { return "req-1", nil },
		Now:          func() time.Time { return fixedNow },
	})
	require.NoError(t, err)

	msg, err := m.CreateMessage(context.Background(), siwx.Input{AccountAddress: "0xabc", ChainID: "eip155:1"})
	require.NoError(t, err)
	require.Equal(t, "2024-12-05T16:12:32.905Z", msg.ExpirationTime)
	require.Equal(t, "req-1", msg.RequestID)
	require.Len(t, msg.Nonce, 12)

	notBefore := fixedNow.Add(time.Hour)
	msg, err = m.CreateMessage(context.Background(), siwx.Input{AccountAddress: "0xabc", ChainID: "eip155:1", NotBefore: &notBefore})
	require.NoError(t, err)
	require.Equal(t, "2024-12-05T17:02:32.905Z", msg.NotBefore)
	require.Equal(t, "2024-12-05T17:12:32.905Z", msg.ExpirationTime)
	require.Equal(t, "2024-12-05T16:02:32.905Z", msg.IssuedAt)

	require.Equal(t, `example.com wants you to sign in with your Unknown Network account:
0xabc

Sign in to Example

URI: https://example.com
Version: 1
Chain ID: eip155:1
Nonce: `+msg.Nonce+`
Issued At: 2024-12-05T16:02:32.905Z
Expiration Time: 2024-12-05T17:12:32.905Z
Not Before: 2024-12-05T17:02:32.905Z
Request ID: req-1
Resources:
- https://example.com/terms`, msg.String())
}

func TestCreateMessageDefaults(t *testing.T) {
	m, err := NewInformalMessenger(Params{
		GetNonce:              LocalNonces(16),
		GetRequestID:          UUIDRequestIDs(),
		ClearChainIDNamespace: true,
		Networks:              conf.DefaultChains(),
	})
	require.NoError(t, err)

	msg, err := m.CreateMessage(context.Background(), siwx.Input{
		AccountAddress: "bc1qczn7zmd0n8rddeyhfjm9vz5edwznd4vsce4w7a",
		ChainID:        "bip122:000000000019d6689c085ae165831e93",
	})
	require.NoError(t, err)

	require.Equal(t, UnknownDomain, msg.Domain)
	require.Equal(t, UnknownURI, msg.URI)
	require.Equal(t, "bip122:000000000019d6689c085ae165831e93", msg.ChainID)
	require.Equal(t, "Bitcoin", msg.NetworkName)

	_, err = uuid.FromString(msg.RequestID)
	require.NoError(t, err)

	text := msg.String()
	require.True(t, strings.HasPrefix(text, "Unknown Domain wants you to sign in with your Bitcoin account:\n"))
	require.Contains(t, text, "\nURI: Unknown URI\n")
	require.Contains(t, text, "\nChain ID: 000000000019d6689c085ae165831e93\n")
}

func TestCreateMessageNonceError(t *testing.T) {
	nonceErr := errors.New("nonce service unavailable")

	m, err := NewInformalMessenger(Params{
		GetNonce: func(context.Context, siwx.Input) (string, error) { return "", nonceErr },
	})
	require.NoError(t, err)

	_, err = m.CreateMessage(context.Background(), siwx.Input{AccountAddress: "0xabc", ChainID: "eip155:1"})
	require.Equal(t, nonceErr, err)

	_, err = NewInformalMessenger(Params{})
	require.Error(t, err)
}
