package messenger

import (
	"context"
	"errors"
	"time"

	"github.com/gofrs/uuid"
	"github.com/supabase/siwx/internal/crypto"
	"github.com/supabase/siwx/internal/siwx"
)

const (
	// UnknownDomain and UnknownURI are used when a messenger is created
	// without an application origin.
	UnknownDomain = "Unknown Domain"
	UnknownURI    = "Unknown URI"

	defaultVersion = "1"
)

// NonceFunc returns a fresh single-use nonce for input.
type NonceFunc func(ctx context.Context, input siwx.Input) (string, error)

// RequestIDFunc returns the request identifier of a new message.
type RequestIDFunc func(ctx context.Context, input siwx.Input) (string, error)

// NetworkResolver resolves a chain identifier to its network name.
type NetworkResolver interface {
	NetworkName(chainID string) (string, bool)
}

type Params struct {
	Domain    string
	URI       string
	Version   string
	Statement string
	Resources []string

	// Expiration, when non-zero, sets the expiration time of every message
	// to Not Before (or the creation time) plus Expiration.
	Expiration time.Duration

	ClearChainIDNamespace bool

	GetNonce     NonceFunc
	GetRequestID RequestIDFunc
	Networks     NetworkResolver

	Now func() time.Time
}

// InformalMessenger builds messages in the CAIP-122 text format. It keeps
// no state between calls besides its configuration.
type InformalMessenger struct {
	params Params
}

func NewInformalMessenger(params Params) (*InformalMessenger, error) {
	if params.GetNonce == nil {
		return nil, errors.New("messenger: a nonce source is required")
	}
	if params.Domain == "" {
		params.Domain = UnknownDomain
	}
	if params.URI == "" {
		params.URI = UnknownURI
	}
	if params.Version == "" {
		params.Version = defaultVersion
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &InformalMessenger{params: params}, nil
}

// LocalNonces returns a NonceFunc producing random alphanumeric nonces of
// the given length.
func LocalNonces(length int) NonceFunc {
	return func(context.Context, siwx.Input) (string, error) {
		return crypto.SecureNonce(length)
	}
}

// UUIDRequestIDs returns a RequestIDFunc producing random UUIDs.
func UUIDRequestIDs() RequestIDFunc {
	return func(context.Context, siwx.Input) (string, error) {
		id, err := uuid.NewV4()
		if err != nil {
			return "", err
		}
		return id.String(), nil
	}
}

func (m *InformalMessenger) CreateMessage(ctx context.Context, input siwx.Input) (*siwx.Message, error) {
	nonce, err := m.params.GetNonce(ctx, input)
	if err != nil {
		return nil, err
	}

	var requestID string
	if m.params.GetRequestID != nil {
		requestID, err = m.params.GetRequestID(ctx, input)
		if err != nil {
			return nil, err
		}
	}

	now := m.params.Now()

	data := siwx.Data{
		Domain:         m.params.Domain,
		URI:            m.params.URI,
		AccountAddress: input.AccountAddress,
		ChainID:        input.ChainID,
		Version:        m.params.Version,
		Statement:      m.params.Statement,
		Nonce:          nonce,
		IssuedAt:       siwx.FormatTimestamp(now),
		RequestID:      requestID,
	}

	if len(m.params.Resources) > 0 {
		data.Resources = append([]string(nil), m.params.Resources...)
	}

	if input.NotBefore != nil {
		data.NotBefore = siwx.FormatTimestamp(*input.NotBefore)
	}

	if m.params.Expiration > 0 {
		start := now
		if input.NotBefore != nil {
			start = *input.NotBefore
		}
		data.ExpirationTime = siwx.FormatTimestamp(start.Add(m.params.Expiration))
	}

	var networkName string
	if m.params.Networks != nil {
		networkName, _ = m.params.Networks.NetworkName(input.ChainID)
	}

	return &siwx.Message{
		Data:                  data,
		NetworkName:           networkName,
		ClearChainIDNamespace: m.params.ClearChainIDNamespace,
	}, nil
}
