package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"github.com/supabase/siwx/internal/siwx"
	"github.com/supabase/siwx/internal/utilities"
)

const (
	defaultRemoteTimeout = 10 * time.Second
	defaultResponseLimit = 1024 * 1024 // 1MB
	defaultAuthTokenKey  = "siwx-auth-token"
	defaultNonceTokenKey = "siwx-nonce-token"
	defaultSDKType       = "siwx"
	remoteAPIPath        = "/auth/v1/"
)

// Remote service actions.
const (
	actionNonce              = "nonce"
	actionMe                 = "me"
	actionAuthenticate       = "authenticate"
	actionUpdateUserMetadata = "update-user-metadata"
	actionSignOut            = "sign-out"
)

// Account is the identity the remote service asserts for the stored auth
// token.
type Account struct {
	Address      string      `json:"address"`
	ChainID      flexChainID `json:"chainId"`
	CAIP2Network string      `json:"caip2Network"`
}

// CAIPChainID returns the namespace:reference identifier of the account's
// chain. Bare references are assumed to be EVM chain ids.
func (a Account) CAIPChainID() string {
	if a.CAIP2Network != "" {
		return a.CAIP2Network
	}
	chainID := string(a.ChainID)
	if chainID == "" || strings.Contains(chainID, ":") {
		return chainID
	}
	return "eip155:" + chainID
}

// flexChainID accepts both numbers and strings.
type flexChainID string

func (c *flexChainID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*c = flexChainID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*c = flexChainID(n.String())
	return nil
}

// AuthClaims is the subset of the auth token payload this client reads.
// The token is verified by the remote service, not here.
type AuthClaims struct {
	jwt.RegisteredClaims
	Address      string `json:"address"`
	CAIP2Network string `json:"caip2Network"`
}

// Expired reports whether the token carries an expiry that is not after now.
func (c *AuthClaims) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && !c.ExpiresAt.After(now)
}

func parseAuthClaims(token string) (*AuthClaims, error) {
	claims := new(AuthClaims)
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// RemoteStorage keeps the single live session of this client on a remote
// authentication service. The service asserts at most one identity per
// auth token, so Get returns at most one session and Set is unsupported.
type RemoteStorage struct {
	baseURL    string
	projectID  string
	sdkType    string
	sdkVersion string
	clientID   string

	tokens        KeyValueStore
	authTokenKey  string
	nonceTokenKey string

	client        *http.Client
	limitResponse int64
	now           func() time.Time
	log           logrus.FieldLogger
}

type RemoteOption interface {
	apply(*RemoteStorage)
}

type remoteOptionFunc func(*RemoteStorage)

func (f remoteOptionFunc) apply(r *RemoteStorage) { f(r) }

func WithTimeout(d time.Duration) RemoteOption {
	return remoteOptionFunc(func(r *RemoteStorage) {
		r.client.Timeout = d
	})
}

// WithSDK sets the sdk type and version reported to the service.
func WithSDK(sdkType, sdkVersion string) RemoteOption {
	return remoteOptionFunc(func(r *RemoteStorage) {
		if sdkType != "" {
			r.sdkType = sdkType
		}
		r.sdkVersion = sdkVersion
	})
}

func WithClientID(clientID string) RemoteOption {
	return remoteOptionFunc(func(r *RemoteStorage) {
		r.clientID = clientID
	})
}

// WithTokenKeys sets the keys the auth and nonce tokens are stored under.
func WithTokenKeys(authTokenKey, nonceTokenKey string) RemoteOption {
	return remoteOptionFunc(func(r *RemoteStorage) {
		if authTokenKey != "" {
			r.authTokenKey = authTokenKey
		}
		if nonceTokenKey != "" {
			r.nonceTokenKey = nonceTokenKey
		}
	})
}

func WithResponseLimit(n int64) RemoteOption {
	return remoteOptionFunc(func(r *RemoteStorage) {
		r.limitResponse = n
	})
}

func WithRemoteLogger(log logrus.FieldLogger) RemoteOption {
	return remoteOptionFunc(func(r *RemoteStorage) {
		r.log = log
	})
}

func NewRemoteStorage(baseURL, projectID string, tokens KeyValueStore, opts ...RemoteOption) *RemoteStorage {
	r := &RemoteStorage{
		baseURL:       strings.TrimRight(baseURL, "/"),
		projectID:     projectID,
		sdkType:       defaultSDKType,
		tokens:        tokens,
		authTokenKey:  defaultAuthTokenKey,
		nonceTokenKey: defaultNonceTokenKey,
		client:        &http.Client{Timeout: defaultRemoteTimeout},
		limitResponse: defaultResponseLimit,
		now:           time.Now,
		log:           logrus.WithField("component", "siwx_remote_storage"),
	}
	for _, o := range opts {
		o.apply(r)
	}
	return r
}

// GetNonce asks the service for a new nonce and keeps the token that
// binds it to the next Add.
func (r *RemoteStorage) GetNonce(ctx context.Context, _ siwx.Input) (string, error) {
	var res struct {
		Nonce string `json:"nonce"`
		Token string `json:"token"`
	}

	if err := r.request(ctx, http.MethodGet, actionNonce, nil, nil, &res); err != nil {
		return "", err
	}

	if err := r.tokens.SetItem(r.nonceTokenKey, res.Token); err != nil {
		return "", err
	}

	return res.Nonce, nil
}

func (r *RemoteStorage) Add(ctx context.Context, session siwx.Session) error {
	nonceToken, ok, err := r.tokens.GetItem(r.nonceTokenKey)
	if err != nil {
		return err
	}

	body := struct {
		Message   string  `json:"message"`
		Signature string  `json:"signature"`
		ClientID  *string `json:"clientId"`
	}{
		Message:   session.Message,
		Signature: session.Signature,
	}
	if r.clientID != "" {
		body.ClientID = &r.clientID
	}

	var res struct {
		Token string `json:"token"`
	}

	headers := map[string]string{}
	if ok && nonceToken != "" {
		headers["x-nonce-jwt"] = "Bearer " + nonceToken
	}
	if err := r.request(ctx, http.MethodPost, actionAuthenticate, headers, body, &res); err != nil {
		return err
	}

	if err := r.tokens.SetItem(r.authTokenKey, res.Token); err != nil {
		return err
	}

	log := r.log.WithField("chain_id", session.Data.ChainID)
	claims, err := parseAuthClaims(res.Token)
	if err != nil {
		log.WithError(err).Warn("auth token payload could not be decoded")
	} else {
		log.WithFields(logrus.Fields{
			"address": claims.Address,
			"subject": claims.Subject,
		}).Info("authenticated with remote service")
	}

	return nil
}

// Set always fails: the service holds a single session per client and
// has no bulk replace.
func (r *RemoteStorage) Set(ctx context.Context, sessions []siwx.Session) error {
	return siwx.ErrUnsupportedOperation
}

// Get returns the session asserted by the service when it belongs to
// chainID and address. Addresses are compared case-insensitively. An auth
// token that has expired yields no session without calling the service.
func (r *RemoteStorage) Get(ctx context.Context, chainID, address string) ([]siwx.Session, error) {
	authToken, ok, err := r.tokens.GetItem(r.authTokenKey)
	if err != nil {
		return nil, err
	}
	if !ok || authToken == "" {
		return []siwx.Session{}, nil
	}

	if claims, err := parseAuthClaims(authToken); err == nil && claims.Expired(r.now()) {
		r.log.WithField("expires_at", claims.ExpiresAt.Time).Debug("auth token has expired")
		return []siwx.Session{}, nil
	}

	account, err := r.Me(ctx)
	if err != nil {
		return nil, err
	}

	if account == nil || account.CAIPChainID() != chainID || !strings.EqualFold(account.Address, address) {
		return []siwx.Session{}, nil
	}

	return []siwx.Session{{
		Data: siwx.Data{
			AccountAddress: account.Address,
			ChainID:        account.CAIPChainID(),
		},
	}}, nil
}

// Claims decodes the stored auth token without calling the service.
func (r *RemoteStorage) Claims() (*AuthClaims, error) {
	authToken, ok, err := r.tokens.GetItem(r.authTokenKey)
	if err != nil {
		return nil, err
	}
	if !ok || authToken == "" {
		return nil, ErrNotAuthenticated
	}
	return parseAuthClaims(authToken)
}

// Me returns the account the service asserts for the stored auth token.
func (r *RemoteStorage) Me(ctx context.Context) (*Account, error) {
	headers, err := r.authHeaders()
	if err != nil {
		return nil, err
	}

	var account *Account
	if err := r.request(ctx, http.MethodGet, actionMe, headers, nil, &account); err != nil {
		return nil, err
	}

	return account, nil
}

// Delete signs out of the service and forgets both tokens. The service
// only knows one session, so chainID and address are not sent.
func (r *RemoteStorage) Delete(ctx context.Context, chainID, address string) error {
	authToken, ok, err := r.tokens.GetItem(r.authTokenKey)
	if err != nil {
		return err
	}

	if ok && authToken != "" {
		headers := map[string]string{"Authorization": "Bearer " + authToken}
		if err := r.request(ctx, http.MethodPost, actionSignOut, headers, nil, nil); err != nil {
			return err
		}
	}

	if err := r.tokens.RemoveItem(r.authTokenKey); err != nil {
		return err
	}
	return r.tokens.RemoveItem(r.nonceTokenKey)
}

// SetAccountMetadata replaces the metadata of the authenticated account.
func (r *RemoteStorage) SetAccountMetadata(ctx context.Context, metadata any) error {
	headers, err := r.authHeaders()
	if err != nil {
		return err
	}

	body := struct {
		Metadata any `json:"metadata"`
	}{Metadata: metadata}

	return r.request(ctx, http.MethodPatch, actionUpdateUserMetadata, headers, body, nil)
}

func (r *RemoteStorage) authHeaders() (map[string]string, error) {
	authToken, ok, err := r.tokens.GetItem(r.authTokenKey)
	if err != nil {
		return nil, err
	}
	if !ok || authToken == "" {
		return nil, ErrNotAuthenticated
	}
	return map[string]string{"Authorization": "Bearer " + authToken}, nil
}

// request calls action and decodes a JSON response into out. Transport
// errors are returned unchanged; responses that are not 2xx, or that are
// not JSON when out is set, become a *ResponseError.
func (r *RemoteStorage) request(
	ctx context.Context,
	method string,
	action string,
	headers map[string]string,
	input any,
	out any,
) error {
	var body io.Reader
	if input != nil {
		data, err := json.Marshal(input)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+remoteAPIPath+action, body)
	if err != nil {
		return err
	}

	if input != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("x-project-id", r.projectID)
	req.Header.Set("x-sdk-type", r.sdkType)
	if r.sdkVersion != "" {
		req.Header.Set("x-sdk-version", r.sdkVersion)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	log := r.log.WithFields(logrus.Fields{
		"method": method,
		"action": action,
	})
	log.Debug("calling remote service")

	rsp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer utilities.SafeClose(rsp.Body)

	data, err := io.ReadAll(io.LimitReader(rsp.Body, r.limitResponse))
	if err != nil {
		return err
	}

	if rsp.StatusCode < 200 || rsp.StatusCode > 299 {
		log.WithField("status", rsp.StatusCode).Warn("remote service rejected request")
		return &ResponseError{StatusCode: rsp.StatusCode, Body: string(data)}
	}

	if !isJSON(rsp.Header.Get("Content-Type")) {
		if out == nil {
			return nil
		}
		return &ResponseError{StatusCode: rsp.StatusCode, Body: string(data)}
	}

	if out == nil || len(data) == 0 {
		return nil
	}

	return json.Unmarshal(data, out)
}

func isJSON(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}
