package siwx

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type mockMessenger struct {
	mock.Mock
}

func (m *mockMessenger) CreateMessage(ctx context.Context, input Input) (*Message, error) {
	args := m.Called(ctx, input)
	msg, _ := args.Get(0).(*Message)
	return msg, args.Error(1)
}

// signatureVerifier accepts sessions of its namespace whose signature is
// "valid".
type signatureVerifier struct {
	namespace string
}

func (v signatureVerifier) ShouldVerify(session Session) bool {
	return session.Data.Namespace() == v.namespace
}

func (v signatureVerifier) Verify(ctx context.Context, session Session) bool {
	return session.Signature == "valid"
}

type mockStorage struct {
	mock.Mock
}

func (m *mockStorage) Add(ctx context.Context, session Session) error {
	return m.Called(ctx, session).Error(0)
}

func (m *mockStorage) Set(ctx context.Context, sessions []Session) error {
	return m.Called(ctx, sessions).Error(0)
}

func (m *mockStorage) Get(ctx context.Context, chainID, address string) ([]Session, error) {
	args := m.Called(ctx, chainID, address)
	sessions, _ := args.Get(0).([]Session)
	return sessions, args.Error(1)
}

func (m *mockStorage) Delete(ctx context.Context, chainID, address string) error {
	return m.Called(ctx, chainID, address).Error(0)
}

type ConfigTestSuite struct {
	suite.Suite

	messenger *mockMessenger
	storage   *mockStorage
	config    *Config
	now       time.Time
}

func TestConfig(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func (ts *ConfigTestSuite) SetupTest() {
	ts.messenger = new(mockMessenger)
	ts.storage = new(mockStorage)
	ts.now = time.Date(2025, 1, 1, 0, 5, 0, 0, time.UTC)
	ts.config = NewConfig(ts.messenger, ts.storage,
		[]Verifier{signatureVerifier{namespace: "eip155"}, signatureVerifier{namespace: "bip122"}},
		WithClock(func() time.Time { return ts.now }),
	)
}

func session(chainID, address, signature string) Session {
	return Session{
		Data: Data{
			Domain:         "example.com",
			URI:            "https://example.com",
			AccountAddress: address,
			ChainID:        chainID,
			Version:        "1",
			Nonce:          "12345678",
		},
		Message:   "message",
		Signature: signature,
	}
}

func (ts *ConfigTestSuite) TestCreateMessage() {
	ctx := context.Background()
	input := Input{AccountAddress: "0xabc", ChainID: "eip155:1"}
	expected := &Message{Data: Data{AccountAddress: "0xabc", ChainID: "eip155:1", Nonce: "n"}, NetworkName: "Ethereum"}

	ts.messenger.On("CreateMessage", ctx, input).Return(expected, nil).Once()

	msg, err := ts.config.CreateMessage(ctx, input)
	require.NoError(ts.T(), err)
	require.Equal(ts.T(), expected, msg)

	messengerErr := errors.New("nonce service down")
	ts.messenger.On("CreateMessage", ctx, input).Return(nil, messengerErr).Once()

	_, err = ts.config.CreateMessage(ctx, input)
	require.Equal(ts.T(), messengerErr, err)
	ts.messenger.AssertExpectations(ts.T())
}

func (ts *ConfigTestSuite) TestAddSession() {
	ctx := context.Background()
	s := session("eip155:1", "0xabc", "valid")

	ts.storage.On("Add", ctx, s).Return(nil).Once()

	require.NoError(ts.T(), ts.config.AddSession(ctx, s))
	ts.storage.AssertExpectations(ts.T())
}

func (ts *ConfigTestSuite) TestAddSessionRejectsTamperedSignature() {
	ctx := context.Background()
	s := session("eip155:1", "0xabc", "valie")

	err := ts.config.AddSession(ctx, s)
	require.ErrorIs(ts.T(), err, ErrVerificationFailed)
	require.ErrorIs(ts.T(), err, ErrSignatureRejected)

	var verr *VerificationError
	require.ErrorAs(ts.T(), err, &verr)
	require.Equal(ts.T(), s, verr.Session)

	ts.storage.AssertNotCalled(ts.T(), "Add", mock.Anything, mock.Anything)
}

func (ts *ConfigTestSuite) TestAddSessionWithoutVerifier() {
	ctx := context.Background()
	s := session("solana:5eykt4UsFv8P8NJdTREpY1vzqKqZKvdp", "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM", "valid")

	err := ts.config.AddSession(ctx, s)
	require.ErrorIs(ts.T(), err, ErrVerificationFailed)
	require.ErrorIs(ts.T(), err, ErrNoApplicableVerifier)

	ts.storage.AssertNotCalled(ts.T(), "Add", mock.Anything, mock.Anything)
}

func (ts *ConfigTestSuite) TestAddSessionRequiresEveryApplicableVerifier() {
	ctx := context.Background()
	rejecting := &countingVerifier{namespace: "eip155", result: false}
	accepting := &countingVerifier{namespace: "eip155", result: true}

	config := NewConfig(ts.messenger, ts.storage, []Verifier{accepting, rejecting})

	err := config.AddSession(ctx, session("eip155:1", "0xabc", "valid"))
	require.ErrorIs(ts.T(), err, ErrSignatureRejected)
	require.Equal(ts.T(), 1, accepting.calls)
	require.Equal(ts.T(), 1, rejecting.calls)

	ts.storage.AssertNotCalled(ts.T(), "Add", mock.Anything, mock.Anything)
}

func (ts *ConfigTestSuite) TestAddSessionStorageError() {
	ctx := context.Background()
	s := session("bip122:000000000019d6689c085ae165831e93", "bc1q", "valid")
	storageErr := errors.New("disk full")

	ts.storage.On("Add", ctx, s).Return(storageErr).Once()

	err := ts.config.AddSession(ctx, s)
	require.Equal(ts.T(), storageErr, err)
	require.NotErrorIs(ts.T(), err, ErrVerificationFailed)
}

func (ts *ConfigTestSuite) TestSetSessions() {
	ctx := context.Background()
	sessions := []Session{
		session("eip155:1", "0xabc", "valid"),
		session("bip122:000000000019d6689c085ae165831e93", "bc1q", "valid"),
	}

	ts.storage.On("Set", ctx, sessions).Return(nil).Once()

	require.NoError(ts.T(), ts.config.SetSessions(ctx, sessions))
	ts.storage.AssertExpectations(ts.T())
}

func (ts *ConfigTestSuite) TestSetSessionsIsAllOrNothing() {
	ctx := context.Background()
	valid := session("eip155:1", "0xabc", "valid")
	firstInvalid := session("eip155:1", "0xdef", "invalid")
	secondInvalid := session("bip122:000000000019d6689c085ae165831e93", "bc1q", "invalid")

	err := ts.config.SetSessions(ctx, []Session{valid, firstInvalid, secondInvalid})
	require.ErrorIs(ts.T(), err, ErrVerificationFailed)

	var verr *VerificationError
	require.ErrorAs(ts.T(), err, &verr)
	require.Equal(ts.T(), firstInvalid, verr.Session)

	ts.storage.AssertNotCalled(ts.T(), "Set", mock.Anything, mock.Anything)
}

func (ts *ConfigTestSuite) TestSetSessionsEmpty() {
	ctx := context.Background()

	ts.storage.On("Set", ctx, []Session{}).Return(nil).Once()

	require.NoError(ts.T(), ts.config.SetSessions(ctx, []Session{}))
	ts.storage.AssertExpectations(ts.T())
}

func (ts *ConfigTestSuite) TestGetSessions() {
	ctx := context.Background()
	expired := session("eip155:1", "0xabc", "valid")
	expired.Data.ExpirationTime = "2025-01-01T00:04:00.000Z"
	current := session("eip155:1", "0xabc", "valid")
	current.Data.ExpirationTime = "2025-01-01T00:10:00.000Z"
	unbounded := session("eip155:1", "0xabc", "valid")

	stored := []Session{expired, current, unbounded}
	ts.storage.On("Get", ctx, "eip155:1", "0xabc").Return(stored, nil)

	sessions, err := ts.config.GetSessions(ctx, "eip155:1", "0xabc")
	require.NoError(ts.T(), err)
	require.Equal(ts.T(), stored, sessions)

	filtering := NewConfig(ts.messenger, ts.storage, nil,
		WithExpiredSessionsFiltered(true),
		WithClock(func() time.Time { return ts.now }),
	)

	sessions, err = filtering.GetSessions(ctx, "eip155:1", "0xabc")
	require.NoError(ts.T(), err)
	require.Equal(ts.T(), []Session{current, unbounded}, sessions)
}

func (ts *ConfigTestSuite) TestGetSessionsError() {
	ctx := context.Background()
	storageErr := errors.New("connection reset")

	ts.storage.On("Get", ctx, "eip155:1", "0xabc").Return(nil, storageErr)

	_, err := ts.config.GetSessions(ctx, "eip155:1", "0xabc")
	require.Equal(ts.T(), storageErr, err)
}

func (ts *ConfigTestSuite) TestRevokeSession() {
	ctx := context.Background()

	ts.storage.On("Delete", ctx, "eip155:1", "0xabc").Return(nil).Once()

	require.NoError(ts.T(), ts.config.RevokeSession(ctx, "eip155:1", "0xabc"))
	ts.storage.AssertExpectations(ts.T())
}

func (ts *ConfigTestSuite) TestVerifySession() {
	ctx := context.Background()

	require.NoError(ts.T(), ts.config.VerifySession(ctx, session("eip155:1", "0xabc", "valid")))
	require.ErrorIs(ts.T(), ts.config.VerifySession(ctx, session("eip155:1", "0xabc", "")), ErrSignatureRejected)

	ts.storage.AssertNotCalled(ts.T(), "Add", mock.Anything, mock.Anything)
}

func TestVerificationErrorMessage(t *testing.T) {
	err := &VerificationError{Session: session("eip155:1", "0xabc", ""), Reason: ErrSignatureRejected}
	require.Equal(t, "siwx: session for 0xabc on eip155:1 failed verification: siwx: signature was rejected", err.Error())
	require.True(t, errors.Is(err, ErrVerificationFailed))
	require.False(t, errors.Is(err, ErrNoApplicableVerifier))
}

type countingVerifier struct {
	namespace string
	result    bool
	calls     int
}

func (v *countingVerifier) ShouldVerify(session Session) bool {
	return session.Data.Namespace() == v.namespace
}

func (v *countingVerifier) Verify(ctx context.Context, session Session) bool {
	v.calls++
	return v.result
}
