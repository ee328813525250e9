package siwx

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/supabase/siwx/internal/observability"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"
)

var (
	verificationCounter = observability.ObtainMetricCounter("siwx_session_verifications_total", "Number of sessions verified, by namespace and result")
	commitCounter       = observability.ObtainMetricCounter("siwx_session_commits_total", "Number of verified sessions handed to storage, by operation")
)

// Config wires one Messenger, a set of Verifiers and one Storage together.
// It is the only place that decides whether a session may be persisted:
// a session reaches Storage only after every applicable verifier has
// accepted it.
type Config struct {
	messenger Messenger
	verifiers []Verifier
	storage   Storage

	filterExpired bool
	now           func() time.Time
	log           logrus.FieldLogger
}

type Option interface {
	apply(*Config)
}

type optionFunc func(*Config)

func (f optionFunc) apply(c *Config) { f(c) }

// WithLogger sets the logger used to report rejected sessions.
func WithLogger(log logrus.FieldLogger) Option {
	return optionFunc(func(c *Config) {
		c.log = log
	})
}

// WithExpiredSessionsFiltered drops sessions whose expiration time has
// passed from the results of GetSessions.
func WithExpiredSessionsFiltered(enabled bool) Option {
	return optionFunc(func(c *Config) {
		c.filterExpired = enabled
	})
}

// WithClock overrides the time source used for expiration checks.
func WithClock(now func() time.Time) Option {
	return optionFunc(func(c *Config) {
		c.now = now
	})
}

func NewConfig(messenger Messenger, storage Storage, verifiers []Verifier, opts ...Option) *Config {
	c := &Config{
		messenger: messenger,
		verifiers: verifiers,
		storage:   storage,
		now:       time.Now,
		log:       logrus.WithField("component", "siwx"),
	}
	for _, o := range opts {
		o.apply(c)
	}
	return c
}

// CreateMessage builds a new message to be signed for input.
func (c *Config) CreateMessage(ctx context.Context, input Input) (*Message, error) {
	return c.messenger.CreateMessage(ctx, input)
}

// AddSession verifies session and stores it. A *VerificationError is
// returned, and Storage is left untouched, when verification fails.
func (c *Config) AddSession(ctx context.Context, session Session) error {
	if err := c.verifySession(ctx, session); err != nil {
		return err
	}

	if err := c.storage.Add(ctx, session); err != nil {
		return err
	}

	commitCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", "add")))

	return nil
}

// SetSessions verifies all sessions concurrently and replaces the stored
// sessions with them only if every one of them is valid. The returned
// *VerificationError carries the first invalid session in input order.
func (c *Config) SetSessions(ctx context.Context, sessions []Session) error {
	errs := make([]error, len(sessions))

	var g errgroup.Group
	for i := range sessions {
		i := i
		g.Go(func() error {
			errs[i] = c.verifySession(ctx, sessions[i])
			return nil
		})
	}
	_ = g.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}

	if err := c.storage.Set(ctx, sessions); err != nil {
		return err
	}

	commitCounter.Add(ctx, int64(len(sessions)), metric.WithAttributes(attribute.String("operation", "set")))

	return nil
}

// GetSessions returns the stored sessions for chainID and address.
func (c *Config) GetSessions(ctx context.Context, chainID, address string) ([]Session, error) {
	sessions, err := c.storage.Get(ctx, chainID, address)
	if err != nil {
		return nil, err
	}

	if !c.filterExpired {
		return sessions, nil
	}

	now := c.now()
	valid := make([]Session, 0, len(sessions))
	for _, session := range sessions {
		if !session.Data.Expired(now) {
			valid = append(valid, session)
		}
	}

	return valid, nil
}

// RevokeSession deletes every stored session for chainID and address.
func (c *Config) RevokeSession(ctx context.Context, chainID, address string) error {
	return c.storage.Delete(ctx, chainID, address)
}

// VerifySession reports whether session would be accepted by AddSession,
// without storing it.
func (c *Config) VerifySession(ctx context.Context, session Session) error {
	return c.verifySession(ctx, session)
}

func (c *Config) verifySession(ctx context.Context, session Session) error {
	var applicable []Verifier
	for _, v := range c.verifiers {
		if v.ShouldVerify(session) {
			applicable = append(applicable, v)
		}
	}

	namespace := session.Data.Namespace()
	log := c.log.WithFields(logrus.Fields{
		"chain_id": session.Data.ChainID,
		"address":  session.Data.AccountAddress,
	})

	if len(applicable) == 0 {
		verificationCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("namespace", namespace),
			attribute.String("result", "no_verifier"),
		))
		log.Warn("rejecting session, no verifier handles its chain")
		return &VerificationError{Session: session, Reason: ErrNoApplicableVerifier}
	}

	results := make([]bool, len(applicable))

	var g errgroup.Group
	for i, v := range applicable {
		i, v := i, v
		g.Go(func() error {
			results[i] = v.Verify(ctx, session)
			return nil
		})
	}
	_ = g.Wait()

	for _, ok := range results {
		if !ok {
			verificationCounter.Add(ctx, 1, metric.WithAttributes(
				attribute.String("namespace", namespace),
				attribute.String("result", "rejected"),
			))
			log.Warn("rejecting session, signature did not verify")
			return &VerificationError{Session: session, Reason: ErrSignatureRejected}
		}
	}

	verificationCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("namespace", namespace),
		attribute.String("result", "accepted"),
	))

	return nil
}
