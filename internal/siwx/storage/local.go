// Package storage holds the session storage backends.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/supabase/siwx/internal/siwx"
)

// DefaultSessionsKey is the key the local backend stores sessions under
// when none is given.
const DefaultSessionsKey = "siwx-sessions"

// LocalStorage keeps all sessions as a single JSON array under one key of
// a KeyValueStore. Writes are serialized within the process only: two
// processes sharing a key may overwrite each other's changes.
type LocalStorage struct {
	mu    sync.Mutex
	store KeyValueStore
	key   string
}

func NewLocalStorage(store KeyValueStore, key string) *LocalStorage {
	if key == "" {
		key = DefaultSessionsKey
	}
	return &LocalStorage{store: store, key: key}
}

func (l *LocalStorage) Add(ctx context.Context, session siwx.Session) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	sessions, err := l.load()
	if err != nil {
		return err
	}

	return l.save(append(sessions, session))
}

func (l *LocalStorage) Set(ctx context.Context, sessions []siwx.Session) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.save(sessions)
}

func (l *LocalStorage) Get(ctx context.Context, chainID, address string) ([]siwx.Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	sessions, err := l.load()
	if err != nil {
		return nil, err
	}

	matching := []siwx.Session{}
	for _, session := range sessions {
		if matches(session, chainID, address) {
			matching = append(matching, session)
		}
	}

	return matching, nil
}

func (l *LocalStorage) Delete(ctx context.Context, chainID, address string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	sessions, err := l.load()
	if err != nil {
		return err
	}

	kept := []siwx.Session{}
	for _, session := range sessions {
		if !matches(session, chainID, address) {
			kept = append(kept, session)
		}
	}

	return l.save(kept)
}

func matches(session siwx.Session, chainID, address string) bool {
	return session.Data.ChainID == chainID && session.Data.AccountAddress == address
}

func (l *LocalStorage) load() ([]siwx.Session, error) {
	raw, ok, err := l.store.GetItem(l.key)
	if err != nil || !ok || raw == "" {
		return nil, err
	}

	var sessions []siwx.Session
	if err := json.Unmarshal([]byte(raw), &sessions); err != nil {
		return nil, fmt.Errorf("storage: sessions under %q are not valid JSON: %w", l.key, err)
	}

	return sessions, nil
}

func (l *LocalStorage) save(sessions []siwx.Session) error {
	if sessions == nil {
		sessions = []siwx.Session{}
	}

	data, err := json.Marshal(sessions)
	if err != nil {
		return err
	}

	return l.store.SetItem(l.key, string(data))
}
