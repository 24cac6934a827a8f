// AngelaMos | 2026
// store.go

package registration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/carterperez-dev/stockease/internal/core"
)

const sessionKeyPrefix = "user_registration:"

// PendingRegistration is the short-lived signup state held between the
// signup call and OTP verification. Only the password hash is stored.
type PendingRegistration struct {
	Email        string `json:"email"`
	PasswordHash string `json:"password_hash"`
	FirstName    string `json:"first_name,omitempty"`
	LastName     string `json:"last_name,omitempty"`
	OTP          string `json:"otp"`
}

// Store keeps pending registrations in a TTL'd key-value store so
// abandoned signups vanish without any cleanup job.
type Store struct {
	kv  core.KV
	ttl time.Duration
}

func NewStore(kv core.KV, ttl time.Duration) *Store {
	return &Store{kv: kv, ttl: ttl}
}

// Put saves a pending registration under a fresh opaque token and returns
// the token. The token is the only handle the client ever sees.
func (s *Store) Put(
	ctx context.Context,
	pending PendingRegistration,
) (string, error) {
	payload, err := json.Marshal(pending)
	if err != nil {
		return "", fmt.Errorf("marshal pending registration: %w", err)
	}

	token := uuid.New().String()
	key := sessionKeyPrefix + token

	if err := s.kv.Set(ctx, key, string(payload), s.ttl); err != nil {
		return "", fmt.Errorf("store pending registration: %w", err)
	}

	return token, nil
}

// Get retrieves the pending registration for a token. A missing or
// expired session reports core.ErrNotFound.
func (s *Store) Get(
	ctx context.Context,
	token string,
) (*PendingRegistration, error) {
	raw, err := s.kv.Get(ctx, sessionKeyPrefix+token)
	if err != nil {
		if errors.Is(err, core.ErrCacheMiss) {
			return nil, fmt.Errorf("pending registration: %w", core.ErrNotFound)
		}
		return nil, fmt.Errorf("get pending registration: %w", err)
	}

	var pending PendingRegistration
	if err := json.Unmarshal([]byte(raw), &pending); err != nil {
		return nil, fmt.Errorf("decode pending registration: %w", err)
	}

	return &pending, nil
}

// Consume deletes the session and reports whether this caller won the
// delete. Exactly one concurrent verifier observes true, which makes the
// session single-use without any locking.
func (s *Store) Consume(ctx context.Context, token string) (bool, error) {
	deleted, err := s.kv.Delete(ctx, sessionKeyPrefix+token)
	if err != nil {
		return false, fmt.Errorf("consume pending registration: %w", err)
	}
	return deleted == 1, nil
}
