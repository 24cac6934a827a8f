// AngelaMos | 2026
// service_test.go

package registration

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/stockease/internal/auth"
	"github.com/carterperez-dev/stockease/internal/core"
)

type fakeAccounts struct {
	existing map[string]bool
	created  []string
}

func (f *fakeAccounts) EmailExists(
	_ context.Context,
	email string,
) (bool, error) {
	return f.existing[email], nil
}

func (f *fakeAccounts) CreateAccount(
	_ context.Context,
	email, passwordHash, firstName, lastName string,
) (*auth.UserInfo, error) {
	if f.existing[email] {
		return nil, core.ErrDuplicateKey
	}
	f.existing[email] = true
	f.created = append(f.created, email)
	return &auth.UserInfo{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: passwordHash,
		Role:         "user",
	}, nil
}

type capturingSender struct {
	to      string
	subject string
	body    string
	fail    bool
}

func (c *capturingSender) Send(
	_ context.Context,
	to, subject, body string,
) error {
	c.to = to
	c.subject = subject
	c.body = body
	if c.fail {
		return assert.AnError
	}
	return nil
}

func newTestService(
	kv *core.MemoryKV,
	sender *capturingSender,
) (*Service, *fakeAccounts) {
	accounts := &fakeAccounts{existing: make(map[string]bool)}
	store := NewStore(kv, 5*time.Minute)
	svc := NewService(store, accounts, sender, slog.Default())
	return svc, accounts
}

// storedOTP digs the OTP out of the pending session, standing in for
// reading the verification email.
func storedOTP(t *testing.T, kv *core.MemoryKV, token string) string {
	t.Helper()

	raw, err := kv.Get(context.Background(), "user_registration:"+token)
	require.NoError(t, err)

	var pending PendingRegistration
	require.NoError(t, json.Unmarshal([]byte(raw), &pending))
	return pending.OTP
}

func TestInitiateStoresSessionAndSendsOTP(t *testing.T) {
	ctx := context.Background()
	kv := core.NewMemoryKV()
	sender := &capturingSender{}
	svc, accounts := newTestService(kv, sender)

	token, err := svc.Initiate(ctx, SignupRequest{
		Email:     "new@example.com",
		Password:  "supersecret1",
		Password2: "supersecret1",
	})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	// No account yet; only a pending session.
	assert.Empty(t, accounts.created)

	otp := storedOTP(t, kv, token)
	assert.Len(t, otp, 6)

	assert.Equal(t, "new@example.com", sender.to)
	assert.Equal(t, "Your OTP for StockEase Registration", sender.subject)
	assert.Contains(t, sender.body, otp)
	assert.Contains(t, sender.body, "expire in 5 minutes")
}

func TestInitiateRejectsExistingEmail(t *testing.T) {
	ctx := context.Background()
	kv := core.NewMemoryKV()
	svc, accounts := newTestService(kv, &capturingSender{})
	accounts.existing["taken@example.com"] = true

	_, err := svc.Initiate(ctx, SignupRequest{
		Email:     "taken@example.com",
		Password:  "supersecret1",
		Password2: "supersecret1",
	})
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestInitiateSurvivesMailFailure(t *testing.T) {
	ctx := context.Background()
	kv := core.NewMemoryKV()
	sender := &capturingSender{fail: true}
	svc, _ := newTestService(kv, sender)

	token, err := svc.Initiate(ctx, SignupRequest{
		Email:     "new@example.com",
		Password:  "supersecret1",
		Password2: "supersecret1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, storedOTP(t, kv, token))
}

func TestVerifyCreatesAccountOnce(t *testing.T) {
	ctx := context.Background()
	kv := core.NewMemoryKV()
	svc, accounts := newTestService(kv, &capturingSender{})

	token, err := svc.Initiate(ctx, SignupRequest{
		Email:     "new@example.com",
		Password:  "supersecret1",
		Password2: "supersecret1",
	})
	require.NoError(t, err)

	otp := storedOTP(t, kv, token)

	userInfo, err := svc.Verify(ctx, VerifyOTPRequest{Token: token, OTP: otp})
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", userInfo.Email)
	assert.Equal(t, []string{"new@example.com"}, accounts.created)

	// The session is single-use; a replay behaves like an expired one.
	_, err = svc.Verify(ctx, VerifyOTPRequest{Token: token, OTP: otp})
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.Len(t, accounts.created, 1)
}

func TestVerifyRejectsWrongOTP(t *testing.T) {
	ctx := context.Background()
	kv := core.NewMemoryKV()
	svc, accounts := newTestService(kv, &capturingSender{})

	token, err := svc.Initiate(ctx, SignupRequest{
		Email:     "new@example.com",
		Password:  "supersecret1",
		Password2: "supersecret1",
	})
	require.NoError(t, err)

	otp := storedOTP(t, kv, token)
	wrong := "000000"
	if otp == wrong {
		wrong = "000001"
	}

	_, err = svc.Verify(ctx, VerifyOTPRequest{Token: token, OTP: wrong})
	assert.ErrorIs(t, err, ErrInvalidOTP)
	assert.Empty(t, accounts.created)

	// A wrong guess does not consume the session.
	_, err = svc.Verify(ctx, VerifyOTPRequest{Token: token, OTP: otp})
	assert.NoError(t, err)
}

func TestVerifyUnknownToken(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(core.NewMemoryKV(), &capturingSender{})

	_, err := svc.Verify(ctx, VerifyOTPRequest{
		Token: uuid.New().String(),
		OTP:   "123456",
	})
	assert.ErrorIs(t, err, ErrSessionExpired)
}

func TestVerifyExpiredSession(t *testing.T) {
	ctx := context.Background()
	kv := core.NewMemoryKV()

	now := time.Now()
	kv.SetClock(func() time.Time { return now })

	svc, accounts := newTestService(kv, &capturingSender{})

	token, err := svc.Initiate(ctx, SignupRequest{
		Email:     "new@example.com",
		Password:  "supersecret1",
		Password2: "supersecret1",
	})
	require.NoError(t, err)

	otp := storedOTP(t, kv, token)

	now = now.Add(6 * time.Minute)

	_, err = svc.Verify(ctx, VerifyOTPRequest{Token: token, OTP: otp})
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.Empty(t, accounts.created)
}
