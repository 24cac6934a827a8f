// AngelaMos | 2026
// service.go

package registration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/carterperez-dev/stockease/internal/auth"
	"github.com/carterperez-dev/stockease/internal/core"
	"github.com/carterperez-dev/stockease/internal/mail"
)

var (
	ErrEmailExists    = errors.New("email already registered")
	ErrSessionExpired = errors.New("registration session expired")
	ErrInvalidOTP     = errors.New("invalid otp")
)

const (
	otpMailSubject = "Your OTP for StockEase Registration"
	otpMailBody    = "Your OTP for registration is: %s. " +
		"It will expire in 5 minutes."
)

// AccountCreator is the slice of the user service this flow needs.
type AccountCreator interface {
	EmailExists(ctx context.Context, email string) (bool, error)
	CreateAccount(
		ctx context.Context,
		email, passwordHash, firstName, lastName string,
	) (*auth.UserInfo, error)
}

type Service struct {
	store  *Store
	users  AccountCreator
	mailer mail.Sender
	logger *slog.Logger
}

func NewService(
	store *Store,
	users AccountCreator,
	mailer mail.Sender,
	logger *slog.Logger,
) *Service {
	return &Service{
		store:  store,
		users:  users,
		mailer: mailer,
		logger: logger.With("service", "registration"),
	}
}

// Initiate validates a signup, parks it as a pending session, and emails
// the OTP. No account exists until the OTP is verified.
func (s *Service) Initiate(
	ctx context.Context,
	req SignupRequest,
) (string, error) {
	exists, err := s.users.EmailExists(ctx, req.Email)
	if err != nil {
		return "", fmt.Errorf("check email: %w", err)
	}
	if exists {
		return "", ErrEmailExists
	}

	passwordHash, err := core.HashPassword(req.Password)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	otp, err := core.GenerateOTP()
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}

	token, err := s.store.Put(ctx, PendingRegistration{
		Email:        req.Email,
		PasswordHash: passwordHash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		OTP:          otp,
	})
	if err != nil {
		return "", err
	}

	// Delivery is best effort. The session already exists, and the user
	// can restart signup if the mail never arrives.
	if err := s.mailer.Send(
		ctx,
		req.Email,
		otpMailSubject,
		fmt.Sprintf(otpMailBody, otp),
	); err != nil {
		s.logger.Warn("otp mail delivery failed",
			"email", req.Email,
			"error", err,
		)
		core.AddSpanEvent(ctx, "otp_mail_failed")
	}

	return token, nil
}

// Verify checks the OTP against the pending session, consumes the session,
// and creates the account. Consumption happens before account creation so
// a concurrent duplicate submit cannot create two accounts.
func (s *Service) Verify(
	ctx context.Context,
	req VerifyOTPRequest,
) (*auth.UserInfo, error) {
	pending, err := s.store.Get(ctx, req.Token)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, ErrSessionExpired
		}
		return nil, err
	}

	if !core.CompareOTP(req.OTP, pending.OTP) {
		return nil, ErrInvalidOTP
	}

	won, err := s.store.Consume(ctx, req.Token)
	if err != nil {
		return nil, err
	}
	if !won {
		// Lost the race or the session expired between read and delete.
		return nil, ErrSessionExpired
	}

	userInfo, err := s.users.CreateAccount(
		ctx,
		pending.Email,
		pending.PasswordHash,
		pending.FirstName,
		pending.LastName,
	)
	if err != nil {
		if errors.Is(err, core.ErrDuplicateKey) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("create account: %w", err)
	}

	return userInfo, nil
}
