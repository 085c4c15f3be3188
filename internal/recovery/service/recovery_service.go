package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/L1oneSs/AuthTemplate/internal/credential"
	"github.com/L1oneSs/AuthTemplate/internal/mail"
	"github.com/L1oneSs/AuthTemplate/internal/security"
	userdomain "github.com/L1oneSs/AuthTemplate/internal/user/domain"
)

// Sentinel errors for the recovery service; the handler maps them to HTTP
// status codes.
var (
	ErrPasswordMismatch = errors.New("passwords do not match")
	ErrInvalidToken     = errors.New("invalid recovery token")
	ErrUserNotFound     = errors.New("user not found")
	ErrUnknownEmailType = errors.New("unknown email type")
)

// UserRepo is the minimal user repository needed by the recovery service.
type UserRepo interface {
	GetByID(ctx context.Context, id int64) (*userdomain.User, error)
	GetByEmail(ctx context.Context, email string) (*userdomain.User, error)
}

// RecoveryService drives the forgotten-password flow: it mints recovery
// tokens, mails them out, and applies the new password once a token comes
// back.
type RecoveryService struct {
	users       UserRepo
	credentials *credential.Store
	codec       *security.IntegrityCodec
	mailer      *mail.RecoveryMailer
	log         *zap.Logger
	sendTimeout time.Duration
}

// NewRecoveryService returns a RecoveryService with the given dependencies.
func NewRecoveryService(users UserRepo, credentials *credential.Store, codec *security.IntegrityCodec, mailer *mail.RecoveryMailer, log *zap.Logger) *RecoveryService {
	return &RecoveryService{
		users:       users,
		credentials: credentials,
		codec:       codec,
		mailer:      mailer,
		log:         log,
		sendTimeout: 30 * time.Second,
	}
}

// RequestReset mints a reset token for the account behind email and mails it.
// The outcome is identical whether or not the account exists, and delivery
// happens in the background, so the caller learns nothing about the address.
func (s *RecoveryService) RequestReset(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil || user.Deleted {
		s.log.Info("recovery: reset requested for unknown account")
		return nil
	}
	token, err := s.codec.Issue(user.ID, security.PurposeResetPassword, time.Time{})
	if err != nil {
		return err
	}
	s.dispatch(user, token, security.PurposeResetPassword)
	return nil
}

// CheckToken verifies a recovery token without consuming it and returns the
// account it belongs to, for the client to show before the password form.
func (s *RecoveryService) CheckToken(ctx context.Context, token string) (*userdomain.User, string, error) {
	userID, purpose, err := s.codec.Verify(token, time.Now())
	if err != nil {
		return nil, "", fmt.Errorf("%w: %s", ErrInvalidToken, err)
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, "", err
	}
	if user == nil || user.Deleted {
		return nil, "", ErrUserNotFound
	}
	return user, purpose, nil
}

// CompletePassword verifies the token for the expected purpose and sets the
// new password. The token is stateless and is not invalidated by use; its
// single-use property rests on its lifetime and the client discarding it.
func (s *RecoveryService) CompletePassword(ctx context.Context, token, expectedPurpose, newPassword, confirmPassword string) error {
	if newPassword != confirmPassword {
		return ErrPasswordMismatch
	}
	userID, purpose, err := s.codec.Verify(token, time.Now())
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidToken, err)
	}
	if purpose != expectedPurpose {
		return fmt.Errorf("%w: token purpose mismatch", ErrInvalidToken)
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil || user.Deleted {
		return ErrUserNotFound
	}
	return s.credentials.SetPassword(ctx, user, newPassword)
}

// SendEmail mails a recovery link of the given kind to an existing account.
// Used by back-office flows that provision accounts without a password.
func (s *RecoveryService) SendEmail(ctx context.Context, email, emailType string) error {
	var purpose string
	switch emailType {
	case mail.KindResetPassword:
		purpose = security.PurposeResetPassword
	case mail.KindSetPassword:
		purpose = security.PurposeSetPassword
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEmailType, emailType)
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil || user.Deleted {
		return ErrUserNotFound
	}
	token, err := s.codec.Issue(user.ID, purpose, time.Time{})
	if err != nil {
		return err
	}
	s.dispatch(user, token, purpose)
	return nil
}

// dispatch hands the email to a background goroutine; the request returns
// without waiting for SMTP. Delivery failures are logged, never surfaced.
func (s *RecoveryService) dispatch(user *userdomain.User, token, purpose string) {
	email, name, userID := user.Email, user.FullName(), user.ID
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.sendTimeout)
		defer cancel()
		var ok bool
		if purpose == security.PurposeSetPassword {
			ok = s.mailer.SendPasswordSet(ctx, email, name, token)
		} else {
			ok = s.mailer.SendPasswordReset(ctx, email, name, token)
		}
		if !ok {
			s.log.Error("recovery: email delivery failed",
				zap.Int64("user_id", userID),
				zap.String("purpose", purpose))
		}
	}()
}
