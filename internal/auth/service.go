package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dvoloshyn/pocket-money/internal/domain"
	"github.com/dvoloshyn/pocket-money/internal/ledger/store"
)

// Registration validation errors.
var (
	ErrEmailTaken       = &domain.Error{Code: "EMAIL_ALREADY_REGISTERED", Message: "email is already registered"}
	ErrPhoneTaken       = &domain.Error{Code: "PHONE_ALREADY_REGISTERED", Message: "phone number is already registered"}
	ErrPasswordMismatch = &domain.Error{Code: "PASSWORD_MISMATCH", Message: "password confirmation does not match"}
	ErrPINMismatch      = &domain.Error{Code: "PIN_MISMATCH", Message: "PIN confirmation does not match"}
	ErrWeakPassword     = &domain.Error{Code: "WEAK_PASSWORD", Message: "password must be at least 8 characters"}
	ErrInvalidPIN       = &domain.Error{Code: "INVALID_PIN", Message: "PIN must be 4 to 6 digits"}
	ErrUnderage         = &domain.Error{Code: "USER_NOT_ADULT", Message: "you must be at least 18 years old to register"}
)

const minPasswordLength = 8

// publicCodeAttempts bounds regeneration on the (vanishingly rare) random
// public-code collision.
const publicCodeAttempts = 3

// RegisterInput is the registration request payload.
type RegisterInput struct {
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	BirthDate time.Time `json:"birth_date"`

	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`

	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
	PIN                  string `json:"pin"`
	PINConfirmation      string `json:"pin_confirmation"`
}

// Profile is the outward identity representation.
type Profile struct {
	ID         uuid.UUID `json:"id"`
	FullName   string    `json:"full_name"`
	BirthDate  time.Time `json:"birth_date"`
	PublicCode string    `json:"public_code"`
	CreatedAt  time.Time `json:"created_at"`
}

// Service handles registration, login, and token refresh. Registration
// creates the identity, its credential, and its zero-balance account as one
// atomic unit.
type Service struct {
	store  store.Store
	hasher SecretHasher
	tokens *TokenIssuer
	log    zerolog.Logger
}

// NewService creates an auth service.
func NewService(st store.Store, hasher SecretHasher, tokens *TokenIssuer, log zerolog.Logger) *Service {
	return &Service{store: st, hasher: hasher, tokens: tokens, log: log}
}

// Register creates a new identity with credential and account, and issues a
// token pair for the fresh session.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Profile, *TokenPair, error) {
	if err := validateRegistration(in); err != nil {
		return nil, nil, err
	}

	passwordHash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, nil, err
	}
	pinHash, err := s.hasher.Hash(in.PIN)
	if err != nil {
		return nil, nil, err
	}

	identity := domain.NewIdentity(strings.TrimSpace(in.FirstName), strings.TrimSpace(in.LastName), in.BirthDate)
	if !identity.IsAdult(time.Now().UTC()) {
		return nil, nil, ErrUnderage
	}

	err = s.store.Atomic(ctx, func(tx store.Tx) error {
		if _, err := tx.CredentialByEmail(in.Email); err == nil {
			return ErrEmailTaken
		}

		if err := insertWithFreshCode(tx, identity); err != nil {
			return err
		}

		cred := &domain.Credential{
			ID:           uuid.New(),
			OwnerID:      identity.ID,
			Email:        in.Email,
			PhoneNumber:  in.PhoneNumber,
			PasswordHash: passwordHash,
			PINHash:      pinHash,
			CreatedAt:    time.Now().UTC(),
		}
		if err := tx.InsertCredential(cred); err != nil {
			if errors.Is(err, store.ErrDuplicateKey) {
				return ErrPhoneTaken
			}
			return err
		}

		return tx.InsertAccount(domain.NewAccount(identity.ID))
	})
	if err != nil {
		return nil, nil, err
	}

	pair, err := s.tokens.Issue(identity.ID)
	if err != nil {
		return nil, nil, err
	}

	s.log.Info().Str("identity_id", identity.ID.String()).Msg("Registration successful")
	return profileOf(identity), pair, nil
}

// insertWithFreshCode retries identity insertion with a regenerated public
// code on collision.
func insertWithFreshCode(tx store.Tx, identity *domain.Identity) error {
	var err error
	for range publicCodeAttempts {
		if err = tx.InsertIdentity(identity); err == nil {
			return nil
		}
		if !errors.Is(err, store.ErrDuplicateKey) {
			return err
		}
		identity.PublicCode = domain.GeneratePublicCode()
	}
	return fmt.Errorf("allocating public code: %w", err)
}

// Login authenticates by email and transaction PIN and issues a token pair.
// A wrong email and a wrong PIN are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, pin string) (*Profile, *TokenPair, error) {
	var identity *domain.Identity
	err := s.store.Atomic(ctx, func(tx store.Tx) error {
		cred, err := tx.CredentialByEmail(email)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return domain.ErrInvalidCredentials
			}
			return err
		}
		if err := s.hasher.Verify(cred.PINHash, pin); err != nil {
			s.log.Debug().Msg("Login failed: invalid PIN")
			return domain.ErrInvalidCredentials
		}
		identity, err = tx.IdentityByID(cred.OwnerID)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	pair, err := s.tokens.Issue(identity.ID)
	if err != nil {
		return nil, nil, err
	}

	s.log.Info().Str("identity_id", identity.ID.String()).Msg("Login successful")
	return profileOf(identity), pair, nil
}

// Refresh exchanges a valid refresh token for a new token pair.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	identityID, err := s.tokens.Verify(refreshToken, TokenTypeRefresh)
	if err != nil {
		return nil, err
	}

	err = s.store.Atomic(ctx, func(tx store.Tx) error {
		_, err := tx.IdentityByID(identityID)
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidToken
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	return s.tokens.Issue(identityID)
}

// ChangePIN replaces the transaction PIN after verifying the current one.
func (s *Service) ChangePIN(ctx context.Context, identity *domain.Identity, currentPIN, newPIN, newPINConfirmation string) error {
	if identity == nil {
		return domain.ErrNotAuthenticated
	}
	if newPIN != newPINConfirmation {
		return ErrPINMismatch
	}
	if !validPIN(newPIN) {
		return ErrInvalidPIN
	}

	pinHash, err := s.hasher.Hash(newPIN)
	if err != nil {
		return err
	}

	err = s.store.Atomic(ctx, func(tx store.Tx) error {
		cred, err := tx.CredentialByOwner(identity.ID)
		if err != nil {
			return err
		}
		if err := s.hasher.Verify(cred.PINHash, currentPIN); err != nil {
			return domain.ErrInvalidSecret
		}
		cred.PINHash = pinHash
		return tx.PutCredential(cred)
	})
	if err != nil {
		return err
	}

	s.log.Info().Str("identity_id", identity.ID.String()).Msg("Transaction PIN changed")
	return nil
}

// ChangePassword replaces the login password after verifying the current
// one.
func (s *Service) ChangePassword(ctx context.Context, identity *domain.Identity, currentPassword, newPassword, newPasswordConfirmation string) error {
	if identity == nil {
		return domain.ErrNotAuthenticated
	}
	if newPassword != newPasswordConfirmation {
		return ErrPasswordMismatch
	}
	if len(newPassword) < minPasswordLength {
		return ErrWeakPassword
	}

	passwordHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	err = s.store.Atomic(ctx, func(tx store.Tx) error {
		cred, err := tx.CredentialByOwner(identity.ID)
		if err != nil {
			return err
		}
		if err := s.hasher.Verify(cred.PasswordHash, currentPassword); err != nil {
			return domain.ErrInvalidCredentials
		}
		cred.PasswordHash = passwordHash
		return tx.PutCredential(cred)
	})
	if err != nil {
		return err
	}

	s.log.Info().Str("identity_id", identity.ID.String()).Msg("Password changed")
	return nil
}

// CurrentUser returns the profile of the authenticated identity.
func (s *Service) CurrentUser(identity *domain.Identity) (*Profile, error) {
	if identity == nil {
		return nil, domain.ErrNotAuthenticated
	}
	return profileOf(identity), nil
}

func profileOf(identity *domain.Identity) *Profile {
	return &Profile{
		ID:         identity.ID,
		FullName:   identity.FullName(),
		BirthDate:  identity.BirthDate,
		PublicCode: identity.PublicCode,
		CreatedAt:  identity.CreatedAt,
	}
}

func validateRegistration(in RegisterInput) error {
	if in.Password != in.PasswordConfirmation {
		return ErrPasswordMismatch
	}
	if in.PIN != in.PINConfirmation {
		return ErrPINMismatch
	}
	if len(in.Password) < minPasswordLength {
		return ErrWeakPassword
	}
	if !validPIN(in.PIN) {
		return ErrInvalidPIN
	}
	return nil
}

func validPIN(pin string) bool {
	if len(pin) < 4 || len(pin) > 6 {
		return false
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
