package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dvoloshyn/pocket-money/internal/domain"
	"github.com/dvoloshyn/pocket-money/internal/ledger/store"
)

// Context is the validated caller context produced by the Gate: the
// authenticated identity and its account.
type Context struct {
	Identity *domain.Identity
	Account  *domain.Account
}

// Gate resolves the caller's identity and account from an already-verified
// identity and re-validates the transaction PIN on demand. Token
// verification itself happens upstream (middleware); the gate never sees
// tokens.
type Gate struct {
	store  store.Store
	hasher SecretHasher
	log    zerolog.Logger
}

// NewGate creates an access gate over the given store and hasher.
func NewGate(st store.Store, hasher SecretHasher, log zerolog.Logger) *Gate {
	return &Gate{store: st, hasher: hasher, log: log}
}

// ResolveContext validates the caller and returns {identity, account}.
// Fails with domain.ErrNotAuthenticated when identity is nil, with
// domain.ErrAccountMissing when the identity has no account (a data
// integrity violation), and with domain.ErrInvalidSecret when a non-empty
// secret does not match the stored PIN hash.
func (g *Gate) ResolveContext(ctx context.Context, identity *domain.Identity, secret string) (*Context, error) {
	if identity == nil {
		return nil, domain.ErrNotAuthenticated
	}

	var account *domain.Account
	err := g.store.Atomic(ctx, func(tx store.Tx) error {
		var err error
		account, err = tx.AccountByOwner(identity.ID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("identity %s: %w", identity.ID, domain.ErrAccountMissing)
			}
			return err
		}

		if strings.TrimSpace(secret) == "" {
			return nil
		}

		cred, err := tx.CredentialByOwner(identity.ID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("identity %s has no credential: %w", identity.ID, domain.ErrAccountMissing)
			}
			return err
		}
		if err := g.hasher.Verify(cred.PINHash, secret); err != nil {
			g.log.Debug().Str("identity_id", identity.ID.String()).Msg("Invalid PIN attempt")
			return domain.ErrInvalidSecret
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &Context{Identity: identity, Account: account}, nil
}

// RequireSecret is ResolveContext with a mandatory secret. Every
// money-moving operation goes through here: a valid session token alone is
// never enough to move funds.
func (g *Gate) RequireSecret(ctx context.Context, identity *domain.Identity, secret string) (*Context, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, domain.ErrMissingSecret
	}
	return g.ResolveContext(ctx, identity, secret)
}
