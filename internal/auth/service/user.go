package service

import (
	"context"
	"errors"
	"strings"

	"github.com/aussiebroadwan/tally/internal/auth/domain"
	"github.com/aussiebroadwan/tally/internal/auth/store"
	"github.com/aussiebroadwan/tally/pkg/cryptox"
	"github.com/aussiebroadwan/tally/pkg/idx"
	"github.com/aussiebroadwan/tally/pkg/slogx"
)

var (
	ErrEmailTaken         = errors.New("user: email already registered")
	ErrInvalidCredentials = errors.New("user: invalid email or password")
)

type UserService struct {
	Store  store.Store
	Hasher *cryptox.PasswordHasher
}

// NormalizeEmail is the form emails are stored and looked up in.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SignUp creates a user with a freshly hashed password. A non-nil issue
// runs inside the same transaction once the row exists; if it fails the
// user is rolled back, so a retry is not answered with ErrEmailTaken.
func (s *UserService) SignUp(ctx context.Context, email, password string, issue func(domain.User) error) (domain.User, error) {
	hash, err := s.Hasher.Hash(password)
	if err != nil {
		return domain.User{}, err
	}

	var created domain.User
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		u := domain.User{
			ID:           idx.New().String(),
			Email:        NormalizeEmail(email),
			PasswordHash: hash,
		}
		if err := tx.Users().CreateUser(ctx, u); err != nil {
			return err
		}

		stored, err := tx.Users().GetUserByID(ctx, u.ID)
		if err != nil {
			return err
		}
		if issue != nil {
			if err := issue(stored); err != nil {
				return err
			}
		}
		created = stored
		return nil
	})
	if errors.Is(err, store.ErrAlreadyExists) {
		return domain.User{}, ErrEmailTaken
	}
	if err != nil {
		return domain.User{}, err
	}

	slogx.FromContext(ctx).Info("user signed up", "user_id", created.ID)
	return created, nil
}

// SignIn checks a password. Unknown emails still pay for a hash
// comparison, and every failure is ErrInvalidCredentials. Hashes made
// with other cost parameters are upgraded to the current ones.
func (s *UserService) SignIn(ctx context.Context, email, password string) (domain.User, error) {
	u, err := s.Store.Users().GetUserByEmail(ctx, NormalizeEmail(email))
	if errors.Is(err, store.ErrNotFound) {
		s.Hasher.VerifyDummy(password)
		return domain.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return domain.User{}, err
	}

	if err := s.Hasher.Verify(password, u.PasswordHash); err != nil {
		if errors.Is(err, cryptox.ErrPasswordMismatch) {
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, err
	}

	if s.Hasher.NeedsRehash(u.PasswordHash) {
		s.rehash(ctx, &u, password)
	}
	return u, nil
}

// rehash stores a fresh hash for u. Failure only costs the upgrade, so it
// is logged and the sign-in goes ahead.
func (s *UserService) rehash(ctx context.Context, u *domain.User, password string) {
	log := slogx.FromContext(ctx)

	hash, err := s.Hasher.Hash(password)
	if err != nil {
		log.Warn("password rehash failed", "user_id", u.ID, "err", err)
		return
	}
	if err := s.Store.Users().UpdatePasswordHash(ctx, u.ID, hash); err != nil {
		log.Warn("password rehash failed", "user_id", u.ID, "err", err)
		return
	}

	u.PasswordHash = hash
	log.Info("password hash upgraded", "user_id", u.ID)
}

// GetUserByID fetches a user by id.
func (s *UserService) GetUserByID(ctx context.Context, userID string) (domain.User, error) {
	return s.Store.Users().GetUserByID(ctx, userID)
}
