package accounts

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/productstore/backend/internal/apperr"
)

const (
	bcryptCost        = 12
	minPasswordLength = 6
)

type Service struct {
	Store Store
	Log   *zap.Logger
}

func (s *Service) Register(ctx context.Context, username, email, password string) (*Account, error) {
	if username == "" || email == "" || password == "" {
		return nil, apperr.New(apperr.CodeInvalidArgument, "username, email and password are required")
	}
	if len(password) < minPasswordLength {
		return nil, apperr.New(apperr.CodeInvalidArgument, "password must be at least %d characters long", minPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, err, "hash password")
	}

	a := &Account{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.Store.CreateAccount(ctx, a); err != nil {
		return nil, err
	}
	s.Log.Info("account registered", zap.String("user_id", a.ID), zap.String("username", a.Username))
	return a, nil
}

// Login authenticates by username or email. Unknown user and bad password
// collapse into the same error so the response never reveals which it was.
func (s *Service) Login(ctx context.Context, login, password string) (*Account, error) {
	if login == "" || password == "" {
		return nil, apperr.New(apperr.CodeInvalidArgument, "username and password are required")
	}
	a, err := s.Store.ByLogin(ctx, login)
	if err != nil {
		if apperr.IsCode(err, apperr.CodeNotFound) {
			return nil, apperr.New(apperr.CodeUnauthorized, "invalid credentials")
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)); err != nil {
		return nil, apperr.New(apperr.CodeUnauthorized, "invalid credentials")
	}
	return a, nil
}
