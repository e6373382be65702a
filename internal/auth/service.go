package auth

import (
	"context"

	"github.com/tuttiservices/wholesale-backend/internal/apperr"
	"github.com/tuttiservices/wholesale-backend/internal/users"
)

// UserStore is the slice of the users repo the auth service needs.
type UserStore interface {
	ByID(ctx context.Context, id int64) (*users.User, error)
	ByEmail(ctx context.Context, email string) (*users.User, error)
	Create(ctx context.Context, u *users.User) error
	Update(ctx context.Context, id int64, p users.Patch) error
	SetPassword(ctx context.Context, id int64, hash string) error
}

type Service struct {
	Users  UserStore
	Tokens *TokenManager
	Hasher *Hasher
}

type RegisterInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
}

// Login verifies credentials and issues an access token. The same error
// is returned for an unknown email and a wrong password.
func (s *Service) Login(ctx context.Context, email, password string) (string, *users.User, error) {
	u, err := s.Users.ByEmail(ctx, email)
	if err != nil {
		return "", nil, err
	}
	if u == nil || !s.Hasher.Verify(password, u.PasswordHash) {
		return "", nil, apperr.E(apperr.KindUnauthenticated, "incorrect email or password")
	}
	if !u.IsActive {
		return "", nil, apperr.E(apperr.KindUnauthenticated, "account is deactivated")
	}
	token, err := s.Tokens.Generate(u.ID, u.Role)
	if err != nil {
		return "", nil, err
	}
	return token, u, nil
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (string, *users.User, error) {
	if in.Email == "" || in.Password == "" || in.Name == "" {
		return "", nil, apperr.E(apperr.KindValidation, "email, password and name are required")
	}
	existing, err := s.Users.ByEmail(ctx, in.Email)
	if err != nil {
		return "", nil, err
	}
	if existing != nil {
		return "", nil, apperr.E(apperr.KindValidation, "email is already registered")
	}
	hash, err := s.Hasher.Hash(in.Password)
	if err != nil {
		return "", nil, err
	}
	u := &users.User{
		Email:        in.Email,
		PasswordHash: hash,
		Name:         in.Name,
		Phone:        &in.Phone,
		Address:      &in.Address,
		Role:         users.RoleBuyer,
	}
	if err := s.Users.Create(ctx, u); err != nil {
		return "", nil, err
	}
	token, err := s.Tokens.Generate(u.ID, u.Role)
	if err != nil {
		return "", nil, err
	}
	return token, u, nil
}

// UpdateProfile applies the provided fields to the caller's own account.
func (s *Service) UpdateProfile(ctx context.Context, userID int64, p users.Patch) (*users.User, error) {
	// Role and activation changes are admin operations, not profile edits.
	p.Role = nil
	p.IsActive = nil
	if err := s.Users.Update(ctx, userID, p); err != nil {
		return nil, err
	}
	u, err := s.Users.ByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apperr.E(apperr.KindNotFound, "user not found")
	}
	return u, nil
}

func (s *Service) ChangePassword(ctx context.Context, userID int64, current, next string) error {
	u, err := s.Users.ByID(ctx, userID)
	if err != nil {
		return err
	}
	if u == nil {
		return apperr.E(apperr.KindNotFound, "user not found")
	}
	if !s.Hasher.Verify(current, u.PasswordHash) {
		return apperr.E(apperr.KindValidation, "current password is incorrect")
	}
	hash, err := s.Hasher.Hash(next)
	if err != nil {
		return err
	}
	return s.Users.SetPassword(ctx, userID, hash)
}
