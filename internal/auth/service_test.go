package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tuttiservices/wholesale-backend/internal/apperr"
	"github.com/tuttiservices/wholesale-backend/internal/users"
)

type memUsers struct {
	byID   map[int64]*users.User
	nextID int64
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[int64]*users.User{}, nextID: 1}
}

func (m *memUsers) ByID(_ context.Context, id int64) (*users.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) ByEmail(_ context.Context, email string) (*users.User, error) {
	for _, u := range m.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memUsers) Create(_ context.Context, u *users.User) error {
	u.ID = m.nextID
	m.nextID++
	u.IsActive = true
	cp := *u
	m.byID[u.ID] = &cp
	return nil
}

func (m *memUsers) Update(_ context.Context, id int64, p users.Patch) error {
	u := m.byID[id]
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Phone != nil {
		u.Phone = p.Phone
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
	if p.IsActive != nil {
		u.IsActive = *p.IsActive
	}
	return nil
}

func (m *memUsers) SetPassword(_ context.Context, id int64, hash string) error {
	m.byID[id].PasswordHash = hash
	return nil
}

func newService() (*Service, *memUsers) {
	store := newMemUsers()
	return &Service{
		Users:  store,
		Tokens: NewTokenManager("test-secret", time.Hour, "test"),
		Hasher: &Hasher{cost: 4}, // min rounds keep the suite fast
	}, store
}

func seedUser(t *testing.T, svc *Service, store *memUsers, email, password string) *users.User {
	t.Helper()
	hash, err := svc.Hasher.Hash(password)
	require.NoError(t, err)
	u := &users.User{Email: email, PasswordHash: hash, Name: "Seed User", Role: users.RoleBuyer}
	require.NoError(t, store.Create(context.Background(), u))
	return u
}

func TestLoginSuccess(t *testing.T) {
	svc, store := newService()
	seedUser(t, svc, store, "a@example.com", "hunter22")

	token, u, err := svc.Login(context.Background(), "a@example.com", "hunter22")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.Equal(t, "a@example.com", u.Email)

	claims, err := svc.Tokens.Validate(token)
	require.NoError(t, err)
	require.Equal(t, u.ID, claims.UserID)
}

// Unknown email and wrong password must be indistinguishable to the caller.
func TestLoginBadCredentialsUniformError(t *testing.T) {
	svc, store := newService()
	seedUser(t, svc, store, "a@example.com", "hunter22")

	_, _, errUnknown := svc.Login(context.Background(), "nobody@example.com", "hunter22")
	_, _, errWrongPw := svc.Login(context.Background(), "a@example.com", "wrong")
	require.Equal(t, apperr.KindUnauthenticated, apperr.KindOf(errUnknown))
	require.Equal(t, errUnknown.Error(), errWrongPw.Error())
}

func TestLoginDeactivatedAccount(t *testing.T) {
	svc, store := newService()
	u := seedUser(t, svc, store, "a@example.com", "hunter22")
	inactive := false
	require.NoError(t, store.Update(context.Background(), u.ID, users.Patch{IsActive: &inactive}))

	_, _, err := svc.Login(context.Background(), "a@example.com", "hunter22")
	require.Equal(t, apperr.KindUnauthenticated, apperr.KindOf(err))
}

func TestRegisterCreatesBuyer(t *testing.T) {
	svc, _ := newService()
	token, u, err := svc.Register(context.Background(), RegisterInput{
		Email: "new@example.com", Password: "hunter22", Name: "New Buyer",
	})
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.Equal(t, users.RoleBuyer, u.Role)
	require.True(t, u.IsActive)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, store := newService()
	seedUser(t, svc, store, "a@example.com", "hunter22")

	_, _, err := svc.Register(context.Background(), RegisterInput{
		Email: "a@example.com", Password: "other", Name: "Other",
	})
	require.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestRegisterMissingFields(t *testing.T) {
	svc, _ := newService()
	_, _, err := svc.Register(context.Background(), RegisterInput{Email: "a@example.com"})
	require.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

// Profile updates must not be able to smuggle in role or activation changes.
func TestUpdateProfileStripsPrivilegedFields(t *testing.T) {
	svc, store := newService()
	u := seedUser(t, svc, store, "a@example.com", "hunter22")

	admin := users.RoleAdmin
	inactive := false
	name := "Renamed"
	updated, err := svc.UpdateProfile(context.Background(), u.ID, users.Patch{
		Name: &name, Role: &admin, IsActive: &inactive,
	})
	require.NoError(t, err)
	require.Equal(t, "Renamed", updated.Name)
	require.Equal(t, users.RoleBuyer, updated.Role)
	require.True(t, updated.IsActive)
}

func TestChangePassword(t *testing.T) {
	svc, store := newService()
	u := seedUser(t, svc, store, "a@example.com", "oldpass1")

	err := svc.ChangePassword(context.Background(), u.ID, "wrong", "newpass1")
	require.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	require.NoError(t, svc.ChangePassword(context.Background(), u.ID, "oldpass1", "newpass1"))

	_, _, err = svc.Login(context.Background(), "a@example.com", "newpass1")
	require.NoError(t, err)
	_, _, err = svc.Login(context.Background(), "a@example.com", "oldpass1")
	require.Error(t, err)
}
