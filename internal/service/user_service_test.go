package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"tripbuddy/internal/core/auth"
	"tripbuddy/internal/domain"
	"tripbuddy/internal/validate"
)

type stubRepo struct {
	users   map[string]*domain.User
	creates int
	updates int
	deletes int
	findErr error
}

func newStubRepo() *stubRepo {
	return &stubRepo{users: make(map[string]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	clone.Roles = append(domain.Roles(nil), u.Roles...)
	return &clone
}

func (r *stubRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	return cloneUser(r.users[id]), nil
}

func (r *stubRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	for _, u := range r.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, nil
}

func (r *stubRepo) Create(_ context.Context, u *domain.User) error {
	r.creates++
	r.users[u.ID] = cloneUser(u)
	return nil
}

func (r *stubRepo) Update(_ context.Context, u *domain.User) error {
	r.updates++
	r.users[u.ID] = cloneUser(u)
	return nil
}

func (r *stubRepo) Delete(_ context.Context, u *domain.User) error {
	r.deletes++
	delete(r.users, u.ID)
	return nil
}

var testJWTer = &auth.JWTer{Secret: []byte("test-secret"), Issuer: "tripbuddy", TTL: time.Hour}

func newTestService(r *stubRepo) *UserService {
	hasher := &auth.BcryptHasher{Cost: bcrypt.MinCost}
	return NewUserService(r, hasher, validate.New(), testJWTer, nil, zap.NewNop())
}

func seedUser(t *testing.T, r *stubRepo, id, email, password string, roles domain.Roles) *domain.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	u := &domain.User{
		ID:           id,
		Firstname:    "Jean",
		Lastname:     "Dupont",
		Email:        email,
		PasswordHash: string(hash),
		Roles:        roles,
	}
	r.users[id] = u
	return u
}

func strptr(s string) *string { return &s }

func TestCreate_HashesPassword(t *testing.T) {
	r := newStubRepo()
	svc := newTestService(r)

	view, err := svc.Create(context.Background(), CreateUserInput{
		Email:     "a@b.com",
		Firstname: "A",
		Lastname:  "B",
		Password:  "secret",
		Roles:     domain.Roles{"user"},
	})
	require.NoError(t, err)
	require.NotNil(t, view)

	stored := r.users[view.ID]
	require.NotNil(t, stored)
	assert.NotEqual(t, "secret", stored.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("secret")))
	assert.Equal(t, 1, r.creates)
	assert.Equal(t, domain.Roles{"user"}, view.Roles)
}

func TestCreate_EmptyPayload(t *testing.T) {
	svc := newTestService(newStubRepo())

	_, err := svc.Create(context.Background(), CreateUserInput{})
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

func TestCreate_InvalidEmailNotPersisted(t *testing.T) {
	r := newStubRepo()
	svc := newTestService(r)

	_, err := svc.Create(context.Background(), CreateUserInput{
		Email:    "not-an-email",
		Password: "secret",
	})

	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "email")
	assert.Equal(t, 0, r.creates)
}

func TestCreate_MissingPassword(t *testing.T) {
	r := newStubRepo()
	svc := newTestService(r)

	_, err := svc.Create(context.Background(), CreateUserInput{Email: "a@b.com"})

	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, 0, r.creates)
}

func TestGetByID_NotFound(t *testing.T) {
	svc := newTestService(newStubRepo())

	_, err := svc.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestGetByID_StorageFault(t *testing.T) {
	r := newStubRepo()
	r.findErr = errors.New("storage down")
	svc := newTestService(r)

	_, err := svc.GetByID(context.Background(), "u1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrUserNotFound)
}

func TestGetByID_View(t *testing.T) {
	r := newStubRepo()
	seedUser(t, r, "u1", "jean@example.com", "pw", domain.Roles{"user", "admin"})
	svc := newTestService(r)

	view, err := svc.GetByID(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", view.ID)
	assert.Equal(t, "jean@example.com", view.Email)
	assert.Equal(t, domain.Roles{"user", "admin"}, view.Roles)
}

func TestUpdateProfile_EmptyPatch(t *testing.T) {
	r := newStubRepo()
	seedUser(t, r, "u1", "jean@example.com", "pw", domain.Roles{"user"})
	svc := newTestService(r)

	err := svc.UpdateProfile(context.Background(), "u1", ProfilePatch{})
	assert.ErrorIs(t, err, domain.ErrBadRequest)
	assert.Equal(t, 0, r.updates)
}

func TestUpdateProfile_PartialLeavesOtherFields(t *testing.T) {
	r := newStubRepo()
	seedUser(t, r, "u1", "jean@example.com", "pw", domain.Roles{"user"})
	svc := newTestService(r)

	patch := ProfilePatch{Email: strptr("x@y.com")}
	require.NoError(t, svc.UpdateProfile(context.Background(), "u1", patch))

	u := r.users["u1"]
	assert.Equal(t, "x@y.com", u.Email)
	assert.Equal(t, "Jean", u.Firstname)
	assert.Equal(t, "Dupont", u.Lastname)

	// 同一补丁再跑一遍，结果应当不变
	require.NoError(t, svc.UpdateProfile(context.Background(), "u1", patch))
	assert.Equal(t, *u, *r.users["u1"])
}

func TestUpdateProfile_InvalidNotCommitted(t *testing.T) {
	r := newStubRepo()
	seedUser(t, r, "u1", "jean@example.com", "pw", domain.Roles{"user"})
	svc := newTestService(r)

	err := svc.UpdateProfile(context.Background(), "u1", ProfilePatch{Email: strptr("nope")})

	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "email")
	assert.Equal(t, 0, r.updates)
	assert.Equal(t, "jean@example.com", r.users["u1"].Email)
}

func TestProfile_OmitsRoles(t *testing.T) {
	r := newStubRepo()
	seedUser(t, r, "u1", "jean@example.com", "pw", domain.Roles{"admin"})
	svc := newTestService(r)

	p, err := svc.Profile(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", p.ID)
	assert.Equal(t, "jean@example.com", p.Email)
}

func TestDeleteAccount_WrongPassword(t *testing.T) {
	r := newStubRepo()
	seedUser(t, r, "u1", "jean@example.com", "rightpw", domain.Roles{"user"})
	svc := newTestService(r)

	err := svc.DeleteAccount(context.Background(), "u1", "wrongpw")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	assert.Equal(t, 0, r.deletes)
	assert.Contains(t, r.users, "u1")
}

func TestDeleteAccount_OK(t *testing.T) {
	r := newStubRepo()
	seedUser(t, r, "u1", "jean@example.com", "rightpw", domain.Roles{"user"})
	svc := newTestService(r)

	require.NoError(t, svc.DeleteAccount(context.Background(), "u1", "rightpw"))
	assert.Equal(t, 1, r.deletes)
	assert.NotContains(t, r.users, "u1")
}

func TestAdminUpdate_NotFound(t *testing.T) {
	r := newStubRepo()
	svc := newTestService(r)

	err := svc.AdminUpdate(context.Background(), "missing", UserPatch{Email: strptr("x@y.com")})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	assert.Equal(t, 0, r.updates)
}

func TestAdminUpdate_PatchesFieldsAndHashesPassword(t *testing.T) {
	r := newStubRepo()
	seedUser(t, r, "u1", "jean@example.com", "oldpw", domain.Roles{"user"})
	svc := newTestService(r)

	roles := domain.Roles{"user", "admin"}
	err := svc.AdminUpdate(context.Background(), "u1", UserPatch{
		Firstname: strptr("Marie"),
		Password:  strptr("newpw"),
		Roles:     &roles,
	})
	require.NoError(t, err)

	u := r.users["u1"]
	assert.Equal(t, "Marie", u.Firstname)
	assert.Equal(t, "Dupont", u.Lastname)
	assert.Equal(t, roles, u.Roles)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("newpw")))
}

func TestAdminUpdate_DoesNotValidate(t *testing.T) {
	// 管理端更新按现有行为直接提交，不重跑实体校验
	r := newStubRepo()
	seedUser(t, r, "u1", "jean@example.com", "pw", domain.Roles{"user"})
	svc := newTestService(r)

	require.NoError(t, svc.AdminUpdate(context.Background(), "u1", UserPatch{Email: strptr("not-an-email")}))
	assert.Equal(t, "not-an-email", r.users["u1"].Email)
}

func TestAdminDelete_Forbidden(t *testing.T) {
	r := newStubRepo()
	seedUser(t, r, "u1", "jean@example.com", "pw", domain.Roles{"user"})
	svc := newTestService(r)

	actor := domain.Identity{ID: "u2", Roles: domain.Roles{"user"}}
	err := svc.AdminDelete(context.Background(), "u1", actor)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.Equal(t, 0, r.deletes)
}

func TestAdminDelete_AsAdmin(t *testing.T) {
	r := newStubRepo()
	seedUser(t, r, "u1", "jean@example.com", "pw", domain.Roles{"user"})
	svc := newTestService(r)

	actor := domain.Identity{ID: "admin-1", Roles: domain.Roles{"admin"}}
	require.NoError(t, svc.AdminDelete(context.Background(), "u1", actor))
	assert.NotContains(t, r.users, "u1")
}

func TestAdminDelete_Self(t *testing.T) {
	r := newStubRepo()
	seedUser(t, r, "u1", "jean@example.com", "pw", domain.Roles{"user"})
	svc := newTestService(r)

	actor := domain.Identity{ID: "u1", Roles: domain.Roles{"user"}}
	require.NoError(t, svc.AdminDelete(context.Background(), "u1", actor))
	assert.NotContains(t, r.users, "u1")
}

func TestAdminDelete_NotFound(t *testing.T) {
	svc := newTestService(newStubRepo())

	actor := domain.Identity{ID: "admin-1", Roles: domain.Roles{"admin"}}
	err := svc.AdminDelete(context.Background(), "missing", actor)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestLogin_IssuesParsableToken(t *testing.T) {
	r := newStubRepo()
	seedUser(t, r, "u1", "jean@example.com", "s3cret", domain.Roles{"user"})
	svc := newTestService(r)

	token, err := svc.Login(context.Background(), "jean@example.com", "s3cret")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := testJWTer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UID)
	assert.Equal(t, domain.Roles{"user"}, claims.Roles)
}

func TestLogin_BadCredentials(t *testing.T) {
	r := newStubRepo()
	seedUser(t, r, "u1", "jean@example.com", "s3cret", domain.Roles{"user"})
	svc := newTestService(r)

	_, err := svc.Login(context.Background(), "jean@example.com", "wrong")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), "ghost@example.com", "s3cret")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}
