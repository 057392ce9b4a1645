package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	bookmodel "library-backend/internal/domains/book/model"
	"library-backend/internal/domains/user/model"
	"library-backend/internal/domains/user/service"
	"library-backend/internal/infrastructure/memory"
	"library-backend/pkg/jwt"
)

type harness struct {
	store  *memory.Store
	tokens *jwt.Manager
	svc    service.ServiceInterface
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	store := memory.New()
	tokens := jwt.NewManager("test-secret-test-secret-test-secret!", time.Hour)
	svc := service.NewUserService(store.Users(), store.Books(), tokens, memory.NewCache(), service.Options{
		BcryptCost:       bcrypt.MinCost,
		LoginMaxAttempts: 3,
		LoginLockout:     time.Minute,
	})
	return &harness{store: store, tokens: tokens, svc: svc}
}

func (h *harness) register(t *testing.T, email, password string) *model.UserInfo {
	t.Helper()

	info, err := h.svc.Register(context.Background(), model.RegisterRequest{
		Email: email, Username: "reader", Password: password,
	})
	require.NoError(t, err)
	return info
}

func (h *harness) login(t *testing.T, email, password string) *jwt.Claims {
	t.Helper()

	res, err := h.svc.Login(context.Background(), model.LoginRequest{Email: email, Password: password})
	require.NoError(t, err)

	claims, err := h.tokens.ValidateToken(res.Token)
	require.NoError(t, err)
	return claims
}

func Test_Register_DuplicateEmail(t *testing.T) {
	h := newHarness(t)
	h.register(t, "reader@example.com", "correct-horse")

	_, err := h.svc.Register(context.Background(), model.RegisterRequest{
		Email: "reader@example.com", Username: "other", Password: "battery-staple",
	})
	assert.ErrorIs(t, err, model.ErrEmailAlreadyExists)
}

func Test_Login_StampsTokenVersion(t *testing.T) {
	h := newHarness(t)
	info := h.register(t, "reader@example.com", "correct-horse")

	claims := h.login(t, "reader@example.com", "correct-horse")

	assert.Equal(t, info.ID.String(), claims.UserID)
	assert.Equal(t, 0, claims.TokenVersion)
}

func Test_Login_WrongPasswordAndUnknownEmailLookAlike(t *testing.T) {
	h := newHarness(t)
	h.register(t, "reader@example.com", "correct-horse")
	ctx := context.Background()

	_, err := h.svc.Login(ctx, model.LoginRequest{Email: "reader@example.com", Password: "wrong-password"})
	assert.ErrorIs(t, err, model.ErrInvalidCredentials)

	_, err = h.svc.Login(ctx, model.LoginRequest{Email: "ghost@example.com", Password: "wrong-password"})
	assert.ErrorIs(t, err, model.ErrInvalidCredentials)
}

func Test_Login_LocksOutAfterRepeatedFailures(t *testing.T) {
	h := newHarness(t)
	h.register(t, "reader@example.com", "correct-horse")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := h.svc.Login(ctx, model.LoginRequest{Email: "reader@example.com", Password: "wrong-password"})
		require.ErrorIs(t, err, model.ErrInvalidCredentials)
	}

	_, err := h.svc.Login(ctx, model.LoginRequest{Email: "reader@example.com", Password: "correct-horse"})
	assert.ErrorIs(t, err, model.ErrTooManyAttempts)
}

// flakyExpireCache fails the first Expire call, like a Redis blip right
// after the first failed login.
type flakyExpireCache struct {
	*memory.Cache
	failed bool
}

func (c *flakyExpireCache) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if !c.failed {
		c.failed = true
		return errors.New("redis: connection reset")
	}
	return c.Cache.Expire(ctx, key, ttl)
}

func Test_Login_LockoutWindowRecoversFromFailedExpire(t *testing.T) {
	store := memory.New()
	cache := &flakyExpireCache{Cache: memory.NewCache()}
	svc := service.NewUserService(store.Users(), store.Books(),
		jwt.NewManager("test-secret-test-secret-test-secret!", time.Hour), cache,
		service.Options{BcryptCost: bcrypt.MinCost, LoginMaxAttempts: 3, LoginLockout: time.Minute},
	)
	ctx := context.Background()
	key := "failed_login:reader@example.com"

	_, err := svc.Login(ctx, model.LoginRequest{Email: "reader@example.com", Password: "wrong-password"})
	require.ErrorIs(t, err, model.ErrInvalidCredentials)

	ttl, err := cache.TTL(ctx, key)
	require.NoError(t, err)
	require.Equal(t, time.Duration(-1), ttl, "first window was not set")

	_, err = svc.Login(ctx, model.LoginRequest{Email: "reader@example.com", Password: "wrong-password"})
	require.ErrorIs(t, err, model.ErrInvalidCredentials)

	ttl, err = cache.TTL(ctx, key)
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, time.Minute)
}

func Test_Logout_RevokesOutstandingTokens(t *testing.T) {
	h := newHarness(t)
	info := h.register(t, "reader@example.com", "correct-horse")
	ctx := context.Background()

	claims := h.login(t, "reader@example.com", "correct-horse")
	_, err := h.svc.VerifySession(ctx, info.ID, claims.TokenVersion)
	require.NoError(t, err)

	require.NoError(t, h.svc.Logout(ctx, info.ID))

	_, err = h.svc.VerifySession(ctx, info.ID, claims.TokenVersion)
	assert.ErrorIs(t, err, model.ErrTokenRevoked)

	fresh := h.login(t, "reader@example.com", "correct-horse")
	assert.Equal(t, claims.TokenVersion+1, fresh.TokenVersion)
	_, err = h.svc.VerifySession(ctx, info.ID, fresh.TokenVersion)
	assert.NoError(t, err)
}

func Test_ChangePassword_RevokesTokens(t *testing.T) {
	h := newHarness(t)
	info := h.register(t, "reader@example.com", "correct-horse")
	ctx := context.Background()
	claims := h.login(t, "reader@example.com", "correct-horse")

	err := h.svc.ChangePassword(ctx, info.ID, model.ChangePasswordRequest{OldPassword: "nope-nope", NewPassword: "battery-staple"})
	assert.ErrorIs(t, err, model.ErrInvalidOldPassword)

	err = h.svc.ChangePassword(ctx, info.ID, model.ChangePasswordRequest{OldPassword: "correct-horse", NewPassword: "correct-horse"})
	assert.ErrorIs(t, err, model.ErrSamePassword)

	require.NoError(t, h.svc.ChangePassword(ctx, info.ID, model.ChangePasswordRequest{OldPassword: "correct-horse", NewPassword: "battery-staple"}))

	_, err = h.svc.VerifySession(ctx, info.ID, claims.TokenVersion)
	assert.ErrorIs(t, err, model.ErrTokenRevoked)
	h.login(t, "reader@example.com", "battery-staple")
}

func Test_VerifySession_ReportsCurrentRole(t *testing.T) {
	h := newHarness(t)
	info := h.register(t, "reader@example.com", "correct-horse")
	ctx := context.Background()

	isAdmin, err := h.svc.VerifySession(ctx, info.ID, 0)
	require.NoError(t, err)
	assert.False(t, isAdmin)

	require.NoError(t, h.svc.SetRole(ctx, info.ID, true))

	isAdmin, err = h.svc.VerifySession(ctx, info.ID, 0)
	require.NoError(t, err)
	assert.True(t, isAdmin)
}

func Test_VerifySession_DeletedAccount(t *testing.T) {
	h := newHarness(t)
	info := h.register(t, "reader@example.com", "correct-horse")
	ctx := context.Background()

	require.NoError(t, h.svc.DeleteUser(ctx, info.ID))

	_, err := h.svc.VerifySession(ctx, info.ID, 0)
	assert.ErrorIs(t, err, model.ErrTokenRevoked)
}

func Test_AboutMe_ListsBorrowedBooks(t *testing.T) {
	h := newHarness(t)
	info := h.register(t, "reader@example.com", "correct-horse")
	ctx := context.Background()

	book := &bookmodel.Book{ID: uuid.New(), Title: "Kindred", Author: "Octavia E. Butler"}
	require.NoError(t, h.store.Books().Create(ctx, book))
	require.NoError(t, h.store.Users().AddBorrowedBook(ctx, info.ID, book.ID))

	me, err := h.svc.AboutMe(ctx, info.ID)
	require.NoError(t, err)
	assert.Equal(t, "reader@example.com", me.Email)
	require.Len(t, me.BorrowedBooks, 1)
	assert.Equal(t, "Kindred", me.BorrowedBooks[0].Title)
}

func Test_DeleteUser_RefusedWhileHoldingBooks(t *testing.T) {
	h := newHarness(t)
	info := h.register(t, "reader@example.com", "correct-horse")
	ctx := context.Background()
	require.NoError(t, h.store.Users().AddBorrowedBook(ctx, info.ID, uuid.New()))

	assert.ErrorIs(t, h.svc.DeleteUser(ctx, info.ID), model.ErrUserHasBorrowedBooks)
	assert.ErrorIs(t, h.svc.DeleteUser(ctx, uuid.New()), model.ErrUserNotFound)
}

func Test_CreateUser_Admin(t *testing.T) {
	h := newHarness(t)

	info, err := h.svc.CreateUser(context.Background(), model.CreateUserRequest{
		Email: "admin@example.com", Username: "admin", Password: "correct-horse", IsAdmin: true,
	})
	require.NoError(t, err)
	assert.True(t, info.IsAdmin)

	users, err := h.svc.ListUsers(context.Background())
	require.NoError(t, err)
	assert.Len(t, users, 1)
}
