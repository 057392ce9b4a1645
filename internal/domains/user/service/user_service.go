package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"library-backend/internal/domains/user/model"
	"library-backend/internal/domains/user/repository"
	"library-backend/pkg/cache"
)

const (
	defaultLoginMaxAttempts = 5
	defaultLoginLockout     = 15 * time.Minute
)

// Options tunes password hashing and login throttling.
type Options struct {
	BcryptCost       int
	LoginMaxAttempts int
	LoginLockout     time.Duration
}

type userService struct {
	repo   repository.RepositoryInterface
	books  BookLookup
	tokens TokenIssuer
	cache  cache.Cache // failed login counters; nil disables throttling
	opts   Options
}

func NewUserService(
	repo repository.RepositoryInterface,
	books BookLookup,
	tokens TokenIssuer,
	c cache.Cache,
	opts Options,
) ServiceInterface {
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.LoginMaxAttempts <= 0 {
		opts.LoginMaxAttempts = defaultLoginMaxAttempts
	}
	if opts.LoginLockout <= 0 {
		opts.LoginLockout = defaultLoginLockout
	}
	return &userService{
		repo:   repo,
		books:  books,
		tokens: tokens,
		cache:  c,
		opts:   opts,
	}
}

// ========================================
// AUTHENTICATION
// ========================================

func (s *userService) Register(ctx context.Context, req model.RegisterRequest) (*model.UserInfo, error) {
	return s.createUser(ctx, req.Email, req.Username, req.Password, false)
}

func (s *userService) Login(ctx context.Context, req model.LoginRequest) (*model.LoginResponse, error) {
	attemptKey := failedLoginKey(req.Email)
	if s.lockedOut(ctx, attemptKey) {
		return nil, model.ErrTooManyAttempts
	}

	u, err := s.repo.FindByEmail(ctx, req.Email)
	if errors.Is(err, model.ErrUserNotFound) {
		// Same answer as a wrong password: do not reveal which emails exist.
		s.recordFailedLogin(ctx, attemptKey)
		return nil, model.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		s.recordFailedLogin(ctx, attemptKey)
		return nil, model.ErrInvalidCredentials
	}

	s.clearFailedLogins(ctx, attemptKey)

	token, expiresAt, err := s.tokens.GenerateAccessToken(u.ID.String(), u.Email, u.TokenVersion)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}

	return &model.LoginResponse{Token: token, ExpiresAt: expiresAt}, nil
}

// Logout revokes every token issued to the account so far.
func (s *userService) Logout(ctx context.Context, userID uuid.UUID) error {
	version, err := s.repo.IncrementTokenVersion(ctx, userID)
	if err != nil {
		return err
	}

	log.Info().
		Str("user_id", userID.String()).
		Int("token_version", version).
		Msg("sessions revoked on logout")
	return nil
}

func (s *userService) ChangePassword(ctx context.Context, userID uuid.UUID, req model.ChangePasswordRequest) error {
	u, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.OldPassword)); err != nil {
		return model.ErrInvalidOldPassword
	}
	if req.OldPassword == req.NewPassword {
		return model.ErrSamePassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), s.opts.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	version, err := s.repo.UpdatePassword(ctx, userID, string(hash))
	if err != nil {
		return err
	}

	log.Info().
		Str("user_id", userID.String()).
		Int("token_version", version).
		Msg("password changed, sessions revoked")
	return nil
}

func (s *userService) AboutMe(ctx context.Context, userID uuid.UUID) (*model.AboutMe, error) {
	u, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	books, err := s.books.FindByIDs(ctx, u.BorrowedBooks)
	if err != nil {
		return nil, fmt.Errorf("load borrowed books: %w", err)
	}

	borrowed := make([]model.BorrowedBook, 0, len(books))
	for _, b := range books {
		borrowed = append(borrowed, model.BorrowedBook{ID: b.ID, Title: b.Title, Author: b.Author})
	}

	return &model.AboutMe{
		ID:            u.ID,
		Email:         u.Email,
		Username:      u.Username,
		IsAdmin:       u.IsAdmin,
		BorrowedBooks: borrowed,
	}, nil
}

// ========================================
// ADMIN
// ========================================

func (s *userService) ListUsers(ctx context.Context) ([]model.UserInfo, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	infos := make([]model.UserInfo, 0, len(users))
	for i := range users {
		infos = append(infos, users[i].ToInfo())
	}
	return infos, nil
}

func (s *userService) GetUser(ctx context.Context, id uuid.UUID) (*model.UserInfo, error) {
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	info := u.ToInfo()
	return &info, nil
}

func (s *userService) CreateUser(ctx context.Context, req model.CreateUserRequest) (*model.UserInfo, error) {
	return s.createUser(ctx, req.Email, req.Username, req.Password, req.IsAdmin)
}

func (s *userService) DeleteUser(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	log.Info().Str("user_id", id.String()).Msg("user deleted")
	return nil
}

// SetRole changes the admin flag. The next request of the account sees the
// new role because the session check reads it fresh.
func (s *userService) SetRole(ctx context.Context, id uuid.UUID, isAdmin bool) error {
	if err := s.repo.SetAdmin(ctx, id, isAdmin); err != nil {
		return err
	}
	log.Info().Str("user_id", id.String()).Bool("is_admin", isAdmin).Msg("user role changed")
	return nil
}

// ========================================
// HELPERS
// ========================================

func (s *userService) createUser(ctx context.Context, email, username, password string, isAdmin bool) (*model.UserInfo, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.opts.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &model.User{
		ID:           uuid.New(),
		Email:        email,
		Username:     username,
		PasswordHash: string(hash),
		IsAdmin:      isAdmin,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}

	info := u.ToInfo()
	return &info, nil
}

func failedLoginKey(email string) string {
	return fmt.Sprintf("failed_login:%s", email)
}

func (s *userService) lockedOut(ctx context.Context, key string) bool {
	if s.cache == nil {
		return false
	}
	var attempts int64
	found, err := s.cache.Get(ctx, key, &attempts)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("failed to read login attempts")
		return false
	}
	return found && attempts >= int64(s.opts.LoginMaxAttempts)
}

func (s *userService) recordFailedLogin(ctx context.Context, key string) {
	if s.cache == nil {
		return
	}
	attempts, err := s.cache.Increment(ctx, key)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("failed to count login attempt")
		return
	}
	if attempts == 1 || !s.hasWindow(ctx, key) {
		if err := s.cache.Expire(ctx, key, s.opts.LoginLockout); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("failed to set login attempt window")
		}
	}
	if attempts == int64(s.opts.LoginMaxAttempts) {
		log.Warn().Str("key", key).Int64("attempts", attempts).Msg("login locked out")
	}
}

// hasWindow reports whether the counter at key already expires. A counter
// whose first Expire failed would otherwise lock the email out forever.
func (s *userService) hasWindow(ctx context.Context, key string) bool {
	ttl, err := s.cache.TTL(ctx, key)
	return err == nil && ttl > 0
}

func (s *userService) clearFailedLogins(ctx context.Context, key string) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Delete(ctx, key)
}
