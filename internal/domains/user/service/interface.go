package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	bookmodel "library-backend/internal/domains/book/model"
	"library-backend/internal/domains/user/model"
)

// ServiceInterface is the account business layer.
type ServiceInterface interface {
	// Authentication
	Register(ctx context.Context, req model.RegisterRequest) (*model.UserInfo, error)
	Login(ctx context.Context, req model.LoginRequest) (*model.LoginResponse, error)
	Logout(ctx context.Context, userID uuid.UUID) error
	ChangePassword(ctx context.Context, userID uuid.UUID, req model.ChangePasswordRequest) error
	AboutMe(ctx context.Context, userID uuid.UUID) (*model.AboutMe, error)

	// Session version
	VerifySession(ctx context.Context, userID uuid.UUID, tokenVersion int) (bool, error)

	// Admin
	ListUsers(ctx context.Context) ([]model.UserInfo, error)
	GetUser(ctx context.Context, id uuid.UUID) (*model.UserInfo, error)
	CreateUser(ctx context.Context, req model.CreateUserRequest) (*model.UserInfo, error)
	DeleteUser(ctx context.Context, id uuid.UUID) error
	SetRole(ctx context.Context, id uuid.UUID, isAdmin bool) error
}

// TokenIssuer signs access tokens stamped with an account's token version.
type TokenIssuer interface {
	GenerateAccessToken(userID, email string, tokenVersion int) (string, time.Time, error)
}

// BookLookup resolves borrowed book ids for the profile view.
type BookLookup interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]bookmodel.Book, error)
}
