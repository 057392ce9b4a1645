package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bookmodel "library-backend/internal/domains/book/model"
	lendingrepo "library-backend/internal/domains/lending/repository"
	usermodel "library-backend/internal/domains/user/model"
	"library-backend/internal/infrastructure/memory"
)

func createBook(t *testing.T, s *memory.Store, title string, stock int) *bookmodel.Book {
	t.Helper()
	ctx := context.Background()

	b := &bookmodel.Book{ID: uuid.New(), Title: title, Author: "Ursula K. Le Guin"}
	require.NoError(t, s.Books().Create(ctx, b))
	if stock > 0 {
		_, err := s.Books().AdjustStock(ctx, b.ID, stock)
		require.NoError(t, err)
	}
	return b
}

func createUser(t *testing.T, s *memory.Store) *usermodel.User {
	t.Helper()

	u := &usermodel.User{ID: uuid.New(), Email: uuid.NewString() + "@example.com", Username: "reader"}
	require.NoError(t, s.Users().Create(context.Background(), u))
	return u
}

func Test_Books_CreateRejectsDuplicateTitleAuthor(t *testing.T) {
	s := memory.New()
	createBook(t, s, "The Dispossessed", 0)

	err := s.Books().Create(context.Background(), &bookmodel.Book{ID: uuid.New(), Title: "The Dispossessed", Author: "Ursula K. Le Guin"})
	assert.ErrorIs(t, err, bookmodel.ErrBookAlreadyExists)
}

func Test_Books_StockGuards(t *testing.T) {
	s := memory.New()
	b := createBook(t, s, "Lathe of Heaven", 1)
	ctx := context.Background()

	require.NoError(t, s.Books().DecrementStock(ctx, b.ID))
	assert.ErrorIs(t, s.Books().DecrementStock(ctx, b.ID), bookmodel.ErrNoStockAvailable)
	assert.ErrorIs(t, s.Books().DecrementStock(ctx, uuid.New()), bookmodel.ErrBookNotFound)
	assert.ErrorIs(t, s.Books().IncrementStock(ctx, uuid.New()), bookmodel.ErrBookNotFound)

	_, err := s.Books().AdjustStock(ctx, b.ID, -1)
	assert.ErrorIs(t, err, bookmodel.ErrStockNegative)

	got, err := s.Books().FindByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Stock)
}

func Test_Books_ExactMatchFilters(t *testing.T) {
	s := memory.New()
	createBook(t, s, "A Wizard of Earthsea", 1)
	createBook(t, s, "Tehanu", 1)
	ctx := context.Background()

	byTitle, err := s.Books().FindByTitle(ctx, "Tehanu")
	require.NoError(t, err)
	assert.Len(t, byTitle, 1)

	partial, err := s.Books().FindByTitle(ctx, "Teh")
	require.NoError(t, err)
	assert.Empty(t, partial)

	byAuthor, err := s.Books().FindByAuthor(ctx, "Ursula K. Le Guin")
	require.NoError(t, err)
	require.Len(t, byAuthor, 2)
	assert.Equal(t, "A Wizard of Earthsea", byAuthor[0].Title)
}

func Test_Books_DeleteRefusedWhileHeld(t *testing.T) {
	s := memory.New()
	b := createBook(t, s, "Always Coming Home", 1)
	u := createUser(t, s)
	ctx := context.Background()

	require.NoError(t, s.Users().AddBorrowedBook(ctx, u.ID, b.ID))
	assert.ErrorIs(t, s.Books().Delete(ctx, b.ID), bookmodel.ErrBookBorrowed)

	require.NoError(t, s.Users().RemoveBorrowedBook(ctx, u.ID, b.ID))
	require.NoError(t, s.Books().Delete(ctx, b.ID))
	assert.ErrorIs(t, s.Books().Delete(ctx, b.ID), bookmodel.ErrBookNotFound)
}

func Test_Users_RegistryGuards(t *testing.T) {
	s := memory.New()
	u := createUser(t, s)
	ctx := context.Background()
	bookID := uuid.New()

	require.NoError(t, s.Users().AddBorrowedBook(ctx, u.ID, bookID))
	assert.ErrorIs(t, s.Users().AddBorrowedBook(ctx, u.ID, bookID), usermodel.ErrBookAlreadyBorrowed)

	for i := 1; i < usermodel.MaxBorrowedBooks; i++ {
		require.NoError(t, s.Users().AddBorrowedBook(ctx, u.ID, uuid.New()))
	}
	assert.ErrorIs(t, s.Users().AddBorrowedBook(ctx, u.ID, uuid.New()), usermodel.ErrBorrowLimitReached)
	assert.ErrorIs(t, s.Users().AddBorrowedBook(ctx, uuid.New(), uuid.New()), usermodel.ErrUserNotFound)

	assert.ErrorIs(t, s.Users().RemoveBorrowedBook(ctx, u.ID, uuid.New()), usermodel.ErrBookNotBorrowed)
	assert.ErrorIs(t, s.Users().RemoveBorrowedBook(ctx, uuid.New(), bookID), usermodel.ErrBookNotBorrowed)

	assert.ErrorIs(t, s.Users().Delete(ctx, u.ID), usermodel.ErrUserHasBorrowedBooks)
}

func Test_Users_ReturnedCopiesAreIsolated(t *testing.T) {
	s := memory.New()
	u := createUser(t, s)
	ctx := context.Background()
	require.NoError(t, s.Users().AddBorrowedBook(ctx, u.ID, uuid.New()))

	got, err := s.Users().FindByID(ctx, u.ID)
	require.NoError(t, err)
	got.BorrowedBooks[0] = uuid.Nil

	again, err := s.Users().FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, again.BorrowedBooks[0])
}

func Test_Users_TokenVersionIsMonotonic(t *testing.T) {
	s := memory.New()
	u := createUser(t, s)
	ctx := context.Background()

	v1, err := s.Users().IncrementTokenVersion(ctx, u.ID)
	require.NoError(t, err)
	v2, err := s.Users().UpdatePassword(ctx, u.ID, "new-hash")
	require.NoError(t, err)
	assert.Equal(t, 1, v1)
	assert.Equal(t, 2, v2)

	state, err := s.Users().GetSessionState(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, state.TokenVersion)

	_, err = s.Users().IncrementTokenVersion(ctx, uuid.New())
	assert.ErrorIs(t, err, usermodel.ErrUserNotFound)
}

func Test_RunInTx_RollsBackOnError(t *testing.T) {
	s := memory.New()
	b := createBook(t, s, "The Word for World Is Forest", 1)
	u := createUser(t, s)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.RunInTx(ctx, func(repos lendingrepo.Repos) error {
		require.NoError(t, repos.Ledger.DecrementStock(ctx, b.ID))
		require.NoError(t, repos.Registry.AddBorrowedBook(ctx, u.ID, b.ID))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	book, err := s.Books().FindByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, book.Stock)

	user, err := s.Users().FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, user.BorrowedBooks)
}

func Test_RunInTx_Commits(t *testing.T) {
	s := memory.New()
	b := createBook(t, s, "Four Ways to Forgiveness", 1)
	u := createUser(t, s)
	ctx := context.Background()

	err := s.RunInTx(ctx, func(repos lendingrepo.Repos) error {
		if err := repos.Ledger.DecrementStock(ctx, b.ID); err != nil {
			return err
		}
		return repos.Registry.AddBorrowedBook(ctx, u.ID, b.ID)
	})
	require.NoError(t, err)

	book, err := s.Books().FindByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, book.Stock)
}

func Test_CancelledContextIsRejected(t *testing.T) {
	s := memory.New()
	b := createBook(t, s, "Malafrena", 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, s.Books().DecrementStock(ctx, b.ID), context.Canceled)
	assert.ErrorIs(t, s.RunInTx(ctx, func(lendingrepo.Repos) error { return nil }), context.Canceled)
}
