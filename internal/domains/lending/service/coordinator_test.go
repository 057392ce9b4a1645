package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bookmodel "library-backend/internal/domains/book/model"
	"library-backend/internal/domains/lending/model"
	"library-backend/internal/domains/lending/repository"
	"library-backend/internal/domains/lending/service"
	usermodel "library-backend/internal/domains/user/model"
	"library-backend/internal/infrastructure/memory"
	"library-backend/internal/shared/apperror"
)

type fixture struct {
	store *memory.Store
	coord *service.Coordinator
}

type stubs struct {
	increment func(ctx context.Context, bookID uuid.UUID) error
	add       func(ctx context.Context, userID, bookID uuid.UUID) error
}

func newFixture(t *testing.T, mode string) *fixture {
	return newFixtureWith(t, mode, stubs{})
}

// newFixtureWith replaces single saga steps with failing stubs; unset stubs
// fall through to the memory store.
func newFixtureWith(t *testing.T, mode string, s stubs) *fixture {
	t.Helper()

	store := memory.New()
	coord, err := service.NewCoordinator(
		service.Config{Mode: mode},
		ledgerStub{StockLedger: store.Books(), increment: s.increment},
		registryStub{LoanRegistry: store.Users(), add: s.add},
		store.Discrepancies(),
		store,
	)
	require.NoError(t, err)

	return &fixture{store: store, coord: coord}
}

func (f *fixture) addBook(t *testing.T, stock int) uuid.UUID {
	t.Helper()
	ctx := context.Background()

	book := &bookmodel.Book{ID: uuid.New(), Title: "title-" + uuid.NewString(), Author: "author"}
	require.NoError(t, f.store.Books().Create(ctx, book))
	if stock > 0 {
		_, err := f.store.Books().AdjustStock(ctx, book.ID, stock)
		require.NoError(t, err)
	}
	return book.ID
}

func (f *fixture) addUser(t *testing.T) uuid.UUID {
	t.Helper()

	u := &usermodel.User{ID: uuid.New(), Email: uuid.NewString() + "@example.com", Username: "reader"}
	require.NoError(t, f.store.Users().Create(context.Background(), u))
	return u.ID
}

func (f *fixture) stock(t *testing.T, bookID uuid.UUID) int {
	t.Helper()

	b, err := f.store.Books().FindByID(context.Background(), bookID)
	require.NoError(t, err)
	return b.Stock
}

func (f *fixture) borrowed(t *testing.T, userID uuid.UUID) []uuid.UUID {
	t.Helper()

	u, err := f.store.Users().FindByID(context.Background(), userID)
	require.NoError(t, err)
	return u.BorrowedBooks
}

func (f *fixture) openDiscrepancies(t *testing.T) []model.Discrepancy {
	t.Helper()

	items, err := f.store.Discrepancies().List(context.Background(), model.ListFilter{OnlyOpen: true})
	require.NoError(t, err)
	return items
}

// ========================================
// STUBS
// ========================================

type ledgerStub struct {
	repository.StockLedger
	increment func(ctx context.Context, bookID uuid.UUID) error
}

func (l ledgerStub) IncrementStock(ctx context.Context, bookID uuid.UUID) error {
	if l.increment != nil {
		return l.increment(ctx, bookID)
	}
	return l.StockLedger.IncrementStock(ctx, bookID)
}

type registryStub struct {
	repository.LoanRegistry
	add func(ctx context.Context, userID, bookID uuid.UUID) error
}

func (r registryStub) AddBorrowedBook(ctx context.Context, userID, bookID uuid.UUID) error {
	if r.add != nil {
		return r.add(ctx, userID, bookID)
	}
	return r.LoanRegistry.AddBorrowedBook(ctx, userID, bookID)
}

// ========================================
// SAGA MODE
// ========================================

func Test_Borrow_Succeeds(t *testing.T) {
	f := newFixture(t, service.ModeSaga)
	bookID, userID := f.addBook(t, 1), f.addUser(t)

	require.NoError(t, f.coord.Borrow(context.Background(), userID, bookID))

	assert.Equal(t, 0, f.stock(t, bookID))
	assert.Equal(t, []uuid.UUID{bookID}, f.borrowed(t, userID))
}

func Test_Borrow_ZeroStock(t *testing.T) {
	f := newFixture(t, service.ModeSaga)
	bookID, userID := f.addBook(t, 0), f.addUser(t)

	err := f.coord.Borrow(context.Background(), userID, bookID)

	assert.ErrorIs(t, err, bookmodel.ErrNoStockAvailable)
	assert.Equal(t, 0, f.stock(t, bookID))
	assert.Empty(t, f.borrowed(t, userID))
}

func Test_Borrow_UnknownBook(t *testing.T) {
	f := newFixture(t, service.ModeSaga)
	userID := f.addUser(t)

	err := f.coord.Borrow(context.Background(), userID, uuid.New())

	assert.ErrorIs(t, err, bookmodel.ErrBookNotFound)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
}

func Test_Borrow_Duplicate_CompensatesStock(t *testing.T) {
	f := newFixture(t, service.ModeSaga)
	bookID, userID := f.addBook(t, 2), f.addUser(t)
	ctx := context.Background()

	require.NoError(t, f.coord.Borrow(ctx, userID, bookID))
	err := f.coord.Borrow(ctx, userID, bookID)

	assert.ErrorIs(t, err, usermodel.ErrBookAlreadyBorrowed)
	assert.Equal(t, 1, f.stock(t, bookID))
	assert.Equal(t, []uuid.UUID{bookID}, f.borrowed(t, userID))
	assert.Empty(t, f.openDiscrepancies(t))
}

func Test_Borrow_NinthBook_RejectedAndCompensated(t *testing.T) {
	f := newFixture(t, service.ModeSaga)
	userID := f.addUser(t)
	ctx := context.Background()

	for i := 0; i < usermodel.MaxBorrowedBooks; i++ {
		require.NoError(t, f.coord.Borrow(ctx, userID, f.addBook(t, 1)))
	}

	ninth := f.addBook(t, 1)
	err := f.coord.Borrow(ctx, userID, ninth)

	assert.ErrorIs(t, err, usermodel.ErrBorrowLimitReached)
	assert.Equal(t, 1, f.stock(t, ninth))
	assert.Len(t, f.borrowed(t, userID), usermodel.MaxBorrowedBooks)
}

func Test_Borrow_UnknownUser_CompensatesStock(t *testing.T) {
	f := newFixture(t, service.ModeSaga)
	bookID := f.addBook(t, 1)

	err := f.coord.Borrow(context.Background(), uuid.New(), bookID)

	assert.ErrorIs(t, err, usermodel.ErrUserNotFound)
	assert.Equal(t, 1, f.stock(t, bookID))
}

func Test_Borrow_TransportError_StillCompensates(t *testing.T) {
	transport := errors.New("connection reset by peer")
	f := newFixtureWith(t, service.ModeSaga, stubs{
		add: func(context.Context, uuid.UUID, uuid.UUID) error {
			return transport
		},
	})
	bookID, userID := f.addBook(t, 1), f.addUser(t)

	err := f.coord.Borrow(context.Background(), userID, bookID)

	assert.ErrorIs(t, err, transport)
	assert.Equal(t, 1, f.stock(t, bookID))
}

func Test_Borrow_CompensationFails_ReturnsRegistryErrorAndRecords(t *testing.T) {
	registryErr := usermodel.ErrBorrowLimitReached
	f := newFixtureWith(t, service.ModeSaga, stubs{
		increment: func(context.Context, uuid.UUID) error {
			return errors.New("catalog unavailable")
		},
		add: func(context.Context, uuid.UUID, uuid.UUID) error {
			return registryErr
		},
	})
	bookID, userID := f.addBook(t, 1), f.addUser(t)

	err := f.coord.Borrow(context.Background(), userID, bookID)

	assert.ErrorIs(t, err, registryErr)
	assert.Equal(t, 0, f.stock(t, bookID), "stock stays one short until reconciled")

	open := f.openDiscrepancies(t)
	require.Len(t, open, 1)
	assert.Equal(t, model.KindCompensationFailed, open[0].Kind)
	assert.Equal(t, bookID, open[0].BookID)
	assert.Equal(t, userID, open[0].UserID)
	assert.Equal(t, 1, open[0].Delta)
}

func Test_Borrow_CallerCancelled_CompensationStillRuns(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := newFixtureWith(t, service.ModeSaga, stubs{
		add: func(ctx context.Context, _, _ uuid.UUID) error {
			// The client hangs up between the two steps.
			cancel()
			return ctx.Err()
		},
	})
	bookID, userID := f.addBook(t, 1), f.addUser(t)

	err := f.coord.Borrow(ctx, userID, bookID)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, f.stock(t, bookID))
	assert.Empty(t, f.openDiscrepancies(t))
}

func Test_Return_Succeeds(t *testing.T) {
	f := newFixture(t, service.ModeSaga)
	bookID, userID := f.addBook(t, 1), f.addUser(t)
	ctx := context.Background()

	require.NoError(t, f.coord.Borrow(ctx, userID, bookID))
	require.NoError(t, f.coord.Return(ctx, userID, bookID))

	assert.Equal(t, 1, f.stock(t, bookID))
	assert.Empty(t, f.borrowed(t, userID))
}

func Test_Return_NotBorrowed_StockUntouched(t *testing.T) {
	f := newFixture(t, service.ModeSaga)
	bookID, userID := f.addBook(t, 3), f.addUser(t)

	err := f.coord.Return(context.Background(), userID, bookID)

	assert.ErrorIs(t, err, usermodel.ErrBookNotBorrowed)
	assert.Equal(t, 3, f.stock(t, bookID))
}

func Test_Return_IncrementFails_ReportsInconsistency(t *testing.T) {
	f := newFixtureWith(t, service.ModeSaga, stubs{
		increment: func(context.Context, uuid.UUID) error {
			return errors.New("catalog unavailable")
		},
	})

	bookID, userID := f.addBook(t, 1), f.addUser(t)
	require.NoError(t, f.coord.Borrow(context.Background(), userID, bookID))

	err := f.coord.Return(context.Background(), userID, bookID)

	require.Error(t, err)
	assert.Equal(t, apperror.KindInternal, apperror.KindOf(err))
	assert.Equal(t, model.MsgStockInconsistent, apperror.PublicMessage(err))
	assert.Empty(t, f.borrowed(t, userID), "the loan stays removed")
	assert.Equal(t, 0, f.stock(t, bookID))

	open := f.openDiscrepancies(t)
	require.Len(t, open, 1)
	assert.Equal(t, model.KindReturnIncrementFailed, open[0].Kind)
}

func Test_BorrowReturn_ConservesCopies(t *testing.T) {
	f := newFixture(t, service.ModeSaga)
	ctx := context.Background()
	bookID := f.addBook(t, 3)
	users := []uuid.UUID{f.addUser(t), f.addUser(t), f.addUser(t), f.addUser(t)}

	holders := 0
	for _, u := range users {
		if err := f.coord.Borrow(ctx, u, bookID); err == nil {
			holders++
		}
		assert.Equal(t, 3, f.stock(t, bookID)+holders)
	}
	assert.Equal(t, 3, holders)

	for _, u := range users[:2] {
		require.NoError(t, f.coord.Return(ctx, u, bookID))
		holders--
		assert.Equal(t, 3, f.stock(t, bookID)+holders)
	}
}

func Test_Borrow_LastCopy_ConcurrentBorrowers(t *testing.T) {
	for _, mode := range []string{service.ModeSaga, service.ModeTransactional} {
		t.Run(mode, func(t *testing.T) {
			f := newFixture(t, mode)
			bookID := f.addBook(t, 1)

			const borrowers = 16
			users := make([]uuid.UUID, borrowers)
			for i := range users {
				users[i] = f.addUser(t)
			}

			var wg sync.WaitGroup
			results := make(chan error, borrowers)
			for _, u := range users {
				wg.Add(1)
				go func(userID uuid.UUID) {
					defer wg.Done()
					results <- f.coord.Borrow(context.Background(), userID, bookID)
				}(u)
			}
			wg.Wait()
			close(results)

			successes := 0
			for err := range results {
				if err == nil {
					successes++
					continue
				}
				assert.ErrorIs(t, err, bookmodel.ErrNoStockAvailable)
			}

			assert.Equal(t, 1, successes)
			assert.Equal(t, 0, f.stock(t, bookID))
		})
	}
}

// ========================================
// TRANSACTIONAL MODE
// ========================================

func Test_Transactional_RollsBackWithoutCompensation(t *testing.T) {
	f := newFixture(t, service.ModeTransactional)
	userID := f.addUser(t)
	ctx := context.Background()

	for i := 0; i < usermodel.MaxBorrowedBooks; i++ {
		require.NoError(t, f.coord.Borrow(ctx, userID, f.addBook(t, 1)))
	}

	ninth := f.addBook(t, 1)
	err := f.coord.Borrow(ctx, userID, ninth)

	assert.ErrorIs(t, err, usermodel.ErrBorrowLimitReached)
	assert.Equal(t, 1, f.stock(t, ninth))
	assert.Empty(t, f.openDiscrepancies(t))
}

func Test_Transactional_Return(t *testing.T) {
	f := newFixture(t, service.ModeTransactional)
	bookID, userID := f.addBook(t, 1), f.addUser(t)
	ctx := context.Background()

	require.NoError(t, f.coord.Borrow(ctx, userID, bookID))
	require.NoError(t, f.coord.Return(ctx, userID, bookID))
	assert.ErrorIs(t, f.coord.Return(ctx, userID, bookID), usermodel.ErrBookNotBorrowed)

	assert.Equal(t, 1, f.stock(t, bookID))
}

func Test_NewCoordinator_Modes(t *testing.T) {
	store := memory.New()

	c, err := service.NewCoordinator(service.Config{}, store.Books(), store.Users(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, service.ModeSaga, c.Mode())

	_, err = service.NewCoordinator(service.Config{Mode: service.ModeTransactional}, store.Books(), store.Users(), nil, nil)
	assert.Error(t, err)

	_, err = service.NewCoordinator(service.Config{Mode: "two-phase"}, store.Books(), store.Users(), nil, store)
	assert.EqualError(t, err, fmt.Sprintf("unknown lending mode %q", "two-phase"))
}
