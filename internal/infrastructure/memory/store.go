// Package memory implements every repository in process, for development and tests.
// One mutex guards the whole store, so each operation is atomic the way a
// single guarded row update is in Postgres.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	bookmodel "library-backend/internal/domains/book/model"
	lendingmodel "library-backend/internal/domains/lending/model"
	lendingrepo "library-backend/internal/domains/lending/repository"
	usermodel "library-backend/internal/domains/user/model"
)

// Store holds catalog, account and discrepancy state.
type Store struct {
	mu            sync.Mutex
	books         map[uuid.UUID]*bookmodel.Book
	users         map[uuid.UUID]*usermodel.User
	discrepancies map[uuid.UUID]*lendingmodel.Discrepancy
	lastStamp     time.Time
}

func New() *Store {
	return &Store{
		books:         make(map[uuid.UUID]*bookmodel.Book),
		users:         make(map[uuid.UUID]*usermodel.User),
		discrepancies: make(map[uuid.UUID]*lendingmodel.Discrepancy),
	}
}

var _ lendingrepo.TxRunner = (*Store)(nil)

func (s *Store) Books() *BookRepository {
	return &BookRepository{s: s}
}

func (s *Store) Users() *UserRepository {
	return &UserRepository{s: s}
}

func (s *Store) Discrepancies() *DiscrepancyRepository {
	return &DiscrepancyRepository{s: s}
}

// RunInTx holds the store lock for the whole of fn. If fn fails or panics
// every change it made is rolled back.
func (s *Store) RunInTx(ctx context.Context, fn func(repos lendingrepo.Repos) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	defer func() {
		if p := recover(); p != nil {
			s.restore(snap)
			panic(p)
		}
		if err != nil {
			s.restore(snap)
		}
	}()

	return fn(lendingrepo.Repos{
		Ledger:        &BookRepository{s: s, inTx: true},
		Registry:      &UserRepository{s: s, inTx: true},
		Discrepancies: &DiscrepancyRepository{s: s, inTx: true},
	})
}

// lock takes the store mutex unless the caller already holds it through RunInTx.
func (s *Store) lock(inTx bool) func() {
	if inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// stamp returns a strictly increasing timestamp so listings have a stable order.
func (s *Store) stamp() time.Time {
	now := time.Now().UTC()
	if !now.After(s.lastStamp) {
		now = s.lastStamp.Add(time.Microsecond)
	}
	s.lastStamp = now
	return now
}

type snapshot struct {
	books         map[uuid.UUID]*bookmodel.Book
	users         map[uuid.UUID]*usermodel.User
	discrepancies map[uuid.UUID]*lendingmodel.Discrepancy
}

func (s *Store) snapshot() snapshot {
	snap := snapshot{
		books:         make(map[uuid.UUID]*bookmodel.Book, len(s.books)),
		users:         make(map[uuid.UUID]*usermodel.User, len(s.users)),
		discrepancies: make(map[uuid.UUID]*lendingmodel.Discrepancy, len(s.discrepancies)),
	}
	for id, b := range s.books {
		cp := *b
		snap.books[id] = &cp
	}
	for id, u := range s.users {
		snap.users[id] = copyUser(u)
	}
	for id, d := range s.discrepancies {
		snap.discrepancies[id] = copyDiscrepancy(d)
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.books = snap.books
	s.users = snap.users
	s.discrepancies = snap.discrepancies
}

func copyUser(u *usermodel.User) *usermodel.User {
	cp := *u
	cp.BorrowedBooks = append([]uuid.UUID{}, u.BorrowedBooks...)
	return &cp
}

func copyDiscrepancy(d *lendingmodel.Discrepancy) *lendingmodel.Discrepancy {
	cp := *d
	if d.ResolvedAt != nil {
		at := *d.ResolvedAt
		cp.ResolvedAt = &at
	}
	if d.ResolvedBy != nil {
		by := *d.ResolvedBy
		cp.ResolvedBy = &by
	}
	return &cp
}
