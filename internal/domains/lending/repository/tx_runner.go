package repository

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	bookrepo "library-backend/internal/domains/book/repository"
	userrepo "library-backend/internal/domains/user/repository"
	"library-backend/pkg/cache"
	"library-backend/pkg/database"
)

type postgresTxRunner struct {
	pool  *pgxpool.Pool
	cache cache.Cache
}

// NewPostgresTxRunner binds the catalog, account and discrepancy repositories
// to one pgx transaction per call. Cache invalidations requested inside the
// transaction are applied only after it commits.
func NewPostgresTxRunner(pool *pgxpool.Pool, c cache.Cache) TxRunner {
	return &postgresTxRunner{pool: pool, cache: c}
}

func (r *postgresTxRunner) RunInTx(ctx context.Context, fn func(repos Repos) error) error {
	var pending *deferredInvalidation
	var txCache cache.Cache
	if r.cache != nil {
		pending = newDeferredInvalidation(r.cache)
		txCache = pending
	}

	err := database.WithTransaction(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(Repos{
			Ledger:        bookrepo.NewPostgresRepository(tx, txCache, 0),
			Registry:      userrepo.NewPostgresRepository(tx),
			Discrepancies: NewPostgresDiscrepancyRepository(tx),
		})
	})
	if err != nil || pending == nil {
		return err
	}

	if flushErr := pending.flush(ctx); flushErr != nil {
		log.Warn().Err(flushErr).Strs("keys", pending.keys()).Msg("cache invalidation after commit failed")
	}
	return nil
}

// deferredInvalidation is the cache seen by repositories inside a
// transaction. Reads miss and writes are dropped so uncommitted rows never
// reach the shared cache. Deletes are recorded and replayed by flush.
type deferredInvalidation struct {
	cache.Cache

	mu      sync.Mutex
	seen    map[string]struct{}
	ordered []string
}

func newDeferredInvalidation(c cache.Cache) *deferredInvalidation {
	return &deferredInvalidation{Cache: c, seen: make(map[string]struct{})}
}

func (d *deferredInvalidation) Get(context.Context, string, interface{}) (bool, error) {
	return false, nil
}

func (d *deferredInvalidation) Set(context.Context, string, interface{}, time.Duration) error {
	return nil
}

func (d *deferredInvalidation) Delete(_ context.Context, keys ...string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, k := range keys {
		if _, ok := d.seen[k]; ok {
			continue
		}
		d.seen[k] = struct{}{}
		d.ordered = append(d.ordered, k)
	}
	return nil
}

func (d *deferredInvalidation) keys() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.ordered...)
}

func (d *deferredInvalidation) flush(ctx context.Context) error {
	keys := d.keys()
	if len(keys) == 0 {
		return nil
	}
	return d.Cache.Delete(ctx, keys...)
}
