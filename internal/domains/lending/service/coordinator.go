package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"library-backend/internal/domains/lending/model"
	"library-backend/internal/domains/lending/repository"
	"library-backend/internal/shared/apperror"
)

const (
	ModeSaga          = "saga"
	ModeTransactional = "transactional"

	instrumentationName        = "library-backend/lending"
	defaultCompensationTimeout = 5 * time.Second
)

// Config selects how a borrow or return is made atomic.
// Nil providers fall back to the otel globals.
type Config struct {
	Mode                string
	CompensationTimeout time.Duration

	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
}

// Coordinator pairs the stock and loan updates of a borrow or return.
//
// In saga mode the two steps are separate writes. A borrow whose loan cannot be
// registered puts its copy back with one compensating increment; a return whose
// increment fails is not undone. Either unreconciled step is recorded as a
// discrepancy. In transactional mode both steps commit together and nothing
// needs compensating.
type Coordinator struct {
	mode                string
	ledger              repository.StockLedger
	registry            repository.LoanRegistry
	discrepancies       repository.DiscrepancyRepository
	tx                  repository.TxRunner
	compensationTimeout time.Duration

	tracer        trace.Tracer
	compensations metric.Int64Counter
	unreconciled  metric.Int64Counter
}

// NewCoordinator builds the lending coordinator. tx may be nil in saga mode.
func NewCoordinator(
	cfg Config,
	ledger repository.StockLedger,
	registry repository.LoanRegistry,
	discrepancies repository.DiscrepancyRepository,
	tx repository.TxRunner,
) (*Coordinator, error) {
	switch cfg.Mode {
	case "":
		cfg.Mode = ModeSaga
	case ModeSaga:
	case ModeTransactional:
		if tx == nil {
			return nil, fmt.Errorf("lending mode %q needs a transaction runner", cfg.Mode)
		}
	default:
		return nil, fmt.Errorf("unknown lending mode %q", cfg.Mode)
	}
	if cfg.CompensationTimeout <= 0 {
		cfg.CompensationTimeout = defaultCompensationTimeout
	}

	if cfg.TracerProvider == nil {
		cfg.TracerProvider = otel.GetTracerProvider()
	}
	if cfg.MeterProvider == nil {
		cfg.MeterProvider = otel.GetMeterProvider()
	}

	meter := cfg.MeterProvider.Meter(instrumentationName)
	compensations, err := meter.Int64Counter("lending.compensations",
		metric.WithDescription("Compensating stock increments attempted after a failed loan registration"))
	if err != nil {
		return nil, fmt.Errorf("create compensations counter: %w", err)
	}
	unreconciled, err := meter.Int64Counter("lending.discrepancies",
		metric.WithDescription("Stock discrepancies recorded for manual reconciliation"))
	if err != nil {
		return nil, fmt.Errorf("create discrepancies counter: %w", err)
	}

	return &Coordinator{
		mode:                cfg.Mode,
		ledger:              ledger,
		registry:            registry,
		discrepancies:       discrepancies,
		tx:                  tx,
		compensationTimeout: cfg.CompensationTimeout,
		tracer:              cfg.TracerProvider.Tracer(instrumentationName),
		compensations:       compensations,
		unreconciled:        unreconciled,
	}, nil
}

func (c *Coordinator) Mode() string {
	return c.mode
}

// ========================================
// BORROW
// ========================================

func (c *Coordinator) Borrow(ctx context.Context, userID, bookID uuid.UUID) (err error) {
	ctx, span := c.startSpan(ctx, "lending.borrow", userID, bookID)
	defer func() { endSpan(span, err) }()

	if c.mode == ModeTransactional {
		return c.tx.RunInTx(ctx, func(repos repository.Repos) error {
			if err := repos.Ledger.DecrementStock(ctx, bookID); err != nil {
				return err
			}
			return repos.Registry.AddBorrowedBook(ctx, userID, bookID)
		})
	}

	if err := c.ledger.DecrementStock(ctx, bookID); err != nil {
		return err
	}

	if err := c.registry.AddBorrowedBook(ctx, userID, bookID); err != nil {
		c.compensateBorrow(ctx, userID, bookID, err)
		// The caller sees why the loan was refused, whatever happened to the stock.
		return err
	}

	return nil
}

// compensateBorrow puts back the copy taken by a borrow whose loan was not
// registered. It runs once, detached from the caller's cancellation.
func (c *Coordinator) compensateBorrow(ctx context.Context, userID, bookID uuid.UUID, cause error) {
	ctx, cancel := c.detached(ctx)
	defer cancel()

	c.compensations.Add(ctx, 1)
	trace.SpanFromContext(ctx).AddEvent("compensate",
		trace.WithAttributes(attribute.String("cause", cause.Error())))

	err := c.ledger.IncrementStock(ctx, bookID)
	if err == nil {
		return
	}

	log.Error().
		Err(err).
		AnErr("cause", cause).
		Str("user_id", userID.String()).
		Str("book_id", bookID.String()).
		Msg("borrow compensation failed, stock is one copy short")

	c.recordDiscrepancy(ctx, &model.Discrepancy{
		BookID: bookID,
		UserID: userID,
		Kind:   model.KindCompensationFailed,
		Reason: fmt.Sprintf("add borrowed book: %v; increment stock: %v", cause, err),
	})
}

// ========================================
// RETURN
// ========================================

func (c *Coordinator) Return(ctx context.Context, userID, bookID uuid.UUID) (err error) {
	ctx, span := c.startSpan(ctx, "lending.return", userID, bookID)
	defer func() { endSpan(span, err) }()

	if c.mode == ModeTransactional {
		return c.tx.RunInTx(ctx, func(repos repository.Repos) error {
			if err := repos.Registry.RemoveBorrowedBook(ctx, userID, bookID); err != nil {
				return err
			}
			return repos.Ledger.IncrementStock(ctx, bookID)
		})
	}

	if err := c.registry.RemoveBorrowedBook(ctx, userID, bookID); err != nil {
		return err
	}

	// No compensation: the loan stays removed and the missing copy is recorded.
	if err := c.ledger.IncrementStock(ctx, bookID); err != nil {
		log.Error().
			Err(err).
			Str("user_id", userID.String()).
			Str("book_id", bookID.String()).
			Msg("return increment failed, stock is one copy short")

		dctx, cancel := c.detached(ctx)
		defer cancel()
		c.recordDiscrepancy(dctx, &model.Discrepancy{
			BookID: bookID,
			UserID: userID,
			Kind:   model.KindReturnIncrementFailed,
			Reason: fmt.Sprintf("increment stock: %v", err),
		})

		return apperror.Internal(model.MsgStockInconsistent, err)
	}

	return nil
}

// ========================================
// HELPERS
// ========================================

func (c *Coordinator) recordDiscrepancy(ctx context.Context, d *model.Discrepancy) {
	d.ID = uuid.New()
	d.Delta = 1

	c.unreconciled.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", string(d.Kind))))

	if c.discrepancies == nil {
		return
	}
	if err := c.discrepancies.Create(ctx, d); err != nil {
		log.Error().
			Err(err).
			Str("book_id", d.BookID.String()).
			Str("kind", string(d.Kind)).
			Msg("failed to record stock discrepancy")
		return
	}

	log.Warn().
		Str("discrepancy_id", d.ID.String()).
		Str("book_id", d.BookID.String()).
		Str("kind", string(d.Kind)).
		Msg("stock discrepancy recorded")
}

// detached keeps ctx's values but not its cancellation, bounded by the
// compensation timeout.
func (c *Coordinator) detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), c.compensationTimeout)
}

func (c *Coordinator) startSpan(ctx context.Context, name string, userID, bookID uuid.UUID) (context.Context, trace.Span) {
	return c.tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("lending.mode", c.mode),
		attribute.String("user.id", userID.String()),
		attribute.String("book.id", bookID.String()),
	))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, apperror.PublicMessage(err))
	}
	span.End()
}
