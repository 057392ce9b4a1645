package model

import (
	"time"

	"github.com/google/uuid"
)

type DiscrepancyKind string

const (
	// KindCompensationFailed: a borrow took a copy off the shelf, the loan was
	// not registered, and putting the copy back failed too.
	KindCompensationFailed DiscrepancyKind = "compensation_failed"
	// KindReturnIncrementFailed: a return removed the loan but the copy never
	// made it back onto the shelf.
	KindReturnIncrementFailed DiscrepancyKind = "return_increment_failed"
)

// Discrepancy is a stock correction the lending flow could not apply itself.
// Delta is what must be added to the book's stock to reconcile it.
type Discrepancy struct {
	ID         uuid.UUID       `json:"id"`
	BookID     uuid.UUID       `json:"book_id"`
	UserID     uuid.UUID       `json:"user_id"`
	Kind       DiscrepancyKind `json:"kind"`
	Delta      int             `json:"delta"`
	Reason     string          `json:"reason"`
	CreatedAt  time.Time       `json:"created_at"`
	ResolvedAt *time.Time      `json:"resolved_at,omitempty"`
	ResolvedBy *uuid.UUID      `json:"resolved_by,omitempty"`
}

func (d *Discrepancy) Resolved() bool {
	return d.ResolvedAt != nil
}

// ListFilter narrows a discrepancy listing. Zero Limit means no limit.
type ListFilter struct {
	OnlyOpen bool
	Limit    int
}
