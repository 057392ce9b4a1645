package model

import "library-backend/internal/shared/apperror"

// MsgStockInconsistent is returned when a return was registered but its
// stock increment failed.
const MsgStockInconsistent = "book returned but catalog stock may be inconsistent"

var (
	ErrDiscrepancyNotFound  = apperror.NotFound("discrepancy not found")
	ErrDiscrepancyResolved  = apperror.Conflict("discrepancy already resolved")
	ErrInvalidDiscrepancyID = apperror.BadRequest("invalid discrepancy id")
)
