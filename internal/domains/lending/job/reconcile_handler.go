package job

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"

	"library-backend/internal/domains/lending/model"
	"library-backend/internal/domains/lending/service"
	"library-backend/internal/shared"
)

// ReconcileHandler applies the correction of one discrepancy.
// A discrepancy already resolved is treated as done, so redelivery is harmless.
type ReconcileHandler struct {
	discrepancies service.DiscrepancyServiceInterface
}

func NewReconcileHandler(discrepancies service.DiscrepancyServiceInterface) *ReconcileHandler {
	return &ReconcileHandler{discrepancies: discrepancies}
}

func (h *ReconcileHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var payload shared.ReconcileDiscrepancyPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w: %w", err, asynq.SkipRetry)
	}

	id, err := uuid.Parse(payload.DiscrepancyID)
	if err != nil {
		return fmt.Errorf("parse discrepancy id: %w: %w", err, asynq.SkipRetry)
	}

	var resolvedBy *uuid.UUID
	if payload.ResolvedBy != "" {
		by, err := uuid.Parse(payload.ResolvedBy)
		if err != nil {
			return fmt.Errorf("parse resolved_by: %w: %w", err, asynq.SkipRetry)
		}
		resolvedBy = &by
	}

	_, err = h.discrepancies.Resolve(ctx, id, resolvedBy, true)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, model.ErrDiscrepancyResolved):
		log.Info().Str("discrepancy_id", id.String()).Msg("discrepancy already resolved, skipping")
		return nil
	case errors.Is(err, model.ErrDiscrepancyNotFound):
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	default:
		return fmt.Errorf("resolve discrepancy %s: %w", id, err)
	}
}

// NewReconcileTask builds the task that ReconcileHandler consumes.
func NewReconcileTask(id uuid.UUID, resolvedBy *uuid.UUID) (*asynq.Task, error) {
	payload := shared.ReconcileDiscrepancyPayload{DiscrepancyID: id.String()}
	if resolvedBy != nil {
		payload.ResolvedBy = resolvedBy.String()
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(shared.TypeReconcileDiscrepancy, body, asynq.Queue(shared.QueueLending), asynq.MaxRetry(3)), nil
}
