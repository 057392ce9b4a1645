package main

import (
	"github.com/hibiken/asynq"

	lendingJob "library-backend/internal/domains/lending/job"
	"library-backend/internal/shared"
	"library-backend/pkg/container"
)

// HandlerRegistry holds all job handlers
type HandlerRegistry struct {
	auditDiscrepancies   *lendingJob.AuditHandler
	reconcileDiscrepancy *lendingJob.ReconcileHandler
}

func initializeHandlers(c *container.Container) *HandlerRegistry {
	return &HandlerRegistry{
		auditDiscrepancies:   lendingJob.NewAuditHandler(c.DiscrepancyService),
		reconcileDiscrepancy: lendingJob.NewReconcileHandler(c.DiscrepancyService),
	}
}

// RegisterHandlers registers all handlers with the mux
func (h *HandlerRegistry) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(shared.TypeAuditDiscrepancies, h.auditDiscrepancies.ProcessTask)
	mux.HandleFunc(shared.TypeReconcileDiscrepancy, h.reconcileDiscrepancy.ProcessTask)
}
