package shared

const (
	QueueLending = "lending"

	// TypeAuditDiscrepancies is the periodic task that reports unresolved stock discrepancies.
	TypeAuditDiscrepancies = "lending:audit_discrepancies"
	// TypeReconcileDiscrepancy applies the correction of a single discrepancy.
	TypeReconcileDiscrepancy = "lending:reconcile_discrepancy"
)

// AuditDiscrepanciesPayload is the body of TypeAuditDiscrepancies.
type AuditDiscrepanciesPayload struct {
	Limit int `json:"limit"`
}

// ReconcileDiscrepancyPayload is the body of TypeReconcileDiscrepancy.
type ReconcileDiscrepancyPayload struct {
	DiscrepancyID string `json:"discrepancy_id"`
	ResolvedBy    string `json:"resolved_by"`
}
