package domain

// MaintenanceStatus is a read-only classification of payment recency,
// derived from the time since the last maintenance payment. It is a display
// projection only; freeze and forfeiture decisions are driven by the debt
// record, whose clock starts at debt onset instead.
type MaintenanceStatus string

const (
	StatusNoLand         MaintenanceStatus = "NO_LAND"
	StatusPaid           MaintenanceStatus = "PAID"
	StatusOverdueWarning MaintenanceStatus = "OVERDUE_WARNING"
	StatusFrozen         MaintenanceStatus = "FROZEN"
	StatusAutoReleasing  MaintenanceStatus = "AUTO_RELEASING"
)
