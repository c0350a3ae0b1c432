package domain

// DebtRecord tracks an unpaid maintenance bill. A record exists iff the sect
// has an outstanding bill: it is created on the first billing failure and
// destroyed on full payment or forfeiture. At most one record per sect.
type DebtRecord struct {
	SectID        int32 `json:"sect_id"`
	StartedAt     int64 `json:"started_at"` // epoch millis of the first missed bill
	DueAmount     int64 `json:"due_amount"`
	LastWarningAt int64 `json:"last_warning_at"`
	Frozen        bool  `json:"frozen"`
}
