package domain

// Point is a territory center point in world coordinates
type Point struct {
	X int32 `json:"x"`
	Y int32 `json:"y"`
	Z int32 `json:"z"`
}

// Sect is the guild-like organization that owns funds and at most one
// territory. The land-related fields are empty until a successful claim or
// bind and are reset by deletion.
type Sect struct {
	ID          int32  `json:"id"`
	Name        string `json:"name"`
	Level       int32  `json:"level"`
	LeaderID    int32  `json:"leader_id"`
	AdminEmail  string `json:"admin_email"`
	Funds       int64  `json:"funds"`
	MemberCount int32  `json:"member_count"`

	TerritoryID       *string          `json:"territory_id,omitempty"`
	LandCenter        *Point           `json:"land_center,omitempty"`
	LastMaintenanceAt int64            `json:"last_maintenance_at"` // epoch millis, 0 = never paid
	BuildingSlots     map[string]int32 `json:"building_slots,omitempty"`
}

// HasLand reports whether the sect currently holds a territory
func (s *Sect) HasLand() bool {
	return s.TerritoryID != nil && *s.TerritoryID != ""
}

// AddFunds credits the sect treasury
func (s *Sect) AddFunds(amount int64) {
	if amount <= 0 {
		return
	}
	s.Funds += amount
}

// RemoveFunds debits the sect treasury. It refuses overdraw and is the only
// debit path, so the balance can never go negative.
func (s *Sect) RemoveFunds(amount int64) bool {
	if amount <= 0 || s.Funds < amount {
		return false
	}
	s.Funds -= amount
	return true
}

// UsedBuildingSlots returns the total number of occupied building slots
func (s *Sect) UsedBuildingSlots() int32 {
	var total int32
	for _, n := range s.BuildingSlots {
		total += n
	}
	return total
}

// ClearLand resets every land-related field. Used by voluntary deletion and
// by forfeiture.
func (s *Sect) ClearLand() {
	s.TerritoryID = nil
	s.LandCenter = nil
	s.LastMaintenanceAt = 0
	s.BuildingSlots = nil
}
