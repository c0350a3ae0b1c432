package domain

// Rank is a member's rank within a sect
type Rank string

const (
	RankLeader   Rank = "LEADER"
	RankElder    Rank = "ELDER"
	RankDisciple Rank = "DISCIPLE"
)

// CanManageLand reports whether the rank is allowed to run territory
// operations. Only the leader and elders may.
func (r Rank) CanManageLand() bool {
	return r == RankLeader || r == RankElder
}

// Member is a sect roster entry
type Member struct {
	UserID int32  `json:"user_id"`
	SectID int32  `json:"sect_id"`
	Name   string `json:"name"`
	Rank   Rank   `json:"rank"`
}
