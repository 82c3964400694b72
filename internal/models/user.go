package models

import (
	"time"
)

type Role string

const (
	RoleContributor Role = "contributor"
	RoleAdmin       Role = "admin"
)

type TrustLevel string

const (
	TrustNovice  TrustLevel = "novice"
	TrustTrusted TrustLevel = "trusted"
	TrustExpert  TrustLevel = "expert"
)

const (
	trustedPoints = 50
	expertPoints  = 200
)

// User is the moderation-side view of an account. Identity itself lives in the
// auth layer; this row only carries what review needs.
type User struct {
	ID        uint      `json:"id" gorm:"primaryKey;autoIncrement:false"`
	Username  string    `json:"username"`
	Role      Role      `json:"role" gorm:"default:'contributor'"`
	Points    int       `json:"points" gorm:"not null;default:0"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TrustLevelForPoints maps a contributor's points to a trust level.
func TrustLevelForPoints(points int) TrustLevel {
	switch {
	case points >= expertPoints:
		return TrustExpert
	case points >= trustedPoints:
		return TrustTrusted
	default:
		return TrustNovice
	}
}
