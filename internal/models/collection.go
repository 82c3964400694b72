package models

import (
	"time"
)

type Condition string

const (
	ConditionMint      Condition = "M"
	ConditionNearMint  Condition = "NM"
	ConditionExcellent Condition = "EX"
	ConditionGood      Condition = "GD"
	ConditionLightPlay Condition = "LP"
	ConditionPlayed    Condition = "PL"
	ConditionPoor      Condition = "PR"
)

// AllConditions returns all valid collection conditions
func AllConditions() []Condition {
	return []Condition{
		ConditionMint,
		ConditionNearMint,
		ConditionExcellent,
		ConditionGood,
		ConditionLightPlay,
		ConditionPlayed,
		ConditionPoor,
	}
}

// IsValid reports whether c is one of the known conditions.
func (c Condition) IsValid() bool {
	for _, known := range AllConditions() {
		if c == known {
			return true
		}
	}
	return false
}

// CollectionItem is a contributor's personal copy of a card. Until the bundle it
// was submitted in is approved it points at the provisional card instead of a
// canonical one.
type CollectionItem struct {
	ID                uint             `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID            uint             `json:"user_id" gorm:"not null;index"`
	CardID            *uint            `json:"card_id" gorm:"index"`
	Card              *Card            `json:"card,omitempty" gorm:"foreignKey:CardID"`
	ProvisionalCardID *uint            `json:"provisional_card_id" gorm:"index"`
	ProvisionalCard   *ProvisionalCard `json:"provisional_card,omitempty" gorm:"foreignKey:ProvisionalCardID"`
	IsProvisional     bool             `json:"is_provisional" gorm:"not null;default:false"`
	Quantity          int              `json:"quantity" gorm:"default:1"`
	Condition         Condition        `json:"condition" gorm:"default:'NM'"`
	SerialNumber      string           `json:"serial_number"`
	PurchasePrice     *float64         `json:"purchase_price"`
	StorageLocation   string           `json:"storage_location"`
	Notes             string           `json:"notes"`
	AddedAt           time.Time        `json:"added_at"`
}

type CollectionStats struct {
	TotalCards       int `json:"total_cards"`
	ProvisionalCards int `json:"provisional_cards"`
	LinkedCards      int `json:"linked_cards"`
}

type CollectionResponse struct {
	Items []CollectionItem `json:"items"`
	Stats CollectionStats  `json:"stats"`
}
