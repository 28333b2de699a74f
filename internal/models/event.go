package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// PriceTier is a value object stored inside the event row; its Name is the key.
type PriceTier struct {
	Name             string          `json:"name"`
	Price            decimal.Decimal `json:"price"`
	AvailableTickets int             `json:"available_tickets"`
}

type Event struct {
	bun.BaseModel `bun:"table:events"`

	ID               string      `bun:"id,pk" json:"id"`
	Name             string      `bun:"name,notnull" json:"name"`
	Description      string      `bun:"description" json:"description,omitempty"`
	Date             time.Time   `bun:"date,notnull" json:"date"`
	Location         string      `bun:"location" json:"location"`
	Category         string      `bun:"category" json:"category,omitempty"`
	Organizer        string      `bun:"organizer" json:"organizer,omitempty"`
	ImageURL         string      `bun:"image_url" json:"image_url,omitempty"`
	Tiers            []PriceTier `bun:"tiers,type:jsonb" json:"tiers"`
	AvailableTickets int         `bun:"available_tickets,notnull" json:"available_tickets"`
	CreatedAt        time.Time   `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt        time.Time   `bun:"updated_at,notnull" json:"updated_at"`
}

// TierByName matches exactly, case included.
func (e *Event) TierByName(name string) (*PriceTier, bool) {
	for i := range e.Tiers {
		if e.Tiers[i].Name == name {
			return &e.Tiers[i], true
		}
	}
	return nil, false
}

// RecomputeAvailability keeps the aggregate equal to the tier sum. Events
// without tiers keep their aggregate as-is.
func (e *Event) RecomputeAvailability() {
	if len(e.Tiers) == 0 {
		return
	}
	total := 0
	for _, t := range e.Tiers {
		total += t.AvailableTickets
	}
	e.AvailableTickets = total
}

// ConsumeTickets decrements the named tier and the aggregate, never below zero.
// It returns false when stock was short and had to be clamped.
func (e *Event) ConsumeTickets(tierName string, n int) bool {
	enough := true
	if tier, ok := e.TierByName(tierName); ok {
		if tier.AvailableTickets < n {
			enough = false
			tier.AvailableTickets = 0
		} else {
			tier.AvailableTickets -= n
		}
	}
	if e.AvailableTickets < n {
		enough = false
		e.AvailableTickets = 0
	} else {
		e.AvailableTickets -= n
	}
	return enough
}
