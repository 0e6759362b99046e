package domain

import (
	"fmt"
	"time"
)

type Item struct {
	ID          int64     `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Title       string    `json:"title"`
	Category    string    `json:"category"`
	PricePerDay int64     `json:"price_per_day"`
	Deposit     int64     `json:"deposit"`
	IsProItem   bool      `json:"is_pro_item"`
	CanTeach    bool      `json:"can_teach"`
	CanDeliver  bool      `json:"can_deliver"`
	Images      []string  `json:"images"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	ViewCount   int64     `json:"view_count"`
	IsDeleted   bool      `json:"is_deleted"`
	CreatedAt   time.Time `json:"created_at"`
}

// ItemTerms is the price snapshot a rental is created from.
type ItemTerms struct {
	ItemID      int64  `json:"item_id"`
	OwnerID     string `json:"owner_id"`
	PricePerDay int64  `json:"price_per_day"`
	Deposit     int64  `json:"deposit"`
	CanDeliver  bool   `json:"can_deliver"`
}

func (i *Item) Terms() ItemTerms {
	return ItemTerms{
		ItemID:      i.ID,
		OwnerID:     i.OwnerID,
		PricePerDay: i.PricePerDay,
		Deposit:     i.Deposit,
		CanDeliver:  i.CanDeliver,
	}
}

// ValidateTerms checks the pricing constraints shared by create and update.
func ValidateTerms(pricePerDay, deposit int64) error {
	if pricePerDay <= 0 {
		return Invalid("price_per_day must be positive")
	}
	if deposit < 0 {
		return Invalid("deposit must not be negative")
	}
	if pricePerDay > MaxAmount || deposit > MaxAmount {
		return Invalid(fmt.Sprintf("price_per_day and deposit must not exceed %d", MaxAmount))
	}
	return nil
}
