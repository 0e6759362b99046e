package domain

import "time"

type Review struct {
	ID         int64     `json:"id"`
	RentalID   int64     `json:"rental_id"`
	ItemID     int64     `json:"item_id"`
	ReviewerID string    `json:"reviewer_id"`
	TargetID   string    `json:"target_id"`
	Score      int       `json:"score"`
	Comment    string    `json:"comment"`
	CreatedAt  time.Time `json:"created_at"`
}

func (r *Review) Validate() error {
	if r.Score < 1 || r.Score > 5 {
		return Invalid("score must be between 1 and 5")
	}
	return nil
}
