package domain

type AdminStats struct {
	TotalUsers     int64 `json:"total_users"`
	ActiveRentals  int64 `json:"active_rentals"`
	TotalHeldMoney int64 `json:"total_held_money"`
}
