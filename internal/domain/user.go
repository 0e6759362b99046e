package domain

import "time"

// DefaultTrustScore is assigned to every new account.
const DefaultTrustScore = 36.5

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Nickname     string    `json:"nickname"`
	AvatarURL    string    `json:"avatar_url"`
	Bio          string    `json:"bio"`
	Location     string    `json:"location"`
	Balance      int64     `json:"balance"`
	TrustScore   float64   `json:"trust_score"`
	IsBanned     bool      `json:"is_banned"`
	IsAdmin      bool      `json:"is_admin"`
	IsShopOwner  bool      `json:"is_shop_owner"`
	ShopName     string    `json:"shop_name,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// ProfileUpdate carries the optional fields a user may change on their own profile.
// Nil fields are left untouched.
type ProfileUpdate struct {
	Nickname  *string `json:"nickname,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
	Bio       *string `json:"bio,omitempty"`
	Location  *string `json:"location,omitempty"`
}

func (p ProfileUpdate) Apply(u *User) {
	if p.Nickname != nil {
		u.Nickname = *p.Nickname
	}
	if p.AvatarURL != nil {
		u.AvatarURL = *p.AvatarURL
	}
	if p.Bio != nil {
		u.Bio = *p.Bio
	}
	if p.Location != nil {
		u.Location = *p.Location
	}
}
