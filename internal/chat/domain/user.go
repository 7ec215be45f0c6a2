package domain

import "time"

type User struct {
	ID         string
	Email      string
	Username   string
	LegacyCode string // inline code carried by seeded demo accounts, superseded by the verification flow
	Level      int
	XP         int
	Coins      int
	Admin      bool
	Profession string
	Status     string
	AvatarURL  string
	Online     bool
	LastSeen   time.Time
	CreatedAt  time.Time
}

// LevelForXP derives the level from accumulated experience. Level is a pure
// function of XP and only ever moves up through AwardExperience.
func LevelForXP(xp int) int {
	return xp/100 + 1
}

// PublicUser is the externally visible projection of a User. It never carries
// the email, the legacy code or any verification state.
type PublicUser struct {
	ID         string    `json:"id"`
	Username   string    `json:"username"`
	Status     string    `json:"status,omitempty"`
	Level      int       `json:"level"`
	Coins      int       `json:"coins"`
	Profession string    `json:"profession"`
	AvatarURL  string    `json:"avatarUrl,omitempty"`
	Admin      bool      `json:"isAdmin"`
	Online     bool      `json:"isOnline"`
	LastSeen   time.Time `json:"lastSeen"`
}

func (u User) Public() PublicUser {
	return PublicUser{
		ID:         u.ID,
		Username:   u.Username,
		Status:     u.Status,
		Level:      u.Level,
		Coins:      u.Coins,
		Profession: u.Profession,
		AvatarURL:  u.AvatarURL,
		Admin:      u.Admin,
		Online:     u.Online,
		LastSeen:   u.LastSeen,
	}
}
