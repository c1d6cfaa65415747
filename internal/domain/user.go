package domain

import "time"

// DMPermissionLevel is the minimum permission level that grants
// dungeon-master privileges.
const DMPermissionLevel = 5

// User is the domain entity for a user account.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	Permissions  int
	CreatedAt    time.Time
}

// IsDM reports whether the user holds dungeon-master privileges.
func (u User) IsDM() bool {
	return u.Permissions >= DMPermissionLevel
}
