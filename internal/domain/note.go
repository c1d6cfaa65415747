package domain

import "time"

// Note is a campaign note owned by a single user. Notes are immutable after
// creation; the only transition is deletion by the owner.
type Note struct {
	ID         int64
	Content    string
	UserID     int64
	DatePosted time.Time
	DMPost     bool
}

// UserNotes pairs a user with their notes, newest first. The home view
// renders one group per user for DMs and a single group otherwise.
type UserNotes struct {
	User  User
	Notes []Note
}
