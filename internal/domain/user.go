package domain

import "time"

// User is a directory entry for an identity. Name is optional.
type User struct {
	ID        UserID
	Email     string
	Name      *string
	CreatedAt time.Time
}

// UserSummary is the lookup shape of a user: the best known display name.
type UserSummary struct {
	ID       UserID
	FullName *string
}
