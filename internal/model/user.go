package model

import "time"

// User is a registered player; ID is the Telegram user id.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Balance   int64     `json:"balance"`
	CreatedAt time.Time `json:"created_at"`
}
