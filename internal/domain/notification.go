package domain

import "time"

// Notification is an in-app message delivered to a single sect member
type Notification struct {
	ID        int32     `json:"id"`
	UserID    int32     `json:"user_id"`
	SectID    int32     `json:"sect_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedOn time.Time `json:"created_on"`
}
