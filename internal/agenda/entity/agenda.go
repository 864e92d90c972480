package entity

import "time"

// Item is one calendar entry, optionally bound to a forum.
type Item struct {
	ID          string    `db:"id" json:"id"`
	ForumID     *string   `db:"forum_id" json:"forumId"`
	ImageURL    string    `db:"image_url" json:"imageUrl"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	StartDate   time.Time `db:"start_date" json:"startDate"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}
