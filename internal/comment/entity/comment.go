package entity

import "time"

// Comment is the comments-table row. Deletion is a soft flag so reply
// threads keep their shape.
type Comment struct {
	ID              string    `db:"id" json:"id"`
	UserID          string    `db:"user_id" json:"userId"`
	PostID          string    `db:"post_id" json:"postId"`
	ParentCommentID *string   `db:"parent_comment_id" json:"parentCommentId"`
	Content         string    `db:"content" json:"content"`
	IsDeleted       bool      `db:"is_deleted" json:"isDeleted"`
	LikesCount      int       `db:"likes_count" json:"likesCount"`
	BookmarksCount  int       `db:"bookmarks_count" json:"bookmarksCount"`
	RepliesCount    int       `db:"replies_count" json:"repliesCount"`
	CreatedAt       time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time `db:"updated_at" json:"updatedAt"`
}

// Author is the user projection embedded in comment listings.
type Author struct {
	ID          string  `db:"author_id" json:"id"`
	Username    string  `db:"author_username" json:"username"`
	DisplayName string  `db:"author_display_name" json:"displayName"`
	AvatarURL   *string `db:"author_avatar_url" json:"avatarUrl"`
	IsVerified  bool    `db:"author_is_verified" json:"isVerified"`
}

// View is one listing row with the author and viewer flags.
type View struct {
	Comment
	Author        Author `json:"author"`
	HasLiked      bool   `db:"has_liked" json:"hasLiked"`
	HasBookmarked bool   `db:"has_bookmarked" json:"hasBookmarked"`
}
