package entity

import "time"

// Forum is the forums-table row.
type Forum struct {
	ID           string    `db:"id" json:"id"`
	CreatorID    string    `db:"creator_id" json:"creatorId"`
	Name         string    `db:"name" json:"name"`
	Description  string    `db:"description" json:"description"`
	AvatarURL    *string   `db:"avatar_url" json:"avatarUrl"`
	CoverURL     *string   `db:"cover_url" json:"coverUrl"`
	IsCoi        bool      `db:"is_coi" json:"isCoi"`
	MembersCount int       `db:"members_count" json:"membersCount"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// Membership is one forum_members row.
type Membership struct {
	ID         string     `db:"id" json:"id"`
	ForumID    string     `db:"forum_id" json:"forumId"`
	UserID     string     `db:"user_id" json:"userId"`
	Role       string     `db:"role" json:"role"`
	IsApproved bool       `db:"is_approved" json:"isApproved"`
	ApprovedAt *time.Time `db:"approved_at" json:"approvedAt"`
	JoinedAt   time.Time  `db:"joined_at" json:"joinedAt"`
}

// Detail is the single-forum response relative to the viewer.
type Detail struct {
	Forum
	IsCoreMember bool `json:"isCoreMember"`
	IsFollowing  bool `json:"isFollowing"`
	IsPending    bool `json:"isPending"`
}

// JoinedItem pairs a forum with the viewer's membership row.
type JoinedItem struct {
	Forum
	Role       string `db:"role" json:"role"`
	IsApproved bool   `db:"is_approved" json:"isApproved"`
}
