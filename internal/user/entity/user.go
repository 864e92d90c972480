package entity

import "time"

// Summary is the list/feed projection of a user.
type Summary struct {
	ID          string  `db:"id" json:"id"`
	Username    string  `db:"username" json:"username"`
	DisplayName string  `db:"display_name" json:"displayName"`
	AvatarURL   *string `db:"avatar_url" json:"avatarUrl"`
	IsVerified  bool    `db:"is_verified" json:"isVerified"`
}

// Profile is the full users-table row.
type Profile struct {
	ID          string    `db:"id" json:"id"`
	Email       string    `db:"email" json:"email"`
	Username    string    `db:"username" json:"username"`
	DisplayName string    `db:"display_name" json:"displayName"`
	Bio         string    `db:"bio" json:"bio"`
	AvatarURL   *string   `db:"avatar_url" json:"avatarUrl"`
	CoverURL    *string   `db:"cover_url" json:"coverUrl"`
	IsVerified  bool      `db:"is_verified" json:"isVerified"`
	IsPrivate   bool      `db:"is_private" json:"isPrivate"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

// Member is the approved-member profile extension.
type Member struct {
	UserID          string     `db:"user_id" json:"userId"`
	IDNumber        string     `db:"id_number" json:"idNumber"`
	BirthPlace      string     `db:"birth_place" json:"birthPlace"`
	BirthDate       *time.Time `db:"birth_date" json:"birthDate"`
	Zone            string     `db:"zone" json:"zone"`
	LatestEducation string     `db:"latest_education" json:"latestEducation"`
	Address         string     `db:"address" json:"address"`
	NIK             string     `db:"nik" json:"nik"`
	PhoneNumber     string     `db:"phone_number" json:"phoneNumber"`
	Referral        string     `db:"referral" json:"referral"`
	Position        string     `db:"position" json:"position"`
	Status          string     `db:"status" json:"status"`
}

// Registration is a pending-member application.
type Registration struct {
	ID              string     `db:"id" json:"id"`
	UserID          string     `db:"user_id" json:"userId"`
	IDNumber        string     `db:"id_number" json:"idNumber"`
	BirthPlace      string     `db:"birth_place" json:"birthPlace"`
	BirthDate       *time.Time `db:"birth_date" json:"birthDate"`
	Zone            string     `db:"zone" json:"zone"`
	LatestEducation string     `db:"latest_education" json:"latestEducation"`
	Address         string     `db:"address" json:"address"`
	NIK             string     `db:"nik" json:"nik"`
	PhoneNumber     string     `db:"phone_number" json:"phoneNumber"`
	Referral        string     `db:"referral" json:"referral"`
	Status          string     `db:"status" json:"status"`
	CreatedAt       time.Time  `db:"created_at" json:"createdAt"`
}

// Detail is the single-user response: the profile, the viewer-relative
// follow flag, and whichever extensions the user carries.
type Detail struct {
	Profile
	IsAdmin        bool          `json:"isAdmin"`
	IsFollowing    bool          `json:"isFollowing"`
	FollowersCount int           `json:"followersCount"`
	FollowingCount int           `json:"followingCount"`
	Member         *Member       `json:"member,omitempty"`
	Registration   *Registration `json:"registration,omitempty"`
}

// ListItem pairs a summary with its member zone/status for admin listings.
type ListItem struct {
	Summary
	Zone   string `db:"zone" json:"zone"`
	Status string `db:"status" json:"status"`
}

// Metrics aggregates member zone/status counts for the admin listing.
type Metrics struct {
	Total    int            `json:"total"`
	ByZone   map[string]int `json:"byZone"`
	ByStatus map[string]int `json:"byStatus"`
}
