package entity

import "time"

// Type discriminates the post sum type.
type Type string

const (
	TypePersonal Type = "personal"
	TypeArticle  Type = "article"
	TypePolling  Type = "polling"
)

func (t Type) Valid() bool {
	return t == TypePersonal || t == TypeArticle || t == TypePolling
}

// Post is the posts-table row shared by all three variants.
type Post struct {
	ID             string    `db:"id" json:"id"`
	UserID         string    `db:"user_id" json:"userId"`
	ForumID        *string   `db:"forum_id" json:"forumId"`
	OriginalPostID *string   `db:"original_post_id" json:"originalPostId"`
	Type           Type      `db:"type" json:"type"`
	LikesCount     int       `db:"likes_count" json:"likesCount"`
	CommentsCount  int       `db:"comments_count" json:"commentsCount"`
	SharesCount    int       `db:"shares_count" json:"sharesCount"`
	BookmarksCount int       `db:"bookmarks_count" json:"bookmarksCount"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time `db:"updated_at" json:"updatedAt"`
}

// Media is one attachment on a personal post.
type Media struct {
	ID     string `db:"id" json:"id"`
	PostID string `db:"post_id" json:"postId"`
	URL    string `db:"url" json:"url"`
	Type   string `db:"type" json:"type"`
	Size   int64  `db:"size" json:"size"`
}

// Personal is the personal-post payload.
type Personal struct {
	Content string  `db:"content" json:"content"`
	Media   []Media `json:"media"`
}

// Article is the article payload.
type Article struct {
	Title   string `db:"title" json:"title"`
	Content string `db:"content" json:"content"`
}

// Option is one poll choice with its denormalized tally.
type Option struct {
	ID            string `db:"id" json:"id"`
	PollingPostID string `db:"polling_post_id" json:"-"`
	Text          string `db:"text" json:"text"`
	VotesCount    int    `db:"votes_count" json:"votesCount"`
}

// Polling is the poll payload. Immutable after creation.
type Polling struct {
	Question             string    `db:"question" json:"question"`
	StartDatetime        time.Time `db:"start_datetime" json:"startDatetime"`
	EndDatetime          time.Time `db:"end_datetime" json:"endDatetime"`
	IsAnonymous          bool      `db:"is_anonymous" json:"isAnonymous"`
	AllowMultipleChoices bool      `db:"allow_multiple_choices" json:"allowMultipleChoices"`
	Options              []Option  `json:"options"`
}

// Author is the user projection embedded in feed rows.
type Author struct {
	ID          string  `db:"author_id" json:"id"`
	Username    string  `db:"author_username" json:"username"`
	DisplayName string  `db:"author_display_name" json:"displayName"`
	AvatarURL   *string `db:"author_avatar_url" json:"avatarUrl"`
	IsVerified  bool    `db:"author_is_verified" json:"isVerified"`
}

// Flags are the viewer-relative interaction flags. Always computed against
// the logged-in viewer, never the filtered-by user.
type Flags struct {
	HasLiked      bool    `db:"has_liked" json:"hasLiked"`
	HasBookmarked bool    `db:"has_bookmarked" json:"hasBookmarked"`
	HasCommented  bool    `db:"has_commented" json:"hasCommented"`
	HasShared     bool    `db:"has_shared" json:"hasShared"`
	SharedPostID  *string `db:"shared_post_id" json:"sharedPostId"`
	SharedType    *string `db:"shared_type" json:"sharedType"`
}

// View is the assembled read model: the post, its author, the variant
// payload, viewer flags, and the original post for reposts/quotes.
type View struct {
	Post
	Author   Author    `json:"author"`
	Flags    Flags     `json:"interactions"`
	Personal *Personal `json:"personal,omitempty"`
	Article  *Article  `json:"article,omitempty"`
	Polling  *Polling  `json:"polling,omitempty"`
	Original *View     `json:"originalPost,omitempty"`
}
