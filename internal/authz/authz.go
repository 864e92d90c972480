// Package authz holds the authorization predicates shared by the resource
// services. Keeping them behind one interface keeps the checks testable
// apart from the mutations they gate.
package authz

import "context"

// Store answers the membership questions the predicates need.
type Store interface {
	HasAdminRow(ctx context.Context, userID string) (bool, error)
	ForumRole(ctx context.Context, forumID, userID string) (role string, approved bool, err error)
}

// Checker evaluates the three authorization predicates used across the
// service layer.
type Checker struct {
	store Store
}

func NewChecker(store Store) *Checker { return &Checker{store: store} }

// IsAdmin reports whether the user has a row in the admin set.
func (c *Checker) IsAdmin(ctx context.Context, userID string) (bool, error) {
	return c.store.HasAdminRow(ctx, userID)
}

// IsForumCore reports whether the user is an approved core member of the
// forum.
func (c *Checker) IsForumCore(ctx context.Context, forumID, userID string) (bool, error) {
	role, approved, err := c.store.ForumRole(ctx, forumID, userID)
	if err != nil {
		return false, err
	}
	return approved && role == "core", nil
}

// IsOwner reports whether the actor owns the target row.
func (c *Checker) IsOwner(ownerID, userID string) bool {
	return ownerID != "" && ownerID == userID
}

// IsOwnerOrAdmin is the combined gate for profile, forum, and post edits.
func (c *Checker) IsOwnerOrAdmin(ctx context.Context, ownerID, userID string) (bool, error) {
	if c.IsOwner(ownerID, userID) {
		return true, nil
	}
	return c.IsAdmin(ctx, userID)
}
