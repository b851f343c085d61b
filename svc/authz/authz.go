// Package authz decides what a signed-in user may do.
package authz

import "strings"

// Subject is the acting user.
type Subject struct {
	ID    int64
	Email string
}

// Policy answers authorization questions. Handlers receive it explicitly.
type Policy interface {
	IsAdmin(s Subject) bool
	// CanEditPost reports whether s may update or delete a post owned by
	// authorID.
	CanEditPost(s Subject, authorID int64) bool
}

// EmailPolicy treats the user with the configured e-mail as the admin.
type EmailPolicy struct {
	adminEmail string
}

// NewEmailPolicy returns a policy for adminEmail. An empty address means
// there is no admin.
func NewEmailPolicy(adminEmail string) EmailPolicy {
	return EmailPolicy{adminEmail: normalize(adminEmail)}
}

func (p EmailPolicy) IsAdmin(s Subject) bool {
	return p.adminEmail != "" && normalize(s.Email) == p.adminEmail
}

func (p EmailPolicy) CanEditPost(s Subject, authorID int64) bool {
	if s.ID == 0 {
		return false
	}
	return s.ID == authorID || p.IsAdmin(s)
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
