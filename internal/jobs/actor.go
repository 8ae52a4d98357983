package jobs

import (
	"strings"

	"github.com/xelth-com/eckclaims/internal/models"
)

// Actor is the authenticated caller of a job operation
type Actor struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

// IsAdmin reports whether the actor may delete and bulk export
func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

func (a Actor) valid() bool {
	return strings.TrimSpace(a.Username) != ""
}
