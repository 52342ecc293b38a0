package domain

import (
	"strings"
	"time"
)

type Role string

const (
	RoleAdmin    Role = "Admin"
	RoleCustomer Role = "Customer"
)

// NormalizeRole maps whatever role spelling the caller (or the backend)
// produced onto the two canonical values. Anything that is not recognizably
// an admin role is a customer.
func NormalizeRole(raw string) Role {
	if strings.EqualFold(strings.TrimSpace(raw), string(RoleAdmin)) {
		return RoleAdmin
	}
	return RoleCustomer
}

// User is the authenticated identity as known to the client. The backend
// answers with either "name" or "fullName" depending on the endpoint; the API
// layer normalizes both into DisplayName so nothing downstream has to care.
type User struct {
	ID          int64     `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName,omitempty"`
	Role        Role      `json:"role"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// AuthTokens is the bearer credential pair. Both strings are opaque to the
// client; expiry is encoded in the access token by the server.
type AuthTokens struct {
	AccessToken  string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}
