package api

import (
	"context"
	"time"

	"github.com/ccawaisnadeem/storefront-go/internal/domain"
)

// Auth endpoint paths. The request authenticator needs these to keep the
// refresh recovery path away from the auth endpoints themselves.
const (
	PathLogin    = "/auth/login"
	PathRegister = "/auth/register"
	PathRefresh  = "/auth/refresh-token"
)

// IsAuthPath reports whether path is one of the credential endpoints.
func IsAuthPath(path string) bool {
	return path == PathLogin || path == PathRegister || path == PathRefresh
}

type AuthAPI struct {
	c *Client
}

func NewAuthAPI(c *Client) *AuthAPI { return &AuthAPI{c: c} }

// userPayload tolerates the backend's divergent profile shapes ("name" vs
// "fullName" vs "displayName") and normalizes them once, here, into
// domain.User.
type userPayload struct {
	ID          int64     `json:"id"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	FullName    string    `json:"fullName"`
	DisplayName string    `json:"displayName"`
	Role        string    `json:"role"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (p userPayload) normalize() *domain.User {
	display := p.DisplayName
	if display == "" {
		display = p.FullName
	}
	if display == "" {
		display = p.Name
	}
	return &domain.User{
		ID:          p.ID,
		Email:       p.Email,
		DisplayName: display,
		Role:        domain.NormalizeRole(p.Role),
		CreatedAt:   p.CreatedAt,
	}
}

type authResponse struct {
	Token        string      `json:"token"`
	RefreshToken string      `json:"refreshToken"`
	User         userPayload `json:"user"`
}

func (r authResponse) tokens() domain.AuthTokens {
	return domain.AuthTokens{AccessToken: r.Token, RefreshToken: r.RefreshToken}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (a *AuthAPI) Login(ctx context.Context, email, password string) (*domain.User, domain.AuthTokens, error) {
	var resp authResponse
	if err := a.c.post(ctx, PathLogin, loginRequest{Email: email, Password: password}, &resp); err != nil {
		return nil, domain.AuthTokens{}, err
	}
	return resp.User.normalize(), resp.tokens(), nil
}

// RegisterRequest uses the backend's own (inconsistently cased) field names;
// this is the wire contract, not a style choice.
type RegisterRequest struct {
	Email    string      `json:"email"`
	Password string      `json:"password"`
	FullName string      `json:"FullName"`
	Address  string      `json:"address,omitempty"`
	Role     domain.Role `json:"Role"`
}

func (a *AuthAPI) Register(ctx context.Context, req RegisterRequest) (*domain.User, domain.AuthTokens, error) {
	req.Role = domain.NormalizeRole(string(req.Role))

	var resp authResponse
	if err := a.c.post(ctx, PathRegister, req, &resp); err != nil {
		return nil, domain.AuthTokens{}, err
	}
	return resp.User.normalize(), resp.tokens(), nil
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (a *AuthAPI) Refresh(ctx context.Context, refreshToken string) (*domain.User, domain.AuthTokens, error) {
	var resp authResponse
	if err := a.c.post(ctx, PathRefresh, refreshRequest{RefreshToken: refreshToken}, &resp); err != nil {
		return nil, domain.AuthTokens{}, err
	}
	return resp.User.normalize(), resp.tokens(), nil
}
