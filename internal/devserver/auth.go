package devserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/ccawaisnadeem/storefront-go/internal/domain"
)

type authResponse struct {
	Token        string      `json:"token"`
	RefreshToken string      `json:"refreshToken"`
	User         domain.User `json:"user"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondMessage(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	acct, err := s.store.accountByEmail(strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		respondMessage(w, http.StatusUnauthorized, "invalid email or password")
		return
	}
	if bcrypt.CompareHashAndPassword(acct.passwordHash, []byte(req.Password)) != nil {
		respondMessage(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	s.respondWithTokens(w, http.StatusOK, acct.user)
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"FullName"`
	Address  string `json:"address"`
	Role     string `json:"Role"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondMessage(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	fields := make(map[string][]string)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		fields["email"] = append(fields["email"], "a valid email is required")
	}
	if len(req.Password) < 6 {
		fields["password"] = append(fields["password"], "password must be at least 6 characters")
	}
	if strings.TrimSpace(req.FullName) == "" {
		fields["FullName"] = append(fields["FullName"], "full name is required")
	}
	if len(fields) > 0 {
		respondValidation(w, fields)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		respondMessage(w, http.StatusInternalServerError, "could not hash password")
		return
	}

	user, err := s.store.createAccount(email, hash, strings.TrimSpace(req.FullName), domain.NormalizeRole(req.Role))
	if errors.Is(err, errEmailTaken) {
		respondValidation(w, map[string][]string{"email": {"email already registered"}})
		return
	}
	if err != nil {
		respondMessage(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondWithTokens(w, http.StatusCreated, *user)
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		respondMessage(w, http.StatusBadRequest, "refreshToken is required")
		return
	}

	userID, ok := s.store.redeemRefreshToken(req.RefreshToken)
	if !ok {
		respondMessage(w, http.StatusUnauthorized, "refresh token expired or revoked")
		return
	}
	user, err := s.store.userByID(userID)
	if err != nil {
		respondMessage(w, http.StatusUnauthorized, "account gone")
		return
	}

	s.respondWithTokens(w, http.StatusOK, *user)
}

func (s *Server) respondWithTokens(w http.ResponseWriter, status int, user domain.User) {
	access, err := s.signAccessToken(user)
	if err != nil {
		respondMessage(w, http.StatusInternalServerError, "could not sign token")
		return
	}
	refresh := uuid.NewString()
	s.store.saveRefreshToken(refresh, user.ID)

	respondJSON(w, status, authResponse{Token: access, RefreshToken: refresh, User: user})
}

func (s *Server) signAccessToken(user domain.User) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   fmt.Sprint(user.ID),
		"email": user.Email,
		"name":  user.DisplayName,
		"role":  string(user.Role),
		"iat":   now.Unix(),
		"exp":   now.Add(s.cfg.AccessTokenTTL).Unix(),
	})
	return token.SignedString(s.cfg.JWTSecret)
}
