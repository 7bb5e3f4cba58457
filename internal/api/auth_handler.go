package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/stenolabs/demandgen/internal/auth"
	"github.com/stenolabs/demandgen/internal/common"
	"github.com/stenolabs/demandgen/internal/store"
)

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !s.decodeRequest(w, r, &req) {
		return
	}
	if result := auth.ValidatePassword(req.Password); !result.IsValid {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "password does not meet policy", "details": result.Errors})
		return
	}
	if existing, err := s.store.UserByEmail(r.Context(), req.Email); err == nil && existing != nil {
		writeError(w, http.StatusConflict, fmt.Errorf("email already registered"))
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("hash password: %w", err))
		return
	}
	firm := &store.Firm{Name: req.FirmName}
	if err := s.store.CreateFirm(r.Context(), firm); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	user := &store.User{
		FirmID:       firm.ID,
		Email:        req.Email,
		PasswordHash: hash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Role:         "admin",
		Active:       true,
	}
	if err := s.store.CreateUser(r.Context(), user); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	pair, err := s.issuePair(r, user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	common.Logger().Info("auth: firm registered", "firm", firm.ID, "user", user.ID)
	writeJSON(w, http.StatusCreated, map[string]any{"firm": firm, "user": user, "tokens": pair})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !s.decodeRequest(w, r, &req) {
		return
	}
	user, err := s.store.UserByEmail(r.Context(), req.Email)
	if err != nil || !user.Active || !auth.CheckPassword(user.PasswordHash, req.Password) {
		writeError(w, http.StatusUnauthorized, fmt.Errorf("invalid credentials"))
		return
	}
	pair, err := s.issuePair(r, user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	common.Logger().Info("auth: login", "user", user.ID)
	writeJSON(w, http.StatusOK, map[string]any{"user": user, "tokens": pair})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !s.decodeRequest(w, r, &req) {
		return
	}
	claims, err := s.issuer.VerifyRefresh(req.RefreshToken)
	if err != nil {
		writeError(w, http.StatusUnauthorized, fmt.Errorf("invalid refresh token"))
		return
	}
	live, err := s.sessions.Consume(r.Context(), req.RefreshToken)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if !live {
		writeError(w, http.StatusUnauthorized, fmt.Errorf("refresh token expired or revoked"))
		return
	}
	// reload the user so role or deactivation changes take effect on rotation
	user, err := s.store.UserByID(r.Context(), claims.UserID())
	if err != nil || !user.Active {
		writeError(w, http.StatusUnauthorized, fmt.Errorf("account unavailable"))
		return
	}
	pair, err := s.issuePair(r, user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tokens": pair})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	if err := s.sessions.RevokeUser(r.Context(), claims.UserID()); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	common.Logger().Info("auth: logout", "user", claims.UserID())
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	user, err := s.store.UserByID(r.Context(), claims.UserID())
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	firm, err := s.store.FirmByID(r.Context(), user.FirmID)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user, "firm": firm})
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if !s.decodeRequest(w, r, &req) {
		return
	}
	claims := claimsFrom(r)
	user, err := s.store.UserByID(r.Context(), claims.UserID())
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if !auth.CheckPassword(user.PasswordHash, req.CurrentPassword) {
		writeError(w, http.StatusUnauthorized, fmt.Errorf("current password incorrect"))
		return
	}
	if result := auth.ValidatePassword(req.NewPassword); !result.IsValid {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "password does not meet policy", "details": result.Errors})
		return
	}
	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if err := s.store.SetPassword(r.Context(), user.ID, hash); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	// force a fresh login everywhere after a password change
	if err := s.sessions.RevokeUser(r.Context(), user.ID); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "password changed"})
}

func (s *Server) handleAcceptInvitation(w http.ResponseWriter, r *http.Request) {
	var req acceptInvitationRequest
	if !s.decodeRequest(w, r, &req) {
		return
	}
	inv, err := s.store.InvitationByToken(r.Context(), req.Token)
	if err != nil {
		writeError(w, http.StatusNotFound, fmt.Errorf("invitation not found"))
		return
	}
	if inv.AcceptedAt != nil {
		writeError(w, http.StatusConflict, fmt.Errorf("invitation already accepted"))
		return
	}
	if time.Now().After(inv.ExpiresAt) {
		writeError(w, http.StatusGone, fmt.Errorf("invitation expired"))
		return
	}
	if result := auth.ValidatePassword(req.Password); !result.IsValid {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "password does not meet policy", "details": result.Errors})
		return
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	user := &store.User{
		FirmID:       inv.FirmID,
		Email:        inv.Email,
		PasswordHash: hash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Role:         inv.Role,
		Active:       true,
	}
	if err := s.store.CreateUser(r.Context(), user); err != nil {
		writeError(w, http.StatusConflict, fmt.Errorf("create user: %w", err))
		return
	}
	if err := s.store.AcceptInvitation(r.Context(), inv.ID); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	pair, err := s.issuePair(r, user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	common.Logger().Info("auth: invitation accepted", "firm", inv.FirmID, "user", user.ID)
	writeJSON(w, http.StatusCreated, map[string]any{"user": user, "tokens": pair})
}

func (s *Server) issuePair(r *http.Request, user *store.User) (auth.TokenPair, error) {
	pair, err := s.issuer.GeneratePair(user.ID, user.FirmID, user.Email, user.Role)
	if err != nil {
		return auth.TokenPair{}, fmt.Errorf("issue tokens: %w", err)
	}
	if err := s.sessions.Save(r.Context(), pair.RefreshToken, user.ID, pair.RefreshUntil); err != nil {
		return auth.TokenPair{}, fmt.Errorf("save session: %w", err)
	}
	return pair, nil
}

// statusFor maps store lookup failures onto HTTP statuses.
func statusFor(err error) int {
	if errors.Is(err, store.ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
