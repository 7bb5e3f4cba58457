package api

import (
	"fmt"
	"net/http"

	chi "github.com/go-chi/chi/v5"

	"github.com/stenolabs/demandgen/internal/common"
	"github.com/stenolabs/demandgen/internal/store"
)

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	users, err := s.store.UsersForFirm(r.Context(), claims.FirmID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var req updateUserRequest
	if !s.decodeRequest(w, r, &req) {
		return
	}
	claims := claimsFrom(r)
	user, err := s.store.UserByID(r.Context(), chi.URLParam(r, "userID"))
	if err != nil || user.FirmID != claims.FirmID {
		writeError(w, http.StatusNotFound, fmt.Errorf("user not found"))
		return
	}
	if req.FirstName != "" {
		user.FirstName = req.FirstName
	}
	if req.LastName != "" {
		user.LastName = req.LastName
	}
	if req.Role != "" {
		user.Role = req.Role
	}
	if req.Active != nil {
		if !*req.Active && user.ID == claims.UserID() {
			writeError(w, http.StatusConflict, fmt.Errorf("cannot deactivate your own account"))
			return
		}
		user.Active = *req.Active
	}
	if err := s.store.UpdateUser(r.Context(), user); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if !user.Active {
		// deactivation kills open sessions immediately
		if err := s.sessions.RevokeUser(r.Context(), user.ID); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
	}
	common.Logger().Info("admin: user updated", "user", user.ID, "role", user.Role, "active", user.Active)
	writeJSON(w, http.StatusOK, user)
}

// handleUpdateSelf lets any member edit their own name. Role and active flag
// stay admin-only.
func (s *Server) handleUpdateSelf(w http.ResponseWriter, r *http.Request) {
	var req selfUpdateRequest
	if !s.decodeRequest(w, r, &req) {
		return
	}
	claims := claimsFrom(r)
	user, err := s.store.UserByID(r.Context(), claims.UserID())
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	user.FirstName = req.FirstName
	user.LastName = req.LastName
	if err := s.store.UpdateUser(r.Context(), user); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// handleDeactivateUser is the DELETE shape of deactivation: the account stays
// in the firm roster but can no longer sign in.
func (s *Server) handleDeactivateUser(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	user, err := s.store.UserByID(r.Context(), chi.URLParam(r, "userID"))
	if err != nil || user.FirmID != claims.FirmID {
		writeError(w, http.StatusNotFound, fmt.Errorf("user not found"))
		return
	}
	if user.ID == claims.UserID() {
		writeError(w, http.StatusConflict, fmt.Errorf("cannot deactivate your own account"))
		return
	}
	user.Active = false
	if err := s.store.UpdateUser(r.Context(), user); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if err := s.sessions.RevokeUser(r.Context(), user.ID); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	common.Logger().Info("admin: user deactivated", "user", user.ID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "deactivated"})
}

func (s *Server) handleGetFirm(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	firm, err := s.store.FirmByID(r.Context(), claims.FirmID)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, firm)
}

func (s *Server) handleUpdateFirm(w http.ResponseWriter, r *http.Request) {
	var req firmRequest
	if !s.decodeRequest(w, r, &req) {
		return
	}
	claims := claimsFrom(r)
	firm, err := s.store.FirmByID(r.Context(), claims.FirmID)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	firm.Name = req.Name
	firm.Address = req.Address
	firm.Phone = req.Phone
	firm.Email = req.Email
	if err := s.store.UpdateFirm(r.Context(), firm); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, firm)
}

func (s *Server) handleListInvitations(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	invites, err := s.store.InvitationsForFirm(r.Context(), claims.FirmID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"invitations": invites})
}

// handleCreateInvitations accepts a batch of emails and invites the ones not
// already registered or pending. Skipped addresses come back with a reason so
// the caller can tell the admin what happened.
func (s *Server) handleCreateInvitations(w http.ResponseWriter, r *http.Request) {
	var req invitationRequest
	if !s.decodeRequest(w, r, &req) {
		return
	}
	claims := claimsFrom(r)
	created := []*store.Invitation{}
	skipped := []map[string]string{}
	for _, email := range req.Emails {
		if existing, err := s.store.UserByEmail(r.Context(), email); err == nil && existing != nil {
			skipped = append(skipped, map[string]string{"email": email, "reason": "already registered"})
			continue
		}
		if pending, err := s.store.PendingInvitationForEmail(r.Context(), claims.FirmID, email); err == nil && pending != nil {
			skipped = append(skipped, map[string]string{"email": email, "reason": "invitation pending"})
			continue
		}
		inv := &store.Invitation{
			FirmID:    claims.FirmID,
			Email:     email,
			Role:      req.Role,
			InvitedBy: claims.UserID(),
		}
		if err := s.store.CreateInvitation(r.Context(), inv); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		created = append(created, inv)
	}
	common.Logger().Info("admin: invitations created", "firm", claims.FirmID,
		"created", len(created), "skipped", len(skipped))
	writeJSON(w, http.StatusCreated, map[string]any{"invitations": created, "skipped": skipped})
}

// handleResendInvitation rotates the invite token and resets the expiry
// window, so stale links stop working.
func (s *Server) handleResendInvitation(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	inv, err := s.store.RefreshInvitation(r.Context(), claims.FirmID, chi.URLParam(r, "invitationID"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	common.Logger().Info("admin: invitation resent", "firm", claims.FirmID, "invitation", inv.ID)
	writeJSON(w, http.StatusOK, inv)
}

func (s *Server) handleDeleteInvitation(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	if err := s.store.DeleteInvitation(r.Context(), claims.FirmID, chi.URLParam(r, "invitationID")); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleDashboardStats(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	stats, err := s.store.Stats(r.Context(), claims.FirmID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
