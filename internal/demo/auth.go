package demo

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/fydp-portal/internal/logger"
	"github.com/fydp-portal/internal/middleware"
	"github.com/fydp-portal/internal/model"
)

type signUpRequest struct {
	GsuiteID string         `json:"gsuite_id"`
	Password string         `json:"password"`
	Role     model.UserRole `json:"role"`
}

type signInRequest struct {
	GsuiteID string `json:"gsuite_id"`
	Password string `json:"password"`
}

type signInResponse struct {
	AccessToken string         `json:"access_token"`
	TokenType   string         `json:"token_type"`
	Role        model.UserRole `json:"role"`
}

func validRole(r model.UserRole) bool {
	switch r {
	case model.UserRoleStudent, model.UserRoleAdvisor, model.UserRoleCommittee, model.UserRoleIndustry:
		return true
	}
	return false
}

func (s *Server) SignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}
	req.GsuiteID = strings.TrimSpace(req.GsuiteID)
	if req.GsuiteID == "" || req.Password == "" {
		writeError(w, http.StatusUnprocessableEntity, "gsuite_id and password are required")
		return
	}
	if req.Role == "" {
		req.Role = model.UserRoleStudent
	}
	if !validRole(req.Role) {
		writeError(w, http.StatusUnprocessableEntity, "unknown role")
		return
	}
	id, err := s.store.SignUp(req.GsuiteID, req.Password, req.Role)
	if err != nil {
		if errors.Is(err, errUserExists) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		logger.Errorf("signup %s: %v", req.GsuiteID, err)
		writeError(w, http.StatusInternalServerError, "signup failed")
		return
	}
	logger.Infof("signup: gsuite_id=%s role=%s", req.GsuiteID, req.Role)
	writeJSON(w, http.StatusOK, map[string]string{"id": id})
}

func (s *Server) SignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}
	token, role, err := s.store.SignIn(strings.TrimSpace(req.GsuiteID), req.Password)
	if err != nil {
		writeError(w, http.StatusBadRequest, errInvalidCredentials.Error())
		return
	}
	logger.Debugf("signin: gsuite_id=%s token=%s", req.GsuiteID, middleware.MaskToken(token))
	writeJSON(w, http.StatusOK, signInResponse{AccessToken: token, TokenType: "bearer", Role: role})
}
