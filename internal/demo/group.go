package demo

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fydp-portal/internal/logger"
	"github.com/fydp-portal/internal/middleware"
	"github.com/fydp-portal/internal/model"
)

type inviteRequest struct {
	StudentID string `json:"studentId"`
}

type finalizeRequest struct {
	MemberIDs []string `json:"memberIds"`
}

type inviteData struct {
	InviteID  string `json:"inviteId"`
	StudentID string `json:"studentId"`
	Status    string `json:"status"`
}

type groupData struct {
	GroupID     string              `json:"groupId,omitempty"`
	IsFinalized bool                `json:"isFinalized"`
	Members     []model.GroupMember `json:"members"`
}

// groupErrStatus переводит ошибку хранилища в HTTP-статус.
func groupErrStatus(err error) int {
	var tooFew *tooFewMembersError
	switch {
	case errors.Is(err, errStudentNotFound), errors.Is(err, errNotInvited):
		return http.StatusNotFound
	case errors.Is(err, errGroupFinalized), errors.Is(err, errNotInvitable):
		return http.StatusConflict
	case errors.As(err, &tooFew):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *Server) ListStudents(w http.ResponseWriter, r *http.Request) {
	if !sleep(r.Context(), s.cfg.ListDelay) {
		return
	}
	writeOK(w, "", s.store.Students(middleware.GetUserID(r.Context())))
}

func (s *Server) GroupStatus(w http.ResponseWriter, r *http.Request) {
	g := s.store.Group(middleware.GetUserID(r.Context()))
	if g == nil {
		writeOK(w, "", groupData{Members: []model.GroupMember{}})
		return
	}
	writeOK(w, "", groupData{GroupID: g.ID, IsFinalized: true, Members: g.Members})
}

func (s *Server) Invite(w http.ResponseWriter, r *http.Request) {
	var req inviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.StudentID == "" {
		writeFail(w, http.StatusBadRequest, "studentId is required")
		return
	}
	if !sleep(r.Context(), s.cfg.InviteDelay) {
		return
	}
	if s.shouldFail(s.cfg.InviteFailRate) {
		writeFail(w, http.StatusServiceUnavailable, "Failed to send invite. Please try again.")
		return
	}
	userID := middleware.GetUserID(r.Context())
	inviteID, err := s.store.Invite(userID, req.StudentID)
	if err != nil {
		writeFail(w, groupErrStatus(err), err.Error())
		return
	}
	logger.Debugf("invite: user=%s student=%s", userID, req.StudentID)
	writeOK(w, "Invite sent successfully", inviteData{InviteID: inviteID, StudentID: req.StudentID, Status: "invited"})
}

func (s *Server) CancelInvite(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentID")
	if !sleep(r.Context(), s.cfg.CancelDelay) {
		return
	}
	if s.shouldFail(s.cfg.CancelFailRate) {
		writeFail(w, http.StatusServiceUnavailable, "Failed to cancel invite. Please try again.")
		return
	}
	userID := middleware.GetUserID(r.Context())
	if err := s.store.CancelInvite(userID, studentID); err != nil {
		writeFail(w, groupErrStatus(err), err.Error())
		return
	}
	logger.Debugf("cancel invite: user=%s student=%s", userID, studentID)
	writeOK(w, "Invite cancelled successfully", nil)
}

func (s *Server) FinalizeGroup(w http.ResponseWriter, r *http.Request) {
	var req finalizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFail(w, http.StatusBadRequest, "memberIds is required")
		return
	}
	if !sleep(r.Context(), s.cfg.FinalizeDelay) {
		return
	}
	if s.shouldFail(s.cfg.FinalizeFailRate) {
		writeFail(w, http.StatusServiceUnavailable, "Failed to finalize group. Please try again.")
		return
	}
	userID := middleware.GetUserID(r.Context())
	g, err := s.store.Finalize(userID, req.MemberIDs, s.minMembers)
	if err != nil {
		writeFail(w, groupErrStatus(err), err.Error())
		return
	}
	logger.Infof("group finalized: user=%s group=%s members=%d", userID, g.ID, len(g.Members))
	writeOK(w, "Group finalized successfully", g)
}
