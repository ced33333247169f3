package demo

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fydp-portal/internal/logger"
	"github.com/fydp-portal/internal/middleware"
)

// historyWindow - сколько последних сообщений учитывается при ответе ассистента.
const historyWindow = 6

type historyEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type sessionListItem struct {
	SessionID string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
	Title     string    `json:"title"`
}

func toHistory(msgs []chatMessage) []historyEntry {
	out := make([]historyEntry, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, historyEntry{Role: m.Role, Content: m.Content})
	}
	return out
}

// CreateOrResumeSession - без session_id создаёт сессию, иначе возвращает её историю.
func (s *Server) CreateOrResumeSession(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		id := s.store.CreateSession(userID)
		writeJSON(w, http.StatusOK, map[string]any{"session_id": id, "history": []historyEntry{}})
		return
	}
	msgs, err := s.store.History(userID, sessionID, errSessionNotFound)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session_id": sessionID, "history": toHistory(msgs)})
}

func (s *Server) ChatMessage(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	q := r.URL.Query()
	sessionID := q.Get("session_id")
	message := q.Get("message")
	if sessionID == "" || strings.TrimSpace(message) == "" {
		writeError(w, http.StatusUnprocessableEntity, "session_id and message are required")
		return
	}
	if _, err := s.store.History(userID, sessionID, errInvalidSession); err != nil {
		writeError(w, http.StatusForbidden, err.Error())
		return
	}
	logger.Debugf("chat: session=%s context=%d messages", sessionID, len(s.store.Last(sessionID, historyWindow)))
	if !sleep(r.Context(), s.cfg.ChatDelay) {
		return
	}
	assistant := Reply(message)
	if err := s.store.AppendExchange(userID, sessionID, message, assistant); err != nil {
		writeError(w, http.StatusForbidden, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"assistant": assistant})
}

func (s *Server) ChatHistory(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	msgs, err := s.store.History(userID, chi.URLParam(r, "sessionID"), errInvalidSession)
	if err != nil {
		writeError(w, http.StatusForbidden, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": toHistory(msgs)})
}

func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	sessions := s.store.Sessions(userID)
	out := make([]sessionListItem, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, sessionListItem{SessionID: sess.ID, CreatedAt: sess.CreatedAt, Title: sess.Title})
	}
	writeJSON(w, http.StatusOK, out)
}
