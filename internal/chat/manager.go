// Package chat - менеджер чат-сессий с ИИ-ассистентом: список сессий, транскрипт активной
// сессии и оптимистичная отправка сообщений с откатом при ошибке.
//
// Транскрипт всегда принадлежит ровно одной сессии бэкенда: при переключении он
// отбрасывается и загружается заново, кеша между переключениями нет.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fydp-portal/internal/logger"
	"github.com/fydp-portal/internal/model"
	"github.com/fydp-portal/internal/portal"
	"github.com/google/uuid"
)

// SendErrorText - синтетический ответ ассистента вместо сообщения, которое не ушло.
const SendErrorText = "Sorry, I encountered an error. Please try again."

var (
	ErrEmptyMessage     = errors.New("message is empty")
	ErrSendInFlight     = errors.New("a message is already being sent")
	ErrSessionLoading   = errors.New("session is still loading")
	ErrSessionNotFound  = errors.New("session not found")
	ErrSessionNotActive = errors.New("session is not the active session")
	ErrEmptyTitle       = errors.New("title is empty")
)

// SendError - отправка не удалась; Message, откатанное сообщение пользователя.
type SendError struct {
	Message model.ChatMessage
	Err     error
}

func (e *SendError) Error() string { return "send message: " + e.Err.Error() }

func (e *SendError) Unwrap() error { return e.Err }

// Backend - вызовы бэкенда, нужные менеджеру (реализует *portal.Client).
type Backend interface {
	CreateOrResumeSession(ctx context.Context, sessionID string) (*portal.SessionResponse, error)
	SendMessage(ctx context.Context, sessionID, message string) (string, error)
	ListSessions(ctx context.Context) ([]portal.SessionInfo, error)
}

type Manager struct {
	backend Backend
	now     func() time.Time
	newID   func() string

	mu        sync.Mutex
	sessions  []model.ChatSession
	activeID  string
	messages  []model.ChatMessage
	epoch     uint64 // растёт при каждой замене транскрипта
	sending   bool
	switching bool
}

func NewManager(backend Backend) *Manager {
	return &Manager{
		backend: backend,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// ListSessions загружает сессии пользователя. Пустой список: создаём и выбираем новую сессию.
// При ошибке загрузки пробуем создать сессию; если и это не удалось, список остаётся пустым.
func (m *Manager) ListSessions(ctx context.Context) error {
	infos, err := m.backend.ListSessions(ctx)
	if err != nil {
		logger.Errorf("chat list sessions: %v", err)
		m.mu.Lock()
		m.sessions = nil
		m.activeID = ""
		m.messages = nil
		m.epoch++
		m.switching = false
		m.mu.Unlock()
		if _, cerr := m.NewSession(ctx); cerr != nil {
			return fmt.Errorf("list sessions: %w", errors.Join(err, cerr))
		}
		return nil
	}
	if len(infos) == 0 {
		_, err := m.NewSession(ctx)
		return err
	}

	m.mu.Lock()
	known := make(map[string]model.ChatSession, len(m.sessions))
	for _, s := range m.sessions {
		known[s.ID] = s
	}
	sessions := make([]model.ChatSession, 0, len(infos))
	for _, info := range infos {
		// Локальные правки (переименование, последнее сообщение) бэкенд не хранит: не затираем их.
		if s, ok := known[info.SessionID]; ok {
			sessions = append(sessions, s)
			continue
		}
		title := info.Title
		if title == "" {
			title = model.DefaultSessionTitle
		}
		sessions = append(sessions, model.ChatSession{
			ID:        info.SessionID,
			Title:     title,
			UpdatedAt: info.CreatedAt.Time,
		})
	}
	m.sessions = sessions
	needSelect := m.activeID == "" || m.indexLocked(m.activeID) < 0
	first := sessions[0].ID
	m.mu.Unlock()

	if needSelect {
		return m.SelectSession(ctx, first)
	}
	return nil
}

// NewSession создаёт сессию на бэкенде, ставит её первой в списке и делает активной.
func (m *Manager) NewSession(ctx context.Context) (model.ChatSession, error) {
	resp, err := m.backend.CreateOrResumeSession(ctx, "")
	if err != nil {
		logger.Errorf("chat create session: %v", err)
		return model.ChatSession{}, fmt.Errorf("create session: %w", err)
	}
	s := model.ChatSession{
		ID:        resp.SessionID,
		Title:     model.DefaultSessionTitle,
		UpdatedAt: m.now(),
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if i := m.indexLocked(s.ID); i >= 0 {
		m.sessions = append(m.sessions[:i], m.sessions[i+1:]...)
	}
	m.sessions = append([]model.ChatSession{s}, m.sessions...)
	m.activeID = s.ID
	m.messages = m.fromHistory(resp.History)
	m.epoch++
	m.switching = false
	return s, nil
}

// SelectSession отбрасывает текущий транскрипт и загружает историю сессии id целиком.
// Пока запрос не завершён, Loading() возвращает true и отправка сообщений отклоняется.
func (m *Manager) SelectSession(ctx context.Context, id string) error {
	m.mu.Lock()
	if m.indexLocked(id) < 0 {
		m.mu.Unlock()
		return ErrSessionNotFound
	}
	m.activeID = id
	m.messages = nil
	m.epoch++
	epoch := m.epoch
	m.switching = true
	m.mu.Unlock()

	resp, err := m.backend.CreateOrResumeSession(ctx, id)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.epoch != epoch {
		// Пока ждали ответ, выбрали другую сессию: этот результат уже никому не нужен.
		return nil
	}
	m.switching = false
	if err != nil {
		logger.Errorf("chat resume session=%s: %v", id, err)
		return fmt.Errorf("resume session: %w", err)
	}
	m.messages = m.fromHistory(resp.History)
	return nil
}

// SendMessage сразу добавляет сообщение пользователя (pending) и отправляет его.
// Успех: сообщение committed, ответ ассистента дописан, метаданные сессии обновлены.
// Ошибка: сообщение откатывается и удаляется, вместо него дописывается одно сообщение об ошибке.
func (m *Manager) SendMessage(ctx context.Context, sessionID, text string) (model.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.ChatMessage{}, ErrEmptyMessage
	}

	m.mu.Lock()
	switch {
	case m.sending:
		m.mu.Unlock()
		return model.ChatMessage{}, ErrSendInFlight
	case m.switching:
		m.mu.Unlock()
		return model.ChatMessage{}, ErrSessionLoading
	case sessionID == "" || sessionID != m.activeID:
		m.mu.Unlock()
		return model.ChatMessage{}, ErrSessionNotActive
	}
	userMsg := model.ChatMessage{
		ID:        m.newID(),
		Role:      model.RoleUser,
		Content:   text,
		Timestamp: m.now(),
		State:     model.MessageStatePending,
	}
	m.messages = append(m.messages, userMsg)
	m.sending = true
	epoch := m.epoch
	m.mu.Unlock()

	defer logger.DeferLogDuration("chat.SendMessage", time.Now())()
	reply, err := m.backend.SendMessage(ctx, sessionID, text)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sending = false
	sameTranscript := m.epoch == epoch

	if err != nil {
		logger.Errorf("chat send session=%s: %v", sessionID, err)
		if sameTranscript {
			m.removeLocked(userMsg.ID)
			m.messages = append(m.messages, model.ChatMessage{
				ID:        m.newID(),
				Role:      model.RoleAssistant,
				Content:   SendErrorText,
				Timestamp: m.now(),
				State:     model.MessageStateCommitted,
			})
		}
		userMsg.State = model.MessageStateRolledBack
		return model.ChatMessage{}, &SendError{Message: userMsg, Err: err}
	}

	now := m.now()
	assistant := model.ChatMessage{
		ID:        m.newID(),
		Role:      model.RoleAssistant,
		Content:   reply,
		Timestamp: now,
		State:     model.MessageStateCommitted,
	}
	if sameTranscript {
		m.setStateLocked(userMsg.ID, model.MessageStateCommitted)
		m.messages = append(m.messages, assistant)
	}
	if i := m.indexLocked(sessionID); i >= 0 {
		s := &m.sessions[i]
		s.LastMessage = text
		s.UpdatedAt = now
		if s.Title == model.DefaultSessionTitle {
			s.Title = text
		}
	}
	return assistant, nil
}

// RenameSession меняет заголовок только локально: эндпоинта переименования у бэкенда нет.
func (m *Manager) RenameSession(id, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrEmptyTitle
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.indexLocked(id)
	if i < 0 {
		return ErrSessionNotFound
	}
	m.sessions[i].Title = title
	logger.Debugf("chat rename session=%s (local only)", id)
	return nil
}

func (m *Manager) Sessions() []model.ChatSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.ChatSession, len(m.sessions))
	copy(out, m.sessions)
	return out
}

func (m *Manager) ActiveSessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeID
}

func (m *Manager) ActiveSession() (model.ChatSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i := m.indexLocked(m.activeID); i >= 0 {
		return m.sessions[i], true
	}
	return model.ChatSession{}, false
}

// Messages возвращает копию транскрипта активной сессии.
func (m *Manager) Messages() []model.ChatMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.ChatMessage, len(m.messages))
	copy(out, m.messages)
	return out
}

// Loading - идёт отправка или загрузка сессии; ввод в это время заблокирован.
func (m *Manager) Loading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sending || m.switching
}

func (m *Manager) indexLocked(id string) int {
	for i := range m.sessions {
		if m.sessions[i].ID == id {
			return i
		}
	}
	return -1
}

func (m *Manager) removeLocked(msgID string) {
	for i := range m.messages {
		if m.messages[i].ID == msgID {
			m.messages = append(m.messages[:i], m.messages[i+1:]...)
			return
		}
	}
}

func (m *Manager) setStateLocked(msgID string, state model.MessageState) {
	for i := range m.messages {
		if m.messages[i].ID == msgID {
			m.messages[i].State = state
			return
		}
	}
}

func (m *Manager) fromHistory(history []portal.HistoryEntry) []model.ChatMessage {
	now := m.now()
	out := make([]model.ChatMessage, 0, len(history))
	for _, h := range history {
		role := model.RoleAssistant
		if h.Role == string(model.RoleUser) {
			role = model.RoleUser
		}
		out = append(out, model.ChatMessage{
			ID:        m.newID(),
			Role:      role,
			Content:   h.Content,
			Timestamp: now,
			State:     model.MessageStateCommitted,
		})
	}
	return out
}
