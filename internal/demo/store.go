package demo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/fydp-portal/internal/model"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 10

var (
	errUserExists         = errors.New("User already registered")
	errInvalidCredentials = errors.New("Invalid gsuite_id or password")
	errSessionNotFound    = errors.New("Session not found")
	errInvalidSession     = errors.New("Invalid session")
	errStudentNotFound    = errors.New("Student not found")
	errGroupFinalized     = errors.New("Group is already finalized")
	errNotInvitable       = errors.New("Student is not available for invitation")
	errNotInvited         = errors.New("Invite not found")
)

type user struct {
	ID           string
	GsuiteID     string
	PasswordHash []byte
	Role         model.UserRole
}

type chatSession struct {
	ID        string
	UserID    string
	CreatedAt time.Time
	seq       int64
}

type chatMessage struct {
	Role      string
	Content   string
	CreatedAt time.Time
}

// group - состояние формирования группы одного пользователя.
type group struct {
	invites   map[string]string // studentID → inviteID
	finalized *model.Group
}

// Store - всё состояние демо-бэкенда в памяти. Безопасен для конкурентного доступа.
type Store struct {
	mu       sync.RWMutex
	users    map[string]*user // gsuite_id → user
	tokens   map[string]*user // access_token → user
	sessions map[string]*chatSession
	messages map[string][]chatMessage // sessionID → сообщения по времени
	students []model.Student
	byID     map[string]int
	groups   map[string]*group // userID → group
	seq      int64
	now      func() time.Time
}

func NewStore(students []model.Student) *Store {
	s := &Store{
		users:    make(map[string]*user),
		tokens:   make(map[string]*user),
		sessions: make(map[string]*chatSession),
		messages: make(map[string][]chatMessage),
		students: students,
		byID:     make(map[string]int, len(students)),
		groups:   make(map[string]*group),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for i := range students {
		s.byID[students[i].ID] = i
	}
	return s
}

// SignUp регистрирует пользователя; пароль хранится только как bcrypt-хэш.
func (s *Store) SignUp(gsuiteID, password string, role model.UserRole) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[gsuiteID]; ok {
		return "", errUserExists
	}
	u := &user{ID: uuid.NewString(), GsuiteID: gsuiteID, PasswordHash: hash, Role: role}
	s.users[gsuiteID] = u
	return u.ID, nil
}

// SignIn проверяет пароль и выдаёт новый непрозрачный токен.
func (s *Store) SignIn(gsuiteID, password string) (token string, role model.UserRole, err error) {
	s.mu.RLock()
	u, ok := s.users[gsuiteID]
	s.mu.RUnlock()
	if !ok {
		return "", "", errInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)) != nil {
		return "", "", errInvalidCredentials
	}
	token = uuid.NewString()
	s.mu.Lock()
	s.tokens[token] = u
	s.mu.Unlock()
	return token, u.Role, nil
}

// ResolveToken реализует middleware.TokenResolver.
func (s *Store) ResolveToken(_ context.Context, token string) (string, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.tokens[token]
	if !ok {
		return "", "", false
	}
	return u.ID, string(u.Role), true
}

func (s *Store) CreateSession(userID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	s.seq++
	s.sessions[id] = &chatSession{ID: id, UserID: userID, CreatedAt: s.now(), seq: s.seq}
	return id
}

// History возвращает сообщения сессии. notFound задаёт ошибку для чужой/неизвестной сессии:
// resume отвечает 404, а message и history отвечают 403.
func (s *Store) History(userID, sessionID string, notFound error) ([]chatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionID]
	if !ok || sess.UserID != userID {
		return nil, notFound
	}
	return append([]chatMessage(nil), s.messages[sessionID]...), nil
}

// Last возвращает последние n сообщений сессии (контекст для ответа ассистента).
func (s *Store) Last(sessionID string, n int) []chatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := s.messages[sessionID]
	if len(msgs) > n {
		msgs = msgs[len(msgs)-n:]
	}
	return append([]chatMessage(nil), msgs...)
}

// AppendExchange сохраняет пару user/assistant одной операцией.
func (s *Store) AppendExchange(userID, sessionID, userText, assistant string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok || sess.UserID != userID {
		return errInvalidSession
	}
	now := s.now()
	s.messages[sessionID] = append(s.messages[sessionID],
		chatMessage{Role: string(model.RoleUser), Content: userText, CreatedAt: now},
		chatMessage{Role: string(model.RoleAssistant), Content: assistant, CreatedAt: now},
	)
	return nil
}

type sessionSummary struct {
	ID        string
	CreatedAt time.Time
	Title     string
}

// Sessions - сессии пользователя, новые первыми; title, первое сообщение пользователя.
func (s *Store) Sessions(userID string) []sessionSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var owned []*chatSession
	for _, sess := range s.sessions {
		if sess.UserID == userID {
			owned = append(owned, sess)
		}
	}
	sort.Slice(owned, func(i, j int) bool { return owned[i].seq > owned[j].seq })

	out := make([]sessionSummary, 0, len(owned))
	for _, sess := range owned {
		title := model.DefaultSessionTitle
		for _, m := range s.messages[sess.ID] {
			if m.Role == string(model.RoleUser) {
				title = m.Content
				break
			}
		}
		out = append(out, sessionSummary{ID: sess.ID, CreatedAt: sess.CreatedAt, Title: title})
	}
	return out
}

func (s *Store) groupLocked(userID string) *group {
	g, ok := s.groups[userID]
	if !ok {
		g = &group{invites: make(map[string]string)}
		s.groups[userID] = g
	}
	return g
}

// Students - список кандидатов с точки зрения пользователя.
func (s *Store) Students(userID string) []model.Student {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g := s.groups[userID]
	out := make([]model.Student, len(s.students))
	copy(out, s.students)
	if g == nil {
		return out
	}
	for i := range out {
		_, invited := g.invites[out[i].ID]
		out[i].InvitedByMe = invited
	}
	if g.finalized != nil {
		for _, m := range g.finalized.Members {
			if i, ok := s.byID[m.ID]; ok {
				out[i].InMyGroup = true
			}
		}
	}
	return out
}

// Group возвращает зафиксированную группу пользователя или nil.
func (s *Store) Group(userID string) *model.Group {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g := s.groups[userID]
	if g == nil || g.finalized == nil {
		return nil
	}
	cp := *g.finalized
	cp.Members = append([]model.GroupMember(nil), g.finalized.Members...)
	return &cp
}

func (s *Store) Invite(userID, studentID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.byID[studentID]
	if !ok {
		return "", errStudentNotFound
	}
	g := s.groupLocked(userID)
	if g.finalized != nil {
		return "", errGroupFinalized
	}
	if _, dup := g.invites[studentID]; dup || s.students[i].Status != model.StudentStatusFree {
		return "", errNotInvitable
	}
	inviteID := "inv_" + uuid.NewString()
	g.invites[studentID] = inviteID
	return inviteID, nil
}

func (s *Store) CancelInvite(userID, studentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := s.groupLocked(userID)
	if g.finalized != nil {
		return errGroupFinalized
	}
	if _, ok := g.invites[studentID]; !ok {
		return errNotInvited
	}
	delete(g.invites, studentID)
	return nil
}

// Finalize фиксирует группу из приглашённых пользователем студентов. Необратимо:
// участники становятся in_group для всех остальных.
func (s *Store) Finalize(userID string, memberIDs []string, minMembers int) (*model.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := s.groupLocked(userID)
	if g.finalized != nil {
		return nil, errGroupFinalized
	}
	seen := make(map[string]bool, len(memberIDs))
	members := make([]model.GroupMember, 0, len(memberIDs))
	for _, id := range memberIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		i, ok := s.byID[id]
		if !ok {
			return nil, errStudentNotFound
		}
		if _, invited := g.invites[id]; !invited || s.students[i].Status != model.StudentStatusFree {
			return nil, errNotInvited
		}
		members = append(members, model.GroupMember{ID: id, Name: s.students[i].Name})
	}
	if len(members) < minMembers {
		return nil, &tooFewMembersError{min: minMembers}
	}
	for _, m := range members {
		s.students[s.byID[m.ID]].Status = model.StudentStatusInGroup
	}
	g.finalized = &model.Group{ID: "group_" + uuid.NewString(), Members: members, FinalizedAt: s.now()}
	cp := *g.finalized
	return &cp, nil
}

type tooFewMembersError struct{ min int }

func (e *tooFewMembersError) Error() string {
	return fmt.Sprintf("Group must have at least %d members to finalize.", e.min)
}
