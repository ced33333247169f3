// Package groupform - формирование FYDP-группы: приглашения кандидатов, отзыв приглашений
// и однократная финализация, после которой состав больше не меняется.
//
// Клиентский флаг финализации повторяет серверную блокировку и выставляется только
// после успешного ответа бэкенда. Любая операция либо применяется целиком, либо не меняет
// состояние; ошибка попадает в Err() одной строкой.
package groupform

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fydp-portal/internal/logger"
	"github.com/fydp-portal/internal/model"
	"github.com/fydp-portal/internal/portal"
	"golang.org/x/sync/errgroup"
)

// DefaultMinInvited - минимум приглашённых для финализации (вместе с автором, группа из трёх).
const DefaultMinInvited = 2

var (
	ErrFinalized       = errors.New("group is already finalized")
	ErrFinalizing      = errors.New("group finalization is in progress")
	ErrActionPending   = errors.New("an action for this student is already in progress")
	ErrStudentNotFound = errors.New("student not found")
	ErrNotInvitable    = errors.New("student cannot be invited")
	ErrNotInvited      = errors.New("invite not found")
)

// TooFewMembersError - финализация при недостаточном числе приглашённых.
type TooFewMembersError struct {
	Min  int
	Have int
}

func (e *TooFewMembersError) Error() string {
	return fmt.Sprintf("Group must have at least %d members to finalize.", e.Min)
}

// Phase - состояние всей группы: forming → finalizing → finalized (необратимо).
type Phase string

const (
	PhaseForming    Phase = "forming"
	PhaseFinalizing Phase = "finalizing"
	PhaseFinalized  Phase = "finalized"
)

// entityState - состояние одного студента с точки зрения действий пользователя.
// in_flight отклоняет повторный invite/cancel, пока предыдущий запрос не завершился.
type entityState int

const (
	entityIdle entityState = iota
	entityInFlight
)

// Backend - вызовы бэкенда, нужные workflow (реализует *portal.Client).
type Backend interface {
	ListStudents(ctx context.Context) ([]model.Student, error)
	GroupStatus(ctx context.Context) (*portal.GroupStatus, error)
	InviteStudent(ctx context.Context, studentID string) (*portal.InviteResult, error)
	CancelInvite(ctx context.Context, studentID string) error
	FinalizeGroup(ctx context.Context, memberIDs []string) (*model.Group, error)
}

type Workflow struct {
	backend    Backend
	minInvited int
	pageSize   int

	mu       sync.Mutex
	students []model.Student
	index    map[string]int
	entities map[string]entityState
	phase    Phase
	group    *model.Group
	errMsg   string
}

// New создаёт workflow. minInvited и pageSize <= 0 заменяются значениями по умолчанию.
func New(backend Backend, minInvited, pageSize int) *Workflow {
	if minInvited <= 0 {
		minInvited = DefaultMinInvited
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Workflow{
		backend:    backend,
		minInvited: minInvited,
		pageSize:   pageSize,
		index:      make(map[string]int),
		entities:   make(map[string]entityState),
		phase:      PhaseForming,
	}
}

// Load параллельно загружает кандидатов и состояние группы. Ошибка состояния группы
// не фатальна: считаем, что группа ещё формируется.
func (w *Workflow) Load(ctx context.Context) error {
	defer logger.DeferLogDuration("groupform.Load", time.Now())()

	var (
		students []model.Student
		status   *portal.GroupStatus
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		students, err = w.backend.ListStudents(gctx)
		return err
	})
	g.Go(func() error {
		st, err := w.backend.GroupStatus(gctx)
		if err != nil {
			logger.Errorf("groupform group status: %v", err)
			return nil
		}
		status = st
		return nil
	})
	err := g.Wait()

	w.mu.Lock()
	defer w.mu.Unlock()
	if err != nil {
		logger.Errorf("groupform load students: %v", err)
		w.errMsg = portal.Message(err, "Failed to load students. Please refresh the page.")
		return fmt.Errorf("load students: %w", err)
	}
	w.errMsg = ""

	members := make(map[string]struct{})
	if status != nil {
		for _, m := range status.Members {
			members[m.ID] = struct{}{}
		}
	}
	w.students = make([]model.Student, len(students))
	w.index = make(map[string]int, len(students))
	for i, s := range students {
		if _, ok := members[s.ID]; ok {
			s.InMyGroup = true
			s.Status = model.StudentStatusInGroup
		}
		if s.Status == "" {
			s.Status = model.StudentStatusFree
		}
		w.students[i] = s
		w.index[s.ID] = i
	}
	if w.phase != PhaseFinalizing {
		w.phase = PhaseForming
		if status != nil && status.IsFinalized {
			w.phase = PhaseFinalized
		}
	}
	return nil
}

// Invite приглашает свободного студента. Успех: InvitedByMe=true без перезагрузки списка.
func (w *Workflow) Invite(ctx context.Context, studentID string) error {
	w.mu.Lock()
	w.errMsg = ""
	if err := w.checkMutableLocked(); err != nil {
		w.mu.Unlock()
		return err
	}
	i, err := w.beginLocked(studentID)
	if err != nil {
		w.mu.Unlock()
		return err
	}
	if w.students[i].DisplayState() != model.DisplayFree {
		delete(w.entities, studentID)
		w.mu.Unlock()
		return w.reject(ErrNotInvitable)
	}
	w.mu.Unlock()

	res, err := w.backend.InviteStudent(ctx, studentID)

	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.entities, studentID)
	if err != nil {
		logger.Errorf("groupform invite student=%s: %v", studentID, err)
		w.errMsg = portal.Message(err, "Failed to send invite")
		return fmt.Errorf("invite %s: %w", studentID, err)
	}
	if i, ok := w.index[studentID]; ok {
		w.students[i].InvitedByMe = true
	}
	logger.Infof("groupform: приглашение отправлено student=%s invite=%s", studentID, res.InviteID)
	return nil
}

// CancelInvite отзывает ожидающее приглашение. Успех: InvitedByMe=false.
func (w *Workflow) CancelInvite(ctx context.Context, studentID string) error {
	w.mu.Lock()
	w.errMsg = ""
	if err := w.checkMutableLocked(); err != nil {
		w.mu.Unlock()
		return err
	}
	i, err := w.beginLocked(studentID)
	if err != nil {
		w.mu.Unlock()
		return err
	}
	if w.students[i].DisplayState() != model.DisplayInvited {
		delete(w.entities, studentID)
		w.mu.Unlock()
		return w.reject(ErrNotInvited)
	}
	w.mu.Unlock()

	err = w.backend.CancelInvite(ctx, studentID)

	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.entities, studentID)
	if err != nil {
		logger.Errorf("groupform cancel invite student=%s: %v", studentID, err)
		w.errMsg = portal.Message(err, "Failed to cancel invite")
		return fmt.Errorf("cancel invite %s: %w", studentID, err)
	}
	if i, ok := w.index[studentID]; ok {
		w.students[i].InvitedByMe = false
	}
	return nil
}

// FinalizeGroup фиксирует группу из всех ожидающих приглашений. Операция необратима:
// после успеха все приглашённые состоят в группе, а invite/cancel отклоняются.
func (w *Workflow) FinalizeGroup(ctx context.Context) (*model.Group, error) {
	w.mu.Lock()
	w.errMsg = ""
	if err := w.checkMutableLocked(); err != nil {
		w.mu.Unlock()
		return nil, err
	}
	invited := w.invitedIDsLocked()
	if len(invited) < w.minInvited {
		w.mu.Unlock()
		return nil, w.reject(&TooFewMembersError{Min: w.minInvited, Have: len(invited)})
	}
	for _, st := range w.entities {
		if st == entityInFlight {
			w.mu.Unlock()
			return nil, w.reject(ErrActionPending)
		}
	}
	w.phase = PhaseFinalizing
	w.mu.Unlock()

	group, err := w.backend.FinalizeGroup(ctx, invited)

	w.mu.Lock()
	defer w.mu.Unlock()
	if err != nil {
		w.phase = PhaseForming
		logger.Errorf("groupform finalize: %v", err)
		w.errMsg = portal.Message(err, "Failed to finalize group")
		return nil, fmt.Errorf("finalize group: %w", err)
	}
	w.phase = PhaseFinalized
	w.group = group
	for _, id := range invited {
		if i, ok := w.index[id]; ok {
			w.students[i].InMyGroup = true
			w.students[i].Status = model.StudentStatusInGroup
		}
	}
	logger.Infof("groupform: группа зафиксирована group=%s members=%d", group.ID, len(invited))
	return group, nil
}

// checkMutableLocked отклоняет изменения после (или во время) финализации.
func (w *Workflow) checkMutableLocked() error {
	switch w.phase {
	case PhaseFinalized:
		w.errMsg = ErrFinalized.Error()
		return ErrFinalized
	case PhaseFinalizing:
		w.errMsg = ErrFinalizing.Error()
		return ErrFinalizing
	}
	return nil
}

// beginLocked переводит студента idle → in_flight и возвращает его индекс.
func (w *Workflow) beginLocked(studentID string) (int, error) {
	i, ok := w.index[studentID]
	if !ok {
		w.errMsg = ErrStudentNotFound.Error()
		return 0, ErrStudentNotFound
	}
	if w.entities[studentID] == entityInFlight {
		w.errMsg = ErrActionPending.Error()
		return 0, ErrActionPending
	}
	w.entities[studentID] = entityInFlight
	return i, nil
}

// reject записывает сообщение отказа; вызывается без удержания mu.
func (w *Workflow) reject(err error) error {
	w.mu.Lock()
	w.errMsg = err.Error()
	w.mu.Unlock()
	return err
}

func (w *Workflow) invitedIDsLocked() []string {
	var ids []string
	for _, s := range w.students {
		if s.DisplayState() == model.DisplayInvited {
			ids = append(ids, s.ID)
		}
	}
	return ids
}

// Err - текст баннера ошибки последней операции ("", ошибки нет).
func (w *Workflow) Err() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.errMsg
}

func (w *Workflow) Phase() Phase {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.phase
}

func (w *Workflow) IsFinalized() bool {
	return w.Phase() == PhaseFinalized
}

// Group возвращает зафиксированную группу, если финализация прошла в этом процессе.
func (w *Workflow) Group() *model.Group {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.group
}

// Pending сообщает, выполняется ли сейчас действие над студентом.
func (w *Workflow) Pending(studentID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.entities[studentID] == entityInFlight
}

func (w *Workflow) Student(studentID string) (model.Student, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	i, ok := w.index[studentID]
	if !ok {
		return model.Student{}, false
	}
	return w.students[i], true
}

// Students возвращает копию всех кандидатов в порядке бэкенда.
func (w *Workflow) Students() []model.Student {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]model.Student, len(w.students))
	copy(out, w.students)
	return out
}

// Invited - студенты с ожидающим приглашением.
func (w *Workflow) Invited() []model.Student {
	return w.byState(model.DisplayInvited)
}

// Members - студенты в группе пользователя.
func (w *Workflow) Members() []model.Student {
	return w.byState(model.DisplayInMyGroup)
}

// MembersNeeded - сколько ещё приглашений нужно до финализации.
func (w *Workflow) MembersNeeded() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	if n := w.minInvited - len(w.invitedIDsLocked()); n > 0 {
		return n
	}
	return 0
}

func (w *Workflow) byState(state model.DisplayState) []model.Student {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []model.Student
	for _, s := range w.students {
		if s.DisplayState() == state {
			out = append(out, s)
		}
	}
	return out
}
