package portal

import (
	"context"
	"net/http"
	"net/url"

	"github.com/fydp-portal/internal/model"
)

// InviteResult - data из POST /api/invite.
type InviteResult struct {
	InviteID  string `json:"inviteId"`
	StudentID string `json:"studentId"`
	Status    string `json:"status"`
}

// GroupStatus - data из GET /api/group: состояние группы текущего пользователя.
type GroupStatus struct {
	GroupID     string              `json:"groupId"`
	IsFinalized bool                `json:"isFinalized"`
	Members     []model.GroupMember `json:"members"`
}

func (c *Client) ListStudents(ctx context.Context) ([]model.Student, error) {
	data, _, err := doEnvelope[[]model.Student](ctx, c, http.MethodGet, "/api/students", nil)
	return data, err
}

func (c *Client) GroupStatus(ctx context.Context) (*GroupStatus, error) {
	data, _, err := doEnvelope[GroupStatus](ctx, c, http.MethodGet, "/api/group", nil)
	if err != nil {
		return nil, err
	}
	return &data, nil
}

func (c *Client) InviteStudent(ctx context.Context, studentID string) (*InviteResult, error) {
	body := map[string]string{"studentId": studentID}
	data, _, err := doEnvelope[InviteResult](ctx, c, http.MethodPost, "/api/invite", body)
	if err != nil {
		return nil, err
	}
	return &data, nil
}

// CancelInvite отзывает приглашение студента studentID.
func (c *Client) CancelInvite(ctx context.Context, studentID string) error {
	_, _, err := doEnvelope[struct{}](ctx, c, http.MethodDelete, "/api/invite/"+url.PathEscape(studentID), nil)
	return err
}

func (c *Client) FinalizeGroup(ctx context.Context, memberIDs []string) (*model.Group, error) {
	body := map[string][]string{"memberIds": memberIDs}
	data, _, err := doEnvelope[model.Group](ctx, c, http.MethodPost, "/api/group/finalize", body)
	if err != nil {
		return nil, err
	}
	return &data, nil
}
