package model

import "time"

type StudentStatus string

const (
	StudentStatusFree    StudentStatus = "free"
	StudentStatusInGroup StudentStatus = "in_group"
)

// DisplayState - производное состояние кандидата; ровно одно для каждого студента.
type DisplayState string

const (
	DisplayFree         DisplayState = "free"
	DisplayInvited      DisplayState = "invited"
	DisplayInMyGroup    DisplayState = "in_my_group"
	DisplayInOtherGroup DisplayState = "in_other_group"
)

type Student struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Email       string        `json:"email"`
	Status      StudentStatus `json:"status"`
	InvitedByMe bool          `json:"invitedByMe"`
	InMyGroup   bool          `json:"inMyGroup"`
}

// DisplayState выводит состояние из статуса и двух флагов.
// InMyGroup важнее всего: после финализации InvitedByMe может остаться true.
func (s *Student) DisplayState() DisplayState {
	switch {
	case s.InMyGroup:
		return DisplayInMyGroup
	case s.Status == StudentStatusInGroup:
		return DisplayInOtherGroup
	case s.InvitedByMe:
		return DisplayInvited
	default:
		return DisplayFree
	}
}

type GroupMember struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Group - зафиксированная группа, как её вернул бэкенд после finalize.
type Group struct {
	ID          string        `json:"groupId"`
	Members     []GroupMember `json:"members"`
	FinalizedAt time.Time     `json:"finalizedAt"`
}
