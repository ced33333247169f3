package model

import "testing"

func TestDisplayState(t *testing.T) {
	tests := []struct {
		name string
		s    Student
		want DisplayState
	}{
		{"free", Student{Status: StudentStatusFree}, DisplayFree},
		{"invited", Student{Status: StudentStatusFree, InvitedByMe: true}, DisplayInvited},
		{"other group", Student{Status: StudentStatusInGroup}, DisplayInOtherGroup},
		{"my group", Student{Status: StudentStatusInGroup, InMyGroup: true}, DisplayInMyGroup},
		{"my group after finalize keeps invite flag", Student{Status: StudentStatusInGroup, InvitedByMe: true, InMyGroup: true}, DisplayInMyGroup},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.s.DisplayState(); got != tt.want {
				t.Errorf("DisplayState = %q, want %q", got, tt.want)
			}
		})
	}
}
