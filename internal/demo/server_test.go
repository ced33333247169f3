package demo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fydp-portal/internal/config"
	"github.com/fydp-portal/internal/model"
)

type testServer struct {
	t       *testing.T
	s       *Server
	handler http.Handler
}

func newTestServer(t *testing.T, cfg config.DemoConfig) *testServer {
	t.Helper()
	if cfg.StudentCount == 0 {
		cfg.StudentCount = 20
	}
	s := NewServer(cfg, 2)
	return &testServer{t: t, s: s, handler: s.Routes("*")}
}

func (ts *testServer) do(method, target, token, body string) *httptest.ResponseRecorder {
	ts.t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) login(gsuiteID string, role model.UserRole) string {
	ts.t.Helper()
	if _, err := ts.s.Store().SignUp(gsuiteID, "pw", role); err != nil {
		ts.t.Fatalf("SignUp: %v", err)
	}
	token, _, err := ts.s.Store().SignIn(gsuiteID, "pw")
	if err != nil {
		ts.t.Fatalf("SignIn: %v", err)
	}
	return token
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func firstFree(students []model.Student, skip int) string {
	for _, s := range students {
		if s.Status == model.StudentStatusFree {
			if skip == 0 {
				return s.ID
			}
			skip--
		}
	}
	return ""
}

func TestSignUpSignIn(t *testing.T) {
	ts := newTestServer(t, config.DemoConfig{})

	rec := ts.do(http.MethodPost, "/auth/signup/", "", `{"gsuite_id":"a@uni.edu","password":"pw","role":"student"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("signup status = %d, body %s", rec.Code, rec.Body)
	}
	rec = ts.do(http.MethodPost, "/auth/signup/", "", `{"gsuite_id":"a@uni.edu","password":"pw","role":"student"}`)
	if rec.Code != http.StatusBadRequest || decode[detailResponse](t, rec).Detail != "User already registered" {
		t.Errorf("duplicate signup = %d %s", rec.Code, rec.Body)
	}
	rec = ts.do(http.MethodPost, "/auth/signup/", "", `{"gsuite_id":"b@uni.edu","password":"pw","role":"admin"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("unknown role status = %d", rec.Code)
	}

	rec = ts.do(http.MethodPost, "/auth/signin/", "", `{"gsuite_id":"a@uni.edu","password":"nope"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad password status = %d", rec.Code)
	}
	rec = ts.do(http.MethodPost, "/auth/signin/", "", `{"gsuite_id":"a@uni.edu","password":"pw"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("signin status = %d", rec.Code)
	}
	resp := decode[signInResponse](t, rec)
	if resp.AccessToken == "" || resp.TokenType != "bearer" || resp.Role != model.UserRoleStudent {
		t.Errorf("signin = %+v", resp)
	}
}

func TestBearerRequired(t *testing.T) {
	ts := newTestServer(t, config.DemoConfig{})
	for _, token := range []string{"", "not-a-token"} {
		rec := ts.do(http.MethodGet, "/chat/sessions", token, "")
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("token %q: status = %d, want 401", token, rec.Code)
		}
	}
}

func TestGroupEndpoints_StudentOnly(t *testing.T) {
	ts := newTestServer(t, config.DemoConfig{})
	token := ts.login("adv@uni.edu", model.UserRoleAdvisor)
	rec := ts.do(http.MethodGet, "/api/students", token, "")
	if rec.Code != http.StatusForbidden {
		t.Errorf("advisor status = %d, want 403", rec.Code)
	}
}

func TestChatSessionsIsolatedPerUser(t *testing.T) {
	ts := newTestServer(t, config.DemoConfig{})
	alice := ts.login("alice@uni.edu", model.UserRoleStudent)
	bob := ts.login("bob@uni.edu", model.UserRoleStudent)

	rec := ts.do(http.MethodPost, "/chat/session", alice, "")
	id := decode[map[string]any](t, rec)["session_id"].(string)

	if rec := ts.do(http.MethodPost, "/chat/session?session_id="+id, bob, ""); rec.Code != http.StatusNotFound {
		t.Errorf("bob resume status = %d, want 404", rec.Code)
	}
	if rec := ts.do(http.MethodGet, "/chat/history/"+id, bob, ""); rec.Code != http.StatusForbidden {
		t.Errorf("bob history status = %d, want 403", rec.Code)
	}
	if rec := ts.do(http.MethodPost, "/chat/message?session_id="+id+"&message=hi", bob, ""); rec.Code != http.StatusForbidden {
		t.Errorf("bob message status = %d, want 403", rec.Code)
	}
	if got := decode[[]sessionListItem](t, ts.do(http.MethodGet, "/chat/sessions", bob, "")); len(got) != 0 {
		t.Errorf("bob sessions = %+v, want none", got)
	}
}

func TestFailureInjection(t *testing.T) {
	ts := newTestServer(t, config.DemoConfig{InviteFailRate: 1, CancelFailRate: 1, FinalizeFailRate: 1})
	token := ts.login("s@uni.edu", model.UserRoleStudent)
	id := firstFree(ts.s.Store().Students(""), 0)

	rec := ts.do(http.MethodPost, "/api/invite", token, `{"studentId":"`+id+`"}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	env := decode[envelopeResponse](t, rec)
	if env.Success || env.Message != "Failed to send invite. Please try again." {
		t.Errorf("envelope = %+v", env)
	}
	for _, s := range ts.s.Store().Students("") {
		if s.InvitedByMe {
			t.Error("failed invite changed state")
		}
	}

	rec = ts.do(http.MethodPost, "/api/group/finalize", token, `{"memberIds":["a","b"]}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("finalize status = %d, want 503", rec.Code)
	}
}

func TestDelayHonoursCancellation(t *testing.T) {
	ts := newTestServer(t, config.DemoConfig{ListDelay: time.Hour})
	token := ts.login("s@uni.edu", model.UserRoleStudent)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/students", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		ts.handler.ServeHTTP(rec, req)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler ignored request cancellation")
	}
}

func TestStudentsView(t *testing.T) {
	ts := newTestServer(t, config.DemoConfig{})
	alice := ts.login("alice@uni.edu", model.UserRoleStudent)
	bob := ts.login("bob@uni.edu", model.UserRoleStudent)

	all := decode[struct {
		Success bool            `json:"success"`
		Data    []model.Student `json:"data"`
	}](t, ts.do(http.MethodGet, "/api/students", alice, ""))
	if !all.Success || len(all.Data) != 20 {
		t.Fatalf("students = %d, success %v", len(all.Data), all.Success)
	}
	a, b := firstFree(all.Data, 0), firstFree(all.Data, 1)

	for _, id := range []string{a, b} {
		if rec := ts.do(http.MethodPost, "/api/invite", alice, `{"studentId":"`+id+`"}`); rec.Code != http.StatusOK {
			t.Fatalf("invite %s status = %d %s", id, rec.Code, rec.Body)
		}
	}
	if rec := ts.do(http.MethodPost, "/api/group/finalize", alice, `{"memberIds":["`+a+`","`+b+`"]}`); rec.Code != http.StatusOK {
		t.Fatalf("finalize status = %d %s", rec.Code, rec.Body)
	}

	view := func(token string) map[string]model.DisplayState {
		got := decode[struct {
			Data []model.Student `json:"data"`
		}](t, ts.do(http.MethodGet, "/api/students", token, ""))
		out := make(map[string]model.DisplayState)
		for _, s := range got.Data {
			out[s.ID] = s.DisplayState()
		}
		return out
	}
	if got := view(alice)[a]; got != model.DisplayInMyGroup {
		t.Errorf("alice sees %s as %q, want in_my_group", a, got)
	}
	if got := view(bob)[a]; got != model.DisplayInOtherGroup {
		t.Errorf("bob sees %s as %q, want in_other_group", a, got)
	}
	if rec := ts.do(http.MethodPost, "/api/invite", bob, `{"studentId":"`+a+`"}`); rec.Code != http.StatusConflict {
		t.Errorf("bob invite taken student status = %d, want 409", rec.Code)
	}
}

func TestGenerateStudents_Deterministic(t *testing.T) {
	a := GenerateStudents(50, 42)
	b := GenerateStudents(50, 42)
	if len(a) != 50 {
		t.Fatalf("len = %d", len(a))
	}
	free := 0
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("student %d differs between runs with the same seed", i)
		}
		if !strings.HasSuffix(a[i].Email, "@university.edu") {
			t.Errorf("email %q", a[i].Email)
		}
		if a[i].Status == model.StudentStatusFree {
			free++
		}
	}
	if free == 0 || free == 50 {
		t.Errorf("free = %d, want a mix of statuses", free)
	}
}

func TestReply(t *testing.T) {
	tests := map[string]string{
		"Help me PROPOSE a topic":  cannedReplies[0].text,
		"what is the schedule?":    cannedReplies[1].text,
		"which tech stack is best": cannedReplies[2].text,
		"hello":                    defaultReply,
	}
	for msg, want := range tests {
		if got := Reply(msg); got != want {
			t.Errorf("Reply(%q) = %q", msg, got)
		}
	}
}
