package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/taskmaster/backend/internal/config"
	"github.com/taskmaster/backend/internal/model"
	"github.com/taskmaster/backend/internal/service"
	"github.com/taskmaster/backend/internal/storetest"
)

type fakePinger struct{ err error }

func (f fakePinger) Ping(ctx context.Context) error { return f.err }

type testServer struct {
	router *gin.Engine
	store  *storetest.Memory
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := storetest.NewMemory()
	authSvc, err := service.NewAuthService(store, config.AuthConfig{
		SessionTTL:     "168h",
		CookieSameSite: "strict",
		CookiePath:     "/",
	}, log)
	if err != nil {
		t.Fatalf("NewAuthService: %v", err)
	}

	router := NewRouter(RouterDeps{
		Auth:           authSvc,
		Todos:          service.NewTodoService(store, log),
		DB:             fakePinger{},
		AllowedOrigins: []string{"http://localhost:4200"},
		Log:            log,
	})
	return &testServer{router: router, store: store}
}

func (s *testServer) do(t *testing.T, method, path, body string, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) signupAndLogin(t *testing.T, username string) *http.Cookie {
	t.Helper()
	w := s.do(t, http.MethodPost, "/auth/signup",
		`{"username":"`+username+`","email":"`+username+`@x.com","password":"pw123"}`, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("signup %s: expected 201, got %d: %s", username, w.Code, w.Body.String())
	}
	w = s.do(t, http.MethodPost, "/auth/login", `{"username":"`+username+`","password":"pw123"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("login %s: expected 200, got %d: %s", username, w.Code, w.Body.String())
	}
	return sessionCookie(t, w)
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == service.SessionCookieName {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", service.SessionCookieName)
	return nil
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	return v
}

func TestSignupResponses(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/auth/signup", `{"username":"alice","email":"alice@x.com","password":"pw123"}`, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	user := decode[map[string]any](t, w)
	if user["username"] != "alice" || user["email"] != "alice@x.com" {
		t.Fatalf("unexpected body: %v", user)
	}
	if _, ok := user["password_hash"]; ok {
		t.Fatalf("password hash leaked: %v", user)
	}
	if _, ok := user["PasswordHash"]; ok {
		t.Fatalf("password hash leaked: %v", user)
	}

	w = s.do(t, http.MethodPost, "/auth/signup", `{"username":"alice","email":"new@x.com","password":"pw123"}`, nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 on duplicate, got %d", w.Code)
	}

	w = s.do(t, http.MethodPost, "/auth/signup", `{"username":"bob","email":"nope","password":"pw123"}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 on bad email, got %d", w.Code)
	}

	w = s.do(t, http.MethodPost, "/auth/signup", `{"username":"bob"`, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 on malformed json, got %d", w.Code)
	}
}

func TestLoginSetsHTTPOnlyCookie(t *testing.T) {
	s := newTestServer(t)
	cookie := s.signupAndLogin(t, "alice")

	if !cookie.HttpOnly {
		t.Fatalf("expected HttpOnly cookie")
	}
	if cookie.MaxAge != 7*24*60*60 {
		t.Fatalf("expected 7 day max age, got %d", cookie.MaxAge)
	}
	if cookie.Value == "" {
		t.Fatalf("expected token value")
	}
}

func TestLoginFailuresAreIdentical(t *testing.T) {
	s := newTestServer(t)
	s.signupAndLogin(t, "alice")

	wrong := s.do(t, http.MethodPost, "/auth/login", `{"username":"alice","password":"bad"}`, nil)
	unknown := s.do(t, http.MethodPost, "/auth/login", `{"username":"nobody","password":"pw123"}`, nil)

	if wrong.Code != http.StatusUnauthorized || unknown.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for both, got %d and %d", wrong.Code, unknown.Code)
	}
	if wrong.Body.String() != unknown.Body.String() {
		t.Fatalf("expected identical bodies, got %q and %q", wrong.Body.String(), unknown.Body.String())
	}
}

func TestTodosRequireSession(t *testing.T) {
	s := newTestServer(t)

	for _, tc := range []struct{ method, path, body string }{
		{http.MethodGet, "/todos", ""},
		{http.MethodPost, "/todos", `{"title":"x"}`},
		{http.MethodPatch, "/todos", `{"completed":true}`},
		{http.MethodPatch, "/todos/1", `{"completed":true}`},
		{http.MethodPut, "/todos/1", `{"title":"x"}`},
		{http.MethodDelete, "/todos/1", ""},
		{http.MethodGet, "/auth/me", ""},
	} {
		w := s.do(t, tc.method, tc.path, tc.body, nil)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s: expected 401, got %d", tc.method, tc.path, w.Code)
		}
	}

	bogus := &http.Cookie{Name: service.SessionCookieName, Value: "forged"}
	if w := s.do(t, http.MethodGet, "/todos", "", bogus); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for forged token, got %d", w.Code)
	}
}

func TestMeReturnsSessionUser(t *testing.T) {
	s := newTestServer(t)
	cookie := s.signupAndLogin(t, "alice")

	w := s.do(t, http.MethodGet, "/auth/me", "", cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got := decode[model.UserResponse](t, w); got.Username != "alice" {
		t.Fatalf("unexpected user: %+v", got)
	}
}

func TestLogoutRevokesSessionAndClearsCookie(t *testing.T) {
	s := newTestServer(t)
	cookie := s.signupAndLogin(t, "alice")

	w := s.do(t, http.MethodPost, "/auth/logout", "", cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if msg := decode[model.MessageResponse](t, w); msg.Message == "" {
		t.Fatalf("expected message")
	}
	cleared := sessionCookie(t, w)
	if cleared.Value != "" || cleared.MaxAge >= 0 {
		t.Fatalf("expected cleared cookie, got %+v", cleared)
	}

	if w := s.do(t, http.MethodGet, "/todos", "", cookie); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", w.Code)
	}

	if w := s.do(t, http.MethodPost, "/auth/logout", "", nil); w.Code != http.StatusOK {
		t.Fatalf("logout without cookie should still be 200, got %d", w.Code)
	}
}

func TestTodoScenario(t *testing.T) {
	s := newTestServer(t)
	cookie := s.signupAndLogin(t, "alice")

	w := s.do(t, http.MethodPost, "/todos", `{"title":"buy milk"}`, cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("create: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	created := decode[model.Todo](t, w)
	if created.Completed || created.Title != "buy milk" || created.Description != nil {
		t.Fatalf("unexpected created todo: %+v", created)
	}

	time.Sleep(2 * time.Millisecond)
	path := "/todos/" + itoa(created.ID)
	w = s.do(t, http.MethodPatch, path, `{"completed":true}`, cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("patch: expected 200, got %d", w.Code)
	}
	updated := decode[model.Todo](t, w)
	if !updated.Completed || !updated.LastModifiedAt.After(created.LastModifiedAt) {
		t.Fatalf("unexpected updated todo: %+v", updated)
	}

	w = s.do(t, http.MethodDelete, path, "", cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", w.Code)
	}

	w = s.do(t, http.MethodGet, "/todos", "", cookie)
	if list := decode[[]model.Todo](t, w); len(list) != 0 {
		t.Fatalf("expected deleted todo gone, got %+v", list)
	}

	if w := s.do(t, http.MethodDelete, path, "", cookie); w.Code != http.StatusNotFound {
		t.Fatalf("second delete: expected 404, got %d", w.Code)
	}
}

func TestReplaceAndBulkUpdate(t *testing.T) {
	s := newTestServer(t)
	cookie := s.signupAndLogin(t, "alice")

	first := decode[model.Todo](t, s.do(t, http.MethodPost, "/todos", `{"title":"a","description":"first"}`, cookie))
	s.do(t, http.MethodPost, "/todos", `{"title":"b"}`, cookie)

	w := s.do(t, http.MethodPut, "/todos/"+itoa(first.ID), `{"title":"a2"}`, cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("put: expected 200, got %d", w.Code)
	}
	replaced := decode[model.Todo](t, w)
	if replaced.Title != "a2" || replaced.Description != nil {
		t.Fatalf("unexpected replaced todo: %+v", replaced)
	}

	if w := s.do(t, http.MethodPut, "/todos/"+itoa(first.ID), `{"title":"   "}`, cookie); w.Code != http.StatusBadRequest {
		t.Fatalf("blank title: expected 400, got %d", w.Code)
	}

	w = s.do(t, http.MethodPatch, "/todos", `{"completed":true}`, cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("bulk patch: expected 200, got %d", w.Code)
	}
	list := decode[[]model.Todo](t, w)
	if len(list) != 2 {
		t.Fatalf("expected 2 todos, got %d", len(list))
	}
	for _, todo := range list {
		if !todo.Completed {
			t.Fatalf("expected all completed: %+v", list)
		}
	}

	if w := s.do(t, http.MethodPatch, "/todos", `{}`, cookie); w.Code != http.StatusBadRequest {
		t.Fatalf("missing completed: expected 400, got %d", w.Code)
	}
}

func TestCrossUserAccessIsNotFound(t *testing.T) {
	s := newTestServer(t)
	alice := s.signupAndLogin(t, "alice")
	bob := s.signupAndLogin(t, "bob")

	todo := decode[model.Todo](t, s.do(t, http.MethodPost, "/todos", `{"title":"alice only"}`, alice))
	path := "/todos/" + itoa(todo.ID)

	if w := s.do(t, http.MethodPatch, path, `{"completed":true}`, bob); w.Code != http.StatusNotFound {
		t.Fatalf("bob patch: expected 404, got %d", w.Code)
	}
	if w := s.do(t, http.MethodPut, path, `{"title":"stolen"}`, bob); w.Code != http.StatusNotFound {
		t.Fatalf("bob put: expected 404, got %d", w.Code)
	}
	if w := s.do(t, http.MethodDelete, path, "", bob); w.Code != http.StatusNotFound {
		t.Fatalf("bob delete: expected 404, got %d", w.Code)
	}
	if list := decode[[]model.Todo](t, s.do(t, http.MethodGet, "/todos", "", bob)); len(list) != 0 {
		t.Fatalf("bob must see nothing, got %+v", list)
	}
	if w := s.do(t, http.MethodPatch, "/todos", `{"completed":true}`, bob); w.Code != http.StatusOK {
		t.Fatalf("bob bulk patch: expected 200, got %d", w.Code)
	}

	list := decode[[]model.Todo](t, s.do(t, http.MethodGet, "/todos", "", alice))
	if len(list) != 1 || list[0].Completed || list[0].Title != "alice only" {
		t.Fatalf("alice's todo must be untouched: %+v", list)
	}
}

func TestMalformedTodoIDIsNotFound(t *testing.T) {
	s := newTestServer(t)
	cookie := s.signupAndLogin(t, "alice")

	if w := s.do(t, http.MethodDelete, "/todos/abc", "", cookie); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestStorageFailureHidesDetail(t *testing.T) {
	s := newTestServer(t)
	cookie := s.signupAndLogin(t, "alice")
	s.store.Err = errors.New("pq: relation todos does not exist")

	w := s.do(t, http.MethodGet, "/todos", "", cookie)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if body := w.Body.String(); bytes.Contains([]byte(body), []byte("relation")) {
		t.Fatalf("internal error leaked: %s", body)
	}
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t)

	if w := s.do(t, http.MethodGet, "/ping", "", nil); w.Code != http.StatusOK {
		t.Fatalf("ping: expected 200, got %d", w.Code)
	}
	if w := s.do(t, http.MethodGet, "/healthz", "", nil); w.Code != http.StatusOK {
		t.Fatalf("healthz: expected 200, got %d", w.Code)
	}

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/healthz", Healthz(fakePinger{err: errors.New("down")}))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when db is down, got %d", w.Code)
	}
}

func TestOpenAPIDoc(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/openapi.json", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	doc := decode[map[string]any](t, w)
	paths, ok := doc["paths"].(map[string]any)
	if !ok {
		t.Fatalf("expected paths object")
	}
	for _, p := range []string{"/auth/signup", "/auth/login", "/todos", "/todos/{id}"} {
		if _, ok := paths[p]; !ok {
			t.Fatalf("missing path %s", p)
		}
	}
}

func TestRequestIDHeader(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/ping", "", nil)
	if w.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected %s header", requestIDHeader)
	}
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/todos", nil)
	req.Header.Set("Origin", "http://localhost:4200")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:4200" {
		t.Fatalf("expected allowed origin, got %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Fatalf("expected credentials allowed, got %q", got)
	}
}
