package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"precisionworks/internal/config"
	"precisionworks/internal/database"
	"precisionworks/internal/domain"
	"precisionworks/internal/intake"
	"precisionworks/internal/notify"
	"precisionworks/internal/records/recordstest"
	"precisionworks/internal/services"
	"precisionworks/internal/triage"
	"precisionworks/internal/util"
)

type testEnv struct {
	handler  http.Handler
	store    *recordstest.ContactStore
	auth     *services.AuthService
	sessions *intake.Sessions
	boards   *triage.Registry
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.Open(config.DatabaseConfig{URL: "sqlite:///:memory:"})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	store := recordstest.NewContactStore()
	email := services.NewEmailService(&config.EmailConfig{})
	contact := services.NewContactService(store, email, "")
	auth := services.NewAuthService(db, util.NewTokenIssuer("test-secret", 30*time.Minute), util.NewRevocations())

	sessions := intake.NewSessions(func() *intake.Form {
		return intake.NewForm(store, intake.WithOnCreated(contact.Notify))
	}, time.Hour, 0, 3)
	t.Cleanup(sessions.Close)

	boards := triage.NewRegistry(func() *triage.Board {
		return triage.NewBoard(store, triage.WithPageSize(triage.DefaultPageSize))
	})

	srv := New(Services{
		Health:    services.NewHealthService(db, "Precision Works API", "test"),
		Auth:      auth,
		Contact:   contact,
		Dashboard: services.NewDashboardService(store),
		Sessions:  sessions,
		Boards:    boards,
	})

	return &testEnv{handler: srv.Handler(), store: store, auth: auth, sessions: sessions, boards: boards}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

// user creates an active user and returns a token for it
func (e *testEnv) user(t *testing.T, username string, staff, admin bool) string {
	t.Helper()

	_, err := e.auth.CreateUser(context.Background(), &services.CreateUserPayload{
		Username: username,
		Email:    username + "@example.com",
		Password: "password123",
		IsActive: true,
		IsStaff:  staff,
		IsAdmin:  admin,
	})
	require.NoError(t, err)

	rec := e.do(t, "POST", "/api/v1/auth/login", "", map[string]string{"username": username, "password": "password123"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res services.LoginResult
	decodeBody(t, rec, &res)
	return res.AccessToken
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func errorName(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorBody
	decodeBody(t, rec, &body)
	return body.Name
}

type sessionBody struct {
	SessionID string       `json:"session_id"`
	Advanced  bool         `json:"advanced"`
	ScrollTo  string       `json:"scroll_to"`
	State     intake.State `json:"state"`
}

type boardBody struct {
	triage.View
	Notices []notify.Notice `json:"notices"`
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "GET", "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var res services.HealthResult
	decodeBody(t, rec, &res)
	assert.Equal(t, "healthy", res.Status)
}

func TestCatalog(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "GET", "/api/v1/catalog", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var res catalogResponse
	decodeBody(t, rec, &res)
	assert.Equal(t, domain.ProductCatalog, res.ProductCategories)
	assert.Equal(t, domain.RequestTypes, res.RequestTypes)
}

func TestSubmitContact(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "POST", "/api/v1/contact/submit", "", services.SubmitPayload{
		Name:            "Jane Doe",
		Email:           "jane@co.com",
		Company:         "Acme",
		RequestType:     "quote",
		ProductInterest: []string{"cnc-components"},
		Message:         "Need 500 brackets",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var res services.SubmitResult
	decodeBody(t, rec, &res)
	assert.NotZero(t, res.ID)
	assert.Len(t, env.store.Created(), 1)
}

func TestSubmitContactRejectsInvalidInput(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "POST", "/api/v1/contact/submit", "", services.SubmitPayload{Name: "Jane"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, services.ErrNameBadRequest, errorName(t, rec))

	rec = env.do(t, "POST", "/api/v1/contact/submit", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, env.store.Calls("create"))
}

func TestJSONKeysAreSnakeCase(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "POST", "/api/v1/contact/submit", "", map[string]any{
		"name":             "Jane Doe",
		"email":            "jane@co.com",
		"company":          "Acme",
		"request_type":     "support",
		"product_interest": []string{"sheet-metal"},
		"message":          "Our press brake parts are late",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	stored := env.store.Created()
	require.Len(t, stored, 1)
	assert.Equal(t, domain.RequestSupport, stored[0].RequestType)
	assert.Equal(t, domain.ProductInterest{"sheet-metal"}, stored[0].ProductInterest)

	rec = env.do(t, "POST", "/api/v1/intake/sessions", "", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created sessionBody
	decodeBody(t, rec, &created)

	rec = env.do(t, "PATCH", "/api/v1/intake/sessions/"+created.SessionID+"/fields", "", map[string]string{"request_type": "info"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var raw struct {
		State struct {
			FormData map[string]json.RawMessage `json:"form_data"`
		} `json:"state"`
	}
	decodeBody(t, rec, &raw)
	assert.JSONEq(t, `"info"`, string(raw.State.FormData["request_type"]))
	assert.Contains(t, raw.State.FormData, "product_interest")
	assert.NotContains(t, raw.State.FormData, "requestType")
}

func TestIntakeSessionFlow(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "POST", "/api/v1/intake/sessions", "", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created sessionBody
	decodeBody(t, rec, &created)
	require.NotEmpty(t, created.SessionID)
	assert.Equal(t, intake.StepContact, created.State.Step)
	base := "/api/v1/intake/sessions/" + created.SessionID

	// advancing with an empty form reports every contact error
	rec = env.do(t, "POST", base+"/advance", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var blocked sessionBody
	decodeBody(t, rec, &blocked)
	assert.False(t, blocked.Advanced)
	assert.Empty(t, blocked.ScrollTo)
	assert.Equal(t, "Name is required", blocked.State.Errors[intake.FieldName])

	rec = env.do(t, "PATCH", base+"/fields", "", map[string]string{
		"name":    "Jane Doe",
		"email":   "Jane@Co.com",
		"company": "Acme",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, "POST", base+"/advance", "", nil)
	var advanced sessionBody
	decodeBody(t, rec, &advanced)
	assert.True(t, advanced.Advanced)
	assert.Equal(t, intake.FormContainerID, advanced.ScrollTo)
	assert.Equal(t, intake.StepDetails, advanced.State.Step)

	rec = env.do(t, "POST", base+"/products", "", productToggle{Tag: "cnc-components", Included: true})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(t, "PATCH", base+"/fields", "", map[string]string{"message": "Need 500 brackets"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, "POST", base+"/submit", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var submitted submitResponse
	decodeBody(t, rec, &submitted)
	require.Len(t, submitted.Notices, 1)
	assert.Equal(t, notify.KindSuccess, submitted.Notices[0].Kind)
	assert.True(t, submitted.State.Submitted)
	assert.NotZero(t, submitted.State.SubmissionID)

	stored := env.store.Created()
	require.Len(t, stored, 1)
	assert.Equal(t, "Jane@Co.com", stored[0].Email)
	assert.Equal(t, domain.ProductInterest{"cnc-components"}, stored[0].ProductInterest)

	rec = env.do(t, "DELETE", base, "", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = env.do(t, "GET", base, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestIntakeSessionRejects(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "GET", "/api/v1/intake/sessions/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	id, _, err := env.sessions.Create()
	require.NoError(t, err)
	base := "/api/v1/intake/sessions/" + id

	rec = env.do(t, "POST", base+"/products", "", productToggle{Tag: "rockets", Included: true})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, "PATCH", base+"/fields", "", map[string]string{"favourite": "blue"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIntakeSessionLimit(t *testing.T) {
	env := newTestEnv(t)

	var ids []string
	for range 3 {
		rec := env.do(t, "POST", "/api/v1/intake/sessions", "", nil)
		require.Equal(t, http.StatusCreated, rec.Code)
		var created sessionBody
		decodeBody(t, rec, &created)
		ids = append(ids, created.SessionID)
	}

	rec := env.do(t, "POST", "/api/v1/intake/sessions", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, services.ErrNameUnavailable, errorName(t, rec))
	assert.Equal(t, 3, env.sessions.Len())

	rec = env.do(t, "DELETE", "/api/v1/intake/sessions/"+ids[0], "", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = env.do(t, "POST", "/api/v1/intake/sessions", "", nil)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestStaffRoutesRequireToken(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "GET", "/api/v1/triage", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, "GET", "/api/v1/triage", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	visitor := env.user(t, "visitor", false, false)
	rec = env.do(t, "GET", "/api/v1/triage", visitor, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, "GET", "/api/v1/auth/users", visitor, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestTriageBoard(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < 12; i++ {
		env.store.Seed(domain.StatusNew)
	}
	for i := 0; i < 3; i++ {
		env.store.Seed(domain.StatusCompleted)
	}
	token := env.user(t, "sam", true, false)

	rec := env.do(t, "GET", "/api/v1/triage?status=new", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var view boardBody
	decodeBody(t, rec, &view)
	assert.Len(t, view.Requests, 10)
	assert.Equal(t, 2, view.TotalPages)
	assert.Equal(t, triage.Filter("new"), view.StatusFilter)
	assert.Empty(t, view.Notices)

	rec = env.do(t, "PUT", "/api/v1/triage/page", token, pagePayload{Page: 2})
	view = boardBody{}
	decodeBody(t, rec, &view)
	assert.Equal(t, 2, view.CurrentPage)
	assert.Len(t, view.Requests, 2)
	assert.Equal(t, triage.Filter("new"), view.StatusFilter)

	rec = env.do(t, "PUT", "/api/v1/triage/filter", token, filterPayload{Status: "completed"})
	view = boardBody{}
	decodeBody(t, rec, &view)
	assert.Equal(t, 1, view.CurrentPage)
	assert.Len(t, view.Requests, 3)

	rec = env.do(t, "PUT", "/api/v1/triage/filter", token, filterPayload{Status: "archived"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, "GET", "/api/v1/triage?page=0", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTriageChangeStatus(t *testing.T) {
	env := newTestEnv(t)
	req := env.store.Seed(domain.StatusNew)
	token := env.user(t, "sam", true, false)

	rec := env.do(t, "PUT", "/api/v1/triage/requests/"+itoa(req.ID)+"/status", token, statusPayload{Status: "in-progress"})
	require.Equal(t, http.StatusOK, rec.Code)
	var view boardBody
	decodeBody(t, rec, &view)
	require.Len(t, view.Notices, 1)
	assert.Equal(t, "Request status updated to in-progress", view.Notices[0].Message)

	got, ok := env.store.Get(req.ID)
	require.True(t, ok)
	assert.Equal(t, domain.StatusInProgress, got.Status)

	rec = env.do(t, "PUT", "/api/v1/triage/requests/"+itoa(req.ID)+"/status", token, statusPayload{Status: "archived"})
	view = boardBody{}
	decodeBody(t, rec, &view)
	require.Len(t, view.Notices, 1)
	assert.Equal(t, notify.KindError, view.Notices[0].Kind)

	rec = env.do(t, "PUT", "/api/v1/triage/requests/abc/status", token, statusPayload{Status: "new"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTriageDeleteNeedsConfirmation(t *testing.T) {
	env := newTestEnv(t)
	req := env.store.Seed(domain.StatusNew)
	token := env.user(t, "sam", true, false)
	path := "/api/v1/triage/requests/" + itoa(req.ID)

	rec := env.do(t, "DELETE", path, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var view boardBody
	decodeBody(t, rec, &view)
	assert.Empty(t, view.Notices)
	assert.Zero(t, env.store.Calls("delete"))

	rec = env.do(t, "DELETE", path+"?confirm=true", token, nil)
	view = boardBody{}
	decodeBody(t, rec, &view)
	require.Len(t, view.Notices, 1)
	assert.Equal(t, "Contact request deleted successfully", view.Notices[0].Message)
	_, ok := env.store.Get(req.ID)
	assert.False(t, ok)
}

func TestGetContactRequest(t *testing.T) {
	env := newTestEnv(t)
	req := env.store.Seed(domain.StatusNew)
	token := env.user(t, "sam", true, false)

	rec := env.do(t, "GET", "/api/v1/contact-requests/"+itoa(req.ID), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got domain.ContactRequest
	decodeBody(t, rec, &got)
	assert.Equal(t, req.Email, got.Email)

	rec = env.do(t, "GET", "/api/v1/contact-requests/999", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, services.ErrNameNotFound, errorName(t, rec))
}

func TestDashboard(t *testing.T) {
	env := newTestEnv(t)
	env.store.Seed(domain.StatusNew)
	env.store.Seed(domain.StatusCompleted)
	token := env.user(t, "sam", true, false)

	rec := env.do(t, "GET", "/api/v1/dashboard", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res services.DashboardResult
	decodeBody(t, rec, &res)
	assert.Equal(t, int64(2), res.Stats.Total)
	assert.Equal(t, int64(1), res.Stats.New)
	assert.Len(t, res.Recent, 2)
}

func TestLogoutForgetsBoardAndRevokesToken(t *testing.T) {
	env := newTestEnv(t)
	token := env.user(t, "sam", true, false)

	rec := env.do(t, "GET", "/api/v1/triage", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, env.boards.Len())

	rec = env.do(t, "POST", "/api/v1/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, env.boards.Len())

	rec = env.do(t, "GET", "/api/v1/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminManagesUsers(t *testing.T) {
	env := newTestEnv(t)
	admin := env.user(t, "root", true, true)

	rec := env.do(t, "POST", "/api/v1/auth/users", admin, map[string]any{
		"username": "newstaff",
		"email":    "newstaff@example.com",
		"password": "password123",
		"is_staff": true,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created services.UserResult
	decodeBody(t, rec, &created)
	assert.True(t, created.IsActive)
	assert.True(t, created.IsStaff)

	rec = env.do(t, "GET", "/api/v1/auth/users?limit=1", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var users []services.UserResult
	decodeBody(t, rec, &users)
	assert.Len(t, users, 1)

	rec = env.do(t, "GET", "/api/v1/auth/users?skip=-1", admin, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDisabledAccountCannotLogIn(t *testing.T) {
	env := newTestEnv(t)
	admin := env.user(t, "root", true, true)

	rec := env.do(t, "POST", "/api/v1/auth/users", admin, map[string]any{
		"username":  "paused",
		"email":     "paused@example.com",
		"password":  "password123",
		"is_staff":  true,
		"is_active": false,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created services.UserResult
	decodeBody(t, rec, &created)
	assert.False(t, created.IsActive)

	rec = env.do(t, "POST", "/api/v1/auth/login", "", map[string]string{"username": "paused", "password": "password123"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) })
	cors := config.CORSConfig{
		AllowedOrigins: []string{"https://precisionworks.example"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Authorization"},
		MaxAge:         60,
	}
	h := SecurityHeaders(config.AppConfig{})(CORS(cors, false)(RequestLogging(ok)))

	t.Run("allowed origin", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/catalog", nil)
		req.Header.Set("Origin", "https://precisionworks.example")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusTeapot, rec.Code)
		assert.Equal(t, "https://precisionworks.example", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
		assert.Equal(t, "60", rec.Header().Get("Access-Control-Max-Age"))
	})

	t.Run("foreign origin", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/catalog", nil)
		req.Header.Set("Origin", "https://evil.example")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("preflight", func(t *testing.T) {
		req := httptest.NewRequest("OPTIONS", "/api/v1/contact/submit", nil)
		req.Header.Set("Origin", "https://precisionworks.example")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "GET, POST", rec.Header().Get("Access-Control-Allow-Methods"))
	})

	t.Run("allowed origin with credentials", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/catalog", nil)
		req.Header.Set("Origin", "https://precisionworks.example")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
		assert.Equal(t, "Origin", rec.Header().Get("Vary"))
	})
}

func TestCORSWildcardOmitsCredentials(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

	cases := []struct {
		name  string
		cors  config.CORSConfig
		debug bool
	}{
		{"debug", config.CORSConfig{AllowedOrigins: []string{"https://precisionworks.example"}}, true},
		{"wildcard", config.CORSConfig{AllowedOrigins: []string{"*"}}, false},
		{"empty list", config.CORSConfig{}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/v1/catalog", nil)
			req.Header.Set("Origin", "https://evil.example")
			rec := httptest.NewRecorder()
			CORS(tc.cors, tc.debug)(ok).ServeHTTP(rec, req)

			assert.Equal(t, http.StatusNoContent, rec.Code)
			assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
			assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))
		})
	}

	t.Run("listed origin in debug keeps credentials", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/catalog", nil)
		req.Header.Set("Origin", "https://precisionworks.example")
		rec := httptest.NewRecorder()
		CORS(cases[0].cors, true)(ok).ServeHTTP(rec, req)

		assert.Equal(t, "https://precisionworks.example", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	})
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
