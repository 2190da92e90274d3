package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/healthhub/healthhub-service/internal/api/http/handlers"
	"github.com/healthhub/healthhub-service/internal/auth"
	"github.com/healthhub/healthhub-service/internal/config"
	"github.com/healthhub/healthhub-service/internal/events"
	"github.com/healthhub/healthhub-service/internal/observability"
	"github.com/healthhub/healthhub-service/internal/repository"
	"github.com/healthhub/healthhub-service/internal/repository/memory"
	"github.com/healthhub/healthhub-service/internal/service"
)

type mailbox struct {
	mu   sync.Mutex
	data []map[string]any
}

func (m *mailbox) Send(_ context.Context, _, _, _ string, data map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = append(m.data, data)
	return nil
}

func (m *mailbox) last() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[len(m.data)-1]
}

type apiFixture struct {
	app    *fiber.App
	mail   *mailbox
	ledger *memory.Ledger
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	cfg := config.Config{
		App: config.AppConfig{Name: "healthhub-test", Version: "test", ClientURL: "http://client.test"},
		Auth: config.AuthConfig{
			JWTSecret:         "router-secret",
			AccessTokenTTL:    30 * time.Minute,
			RefreshTokenTTL:   15 * 24 * time.Hour,
			VerifyTokenTTL:    2 * time.Hour,
			ResetTokenTTL:     2 * time.Hour,
			BcryptCost:        4,
			RefreshCookieName: "refreshToken",
			CookieSecure:      true,
		},
	}
	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	subjects := repository.NewSubjectDirectory(memory.NewClinicianStore(), memory.NewPatientStore())
	programs := memory.NewProgramStore()
	ledger := memory.NewLedger()
	dispatcher := events.NewInMemoryDispatcher()
	mail := &mailbox{}
	service.NewNotificationService(dispatcher, mail, logger, cfg.App.ClientURL).RegisterHandlers()

	authService := service.NewAuthService(cfg, service.AuthDependencies{
		Subjects:   subjects,
		Ledger:     ledger,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	accounts := service.NewAccountService(cfg, subjects, logger)
	careTeam := service.NewCareTeamService(subjects, programs, logger)
	programService := service.NewProgramService(service.ProgramDependencies{
		Programs:   programs,
		Subjects:   subjects,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	authHandler := handlers.NewAuthHandler(authService, cfg.Auth)

	app := NewApp(cfg.App.Name, logger, metrics, time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, nil, metrics),
		Auth:           authHandler,
		Clinicians:     handlers.NewClinicianHandler(authService, accounts, careTeam, authHandler),
		Patients:       handlers.NewPatientHandler(authService, accounts, careTeam),
		Programs:       handlers.NewProgramHandler(programService),
		Profile:        handlers.NewProfileHandler(accounts),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), subjects),
	})
	return &apiFixture{app: app, mail: mail, ledger: ledger}
}

type callOpts struct {
	body      any
	bearer    string
	cookie    *http.Cookie
	userAgent string
}

const chromeLinuxUA = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

func (f *apiFixture) call(t *testing.T, method, path string, opts callOpts) (*http.Response, map[string]any) {
	t.Helper()

	var reader io.Reader
	if opts.body != nil {
		raw, err := json.Marshal(opts.body)
		require.NoError(t, err)
		reader = strings.NewReader(string(raw))
	}
	req := httptest.NewRequest(method, APIPrefix+path, reader)
	req.Header.Set("Content-Type", "application/json")
	ua := opts.userAgent
	if ua == "" {
		ua = chromeLinuxUA
	}
	req.Header.Set("User-Agent", ua)
	if opts.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+opts.bearer)
	}
	if opts.cookie != nil {
		req.AddCookie(opts.cookie)
	}

	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	body := map[string]any{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &body), string(raw))
	}
	return resp, body
}

func (f *apiFixture) registerDoctor(t *testing.T, email string) (string, map[string]any) {
	t.Helper()
	resp, body := f.call(t, http.MethodPost, "/doctors", callOpts{body: map[string]string{
		"email": email, "firstName": "Miranda", "lastName": "Bailey", "password": "s3cret!", "phoneNumber": "555-0101",
	}})
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	return body["accessToken"].(string), body["doctor"].(map[string]any)
}

func refreshCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == "refreshToken" {
			return c
		}
	}
	return nil
}

func TestLoginSetsRefreshCookie(t *testing.T) {
	f := newAPIFixture(t)
	f.registerDoctor(t, "bailey@example.com")

	resp, body := f.call(t, http.MethodPost, "/auth/login", callOpts{body: map[string]string{
		"email": "bailey@example.com", "password": "s3cret!", "loginAs": "doctor",
	}})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "Login successful", body["message"])
	assert.NotEmpty(t, body["accessToken"])
	user := body["user"].(map[string]any)
	assert.Equal(t, "doctor", user["role"])
	assert.NotContains(t, user, "passwordHash")

	cookie := refreshCookie(resp)
	require.NotNil(t, cookie)
	assert.Len(t, cookie.Value, 64)
	assert.True(t, cookie.HttpOnly)
	assert.True(t, cookie.Secure)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
	assert.Equal(t, int((15 * 24 * time.Hour).Seconds()), cookie.MaxAge)

	resp, body = f.call(t, http.MethodPost, "/auth/token/refresh", callOpts{cookie: cookie})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.NotEmpty(t, body["accessToken"])

	resp, body = f.call(t, http.MethodPost, "/auth/logout", callOpts{cookie: cookie})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	resp, body = f.call(t, http.MethodPost, "/auth/token/refresh", callOpts{cookie: cookie})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "REFRESH_TOKEN_INVALID", body["code"])
}

func TestLoginErrors(t *testing.T) {
	f := newAPIFixture(t)
	f.registerDoctor(t, "bailey@example.com")

	cases := []struct {
		body   map[string]string
		status int
		msg    string
	}{
		{map[string]string{"email": "bailey@example.com"}, http.StatusBadRequest, "Email and password are required"},
		{map[string]string{"email": "bailey@example.com", "password": "x", "loginAs": "nurse"}, http.StatusBadRequest, "Can only login as doctor or patient"},
		{map[string]string{"email": "ghost@example.com", "password": "x", "loginAs": "doctor"}, http.StatusNotFound, "no user with such email"},
		{map[string]string{"email": "bailey@example.com", "password": "wrong", "loginAs": "doctor"}, http.StatusUnauthorized, "invalid username or password"},
	}
	for _, tc := range cases {
		resp, body := f.call(t, http.MethodPost, "/auth/login", callOpts{body: tc.body})
		assert.Equal(t, tc.status, resp.StatusCode, tc.msg)
		assert.Equal(t, tc.msg, body["error"])
		assert.Equal(t, tc.msg, body["message"])
		assert.Nil(t, refreshCookie(resp))
	}
}

func TestRefreshWithoutCookie(t *testing.T) {
	f := newAPIFixture(t)
	resp, body := f.call(t, http.MethodPost, "/auth/token/refresh", callOpts{})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "REFRESH_TOKEN_MISSING", body["code"])
	assert.Equal(t, "Refresh token required", body["error"])
}

func TestProtectedRoutes(t *testing.T) {
	f := newAPIFixture(t)
	doctorToken, _ := f.registerDoctor(t, "bailey@example.com")

	resp, body := f.call(t, http.MethodGet, "/profile", callOpts{})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "TOKEN_MISSING", body["code"])

	resp, body = f.call(t, http.MethodGet, "/profile", callOpts{bearer: "garbage"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "TOKEN_INVALID", body["code"])

	resp, body = f.call(t, http.MethodGet, "/profile", callOpts{bearer: doctorToken})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "bailey@example.com", body["user"].(map[string]any)["email"])

	resp, body = f.call(t, http.MethodPost, "/patients", callOpts{bearer: doctorToken, body: map[string]string{
		"email": "pat@example.com", "firstName": "Pat", "lastName": "Doe", "phoneNumber": "555-0102",
		"dateOfBirth": "1988-01-31", "gender": "male",
	}})
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	patient := body["patient"].(map[string]any)
	assert.Equal(t, "1988-01-31", patient["dateOfBirth"])

	temp := f.mail.last()["tempPassword"].(string)
	resp, body = f.call(t, http.MethodPost, "/auth/login", callOpts{body: map[string]string{
		"email": "pat@example.com", "password": temp, "loginAs": "patient",
	}})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	patientToken := body["accessToken"].(string)

	resp, body = f.call(t, http.MethodPost, "/patients", callOpts{bearer: patientToken, body: map[string]string{"email": "x@example.com"}})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "Not authorized to access this resource", body["error"])

	resp, body = f.call(t, http.MethodPost, "/patients/"+patient["id"].(string)+"/password", callOpts{bearer: patientToken, body: map[string]string{
		"currentPassword": temp, "newPassword": "mine-now",
	}})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)

	resp, body = f.call(t, http.MethodDelete, "/patients/"+patient["id"].(string), callOpts{bearer: doctorToken})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)

	resp, body = f.call(t, http.MethodGet, "/profile", callOpts{bearer: patientToken})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "ACCOUNT_DEACTIVATED", body["code"])
}

func TestVerifyAccountEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	_, doctor := f.registerDoctor(t, "bailey@example.com")

	link, err := url.Parse(f.mail.last()["verificationLink"].(string))
	require.NoError(t, err)
	token := link.Query().Get("token")
	path := "/auth/verify/" + doctor["id"].(string) + "?token=" + token

	resp, body := f.call(t, http.MethodGet, path, callOpts{})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "Miranda", body["name"])

	resp, body = f.call(t, http.MethodGet, path, callOpts{})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Invalid token", body["error"])
}

func TestPasswordResetEndpoints(t *testing.T) {
	f := newAPIFixture(t)
	_, doctor := f.registerDoctor(t, "bailey@example.com")
	id := doctor["id"].(string)

	resp, body := f.call(t, http.MethodPost, "/auth/password/forgot", callOpts{body: map[string]string{
		"email": "bailey@example.com", "accountType": "doctor",
	}})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "Reset instructions have been sent to your email", body["message"])

	link, err := url.Parse(f.mail.last()["resetLink"].(string))
	require.NoError(t, err)
	assert.Equal(t, "/auth/reset/"+id, link.Path)
	token := link.Query().Get("token")

	resp, body = f.call(t, http.MethodGet, "/auth/password/"+id+"?token="+token, callOpts{})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "password change allowed", body["message"])
	assert.Equal(t, "Miranda", body["userName"])

	resetPath := "/auth/password/" + id + "/reset?token=" + token
	resp, body = f.call(t, http.MethodPost, resetPath, callOpts{body: map[string]string{}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "New Password is required", body["error"])

	resp, body = f.call(t, http.MethodPost, resetPath, callOpts{body: map[string]string{"password": "brand-new"}})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.True(t, strings.HasPrefix(f.mail.last()["resetDevice"].(string), "Chrome on Linux"))

	resp, body = f.call(t, http.MethodPost, resetPath, callOpts{body: map[string]string{"password": "again"}})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "token not found or has expired", body["error"])

	resp, _ = f.call(t, http.MethodPost, "/auth/login", callOpts{body: map[string]string{
		"email": "bailey@example.com", "password": "brand-new", "loginAs": "doctor",
	}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestStatusAndUnknownRoutes(t *testing.T) {
	f := newAPIFixture(t)

	resp, body := f.call(t, http.MethodGet, "/status/ready", callOpts{})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ready", body["status"])

	resp, body = f.call(t, http.MethodGet, "/nope", callOpts{})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", body["code"])

	resp, body = f.call(t, http.MethodGet, "/status/metrics", callOpts{})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, body["requests"])
}
