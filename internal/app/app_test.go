package app

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoArmGo/ModuleHub/internal/auth"
	"github.com/GoArmGo/ModuleHub/internal/config"
	"github.com/GoArmGo/ModuleHub/internal/domain"
	"github.com/GoArmGo/ModuleHub/internal/logger"
	"github.com/GoArmGo/ModuleHub/internal/messaging/payloads"
	"github.com/GoArmGo/ModuleHub/internal/metrics"
	"github.com/GoArmGo/ModuleHub/internal/usecase"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type fakeModules struct {
	listUser int64
	cleaned  []string
}

func (f *fakeModules) Upload(context.Context, int64, string, io.Reader) (*usecase.UploadResult, error) {
	return nil, usecase.Err(usecase.KindInvalidInput, "нет файла")
}

func (f *fakeModules) List(_ context.Context, userID int64) ([]domain.ModuleView, error) {
	f.listUser = userID
	return []domain.ModuleView{}, nil
}

func (f *fakeModules) Delete(context.Context, int64, string) error { return nil }

func (f *fakeModules) Reconcile(context.Context) (*usecase.ReconcileReport, error) {
	return &usecase.ReconcileReport{}, nil
}

func (f *fakeModules) Cleanup(_ context.Context, p payloads.ModuleCleanupPayload) error {
	f.cleaned = append(f.cleaned, p.Folder)
	return nil
}

type fakeAuth struct{ userID int64 }

func (f *fakeAuth) Register(_ context.Context, email, _ string) (*domain.User, error) {
	return &domain.User{ID: f.userID, Email: email}, nil
}

func (f *fakeAuth) Login(context.Context, string, string) (int64, error) {
	return f.userID, nil
}

type memSessions struct {
	revoked map[string]time.Time
}

func newMemSessions() *memSessions {
	return &memSessions{revoked: make(map[string]time.Time)}
}

func (m *memSessions) RevokeSession(_ context.Context, id string, exp time.Time) error {
	m.revoked[id] = exp
	return nil
}

func (m *memSessions) IsSessionRevoked(_ context.Context, id string) (bool, error) {
	_, ok := m.revoked[id]
	return ok, nil
}

func (m *memSessions) PurgeRevokedSessions(context.Context, time.Time) (int64, error) {
	return 0, nil
}

type okPinger struct{}

func (okPinger) Ping(context.Context) error { return nil }

type fakeConsumer struct {
	jobs []payloads.ModuleCleanupPayload
}

func (f *fakeConsumer) StartConsumingModuleCleanup(ctx context.Context, handler func(context.Context, payloads.ModuleCleanupPayload) error) error {
	for _, j := range f.jobs {
		if err := handler(ctx, j); err != nil {
			return err
		}
	}
	return nil
}

func testComponents(t *testing.T) (Components, *fakeModules) {
	t.Helper()
	modules := &fakeModules{}
	cfg := &config.Config{
		ServerPort:     "0",
		ModulesDir:     t.TempDir(),
		MaxUploadBytes: 1 << 20,
		RequestTimeout: time.Minute,
		AuthRatePerSec: 1,
		AuthRateBurst:  10,
	}
	return Components{
		Config:        cfg,
		Logger:        logger.Nop(),
		ModuleUseCase: modules,
		AuthUseCase:   &fakeAuth{userID: 7},
		Sessions:      auth.NewSessionManager(testSecret, time.Hour, false, newMemSessions()),
		Health:        okPinger{},
		Metrics:       metrics.New(),
	}, modules
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func loginForm() *http.Request {
	form := url.Values{"email": {"a@b.c"}, "password": {"secret1"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestRouter_PublicRoutes(t *testing.T) {
	c, _ := testComponents(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := newRouter(ctx, c)

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	for _, p := range []string{"/login", "/register", "/healthz", "/metrics"} {
		rec = serve(h, httptest.NewRequest(http.MethodGet, p, nil))
		assert.Equal(t, http.StatusOK, rec.Code, p)
	}

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/modules/nothing/story.html", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_ProtectedRoutesRedirectAnonymous(t *testing.T) {
	c, _ := testComponents(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := newRouter(ctx, c)

	reqs := []*http.Request{
		httptest.NewRequest(http.MethodGet, "/dashboard", nil),
		httptest.NewRequest(http.MethodGet, "/list", nil),
		httptest.NewRequest(http.MethodPost, "/upload", nil),
		httptest.NewRequest(http.MethodPost, "/delete", nil),
	}
	for _, req := range reqs {
		rec := serve(h, req)
		assert.Equal(t, http.StatusSeeOther, rec.Code, req.URL.Path)
		assert.Equal(t, "/login", rec.Header().Get("Location"), req.URL.Path)
	}
}

func TestRouter_LoginThenList(t *testing.T) {
	c, modules := testComponents(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := newRouter(ctx, c)

	rec := serve(h, loginForm())
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))

	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)

	req := httptest.NewRequest(http.MethodGet, "/list", nil)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec = serve(h, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
	assert.EqualValues(t, 7, modules.listUser)
}

func TestRouter_LogoutEndsSession(t *testing.T) {
	c, _ := testComponents(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := newRouter(ctx, c)

	rec := serve(h, loginForm())
	require.Equal(t, http.StatusSeeOther, rec.Code)
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)

	withCookies := func(method, path string) *http.Request {
		req := httptest.NewRequest(method, path, nil)
		for _, ck := range cookies {
			req.AddCookie(ck)
		}
		return req
	}

	require.Equal(t, http.StatusOK, serve(h, withCookies(http.MethodGet, "/list")).Code)

	rec = serve(h, withCookies(http.MethodGet, "/logout"))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	// сохранённая до выхода cookie больше не открывает сессию
	rec = serve(h, withCookies(http.MethodGet, "/list"))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestRouter_AuthRateLimited(t *testing.T) {
	c, _ := testComponents(t)
	c.Config.AuthRatePerSec = 0.001
	c.Config.AuthRateBurst = 1
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := newRouter(ctx, c)

	assert.Equal(t, http.StatusSeeOther, serve(h, loginForm()).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(h, loginForm()).Code)
}

func TestRouter_WithoutMetrics(t *testing.T) {
	c, _ := testComponents(t)
	c.Metrics = nil
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := newRouter(ctx, c)

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRunWorker_ProcessesJobs(t *testing.T) {
	c, modules := testComponents(t)
	c.CleanupConsumer = &fakeConsumer{jobs: []payloads.ModuleCleanupPayload{{Folder: "f1"}, {Folder: "f2"}}}
	a := NewApp(c)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, runWorker(ctx, a))
	assert.Equal(t, []string{"f1", "f2"}, modules.cleaned)
}

func TestRunWorker_RequiresQueue(t *testing.T) {
	c, _ := testComponents(t)
	a := NewApp(c)

	err := runWorker(context.Background(), a)
	require.Error(t, err)
}

func TestRun_UnknownModeClosesResources(t *testing.T) {
	c, _ := testComponents(t)
	var closed []string
	c.Closers = []func() error{
		func() error { closed = append(closed, "db"); return nil },
		func() error { closed = append(closed, "queue"); return errors.New("boom") },
	}
	a := NewApp(c)

	mode := "batch"
	err := a.Run(context.Background(), &mode)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch")
	assert.Equal(t, []string{"queue", "db"}, closed)

	// повторный Shutdown ничего не закрывает
	require.NoError(t, a.Shutdown())
}
