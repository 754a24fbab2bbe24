package handler

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
	"github.com/kaedefolio/internal/auth"
	"github.com/kaedefolio/internal/db"
	"github.com/kaedefolio/internal/service"
	"github.com/kaedefolio/internal/storage"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	testEmail    = "kaede@example.com"
	testPassword = "correct-horse"
)

type stubHTMLRender struct {
	mu   sync.Mutex
	name string
	data gin.H
}

type stubHTMLInstance struct {
	name string
	data interface{}
}

func (r *stubHTMLRender) Instance(name string, data interface{}) render.Render {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.name = name
	r.data, _ = data.(gin.H)
	return &stubHTMLInstance{name: name, data: data}
}

func (r *stubHTMLRender) last() (string, gin.H) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.name, r.data
}

func (r *stubHTMLInstance) Render(http.ResponseWriter) error {
	return nil
}

func (r *stubHTMLInstance) WriteContentType(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
}

type handlerEnv struct {
	t          *testing.T
	router     *gin.Engine
	render     *stubHTMLRender
	db         *gorm.DB
	portfolios *service.PortfolioService
	auth       *auth.Service
	jar        http.CookieJar
}

func setupHandlerTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:handler-%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}
	if _, err := db.EnsureUser(gdb, testEmail, testPassword); err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return gdb
}

func registerTestRoutes(r *gin.Engine, api *API) {
	r.GET("/login", api.ShowLoginPage)
	r.POST("/login", api.Login)
	r.POST("/logout", api.Logout)

	r.GET("/", api.ShowHome)
	r.GET("/works", api.ShowWorks)
	r.GET("/works/:id", api.ShowWorkDetail)
	r.GET("/api/works", api.ListWorksJSON)
	r.GET("/api/works/paths", api.ListWorkPaths)
	r.GET("/api/works/:id", api.GetWorkJSON)

	admin := r.Group("")
	admin.Use(api.SessionGuard())
	admin.GET("/dashboard", api.ShowDashboard)
	admin.GET("/portfolios", api.ShowPortfolioList)
	admin.GET("/portfolios/new", api.ShowPortfolioNew)
	admin.POST("/portfolios", api.CreatePortfolio)
	admin.GET("/portfolios/edit/:id", api.ShowPortfolioEdit)
	admin.POST("/portfolios/edit/:id", api.UpdatePortfolio)
	admin.GET("/portfolios/:id", api.ShowPortfolioDetail)
	admin.POST("/portfolios/:id/delete", api.DeletePortfolio)
	r.NoRoute(api.NotFound)
}

func newHandlerEnv(t *testing.T, wrap func(PortfolioStore) PortfolioStore) *handlerEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gdb := setupHandlerTestDB(t)
	bucket, err := storage.NewLocalBucket(storage.Config{
		Bucket:   "portfolio-thumbnails",
		BasePath: t.TempDir(),
		BaseURL:  "http://kaede.test",
	})
	if err != nil {
		t.Fatalf("failed to create bucket: %v", err)
	}

	portfolios := service.NewPortfolioService(gdb, bucket, nil, 0)
	authService := auth.NewService(gdb, time.Hour, nil)
	t.Cleanup(authService.Close)

	var store PortfolioStore = portfolios
	if wrap != nil {
		store = wrap(store)
	}
	api := NewAPI(store, authService, nil, Options{ContactFormAction: "https://forms.example.com/f/test"})

	renderer := &stubHTMLRender{}
	r := gin.New()
	r.HTMLRender = renderer
	sessionStore := cookie.NewStore([]byte("test-secret"))
	sessionStore.Options(sessions.Options{Path: "/", MaxAge: 3600, HttpOnly: true})
	r.Use(sessions.Sessions("kaedefolio_session", sessionStore))
	registerTestRoutes(r, api)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("failed to create cookie jar: %v", err)
	}

	return &handlerEnv{
		t:          t,
		router:     r,
		render:     renderer,
		db:         gdb,
		portfolios: portfolios,
		auth:       authService,
		jar:        jar,
	}
}

var testBaseURL, _ = url.Parse("http://kaede.test/")

func (e *handlerEnv) do(req *http.Request) *httptest.ResponseRecorder {
	e.t.Helper()
	for _, c := range e.jar.Cookies(testBaseURL) {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	e.jar.SetCookies(testBaseURL, rr.Result().Cookies())
	return rr
}

func (e *handlerEnv) get(path string) *httptest.ResponseRecorder {
	return e.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (e *handlerEnv) postForm(path string, values url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return e.do(req)
}

func (e *handlerEnv) postMultipart(path string, values url.Values, fileName string, file []byte) *httptest.ResponseRecorder {
	e.t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for key, list := range values {
		for _, value := range list {
			if err := writer.WriteField(key, value); err != nil {
				e.t.Fatalf("failed to write field: %v", err)
			}
		}
	}
	if fileName != "" {
		part, err := writer.CreateFormFile(thumbnailField, fileName)
		if err != nil {
			e.t.Fatalf("failed to create file part: %v", err)
		}
		if _, err := io.Copy(part, bytes.NewReader(file)); err != nil {
			e.t.Fatalf("failed to write file part: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		e.t.Fatalf("failed to close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return e.do(req)
}

func (e *handlerEnv) login() {
	e.t.Helper()
	rr := e.postForm("/login", url.Values{"email": {testEmail}, "password": {testPassword}})
	if rr.Code != http.StatusFound || rr.Header().Get("Location") != "/dashboard" {
		e.t.Fatalf("expected login redirect to /dashboard, got %d %q", rr.Code, rr.Header().Get("Location"))
	}
}

func (e *handlerEnv) create(input service.PortfolioInput) *db.Portfolio {
	e.t.Helper()
	item, err := e.portfolios.Create(context.Background(), input)
	if err != nil {
		e.t.Fatalf("failed to create portfolio item: %v", err)
	}
	return item
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}

func TestDashboardRedirectsWithoutSession(t *testing.T) {
	env := newHandlerEnv(t, nil)

	rr := env.get("/dashboard")
	if rr.Code != http.StatusFound {
		t.Fatalf("expected status %d, got %d", http.StatusFound, rr.Code)
	}
	if location := rr.Header().Get("Location"); location != "/login" {
		t.Fatalf("expected redirect to /login, got %q", location)
	}
}

func TestShowDashboardCounts(t *testing.T) {
	env := newHandlerEnv(t, nil)
	env.create(service.PortfolioInput{Title: "Published", IsPublished: true})
	env.create(service.PortfolioInput{Title: "Draft"})
	env.login()

	rr := env.get("/dashboard")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}

	name, data := env.render.last()
	if name != "dashboard.html" {
		t.Fatalf("expected dashboard.html, got %q", name)
	}
	counts, ok := data["counts"].(service.PortfolioCounts)
	if !ok {
		t.Fatalf("expected counts in template data, got %T", data["counts"])
	}
	if counts.Total != 2 || counts.Published != 1 || counts.Drafts != 1 {
		t.Fatalf("unexpected counts %+v", counts)
	}
	if data["userEmail"] != testEmail {
		t.Fatalf("expected userEmail %q, got %v", testEmail, data["userEmail"])
	}
}
