package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kaedefolio/internal/auth"
	"github.com/kaedefolio/internal/db"
	"github.com/kaedefolio/internal/service"
	"go.uber.org/zap"
)

// PortfolioStore is the slice of the portfolio service the handlers use.
type PortfolioStore interface {
	ListAll(ctx context.Context) ([]db.Portfolio, error)
	ListPublished(ctx context.Context, limit int) ([]db.Portfolio, error)
	ListPublishedDetails(ctx context.Context) ([]db.Portfolio, error)
	PublishedIDs(ctx context.Context) ([]string, error)
	Get(ctx context.Context, id string) (*db.Portfolio, error)
	GetPublished(ctx context.Context, id string) (*db.Portfolio, error)
	Counts(ctx context.Context) (service.PortfolioCounts, error)
	Create(ctx context.Context, input service.PortfolioInput) (*db.Portfolio, error)
	Update(ctx context.Context, id string, input service.PortfolioInput) (*db.Portfolio, error)
	Delete(ctx context.Context, id string) error
}

// SessionStore is the slice of the auth service the handlers use.
type SessionStore interface {
	SignInWithPassword(ctx context.Context, email, password string) (*auth.Session, error)
	GetSession(ctx context.Context, token string) (*auth.Session, error)
	SignOut(ctx context.Context, token string) error
	SignOutAll(ctx context.Context, userID uint) error
	Subscribe() (<-chan auth.Event, func())
}

// Options carries page level settings.
type Options struct {
	SiteName          string
	ContactFormAction string
	// KeepAlive is the interval between SSE pings; zero uses the default.
	KeepAlive time.Duration
}

// API bundles shared dependencies for HTTP handlers.
type API struct {
	portfolios PortfolioStore
	auth       SessionStore
	logger     *zap.Logger
	opts       Options
	now        func() time.Time
}

const defaultKeepAlive = 25 * time.Second

// NewAPI constructs a handler set with shared services.
func NewAPI(portfolios PortfolioStore, sessions SessionStore, logger *zap.Logger, opts Options) *API {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.SiteName == "" {
		opts.SiteName = "Kaede Portfolio"
	}
	if opts.KeepAlive <= 0 {
		opts.KeepAlive = defaultKeepAlive
	}
	return &API{
		portfolios: portfolios,
		auth:       sessions,
		logger:     logger,
		opts:       opts,
		now:        time.Now,
	}
}

// renderHTML 在渲染模板时附加站点名称、当前登录用户与一次性提示信息。
func (a *API) renderHTML(c *gin.Context, status int, template string, data gin.H) {
	payload := gin.H{}
	for key, value := range data {
		payload[key] = value
	}

	if _, exists := payload["siteName"]; !exists {
		payload["siteName"] = a.opts.SiteName
	}
	if _, exists := payload["year"]; !exists {
		payload["year"] = a.now().Year()
	}
	if _, exists := payload["userEmail"]; !exists {
		if current := currentSession(c); current != nil {
			payload["userEmail"] = current.Email
		}
	}
	if _, exists := payload["notice"]; !exists {
		notice, alert := popFlashes(c)
		payload["notice"] = notice
		if _, exists := payload["alert"]; !exists {
			payload["alert"] = alert
		}
	}

	c.HTML(status, template, payload)
}

// renderNotFound 输出 404 页面并终止后续处理。
func (a *API) renderNotFound(c *gin.Context) {
	a.renderHTML(c, http.StatusNotFound, "not_found.html", gin.H{"title": "Not Found"})
	c.Abort()
}

// NotFound is the router fallback for unknown paths.
func (a *API) NotFound(c *gin.Context) {
	a.renderNotFound(c)
}
