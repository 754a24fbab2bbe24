package router

import (
	"errors"
	"html/template"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/kaedefolio/internal/handler"
	"github.com/kaedefolio/internal/logging"
	"github.com/kaedefolio/internal/storage"
	"github.com/kaedefolio/internal/view"
	"github.com/kaedefolio/web"
	"go.uber.org/zap"
)

const sessionCookieName = "kaedefolio_session"

// Options configures the engine.
type Options struct {
	SessionSecret string
	SessionTTL    time.Duration
	SecureCookie  bool
	// StorageDir, when set, is served under the public object path of Bucket.
	StorageDir string
	Bucket     string
	Logger     *zap.Logger
}

// SetupRouter 配置 Gin 引擎和路由
func SetupRouter(api *handler.API, opts Options) (*gin.Engine, error) {
	if strings.TrimSpace(opts.SessionSecret) == "" {
		return nil, errors.New("session secret is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(logging.GinLogger(logger), logging.GinRecovery(logger))

	// 配置会话中间件
	store := cookie.NewStore([]byte(opts.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(opts.SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   opts.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(sessionCookieName, store))

	// 加载模板并添加自定义函数
	tmpl, err := web.Templates(templateFuncs())
	if err != nil {
		return nil, err
	}
	r.SetHTMLTemplate(tmpl)

	// 静态文件服务
	r.StaticFS("/static", http.FS(web.Static()))
	if opts.StorageDir != "" && opts.Bucket != "" {
		r.Static(storage.PublicPathPrefix+"/"+opts.Bucket, opts.StorageDir)
	}

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	// 公开页面
	r.GET("/", api.ShowHome)
	r.GET("/works", api.ShowWorks)
	r.GET("/works/:id", api.ShowWorkDetail)

	works := r.Group("/api/works")
	{
		works.GET("", api.ListWorksJSON)
		works.GET("/paths", api.ListWorkPaths)
		works.GET("/:id", api.GetWorkJSON)
	}

	r.GET("/login", api.ShowLoginPage)
	r.POST("/login", api.Login)
	r.POST("/logout", api.Logout)

	// 需要登录的后台路由
	admin := r.Group("")
	admin.Use(api.SessionGuard())
	{
		admin.GET("/session/events", api.SessionEvents)
		admin.GET("/dashboard", api.ShowDashboard)
		admin.GET("/portfolios", api.ShowPortfolioList)
		admin.GET("/portfolios/new", api.ShowPortfolioNew)
		admin.POST("/portfolios", api.CreatePortfolio)
		admin.GET("/portfolios/edit/:id", api.ShowPortfolioEdit)
		admin.POST("/portfolios/edit/:id", api.UpdatePortfolio)
		admin.GET("/portfolios/:id", api.ShowPortfolioDetail)
		admin.POST("/portfolios/:id/delete", api.DeletePortfolio)
	}

	r.NoRoute(api.NotFound)

	return r, nil
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"add": func(a, b int) int {
			return a + b
		},
		"truncate":   truncate,
		"deref":      deref,
		"formatDate": formatDate,
		"icon": func(key string) template.HTML {
			return template.HTML(view.IconSVG(key))
		},
	}
}

// truncate 按字符截断文本，超出部分以 "..." 结尾。
func truncate(text string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	return string(runes[:limit]) + "..."
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("2006/01/02")
}
