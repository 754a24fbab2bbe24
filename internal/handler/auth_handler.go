package handler

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/kaedefolio/internal/auth"
	"go.uber.org/zap"
)

const (
	sessionTokenKey   = "auth_token"
	contextSessionKey = "auth_session"
)

func currentSession(c *gin.Context) *auth.Session {
	value, ok := c.Get(contextSessionKey)
	if !ok {
		return nil
	}
	current, _ := value.(*auth.Session)
	return current
}

func sessionToken(c *gin.Context) string {
	if !hasSession(c) {
		return ""
	}
	token, _ := sessions.Default(c).Get(sessionTokenKey).(string)
	return token
}

func clearSessionToken(c *gin.Context) {
	session := sessions.Default(c)
	session.Delete(sessionTokenKey)
	_ = session.Save()
}

// SessionGuard 拦截未登录请求并重定向到登录页，已登录时把会话写入上下文。
func (a *API) SessionGuard() gin.HandlerFunc {
	return func(c *gin.Context) {
		current, err := a.auth.GetSession(c.Request.Context(), sessionToken(c))
		if err != nil {
			if !errors.Is(err, auth.ErrSessionNotFound) {
				a.logger.Error("failed to load session", zap.Error(err))
			}
			clearSessionToken(c)
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}

		c.Set(contextSessionKey, current)
		c.Next()
	}
}

// ShowLoginPage 渲染登录页面
func (a *API) ShowLoginPage(c *gin.Context) {
	if token := sessionToken(c); token != "" {
		if _, err := a.auth.GetSession(c.Request.Context(), token); err == nil {
			c.Redirect(http.StatusFound, "/dashboard")
			return
		}
	}

	a.renderHTML(c, http.StatusOK, "login.html", gin.H{
		"title": "Admin Login",
	})
}

// Login 处理邮箱密码登录
func (a *API) Login(c *gin.Context) {
	email := strings.TrimSpace(c.PostForm("email"))
	password := c.PostForm("password")

	current, err := a.auth.SignInWithPassword(c.Request.Context(), email, password)
	if err != nil {
		status := http.StatusUnauthorized
		message := err.Error()
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			a.logger.Error("login failed", zap.Error(err))
			status = http.StatusInternalServerError
			message = "An unexpected error occurred during login."
		}
		a.renderHTML(c, status, "login.html", gin.H{
			"title": "Admin Login",
			"email": email,
			"error": message,
		})
		return
	}

	session := sessions.Default(c)
	session.Set(sessionTokenKey, current.Token)
	if err := session.Save(); err != nil {
		a.logger.Error("failed to save session cookie", zap.Error(err))
		a.renderHTML(c, http.StatusInternalServerError, "login.html", gin.H{
			"title": "Admin Login",
			"email": email,
			"error": "Failed to save session.",
		})
		return
	}

	c.Redirect(http.StatusFound, "/dashboard")
}

// Logout 结束当前会话；scope=global 时结束该用户的全部会话。
func (a *API) Logout(c *gin.Context) {
	ctx := c.Request.Context()
	token := sessionToken(c)

	if token != "" {
		if c.PostForm("scope") == "global" {
			current, err := a.auth.GetSession(ctx, token)
			if err == nil {
				err = a.auth.SignOutAll(ctx, current.UserID)
			}
			if err != nil && !errors.Is(err, auth.ErrSessionNotFound) {
				a.logger.Error("error logging out", zap.Error(err))
			}
		} else if err := a.auth.SignOut(ctx, token); err != nil {
			a.logger.Error("error logging out", zap.Error(err))
		}
	}

	clearSessionToken(c)
	c.Redirect(http.StatusFound, "/login")
}

// SessionEvents streams auth state changes for the current session as
// server-sent events. The stream ends once the session is signed out.
func (a *API) SessionEvents(c *gin.Context) {
	current := currentSession(c)
	if current == nil {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	events, unsubscribe := a.auth.Subscribe()
	defer unsubscribe()

	ticker := time.NewTicker(a.opts.KeepAlive)
	defer ticker.Stop()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	c.SSEvent("ready", gin.H{"email": current.Email})
	c.Writer.Flush()

	ctx := c.Request.Context()
	c.Stream(func(io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
			c.SSEvent("ping", a.now().Unix())
			return true
		case ev, ok := <-events:
			if !ok {
				return false
			}
			if ev.Token != current.Token {
				return true
			}
			switch ev.Kind {
			case auth.EventSignedOut:
				c.SSEvent("signed_out", gin.H{"redirect": "/login"})
				return false
			default:
				return true
			}
		}
	})
}
