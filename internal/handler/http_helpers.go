package handler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const (
	flashNotice = "notice"
	flashAlert  = "alert"
)

var fieldLabels = map[string]string{
	"Title":     "Title",
	"DemoURL":   "Demo URL",
	"GithubURL": "GitHub URL",
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

// parseIDParam reports whether the path id is a well formed UUID.
func parseIDParam(c *gin.Context, key string) (string, error) {
	raw := strings.TrimSpace(c.Param(key))
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid %s", key)
	}
	return id.String(), nil
}

func parseNonNegativeInt(value string, fallback int) int {
	num, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || num < 0 {
		return fallback
	}
	return num
}

func hasSession(c *gin.Context) bool {
	_, ok := c.Get(sessions.DefaultKey)
	return ok
}

func addFlash(c *gin.Context, kind, message string) {
	if !hasSession(c) {
		return
	}
	session := sessions.Default(c)
	session.AddFlash(message, kind)
	_ = session.Save()
}

// popFlashes 读取并清除一次性提示。
func popFlashes(c *gin.Context) (notice, alert string) {
	if !hasSession(c) {
		return "", ""
	}
	session := sessions.Default(c)
	notices := session.Flashes(flashNotice)
	alerts := session.Flashes(flashAlert)
	if len(notices) == 0 && len(alerts) == 0 {
		return "", ""
	}
	_ = session.Save()
	return joinFlashes(notices), joinFlashes(alerts)
}

func joinFlashes(values []interface{}) string {
	parts := make([]string, 0, len(values))
	for _, value := range values {
		if text, ok := value.(string); ok && text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

// validationMessage turns validator errors into a single inline message.
func validationMessage(err error) (string, bool) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "", false
	}

	messages := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		label, ok := fieldLabels[fe.Field()]
		if !ok {
			label = fe.Field()
		}
		switch fe.Tag() {
		case "required":
			messages = append(messages, label+" is required.")
		case "url":
			messages = append(messages, label+" must be a valid URL.")
		default:
			messages = append(messages, label+" is invalid.")
		}
	}
	return strings.Join(messages, " "), true
}
