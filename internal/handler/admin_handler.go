package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ShowDashboard 渲染后台主面板
func (a *API) ShowDashboard(c *gin.Context) {
	counts, err := a.portfolios.Counts(c.Request.Context())
	if err != nil {
		c.Error(err) // 统计失败不影响面板展示
	}

	a.renderHTML(c, http.StatusOK, "dashboard.html", gin.H{
		"title":  "Dashboard",
		"counts": counts,
	})
}
