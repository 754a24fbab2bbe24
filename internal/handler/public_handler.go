package handler

import (
	"bytes"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kaedefolio/internal/db"
	"github.com/kaedefolio/internal/service"
	"github.com/kaedefolio/internal/view"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	markdownEngine = goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Linkify, extension.Table),
		goldmark.WithRendererOptions(html.WithHardWraps(), html.WithXHTML()),
	)
	sanitizer = bluemonday.UGCPolicy()
)

const fetchErrorMessage = "Failed to fetch portfolio items."

// siteCommitments 是首页“サイト構築のこだわり”轮播的固定文案。
var siteCommitments = []view.Slide{
	{
		Title:       "パフォーマンスとUX",
		Description: "Go と gin によるサーバーサイドレンダリングで、軽快な表示と快適なユーザー体験を目指しました。レスポンシブデザインにも配慮し、どのデバイスからでも見やすいサイトを心がけています。",
		Icon:        "gauge",
	},
	{
		Title:       "デザインの一貫性と開発効率",
		Description: "共通レイアウトとユーティリティクラスを組み合わせることで、サイト全体のデザインの一貫性を保ちつつ、迅速なUI開発を実現しました。",
		Icon:        "palette",
	},
	{
		Title:       "動的なコンテンツ管理",
		Description: "ポートフォリオの実績を柔軟に追加・編集できるよう、認証機能を備えた管理画面を構築しました。常に最新の情報をサイトに反映できます。",
		Icon:        "database-zap",
	},
	{
		Title:       "コード品質への追求",
		Description: "静的型付けとテストでエラーを早期に抑え、意味のあるパッケージ分割と命名で、将来のメンテナンスや機能追加が容易なコードベースを目指しました。",
		Icon:        "shield-check",
	},
}

// workResponse is the JSON shape of a published item.
type workResponse struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Description      *string   `json:"description"`
	ThumbnailURL     *string   `json:"thumbnail_url"`
	Technologies     []string  `json:"technologies"`
	Category         *string   `json:"category"`
	RolesResponsible []string  `json:"roles_responsible"`
	DemoURL          *string   `json:"demo_url"`
	GithubURL        *string   `json:"github_url"`
	SortOrder        int       `json:"sort_order"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func newWorkResponse(item db.Portfolio) workResponse {
	return workResponse{
		ID:               item.ID,
		Title:            item.Title,
		Description:      item.Description,
		ThumbnailURL:     item.ThumbnailURL,
		Technologies:     item.Technologies,
		Category:         item.Category,
		RolesResponsible: item.RolesResponsible,
		DemoURL:          item.DemoURL,
		GithubURL:        item.GithubURL,
		SortOrder:        item.SortOrder,
		CreatedAt:        item.CreatedAt,
		UpdatedAt:        item.UpdatedAt,
	}
}

// ShowHome renders the landing page with the latest published works.
func (a *API) ShowHome(c *gin.Context) {
	carousel := view.NewCarousel(siteCommitments, parseNonNegativeInt(c.Query("slide"), 0))

	data := gin.H{
		"title":         "Home",
		"carousel":      carousel,
		"contactAction": a.opts.ContactFormAction,
	}

	items, err := a.portfolios.ListPublished(c.Request.Context(), service.HomePreviewLimit)
	if err != nil {
		c.Error(err)
		data["error"] = fetchErrorMessage
		a.renderHTML(c, http.StatusInternalServerError, "home.html", data)
		return
	}

	data["items"] = items
	a.renderHTML(c, http.StatusOK, "home.html", data)
}

// ShowWorks lists every published work.
func (a *API) ShowWorks(c *gin.Context) {
	items, err := a.portfolios.ListPublished(c.Request.Context(), 0)
	if err != nil {
		c.Error(err)
		a.renderHTML(c, http.StatusInternalServerError, "works.html", gin.H{
			"title": "Works",
			"error": fetchErrorMessage,
		})
		return
	}

	a.renderHTML(c, http.StatusOK, "works.html", gin.H{
		"title": "Works",
		"items": items,
	})
}

// ShowWorkDetail renders a published work; drafts are not found.
func (a *API) ShowWorkDetail(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		a.renderNotFound(c)
		return
	}

	item, err := a.portfolios.GetPublished(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrPortfolioNotFound) {
			a.renderNotFound(c)
			return
		}
		c.Error(err)
		a.renderHTML(c, http.StatusInternalServerError, "work_detail.html", gin.H{
			"title": "Works",
			"error": "Failed to fetch portfolio item.",
		})
		return
	}

	description, err := renderMarkdown(deref(item.Description))
	if err != nil {
		c.Error(err)
		a.renderHTML(c, http.StatusInternalServerError, "work_detail.html", gin.H{
			"title": item.Title,
			"error": "Failed to render description.",
		})
		return
	}

	a.renderHTML(c, http.StatusOK, "work_detail.html", gin.H{
		"title":       item.Title,
		"item":        item,
		"description": description,
	})
}

// ListWorksJSON returns published works as JSON.
func (a *API) ListWorksJSON(c *gin.Context) {
	items, err := a.portfolios.ListPublishedDetails(c.Request.Context())
	if err != nil {
		c.Error(err)
		respondError(c, http.StatusInternalServerError, fetchErrorMessage)
		return
	}

	works := make([]workResponse, 0, len(items))
	for _, item := range items {
		works = append(works, newWorkResponse(item))
	}
	c.JSON(http.StatusOK, gin.H{"works": works})
}

// GetWorkJSON returns one published work as JSON.
func (a *API) GetWorkJSON(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		respondError(c, http.StatusNotFound, "portfolio item not found")
		return
	}

	item, err := a.portfolios.GetPublished(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrPortfolioNotFound) {
			respondError(c, http.StatusNotFound, err.Error())
			return
		}
		c.Error(err)
		respondError(c, http.StatusInternalServerError, "Failed to fetch portfolio item.")
		return
	}

	c.JSON(http.StatusOK, newWorkResponse(*item))
}

// ListWorkPaths enumerates published ids for pre-rendering.
func (a *API) ListWorkPaths(c *gin.Context) {
	ids, err := a.portfolios.PublishedIDs(c.Request.Context())
	if err != nil {
		c.Error(err)
		respondError(c, http.StatusInternalServerError, fetchErrorMessage)
		return
	}

	paths := make([]gin.H, 0, len(ids))
	for _, id := range ids {
		paths = append(paths, gin.H{"id": id})
	}
	c.JSON(http.StatusOK, gin.H{"paths": paths})
}

func renderMarkdown(content string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := markdownEngine.Convert([]byte(content), &buf); err != nil {
		return "", err
	}
	safe := sanitizer.SanitizeBytes(buf.Bytes())
	return template.HTML(safe), nil
}
