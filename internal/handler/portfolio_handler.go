package handler

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kaedefolio/internal/db"
	"github.com/kaedefolio/internal/imaging"
	"github.com/kaedefolio/internal/service"
	"go.uber.org/zap"
)

const thumbnailField = "thumbnail_file"

var (
	errSortOrderInvalid = errors.New("sort order must be an integer")
	errThumbnailRead    = errors.New("failed to read thumbnail file")
)

// formMessages holds the inline copy shown for form level errors.
var formMessages = map[error]string{
	errSortOrderInvalid: "Sort order must be an integer.",
	errThumbnailRead:    "Failed to read thumbnail file.",
}

func formMessage(err error) string {
	for target, message := range formMessages {
		if errors.Is(err, target) {
			return message
		}
	}
	return err.Error()
}

// portfolioForm mirrors the admin form fields.
type portfolioForm struct {
	Title            string   `form:"title"`
	Description      string   `form:"description"`
	Technologies     []string `form:"technologies"`
	Category         string   `form:"category"`
	RolesResponsible []string `form:"roles_responsible"`
	DemoURL          string   `form:"demo_url"`
	GithubURL        string   `form:"github_url"`
	IsPublished      string   `form:"is_published"`
	SortOrder        string   `form:"sort_order"`
}

// portfolioFormView is what the form template renders.
type portfolioFormView struct {
	ID               string
	Title            string
	Description      string
	Technologies     map[string]bool
	Category         string
	RolesResponsible map[string]bool
	DemoURL          string
	GithubURL        string
	IsPublished      bool
	SortOrder        string
	ThumbnailURL     string
}

func (f portfolioForm) input() (service.PortfolioInput, error) {
	sortOrder := 0
	if raw := strings.TrimSpace(f.SortOrder); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return service.PortfolioInput{}, errSortOrderInvalid
		}
		sortOrder = parsed
	}

	return service.PortfolioInput{
		Title:            f.Title,
		Description:      f.Description,
		Technologies:     f.Technologies,
		Category:         f.Category,
		RolesResponsible: f.RolesResponsible,
		DemoURL:          f.DemoURL,
		GithubURL:        f.GithubURL,
		IsPublished:      parseBool(f.IsPublished),
		SortOrder:        sortOrder,
	}, nil
}

func (f portfolioForm) view(id, thumbnailURL string) portfolioFormView {
	return portfolioFormView{
		ID:               id,
		Title:            f.Title,
		Description:      f.Description,
		Technologies:     selectedSet(f.Technologies),
		Category:         f.Category,
		RolesResponsible: selectedSet(f.RolesResponsible),
		DemoURL:          f.DemoURL,
		GithubURL:        f.GithubURL,
		IsPublished:      parseBool(f.IsPublished),
		SortOrder:        f.SortOrder,
		ThumbnailURL:     thumbnailURL,
	}
}

func viewFromItem(item *db.Portfolio) portfolioFormView {
	return portfolioFormView{
		ID:               item.ID,
		Title:            item.Title,
		Description:      deref(item.Description),
		Technologies:     selectedSet(item.Technologies),
		Category:         deref(item.Category),
		RolesResponsible: selectedSet(item.RolesResponsible),
		DemoURL:          deref(item.DemoURL),
		GithubURL:        deref(item.GithubURL),
		IsPublished:      item.IsPublished,
		SortOrder:        strconv.Itoa(item.SortOrder),
		ThumbnailURL:     deref(item.ThumbnailURL),
	}
}

// ShowPortfolioList 渲染后台作品列表
func (a *API) ShowPortfolioList(c *gin.Context) {
	items, err := a.portfolios.ListAll(c.Request.Context())
	if err != nil {
		c.Error(err)
		a.renderHTML(c, http.StatusInternalServerError, "portfolio_list.html", gin.H{
			"title": "Portfolio Management",
			"error": err.Error(),
		})
		return
	}

	a.renderHTML(c, http.StatusOK, "portfolio_list.html", gin.H{
		"title": "Portfolio Management",
		"items": items,
	})
}

// ShowPortfolioNew 渲染新建表单
func (a *API) ShowPortfolioNew(c *gin.Context) {
	a.renderForm(c, http.StatusOK, portfolioFormView{SortOrder: "0"}, "")
}

// CreatePortfolio 处理新建表单提交
func (a *API) CreatePortfolio(c *gin.Context) {
	var form portfolioForm
	if err := c.ShouldBind(&form); err != nil {
		a.renderForm(c, http.StatusBadRequest, form.view("", ""), "Invalid form submission.")
		return
	}

	input, err := form.input()
	if err != nil {
		a.renderForm(c, http.StatusBadRequest, form.view("", ""), formMessage(err))
		return
	}

	closeFile, err := attachThumbnail(c, &input)
	if err != nil {
		a.renderForm(c, http.StatusBadRequest, form.view("", ""), formMessage(err))
		return
	}
	defer closeFile()

	if _, err := a.portfolios.Create(c.Request.Context(), input); err != nil {
		status, message := a.saveFailure(err, "create")
		a.renderForm(c, status, form.view("", ""), message)
		return
	}

	addFlash(c, flashNotice, "Portfolio item created successfully!")
	c.Redirect(http.StatusFound, "/portfolios/new")
}

// ShowPortfolioEdit 渲染编辑表单
func (a *API) ShowPortfolioEdit(c *gin.Context) {
	item, ok := a.loadItem(c)
	if !ok {
		return
	}
	a.renderForm(c, http.StatusOK, viewFromItem(item), "")
}

// UpdatePortfolio 处理编辑表单提交；未选择新文件时保留原缩略图。
func (a *API) UpdatePortfolio(c *gin.Context) {
	item, ok := a.loadItem(c)
	if !ok {
		return
	}
	thumbnailURL := deref(item.ThumbnailURL)

	var form portfolioForm
	if err := c.ShouldBind(&form); err != nil {
		a.renderForm(c, http.StatusBadRequest, form.view(item.ID, thumbnailURL), "Invalid form submission.")
		return
	}

	input, err := form.input()
	if err != nil {
		a.renderForm(c, http.StatusBadRequest, form.view(item.ID, thumbnailURL), formMessage(err))
		return
	}

	closeFile, err := attachThumbnail(c, &input)
	if err != nil {
		a.renderForm(c, http.StatusBadRequest, form.view(item.ID, thumbnailURL), formMessage(err))
		return
	}
	defer closeFile()

	if _, err := a.portfolios.Update(c.Request.Context(), item.ID, input); err != nil {
		if errors.Is(err, service.ErrPortfolioNotFound) {
			a.renderNotFound(c)
			return
		}
		status, message := a.saveFailure(err, "update")
		a.renderForm(c, status, form.view(item.ID, thumbnailURL), message)
		return
	}

	addFlash(c, flashNotice, "Portfolio item updated successfully!")
	c.Redirect(http.StatusFound, "/portfolios")
}

// ShowPortfolioDetail 渲染后台作品详情
func (a *API) ShowPortfolioDetail(c *gin.Context) {
	item, ok := a.loadItem(c)
	if !ok {
		return
	}
	description, err := renderMarkdown(deref(item.Description))
	if err != nil {
		c.Error(err)
	}

	a.renderHTML(c, http.StatusOK, "portfolio_detail.html", gin.H{
		"title":       item.Title,
		"item":        item,
		"description": description,
	})
}

// DeletePortfolio 删除作品：缩略图删除失败只记录日志，记录删除失败则提示错误。
func (a *API) DeletePortfolio(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		addFlash(c, flashAlert, "Error deleting item: Portfolio item not found.")
		c.Redirect(http.StatusFound, "/portfolios")
		return
	}

	if err := a.portfolios.Delete(c.Request.Context(), id); err != nil {
		if !errors.Is(err, service.ErrPortfolioNotFound) {
			a.logger.Error("error deleting portfolio item", zap.String("id", id), zap.Error(err))
		}
		addFlash(c, flashAlert, "Error deleting item: "+err.Error())
		c.Redirect(http.StatusFound, "/portfolios")
		return
	}

	addFlash(c, flashNotice, "Portfolio item deleted successfully!")
	c.Redirect(http.StatusFound, "/portfolios")
}

func (a *API) loadItem(c *gin.Context) (*db.Portfolio, bool) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		a.renderNotFound(c)
		return nil, false
	}

	item, err := a.portfolios.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrPortfolioNotFound) {
			a.renderNotFound(c)
			return nil, false
		}
		c.Error(err)
		a.renderHTML(c, http.StatusInternalServerError, "portfolio_detail.html", gin.H{
			"title": "Portfolio",
			"error": "Failed to fetch portfolio item.",
		})
		c.Abort()
		return nil, false
	}
	return item, true
}

func (a *API) renderForm(c *gin.Context, status int, form portfolioFormView, message string) {
	title := "Add New Portfolio Item"
	action := "/portfolios"
	if form.ID != "" {
		title = "Edit Portfolio Item"
		action = "/portfolios/edit/" + form.ID
	}

	a.renderHTML(c, status, "portfolio_form.html", gin.H{
		"title":           title,
		"action":          action,
		"form":            form,
		"error":           message,
		"technologyItems": service.TechnologyOptions,
		"categoryItems":   service.CategoryOptions,
		"roleItems":       service.RoleOptions,
	})
}

// saveFailure maps a service error to a status and an inline message.
func (a *API) saveFailure(err error, op string) (int, string) {
	if message, ok := validationMessage(err); ok {
		return http.StatusBadRequest, message
	}
	if errors.Is(err, imaging.ErrUnsupportedImage) {
		return http.StatusBadRequest, "Thumbnail must be a PNG, JPEG, GIF or WebP image."
	}
	a.logger.Error("failed to "+op+" portfolio item", zap.Error(err))
	if errors.Is(err, service.ErrThumbnailUpload) {
		return http.StatusBadGateway, err.Error()
	}
	return http.StatusInternalServerError, "Failed to " + op + " portfolio item: " + err.Error()
}

// attachThumbnail opens the uploaded file, if any, and sets it on input.
func attachThumbnail(c *gin.Context, input *service.PortfolioInput) (func(), error) {
	noop := func() {}

	header, err := c.FormFile(thumbnailField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return noop, nil
		}
		return noop, fmt.Errorf("%w: %v", errThumbnailRead, err)
	}
	if header.Filename == "" || header.Size == 0 {
		return noop, nil
	}

	file, err := header.Open()
	if err != nil {
		return noop, fmt.Errorf("%w: %v", errThumbnailRead, err)
	}
	input.Thumbnail = &service.ThumbnailFile{Name: header.Filename, Reader: file}
	return closer(file), nil
}

func closer(file multipart.File) func() {
	return func() { _ = file.Close() }
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "on", "1", "yes":
		return true
	default:
		return false
	}
}

func selectedSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, value := range values {
		set[value] = true
	}
	return set
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
