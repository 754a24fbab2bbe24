package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kaedefolio/internal/db"
	"github.com/kaedefolio/internal/imaging"
	"github.com/kaedefolio/internal/storage"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrPortfolioNotFound = errors.New("portfolio item not found")
	ErrThumbnailUpload   = errors.New("thumbnail upload failed")
)

// HomePreviewLimit is the number of works shown on the landing page.
const HomePreviewLimit = 3

var whitespaceRun = regexp.MustCompile(`\s+`)

// PortfolioService handles portfolio CRUD and thumbnail storage.
type PortfolioService struct {
	db            *gorm.DB
	bucket        storage.Bucket
	logger        *zap.Logger
	validate      *validator.Validate
	maxThumbWidth int
	now           func() time.Time
}

// ThumbnailFile is a newly selected image from the admin form.
type ThumbnailFile struct {
	Name   string
	Reader io.Reader
}

// PortfolioInput represents fields accepted when creating or updating an item.
// Empty strings and empty lists are stored as NULL.
type PortfolioInput struct {
	Title            string `validate:"required"`
	Description      string
	Technologies     []string
	Category         string
	RolesResponsible []string
	DemoURL          string `validate:"omitempty,url"`
	GithubURL        string `validate:"omitempty,url"`
	IsPublished      bool
	SortOrder        int
	Thumbnail        *ThumbnailFile `validate:"-"`
}

// PortfolioCounts summarises the table for the dashboard.
type PortfolioCounts struct {
	Total     int64
	Published int64
	Drafts    int64
}

// NewPortfolioService creates a PortfolioService instance.
func NewPortfolioService(gdb *gorm.DB, bucket storage.Bucket, logger *zap.Logger, maxThumbWidth int) *PortfolioService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PortfolioService{
		db:            gdb,
		bucket:        bucket,
		logger:        logger,
		validate:      validator.New(),
		maxThumbWidth: maxThumbWidth,
		now:           time.Now,
	}
}

// ListAll returns every item for the admin table.
func (s *PortfolioService) ListAll(ctx context.Context) ([]db.Portfolio, error) {
	var items []db.Portfolio
	if err := s.db.WithContext(ctx).
		Select("id", "title", "description", "is_published", "sort_order", "created_at", "thumbnail_url").
		Order("sort_order asc").Order("created_at desc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// ListPublished returns the card columns of published items; limit <= 0
// means no limit.
func (s *PortfolioService) ListPublished(ctx context.Context, limit int) ([]db.Portfolio, error) {
	query := s.publishedQuery(ctx).Select("id", "title", "description", "thumbnail_url", "category")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var items []db.Portfolio
	if err := query.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// ListPublishedDetails returns every column of every published item.
func (s *PortfolioService) ListPublishedDetails(ctx context.Context) ([]db.Portfolio, error) {
	var items []db.Portfolio
	if err := s.publishedQuery(ctx).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *PortfolioService) publishedQuery(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Where("is_published = ?", true).
		Order("sort_order asc").Order("created_at desc")
}

// PublishedIDs lists the ids of every published item, for pre-rendering.
func (s *PortfolioService) PublishedIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := s.db.WithContext(ctx).Model(&db.Portfolio{}).
		Where("is_published = ?", true).
		Order("sort_order asc").Order("created_at desc").
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// Get fetches an item by id regardless of its publish state.
func (s *PortfolioService) Get(ctx context.Context, id string) (*db.Portfolio, error) {
	return s.first(s.db.WithContext(ctx).Where("id = ?", strings.TrimSpace(id)))
}

// GetPublished fetches an item by id only if it is published.
func (s *PortfolioService) GetPublished(ctx context.Context, id string) (*db.Portfolio, error) {
	return s.first(s.db.WithContext(ctx).Where("id = ? AND is_published = ?", strings.TrimSpace(id), true))
}

// Counts returns totals by publish state.
func (s *PortfolioService) Counts(ctx context.Context) (PortfolioCounts, error) {
	var counts PortfolioCounts
	if err := s.db.WithContext(ctx).Model(&db.Portfolio{}).Count(&counts.Total).Error; err != nil {
		return counts, err
	}
	if err := s.db.WithContext(ctx).Model(&db.Portfolio{}).
		Where("is_published = ?", true).
		Count(&counts.Published).Error; err != nil {
		return counts, err
	}
	counts.Drafts = counts.Total - counts.Published
	return counts, nil
}

// Create uploads the thumbnail, if any, then inserts the record.
// An upload failure aborts before anything is written to the database.
func (s *PortfolioService) Create(ctx context.Context, input PortfolioInput) (*db.Portfolio, error) {
	if err := s.validateInput(input); err != nil {
		return nil, err
	}

	var thumbnailURL *string
	uploaded := ""
	if input.Thumbnail != nil {
		name, url, err := s.uploadThumbnail(ctx, *input.Thumbnail)
		if err != nil {
			return nil, err
		}
		uploaded = name
		thumbnailURL = &url
	}

	item := db.Portfolio{ThumbnailURL: thumbnailURL}
	applyInput(&item, input)

	if err := s.db.WithContext(ctx).Create(&item).Error; err != nil {
		s.removeBlob(ctx, uploaded)
		return nil, err
	}
	return &item, nil
}

// Update modifies an existing item. Without a new thumbnail the stored URL
// is kept; with one, the replaced blob is removed on a best-effort basis.
func (s *PortfolioService) Update(ctx context.Context, id string, input PortfolioInput) (*db.Portfolio, error) {
	if err := s.validateInput(input); err != nil {
		return nil, err
	}

	item, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	previous := ""
	uploaded := ""
	if input.Thumbnail != nil {
		name, url, err := s.uploadThumbnail(ctx, *input.Thumbnail)
		if err != nil {
			return nil, err
		}
		if item.ThumbnailURL != nil {
			previous = storage.ObjectNameFromURL(*item.ThumbnailURL)
		}
		uploaded = name
		item.ThumbnailURL = &url
	}

	applyInput(item, input)

	if err := s.db.WithContext(ctx).Save(item).Error; err != nil {
		s.removeBlob(ctx, uploaded)
		return nil, err
	}

	if previous != "" && previous != uploaded {
		s.removeBlob(ctx, previous)
	}
	return item, nil
}

// Delete removes the thumbnail blob (best effort) and then the record.
// The two steps are not atomic: a failed blob removal is only logged.
func (s *PortfolioService) Delete(ctx context.Context, id string) error {
	item, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if item.ThumbnailURL != nil {
		s.removeBlob(ctx, storage.ObjectNameFromURL(*item.ThumbnailURL))
	}

	result := s.db.WithContext(ctx).Where("id = ?", item.ID).Delete(&db.Portfolio{})
	if result.Error != nil {
		return fmt.Errorf("delete portfolio item: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrPortfolioNotFound
	}
	return nil
}

// ThumbnailObjectName builds the stored name: a millisecond timestamp prefix
// followed by the original file name with whitespace runs replaced by "_".
func ThumbnailObjectName(now time.Time, original string) string {
	base := filepath.Base(strings.ReplaceAll(strings.TrimSpace(original), `\`, "/"))
	if base == "." || base == "/" || base == "" {
		base = "thumbnail"
	}
	base = whitespaceRun.ReplaceAllString(base, "_")
	return fmt.Sprintf("%d_%s", now.UnixMilli(), base)
}

func (s *PortfolioService) uploadThumbnail(ctx context.Context, file ThumbnailFile) (name, url string, err error) {
	if s.bucket == nil {
		return "", "", fmt.Errorf("%w: storage is not configured", ErrThumbnailUpload)
	}

	img, err := imaging.Normalize(file.Reader, s.maxThumbWidth)
	if err != nil {
		return "", "", fmt.Errorf("%w: %w", ErrThumbnailUpload, err)
	}

	name = ThumbnailObjectName(s.now(), file.Name)
	if img.Resized {
		name = strings.TrimSuffix(name, filepath.Ext(name)) + img.Ext
	}

	if err := s.bucket.Upload(ctx, name, bytes.NewReader(img.Data), img.ContentType); err != nil {
		return "", "", fmt.Errorf("%w: %w", ErrThumbnailUpload, err)
	}
	return name, s.bucket.PublicURL(name), nil
}

func (s *PortfolioService) removeBlob(ctx context.Context, name string) {
	if name == "" || s.bucket == nil {
		return
	}
	if err := s.bucket.Remove(ctx, name); err != nil {
		s.logger.Warn("failed to remove thumbnail", zap.String("object", name), zap.Error(err))
	}
}

func (s *PortfolioService) validateInput(input PortfolioInput) error {
	input.Title = strings.TrimSpace(input.Title)
	input.DemoURL = strings.TrimSpace(input.DemoURL)
	input.GithubURL = strings.TrimSpace(input.GithubURL)
	return s.validate.Struct(input)
}

func (s *PortfolioService) first(query *gorm.DB) (*db.Portfolio, error) {
	var item db.Portfolio
	if err := query.First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPortfolioNotFound
		}
		return nil, err
	}
	return &item, nil
}

func applyInput(item *db.Portfolio, input PortfolioInput) {
	item.Title = strings.TrimSpace(input.Title)
	item.Description = optionalString(input.Description)
	item.Technologies = optionalList(input.Technologies)
	item.Category = optionalString(input.Category)
	item.RolesResponsible = optionalList(input.RolesResponsible)
	item.DemoURL = optionalString(input.DemoURL)
	item.GithubURL = optionalString(input.GithubURL)
	item.IsPublished = input.IsPublished
	item.SortOrder = input.SortOrder
}

func optionalString(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func optionalList(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
