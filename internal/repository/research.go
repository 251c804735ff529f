package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/orangehats/orangehats/internal/models"
	"github.com/orangehats/orangehats/internal/query"
)

var researchColumns = []string{
	"id", "protocol", "type", "title", "description", "content", "slug", "published_at", "public_url",
	"main_image_url", "main_image_key", "secondary_image_url", "secondary_image_key", "created_at", "updated_at",
}

// Research sort fields
const (
	ResearchSortProtocol    = "protocol"
	ResearchSortType        = "type"
	ResearchSortTitle       = "title"
	ResearchSortPublishedAt = "publishedAt"
)

type ResearchRepository struct {
	db   *sqlx.DB
	rows lister[models.Research]
}

func NewResearchRepository(db *sqlx.DB) *ResearchRepository {
	return &ResearchRepository{
		db: db,
		rows: lister[models.Research]{
			db:      db,
			table:   "research",
			columns: researchColumns,
			search: func(term string) squirrel.Sqlizer {
				return containsAny(term, "protocol", "type", "title", "description")
			},
		},
	}
}

func (r *ResearchRepository) Adapter() query.Adapter[models.Research] {
	return query.Adapter[models.Research]{
		Name:             "research",
		SortFields:       []string{ResearchSortProtocol, ResearchSortType, ResearchSortTitle, ResearchSortPublishedAt},
		DefaultSort:      ResearchSortPublishedAt,
		DefaultDirection: query.Desc,
		Order: func(field string, dir query.Direction) (query.Ordering[models.Research], error) {
			switch field {
			case ResearchSortProtocol:
				return query.Ordering[models.Research]{Clause: textOrder("protocol", dir)}, nil
			case ResearchSortType:
				return query.Ordering[models.Research]{Clause: textOrder("type", dir)}, nil
			case ResearchSortTitle:
				return query.Ordering[models.Research]{Clause: textOrder("title", dir)}, nil
			case ResearchSortPublishedAt:
				return query.Ordering[models.Research]{Clause: orderClause("published_at", dir)}, nil
			}
			return query.Ordering[models.Research]{}, fmt.Errorf("unknown research sort field %q", field)
		},
		Source: r.rows,
	}
}

func (r *ResearchRepository) Create(ctx context.Context, rs *models.Research) error {
	rs.ID = uuid.New().String()
	rs.CreatedAt = time.Now().UTC()
	rs.UpdatedAt = rs.CreatedAt
	rs.PublishedAt = rs.PublishedAt.UTC()

	_, err := exec(ctx, r.db, psq.Insert("research").Columns(researchColumns...).Values(
		rs.ID, rs.Protocol, rs.Type, rs.Title, rs.Description, rs.Content, rs.Slug, rs.PublishedAt, rs.PublicURL,
		rs.MainImageURL, rs.MainImageKey, rs.SecondaryImageURL, rs.SecondaryImageKey, rs.CreatedAt, rs.UpdatedAt,
	))
	if err != nil {
		return fmt.Errorf("failed to create research: %w", err)
	}
	return nil
}

// GetByID returns a research record, or nil if not found
func (r *ResearchRepository) GetByID(ctx context.Context, id string) (*models.Research, error) {
	rs, err := getOne[models.Research](ctx, r.db, psq.Select(researchColumns...).From("research").Where(squirrel.Eq{"id": id}))
	if err != nil {
		return nil, fmt.Errorf("failed to get research: %w", err)
	}
	return rs, nil
}

// GetBySlug returns a research record, or nil if not found
func (r *ResearchRepository) GetBySlug(ctx context.Context, slug string) (*models.Research, error) {
	rs, err := getOne[models.Research](ctx, r.db, psq.Select(researchColumns...).From("research").Where(squirrel.Eq{"slug": slug}))
	if err != nil {
		return nil, fmt.Errorf("failed to get research: %w", err)
	}
	return rs, nil
}

// SlugTaken reports whether slug belongs to a record other than exceptID
func (r *ResearchRepository) SlugTaken(ctx context.Context, slug, exceptID string) (bool, error) {
	sqlQuery, args, err := psq.Select("COUNT(*)").From("research").
		Where(squirrel.Eq{"slug": slug}).
		Where(squirrel.NotEq{"id": exceptID}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}

	var n int
	if err := r.db.GetContext(ctx, &n, sqlQuery, args...); err != nil {
		return false, fmt.Errorf("failed to check slug: %w", err)
	}
	return n > 0, nil
}

// All returns every research record, newest publication first
func (r *ResearchRepository) All(ctx context.Context) ([]models.Research, error) {
	return r.rows.selectAll(ctx, psq.Select(researchColumns...).From("research").OrderBy("published_at DESC", "rowid ASC"))
}

func (r *ResearchRepository) Update(ctx context.Context, rs *models.Research) error {
	rs.UpdatedAt = time.Now().UTC()
	rs.PublishedAt = rs.PublishedAt.UTC()

	_, err := exec(ctx, r.db, psq.Update("research").SetMap(map[string]any{
		"protocol":            rs.Protocol,
		"type":                rs.Type,
		"title":               rs.Title,
		"description":         rs.Description,
		"content":             rs.Content,
		"slug":                rs.Slug,
		"published_at":        rs.PublishedAt,
		"public_url":          rs.PublicURL,
		"main_image_url":      rs.MainImageURL,
		"main_image_key":      rs.MainImageKey,
		"secondary_image_url": rs.SecondaryImageURL,
		"secondary_image_key": rs.SecondaryImageKey,
		"updated_at":          rs.UpdatedAt,
	}).Where(squirrel.Eq{"id": rs.ID}))
	if err != nil {
		return fmt.Errorf("failed to update research: %w", err)
	}
	return nil
}

// SetPublicURL stores the mirror URL of a record
func (r *ResearchRepository) SetPublicURL(ctx context.Context, id, url string) error {
	_, err := exec(ctx, r.db, psq.Update("research").
		Set("public_url", url).
		Where(squirrel.Eq{"id": id}))
	if err != nil {
		return fmt.Errorf("failed to update research url: %w", err)
	}
	return nil
}

func (r *ResearchRepository) Delete(ctx context.Context, id string) (bool, error) {
	ok, err := exec(ctx, r.db, psq.Delete("research").Where(squirrel.Eq{"id": id}))
	if err != nil {
		return false, fmt.Errorf("failed to delete research: %w", err)
	}
	return ok, nil
}
