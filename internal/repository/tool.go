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

var toolColumns = []string{
	"id", "name", "created_by", "description", "security_url", "image_url", "image_key", "created_at", "updated_at",
}

// Security tool sort fields
const (
	ToolSortName      = "name"
	ToolSortCreatedBy = "createdBy"
	ToolSortCreatedAt = "createdAt"
)

type ToolRepository struct {
	db   *sqlx.DB
	rows lister[models.SecurityTool]
}

func NewToolRepository(db *sqlx.DB) *ToolRepository {
	return &ToolRepository{
		db: db,
		rows: lister[models.SecurityTool]{
			db:      db,
			table:   "security_tools",
			columns: toolColumns,
			search: func(term string) squirrel.Sqlizer {
				return containsAny(term, "name", "description")
			},
		},
	}
}

func (r *ToolRepository) Adapter() query.Adapter[models.SecurityTool] {
	return query.Adapter[models.SecurityTool]{
		Name:             "security tools",
		SortFields:       []string{ToolSortName, ToolSortCreatedBy, ToolSortCreatedAt},
		DefaultSort:      ToolSortName,
		DefaultDirection: query.Asc,
		Order: func(field string, dir query.Direction) (query.Ordering[models.SecurityTool], error) {
			switch field {
			case ToolSortName:
				return query.Ordering[models.SecurityTool]{Clause: textOrder("name", dir)}, nil
			case ToolSortCreatedBy:
				return query.Ordering[models.SecurityTool]{Clause: textOrder("created_by", dir)}, nil
			case ToolSortCreatedAt:
				return query.Ordering[models.SecurityTool]{Clause: orderClause("created_at", dir)}, nil
			}
			return query.Ordering[models.SecurityTool]{}, fmt.Errorf("unknown tool sort field %q", field)
		},
		Source: r.rows,
	}
}

func (r *ToolRepository) Create(ctx context.Context, t *models.SecurityTool) error {
	t.ID = uuid.New().String()
	t.CreatedAt = time.Now().UTC()
	t.UpdatedAt = t.CreatedAt

	_, err := exec(ctx, r.db, psq.Insert("security_tools").Columns(toolColumns...).Values(
		t.ID, t.Name, t.CreatedBy, t.Description, t.SecurityURL, t.ImageURL, t.ImageKey, t.CreatedAt, t.UpdatedAt,
	))
	if err != nil {
		return fmt.Errorf("failed to create security tool: %w", err)
	}
	return nil
}

// GetByID returns a tool, or nil if not found
func (r *ToolRepository) GetByID(ctx context.Context, id string) (*models.SecurityTool, error) {
	t, err := getOne[models.SecurityTool](ctx, r.db, psq.Select(toolColumns...).From("security_tools").Where(squirrel.Eq{"id": id}))
	if err != nil {
		return nil, fmt.Errorf("failed to get security tool: %w", err)
	}
	return t, nil
}

func (r *ToolRepository) Update(ctx context.Context, t *models.SecurityTool) error {
	t.UpdatedAt = time.Now().UTC()

	_, err := exec(ctx, r.db, psq.Update("security_tools").SetMap(map[string]any{
		"name":         t.Name,
		"created_by":   t.CreatedBy,
		"description":  t.Description,
		"security_url": t.SecurityURL,
		"image_url":    t.ImageURL,
		"image_key":    t.ImageKey,
		"updated_at":   t.UpdatedAt,
	}).Where(squirrel.Eq{"id": t.ID}))
	if err != nil {
		return fmt.Errorf("failed to update security tool: %w", err)
	}
	return nil
}

func (r *ToolRepository) Delete(ctx context.Context, id string) (bool, error) {
	ok, err := exec(ctx, r.db, psq.Delete("security_tools").Where(squirrel.Eq{"id": id}))
	if err != nil {
		return false, fmt.Errorf("failed to delete security tool: %w", err)
	}
	return ok, nil
}
