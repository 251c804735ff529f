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

var auditorColumns = []string{
	"id", "name", "team", "proof_of_work", "contact", "website_url", "created_at", "updated_at",
}

// Auditor sort fields
const (
	AuditorSortName      = "name"
	AuditorSortTeam      = "team"
	AuditorSortCreatedAt = "createdAt"
)

type AuditorRepository struct {
	db   *sqlx.DB
	rows lister[models.Auditor]
}

func NewAuditorRepository(db *sqlx.DB) *AuditorRepository {
	return &AuditorRepository{
		db: db,
		rows: lister[models.Auditor]{
			db:      db,
			table:   "auditors",
			columns: auditorColumns,
			search: func(term string) squirrel.Sqlizer {
				return containsAny(term, "name", "team")
			},
		},
	}
}

func (r *AuditorRepository) Adapter() query.Adapter[models.Auditor] {
	return query.Adapter[models.Auditor]{
		Name:             "auditors",
		SortFields:       []string{AuditorSortName, AuditorSortTeam, AuditorSortCreatedAt},
		DefaultSort:      AuditorSortName,
		DefaultDirection: query.Asc,
		Order: func(field string, dir query.Direction) (query.Ordering[models.Auditor], error) {
			switch field {
			case AuditorSortName:
				return query.Ordering[models.Auditor]{Clause: textOrder("name", dir)}, nil
			case AuditorSortTeam:
				return query.Ordering[models.Auditor]{Clause: textOrder("team", dir)}, nil
			case AuditorSortCreatedAt:
				return query.Ordering[models.Auditor]{Clause: orderClause("created_at", dir)}, nil
			}
			return query.Ordering[models.Auditor]{}, fmt.Errorf("unknown auditor sort field %q", field)
		},
		Source: r.rows,
	}
}

func (r *AuditorRepository) Create(ctx context.Context, a *models.Auditor) error {
	a.ID = uuid.New().String()
	a.CreatedAt = time.Now().UTC()
	a.UpdatedAt = a.CreatedAt
	if a.ProofOfWork == nil {
		a.ProofOfWork = models.StringList{}
	}

	_, err := exec(ctx, r.db, psq.Insert("auditors").Columns(auditorColumns...).Values(
		a.ID, a.Name, a.Team, a.ProofOfWork, a.Contact, a.WebsiteURL, a.CreatedAt, a.UpdatedAt,
	))
	if err != nil {
		return fmt.Errorf("failed to create auditor: %w", err)
	}
	return nil
}

// GetByID returns an auditor, or nil if not found
func (r *AuditorRepository) GetByID(ctx context.Context, id string) (*models.Auditor, error) {
	a, err := getOne[models.Auditor](ctx, r.db, psq.Select(auditorColumns...).From("auditors").Where(squirrel.Eq{"id": id}))
	if err != nil {
		return nil, fmt.Errorf("failed to get auditor: %w", err)
	}
	return a, nil
}

// Missing returns the ids that do not name an existing auditor
func (r *AuditorRepository) Missing(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	sqlQuery, args, err := psq.Select("id").From("auditors").Where(squirrel.Eq{"id": ids}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var found []string
	if err := r.db.SelectContext(ctx, &found, sqlQuery, args...); err != nil {
		return nil, fmt.Errorf("failed to look up auditors: %w", err)
	}

	seen := make(map[string]bool, len(found))
	for _, id := range found {
		seen[id] = true
	}
	var missing []string
	for _, id := range ids {
		if !seen[id] {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

func (r *AuditorRepository) Update(ctx context.Context, a *models.Auditor) error {
	a.UpdatedAt = time.Now().UTC()
	if a.ProofOfWork == nil {
		a.ProofOfWork = models.StringList{}
	}

	_, err := exec(ctx, r.db, psq.Update("auditors").SetMap(map[string]any{
		"name":          a.Name,
		"team":          a.Team,
		"proof_of_work": a.ProofOfWork,
		"contact":       a.Contact,
		"website_url":   a.WebsiteURL,
		"updated_at":    a.UpdatedAt,
	}).Where(squirrel.Eq{"id": a.ID}))
	if err != nil {
		return fmt.Errorf("failed to update auditor: %w", err)
	}
	return nil
}

// Delete removes an auditor and detaches it from its audits
func (r *AuditorRepository) Delete(ctx context.Context, id string) (bool, error) {
	ok, err := exec(ctx, r.db, psq.Delete("auditors").Where(squirrel.Eq{"id": id}))
	if err != nil {
		return false, fmt.Errorf("failed to delete auditor: %w", err)
	}
	return ok, nil
}
