package repository

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/orangehats/orangehats/internal/models"
	"github.com/orangehats/orangehats/internal/query"
)

var auditColumns = []string{
	"id", "protocol", "contracts", "published_at", "pdf_url", "pdf_key", "audit_url", "created_at", "updated_at",
}

// Audit sort fields
const (
	AuditSortProtocol    = "protocol"
	AuditSortPublishedAt = "publishedAt"
	AuditSortCreatedAt   = "createdAt"
	AuditSortAuditors    = "auditors"
)

type AuditRepository struct {
	db   *sqlx.DB
	rows lister[models.Audit]
}

func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{
		db: db,
		rows: lister[models.Audit]{
			db:      db,
			table:   "audits",
			columns: auditColumns,
			search: func(term string) squirrel.Sqlizer {
				return squirrel.Or{
					containsAny(term, "audits.protocol"),
					squirrel.Expr("EXISTS (SELECT 1 FROM json_each(audits.contracts) WHERE json_each.value = ?)", term),
				}
			},
		},
	}
}

// Adapter describes audit listings for the query package
func (r *AuditRepository) Adapter() query.Adapter[models.AuditWithAuditors] {
	return query.Adapter[models.AuditWithAuditors]{
		Name:             "audits",
		SortFields:       []string{AuditSortProtocol, AuditSortPublishedAt, AuditSortCreatedAt, AuditSortAuditors},
		DefaultSort:      AuditSortPublishedAt,
		DefaultDirection: query.Desc,
		Order:            orderAudits,
		Source:           auditSource{r},
	}
}

func orderAudits(field string, dir query.Direction) (query.Ordering[models.AuditWithAuditors], error) {
	switch field {
	case AuditSortProtocol:
		return query.Ordering[models.AuditWithAuditors]{Clause: textOrder("protocol", dir)}, nil
	case AuditSortPublishedAt:
		return query.Ordering[models.AuditWithAuditors]{Clause: orderClause("published_at", dir)}, nil
	case AuditSortCreatedAt:
		return query.Ordering[models.AuditWithAuditors]{Clause: orderClause("created_at", dir)}, nil
	case AuditSortAuditors:
		return query.Ordering[models.AuditWithAuditors]{Compare: CompareByAuditors}, nil
	}
	return query.Ordering[models.AuditWithAuditors]{}, fmt.Errorf("unknown audit sort field %q", field)
}

// AuditorSortKey is the alphabetically first lowercased auditor name, or "" when there are none
func AuditorSortKey(a models.AuditWithAuditors) string {
	if len(a.Auditors) == 0 {
		return ""
	}
	names := make([]string, len(a.Auditors))
	for i, au := range a.Auditors {
		names[i] = strings.ToLower(au.Name)
	}
	slices.Sort(names)
	return names[0]
}

// CompareByAuditors orders audits by AuditorSortKey
func CompareByAuditors(a, b models.AuditWithAuditors) int {
	return strings.Compare(AuditorSortKey(a), AuditorSortKey(b))
}

// auditSource attaches auditors to each listed audit
type auditSource struct {
	r *AuditRepository
}

func (s auditSource) Count(ctx context.Context, search string) (int, error) {
	return s.r.rows.Count(ctx, search)
}

func (s auditSource) Find(ctx context.Context, search, clause string, limit, offset int) ([]models.AuditWithAuditors, error) {
	audits, err := s.r.rows.Find(ctx, search, clause, limit, offset)
	if err != nil {
		return nil, err
	}
	return s.r.withAuditors(ctx, audits)
}

func (s auditSource) FindAll(ctx context.Context, search string) ([]models.AuditWithAuditors, error) {
	audits, err := s.r.rows.FindAll(ctx, search)
	if err != nil {
		return nil, err
	}
	return s.r.withAuditors(ctx, audits)
}

type auditorLink struct {
	AuditID string `db:"audit_id"`
	ID      string `db:"id"`
	Name    string `db:"name"`
}

func (r *AuditRepository) withAuditors(ctx context.Context, audits []models.Audit) ([]models.AuditWithAuditors, error) {
	out := make([]models.AuditWithAuditors, len(audits))
	if len(audits) == 0 {
		return out, nil
	}

	ids := make([]string, len(audits))
	for i, a := range audits {
		ids[i] = a.ID
	}

	sqlQuery, args, err := psq.Select("aa.audit_id", "a.id", "a.name").
		From("audit_auditors aa").
		Join("auditors a ON a.id = aa.auditor_id").
		Where(squirrel.Eq{"aa.audit_id": ids}).
		OrderBy("a.name ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var links []auditorLink
	if err := r.db.SelectContext(ctx, &links, sqlQuery, args...); err != nil {
		return nil, fmt.Errorf("failed to load audit auditors: %w", err)
	}

	byAudit := make(map[string][]models.AuditorRef, len(audits))
	for _, l := range links {
		byAudit[l.AuditID] = append(byAudit[l.AuditID], models.AuditorRef{ID: l.ID, Name: l.Name})
	}

	for i, a := range audits {
		auditors := byAudit[a.ID]
		if auditors == nil {
			auditors = []models.AuditorRef{}
		}
		out[i] = models.AuditWithAuditors{Audit: a, Auditors: auditors}
	}
	return out, nil
}

// Create inserts an audit and links it to auditorIDs
func (r *AuditRepository) Create(ctx context.Context, a *models.Audit, auditorIDs []string) error {
	a.ID = uuid.New().String()
	a.CreatedAt = time.Now().UTC()
	a.UpdatedAt = a.CreatedAt
	a.PublishedAt = a.PublishedAt.UTC()
	if a.Contracts == nil {
		a.Contracts = models.StringList{}
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = exec(ctx, tx, psq.Insert("audits").Columns(auditColumns...).Values(
		a.ID, a.Protocol, a.Contracts, a.PublishedAt, a.PdfURL, a.PdfKey, a.AuditURL, a.CreatedAt, a.UpdatedAt,
	))
	if err != nil {
		return fmt.Errorf("failed to create audit: %w", err)
	}

	if err := linkAuditors(ctx, tx, a.ID, auditorIDs); err != nil {
		return err
	}

	return tx.Commit()
}

// GetByID returns an audit with its auditors, or nil if not found
func (r *AuditRepository) GetByID(ctx context.Context, id string) (*models.AuditWithAuditors, error) {
	a, err := getOne[models.Audit](ctx, r.db, psq.Select(auditColumns...).From("audits").Where(squirrel.Eq{"id": id}))
	if err != nil {
		return nil, fmt.Errorf("failed to get audit: %w", err)
	}
	if a == nil {
		return nil, nil
	}

	list, err := r.withAuditors(ctx, []models.Audit{*a})
	if err != nil {
		return nil, err
	}
	return &list[0], nil
}

// Update saves all audit fields. When auditorIDs is non-nil the auditor set is replaced.
func (r *AuditRepository) Update(ctx context.Context, a *models.Audit, auditorIDs []string) error {
	a.UpdatedAt = time.Now().UTC()
	a.PublishedAt = a.PublishedAt.UTC()
	if a.Contracts == nil {
		a.Contracts = models.StringList{}
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = exec(ctx, tx, psq.Update("audits").SetMap(map[string]any{
		"protocol":     a.Protocol,
		"contracts":    a.Contracts,
		"published_at": a.PublishedAt,
		"pdf_url":      a.PdfURL,
		"pdf_key":      a.PdfKey,
		"audit_url":    a.AuditURL,
		"updated_at":   a.UpdatedAt,
	}).Where(squirrel.Eq{"id": a.ID}))
	if err != nil {
		return fmt.Errorf("failed to update audit: %w", err)
	}

	if auditorIDs != nil {
		if _, err := exec(ctx, tx, psq.Delete("audit_auditors").Where(squirrel.Eq{"audit_id": a.ID})); err != nil {
			return fmt.Errorf("failed to detach auditors: %w", err)
		}
		if err := linkAuditors(ctx, tx, a.ID, auditorIDs); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// UpdatePdf sets the PDF pointer of an audit
func (r *AuditRepository) UpdatePdf(ctx context.Context, id, pdfURL, pdfKey string) error {
	_, err := exec(ctx, r.db, psq.Update("audits").
		Set("pdf_url", pdfURL).
		Set("pdf_key", pdfKey).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": id}))
	if err != nil {
		return fmt.Errorf("failed to update audit pdf: %w", err)
	}
	return nil
}

// Delete removes an audit; auditor links go with it. It reports whether a row was deleted.
func (r *AuditRepository) Delete(ctx context.Context, id string) (bool, error) {
	ok, err := exec(ctx, r.db, psq.Delete("audits").Where(squirrel.Eq{"id": id}))
	if err != nil {
		return false, fmt.Errorf("failed to delete audit: %w", err)
	}
	return ok, nil
}

func linkAuditors(ctx context.Context, tx *sqlx.Tx, auditID string, auditorIDs []string) error {
	if len(auditorIDs) == 0 {
		return nil
	}
	insert := psq.Insert("audit_auditors").Columns("audit_id", "auditor_id").Options("OR IGNORE")
	for _, id := range auditorIDs {
		insert = insert.Values(auditID, id)
	}
	if _, err := exec(ctx, tx, insert); err != nil {
		return fmt.Errorf("failed to link auditors: %w", err)
	}
	return nil
}
