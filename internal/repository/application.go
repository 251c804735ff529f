package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/orangehats/orangehats/internal/models"
)

var auditorApplicationColumns = []string{
	"id", "email", "name", "github_url", "application_url", "previous_audits", "years_in_clarity",
	"years_in_security", "referral", "status", "created_at", "updated_at",
}

var auditApplicationColumns = []string{
	"id", "email", "name", "team", "landing_page_url", "github_url", "twitter_url", "contract_count",
	"has_fundraised", "has_100_test_coverage", "has_audit_hash", "is_new_launch", "status", "created_at", "updated_at",
}

var grantApplicationColumns = []string{
	"id", "name", "email", "landing_page_url", "is_live", "github_url", "twitter_url", "community_impact",
	"security_improvement", "can_launch_without_grant", "requested_amount", "time_line_proposal", "team_size",
	"status", "created_at", "updated_at",
}

func applicationTable(kind models.ApplicationKind) (string, error) {
	switch kind {
	case models.KindAuditor:
		return "auditor_applications", nil
	case models.KindAudit:
		return "audit_applications", nil
	case models.KindGrant:
		return "grant_applications", nil
	}
	return "", fmt.Errorf("unknown application kind %q", kind)
}

type ApplicationRepository struct {
	db *sqlx.DB
}

func NewApplicationRepository(db *sqlx.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

func stamp() (string, time.Time) {
	return uuid.New().String(), time.Now().UTC()
}

func (r *ApplicationRepository) CreateAuditor(ctx context.Context, a *models.AuditorApplication) error {
	a.ID, a.CreatedAt = stamp()
	a.UpdatedAt = a.CreatedAt
	a.Status = models.StatusPending
	if a.PreviousAudits == nil {
		a.PreviousAudits = models.StringList{}
	}

	_, err := exec(ctx, r.db, psq.Insert("auditor_applications").Columns(auditorApplicationColumns...).Values(
		a.ID, a.Email, a.Name, a.GithubURL, a.ApplicationURL, a.PreviousAudits, a.YearsInClarity,
		a.YearsInSecurity, a.Referral, a.Status, a.CreatedAt, a.UpdatedAt,
	))
	if err != nil {
		return fmt.Errorf("failed to create auditor application: %w", err)
	}
	return nil
}

func (r *ApplicationRepository) CreateAudit(ctx context.Context, a *models.AuditApplication) error {
	a.ID, a.CreatedAt = stamp()
	a.UpdatedAt = a.CreatedAt
	a.Status = models.StatusPending

	_, err := exec(ctx, r.db, psq.Insert("audit_applications").Columns(auditApplicationColumns...).Values(
		a.ID, a.Email, a.Name, a.Team, a.LandingPageURL, a.GithubURL, a.TwitterURL, a.ContractCount,
		a.HasFundraised, a.Has100TestCoverage, a.HasAuditHash, a.IsNewLaunch, a.Status, a.CreatedAt, a.UpdatedAt,
	))
	if err != nil {
		return fmt.Errorf("failed to create audit application: %w", err)
	}
	return nil
}

func (r *ApplicationRepository) CreateGrant(ctx context.Context, a *models.GrantApplication) error {
	a.ID, a.CreatedAt = stamp()
	a.UpdatedAt = a.CreatedAt
	a.Status = models.StatusPending

	_, err := exec(ctx, r.db, psq.Insert("grant_applications").Columns(grantApplicationColumns...).Values(
		a.ID, a.Name, a.Email, a.LandingPageURL, a.IsLive, a.GithubURL, a.TwitterURL, a.CommunityImpact,
		a.SecurityImprovement, a.CanLaunchWithoutGrant, a.RequestedAmount, a.TimeLineProposal, a.TeamSize,
		a.Status, a.CreatedAt, a.UpdatedAt,
	))
	if err != nil {
		return fmt.Errorf("failed to create grant application: %w", err)
	}
	return nil
}

func listApplications[T any](ctx context.Context, db *sqlx.DB, table string, columns []string, status models.ApplicationStatus) ([]T, error) {
	b := psq.Select(columns...).From(table).OrderBy("created_at DESC", "rowid DESC")
	if status != "" {
		b = b.Where(squirrel.Eq{"status": status})
	}

	sqlQuery, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	items := []T{}
	if err := db.SelectContext(ctx, &items, sqlQuery, args...); err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", table, err)
	}
	return items, nil
}

// ListAuditor returns auditor applications newest first, optionally filtered by status
func (r *ApplicationRepository) ListAuditor(ctx context.Context, status models.ApplicationStatus) ([]models.AuditorApplication, error) {
	return listApplications[models.AuditorApplication](ctx, r.db, "auditor_applications", auditorApplicationColumns, status)
}

func (r *ApplicationRepository) ListAudit(ctx context.Context, status models.ApplicationStatus) ([]models.AuditApplication, error) {
	return listApplications[models.AuditApplication](ctx, r.db, "audit_applications", auditApplicationColumns, status)
}

func (r *ApplicationRepository) ListGrant(ctx context.Context, status models.ApplicationStatus) ([]models.GrantApplication, error) {
	return listApplications[models.GrantApplication](ctx, r.db, "grant_applications", grantApplicationColumns, status)
}

// UpdateStatus sets the status of one application and reports whether it exists
func (r *ApplicationRepository) UpdateStatus(ctx context.Context, kind models.ApplicationKind, id string, status models.ApplicationStatus) (bool, error) {
	table, err := applicationTable(kind)
	if err != nil {
		return false, err
	}

	ok, err := exec(ctx, r.db, psq.Update(table).
		Set("status", status).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": id}))
	if err != nil {
		return false, fmt.Errorf("failed to update application status: %w", err)
	}
	return ok, nil
}
