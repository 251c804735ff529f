package service

import (
	"context"
	"log/slog"

	"github.com/orangehats/orangehats/internal/metrics"
	"github.com/orangehats/orangehats/internal/models"
	"github.com/orangehats/orangehats/internal/repository"
)

// Submission summarizes a new application for notification
type Submission struct {
	Kind  models.ApplicationKind
	ID    string
	Name  string
	Email string
}

// Notifier is told about every stored application
type Notifier interface {
	ApplicationSubmitted(ctx context.Context, s Submission) error
}

type AuditorApplicationInput struct {
	Email           string   `json:"email" validate:"required,email"`
	Name            string   `json:"name" validate:"required"`
	GithubURL       string   `json:"githubUrl" validate:"required,url"`
	ApplicationURL  string   `json:"applicationUrl" validate:"omitempty,url"`
	PreviousAudits  []string `json:"previousAudits" validate:"dive,required"`
	YearsInClarity  int      `json:"yearsInClarity" validate:"gte=0"`
	YearsInSecurity int      `json:"yearsInSecurity" validate:"gte=0"`
	Referral        string   `json:"referral"`
}

type AuditApplicationInput struct {
	Email              string `json:"email" validate:"required,email"`
	Name               string `json:"name" validate:"required"`
	Team               string `json:"team" validate:"required"`
	LandingPageURL     string `json:"landingPageUrl" validate:"omitempty,url"`
	GithubURL          string `json:"githubUrl" validate:"required,url"`
	TwitterURL         string `json:"twitterUrl" validate:"omitempty,url"`
	ContractCount      int    `json:"contractCount" validate:"gte=0"`
	HasFundraised      bool   `json:"hasFundraised"`
	Has100TestCoverage bool   `json:"has100TestCoverage"`
	HasAuditHash       bool   `json:"hasAuditHash"`
	IsNewLaunch        bool   `json:"isNewLaunch"`
}

type GrantApplicationInput struct {
	Name                  string  `json:"name" validate:"required"`
	Email                 string  `json:"email" validate:"required,email"`
	LandingPageURL        string  `json:"landingPageUrl" validate:"omitempty,url"`
	IsLive                bool    `json:"isLive"`
	GithubURL             string  `json:"githubUrl" validate:"omitempty,url"`
	TwitterURL            string  `json:"twitterUrl" validate:"omitempty,url"`
	CommunityImpact       string  `json:"communityImpact" validate:"required"`
	SecurityImprovement   string  `json:"securityImprovement" validate:"required"`
	CanLaunchWithoutGrant bool    `json:"canLaunchWithoutGrant"`
	RequestedAmount       float64 `json:"requestedAmount" validate:"gte=0"`
	TimeLineProposal      string  `json:"timeLineProposal" validate:"required"`
	TeamSize              int     `json:"teamSize" validate:"gte=0"`
}

type ApplicationService struct {
	apps     *repository.ApplicationRepository
	notifier Notifier
	logger   *slog.Logger
}

// NewApplicationService creates the service. notifier may be nil.
func NewApplicationService(apps *repository.ApplicationRepository, notifier Notifier, logger *slog.Logger) *ApplicationService {
	return &ApplicationService{
		apps:     apps,
		notifier: notifier,
		logger:   logger.With("component", "applications"),
	}
}

func (s *ApplicationService) SubmitAuditor(ctx context.Context, in AuditorApplicationInput) (*models.AuditorApplication, error) {
	if err := check(in); err != nil {
		return nil, err
	}

	a := &models.AuditorApplication{
		Email:           in.Email,
		Name:            in.Name,
		GithubURL:       in.GithubURL,
		ApplicationURL:  in.ApplicationURL,
		PreviousAudits:  in.PreviousAudits,
		YearsInClarity:  in.YearsInClarity,
		YearsInSecurity: in.YearsInSecurity,
		Referral:        in.Referral,
	}
	if err := s.apps.CreateAuditor(ctx, a); err != nil {
		return nil, err
	}

	s.submitted(ctx, Submission{Kind: models.KindAuditor, ID: a.ID, Name: a.Name, Email: a.Email})
	return a, nil
}

func (s *ApplicationService) SubmitAudit(ctx context.Context, in AuditApplicationInput) (*models.AuditApplication, error) {
	if err := check(in); err != nil {
		return nil, err
	}

	a := &models.AuditApplication{
		Email:              in.Email,
		Name:               in.Name,
		Team:               in.Team,
		LandingPageURL:     in.LandingPageURL,
		GithubURL:          in.GithubURL,
		TwitterURL:         in.TwitterURL,
		ContractCount:      in.ContractCount,
		HasFundraised:      in.HasFundraised,
		Has100TestCoverage: in.Has100TestCoverage,
		HasAuditHash:       in.HasAuditHash,
		IsNewLaunch:        in.IsNewLaunch,
	}
	if err := s.apps.CreateAudit(ctx, a); err != nil {
		return nil, err
	}

	s.submitted(ctx, Submission{Kind: models.KindAudit, ID: a.ID, Name: a.Name, Email: a.Email})
	return a, nil
}

func (s *ApplicationService) SubmitGrant(ctx context.Context, in GrantApplicationInput) (*models.GrantApplication, error) {
	if err := check(in); err != nil {
		return nil, err
	}

	a := &models.GrantApplication{
		Name:                  in.Name,
		Email:                 in.Email,
		LandingPageURL:        in.LandingPageURL,
		IsLive:                in.IsLive,
		GithubURL:             in.GithubURL,
		TwitterURL:            in.TwitterURL,
		CommunityImpact:       in.CommunityImpact,
		SecurityImprovement:   in.SecurityImprovement,
		CanLaunchWithoutGrant: in.CanLaunchWithoutGrant,
		RequestedAmount:       in.RequestedAmount,
		TimeLineProposal:      in.TimeLineProposal,
		TeamSize:              in.TeamSize,
	}
	if err := s.apps.CreateGrant(ctx, a); err != nil {
		return nil, err
	}

	s.submitted(ctx, Submission{Kind: models.KindGrant, ID: a.ID, Name: a.Name, Email: a.Email})
	return a, nil
}

// submitted records a stored application. Notification failures are logged only.
func (s *ApplicationService) submitted(ctx context.Context, sub Submission) {
	metrics.IncApplicationSubmitted(string(sub.Kind))
	s.logger.Info("application submitted", "kind", sub.Kind, "id", sub.ID)

	if s.notifier == nil {
		return
	}
	err := s.notifier.ApplicationSubmitted(ctx, sub)
	metrics.IncNotification(err)
	if err != nil {
		s.logger.Error("failed to send application notification",
			"kind", sub.Kind,
			"id", sub.ID,
			"error", err)
	}
}

// List returns the applications of one kind, newest first. An empty status
// lists all of them.
func (s *ApplicationService) List(ctx context.Context, kind models.ApplicationKind, status models.ApplicationStatus) (any, error) {
	if status != "" && !status.Valid() {
		return nil, invalidField("status", "must be one of pending approved rejected")
	}

	switch kind {
	case models.KindAuditor:
		return s.apps.ListAuditor(ctx, status)
	case models.KindAudit:
		return s.apps.ListAudit(ctx, status)
	case models.KindGrant:
		return s.apps.ListGrant(ctx, status)
	}
	return nil, invalidField("kind", "must be one of auditor audit grant")
}

func (s *ApplicationService) UpdateStatus(ctx context.Context, kind models.ApplicationKind, id string, status models.ApplicationStatus) error {
	if !status.Valid() {
		return invalidField("status", "must be one of pending approved rejected")
	}
	if _, err := models.ParseApplicationKind(string(kind)); err != nil {
		return invalidField("kind", "must be one of auditor audit grant")
	}

	ok, err := s.apps.UpdateStatus(ctx, kind, id, status)
	if err != nil {
		return err
	}
	if !ok {
		return notFound(string(kind)+" application", id)
	}
	return nil
}
