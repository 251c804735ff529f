package service

import (
	"context"
	"log/slog"

	"github.com/orangehats/orangehats/internal/models"
	"github.com/orangehats/orangehats/internal/query"
	"github.com/orangehats/orangehats/internal/repository"
)

type AuditorInput struct {
	Name        string   `json:"name" validate:"required"`
	Team        string   `json:"team"`
	ProofOfWork []string `json:"proofOfWork" validate:"dive,required"`
	Contact     string   `json:"contact" validate:"required"`
	WebsiteURL  string   `json:"websiteUrl" validate:"omitempty,url"`
}

type AuditorPatch struct {
	Name        *string  `json:"name" validate:"omitnil,min=1"`
	Team        *string  `json:"team"`
	ProofOfWork []string `json:"proofOfWork" validate:"omitempty,dive,required"`
	Contact     *string  `json:"contact" validate:"omitnil,min=1"`
	WebsiteURL  *string  `json:"websiteUrl" validate:"omitempty,url"`
}

type AuditorService struct {
	auditors *repository.AuditorRepository
	logger   *slog.Logger
}

func NewAuditorService(auditors *repository.AuditorRepository, logger *slog.Logger) *AuditorService {
	return &AuditorService{
		auditors: auditors,
		logger:   logger.With("component", "auditors"),
	}
}

func (s *AuditorService) List(ctx context.Context, req query.Request) (*query.Page[models.Auditor], error) {
	page, err := query.Run(ctx, s.auditors.Adapter(), req)
	if err != nil {
		return nil, listErr(err)
	}
	return page, nil
}

func (s *AuditorService) Get(ctx context.Context, id string) (*models.Auditor, error) {
	a, err := s.auditors.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, notFound("auditor", id)
	}
	return a, nil
}

func (s *AuditorService) Create(ctx context.Context, in AuditorInput) (*models.Auditor, error) {
	if err := check(in); err != nil {
		return nil, err
	}

	a := &models.Auditor{
		Name:        in.Name,
		Team:        in.Team,
		ProofOfWork: in.ProofOfWork,
		Contact:     in.Contact,
		WebsiteURL:  in.WebsiteURL,
	}
	if err := s.auditors.Create(ctx, a); err != nil {
		return nil, err
	}

	s.logger.Info("auditor created", "id", a.ID, "name", a.Name)
	return a, nil
}

func (s *AuditorService) Update(ctx context.Context, id string, p AuditorPatch) (*models.Auditor, error) {
	if err := check(p); err != nil {
		return nil, err
	}
	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if p.Name != nil {
		a.Name = *p.Name
	}
	if p.Team != nil {
		a.Team = *p.Team
	}
	if p.ProofOfWork != nil {
		a.ProofOfWork = p.ProofOfWork
	}
	if p.Contact != nil {
		a.Contact = *p.Contact
	}
	if p.WebsiteURL != nil {
		a.WebsiteURL = *p.WebsiteURL
	}

	if err := s.auditors.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Delete removes an auditor; its audits lose the link but are kept
func (s *AuditorService) Delete(ctx context.Context, id string) error {
	ok, err := s.auditors.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return notFound("auditor", id)
	}
	s.logger.Info("auditor deleted", "id", id)
	return nil
}
