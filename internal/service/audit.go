package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/orangehats/orangehats/internal/models"
	"github.com/orangehats/orangehats/internal/query"
	"github.com/orangehats/orangehats/internal/repository"
	"github.com/orangehats/orangehats/internal/storage"
)

// AuditInput is the payload of a new audit. PdfKey may name a temporary
// upload, which is moved under the audit once its id is known.
type AuditInput struct {
	Protocol    string   `json:"protocol" validate:"required"`
	Contracts   []string `json:"contracts" validate:"dive,required"`
	AuditorIDs  []string `json:"auditorIds" validate:"dive,required"`
	PublishedAt string   `json:"publishedAt" validate:"required"`
	PdfURL      string   `json:"pdfUrl" validate:"omitempty,url"`
	PdfKey      string   `json:"pdfKey"`
	AuditURL    string   `json:"auditUrl" validate:"omitempty,url"`
}

// AuditPatch changes the fields that are set. A non-nil AuditorIDs replaces
// the auditor set. An empty PdfKey removes the PDF; it takes precedence over
// PdfURL.
type AuditPatch struct {
	Protocol    *string  `json:"protocol" validate:"omitnil,min=1"`
	Contracts   []string `json:"contracts" validate:"omitempty,dive,required"`
	AuditorIDs  []string `json:"auditorIds" validate:"omitempty,dive,required"`
	PublishedAt *string  `json:"publishedAt"`
	PdfURL      *string  `json:"pdfUrl" validate:"omitempty,url"`
	PdfKey      *string  `json:"pdfKey"`
	AuditURL    *string  `json:"auditUrl" validate:"omitempty,url"`
}

type AuditService struct {
	audits   *repository.AuditRepository
	auditors *repository.AuditorRepository
	files    *storage.Resolver
	logger   *slog.Logger
}

func NewAuditService(audits *repository.AuditRepository, auditors *repository.AuditorRepository, files *storage.Resolver, logger *slog.Logger) *AuditService {
	return &AuditService{
		audits:   audits,
		auditors: auditors,
		files:    files,
		logger:   logger.With("component", "audits"),
	}
}

func (s *AuditService) List(ctx context.Context, req query.Request) (*query.Page[models.AuditWithAuditors], error) {
	page, err := query.Run(ctx, s.audits.Adapter(), req)
	if err != nil {
		return nil, listErr(err)
	}
	return page, nil
}

func (s *AuditService) Get(ctx context.Context, id string) (*models.AuditWithAuditors, error) {
	a, err := s.audits.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, notFound("audit", id)
	}
	return a, nil
}

// Create stores an audit and then relocates a temporary PDF under its id.
// If the relocation fails the audit remains without a PDF and SetPdf can be
// retried with the same key.
func (s *AuditService) Create(ctx context.Context, in AuditInput) (*models.AuditWithAuditors, error) {
	if err := check(in); err != nil {
		return nil, err
	}
	published, err := parseDate("publishedAt", in.PublishedAt)
	if err != nil {
		return nil, err
	}
	if err := s.checkAuditors(ctx, in.AuditorIDs); err != nil {
		return nil, err
	}

	a := &models.Audit{
		Protocol:    in.Protocol,
		Contracts:   in.Contracts,
		PublishedAt: published,
		PdfURL:      in.PdfURL,
		AuditURL:    in.AuditURL,
	}
	temp := storage.IsTemp(in.PdfKey)
	if in.PdfKey != "" && !temp {
		a.PdfKey = in.PdfKey
		a.PdfURL = s.files.URL(in.PdfKey)
	}

	if err := s.audits.Create(ctx, a, in.AuditorIDs); err != nil {
		return nil, err
	}
	s.logger.Info("audit created", "id", a.ID, "protocol", a.Protocol)

	if temp {
		if err := s.setPdf(ctx, a.ID, in.PdfKey); err != nil {
			return nil, fmt.Errorf("audit %s created without its PDF: %w", a.ID, err)
		}
	}

	return s.Get(ctx, a.ID)
}

func (s *AuditService) Update(ctx context.Context, id string, p AuditPatch) (*models.AuditWithAuditors, error) {
	if err := check(p); err != nil {
		return nil, err
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	a := current.Audit
	if p.Protocol != nil {
		a.Protocol = *p.Protocol
	}
	if p.Contracts != nil {
		a.Contracts = p.Contracts
	}
	if p.PublishedAt != nil {
		if a.PublishedAt, err = parseDate("publishedAt", *p.PublishedAt); err != nil {
			return nil, err
		}
	}
	if p.PdfURL != nil {
		a.PdfURL = *p.PdfURL
		a.PdfKey = s.files.KeyFromURL(*p.PdfURL)
	}
	if p.AuditURL != nil {
		a.AuditURL = *p.AuditURL
	}
	if p.AuditorIDs != nil {
		if err := s.checkAuditors(ctx, p.AuditorIDs); err != nil {
			return nil, err
		}
	}
	switch {
	case p.PdfKey == nil:
	case *p.PdfKey == "":
		a.PdfKey, a.PdfURL = "", ""
	default:
		loc, err := finalize(ctx, s.files, s.logger, "pdfKey", storage.KindAuditPDF, id, *p.PdfKey)
		if err != nil {
			return nil, err
		}
		a.PdfKey, a.PdfURL = loc.Key, loc.URL
	}

	if err := s.audits.Update(ctx, &a, p.AuditorIDs); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// SetPdf points an audit at key, relocating it first when it is temporary
func (s *AuditService) SetPdf(ctx context.Context, id, key string) (*models.AuditWithAuditors, error) {
	if key == "" {
		return nil, invalidField("pdfKey", "is required")
	}
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	if err := s.setPdf(ctx, id, key); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *AuditService) setPdf(ctx context.Context, id, key string) error {
	loc, err := finalize(ctx, s.files, s.logger, "pdfKey", storage.KindAuditPDF, id, key)
	if err != nil {
		return err
	}
	return s.audits.UpdatePdf(ctx, id, loc.URL, loc.Key)
}

// Delete removes an audit and its auditor links. The PDF object is kept.
func (s *AuditService) Delete(ctx context.Context, id string) error {
	ok, err := s.audits.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return notFound("audit", id)
	}
	s.logger.Info("audit deleted", "id", id)
	return nil
}

// PdfDownloadURL signs a download of the audit PDF. Records created before
// keys were stored fall back to the key embedded in the PDF URL.
func (s *AuditService) PdfDownloadURL(ctx context.Context, id string) (string, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}

	key := a.PdfKey
	if key == "" {
		key = s.files.KeyFromURL(a.PdfURL)
	}
	if key == "" {
		return "", fmt.Errorf("audit %q has no PDF: %w", id, ErrNotFound)
	}

	return s.files.DownloadURL(ctx, key, 0)
}

// UploadPdf signs an upload for an existing audit or, with id "new", under temp/
func (s *AuditService) UploadPdf(ctx context.Context, id, fileName string) (*storage.Upload, error) {
	if id != "" && id != storage.NewEntityID {
		if _, err := s.Get(ctx, id); err != nil {
			return nil, err
		}
	}
	u, err := s.files.PrepareUpload(ctx, storage.KindAuditPDF, id, fileName)
	if err != nil {
		return nil, keyErr(err)
	}
	return u, nil
}

func (s *AuditService) checkAuditors(ctx context.Context, ids []string) error {
	missing, err := s.auditors.Missing(ctx, ids)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return invalidField("auditorIds", "contains unknown auditors: "+strings.Join(missing, ", "))
	}
	return nil
}
