package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/orangehats/orangehats/internal/models"
	"github.com/orangehats/orangehats/internal/query"
	"github.com/orangehats/orangehats/internal/repository"
	"github.com/orangehats/orangehats/internal/storage"
)

type ToolInput struct {
	Name        string `json:"name" validate:"required"`
	CreatedBy   string `json:"createdBy"`
	Description string `json:"description"`
	SecurityURL string `json:"securityUrl" validate:"omitempty,url"`
	ImageURL    string `json:"imageUrl" validate:"omitempty,url"`
	ImageKey    string `json:"imageKey"`
}

type ToolPatch struct {
	Name        *string `json:"name" validate:"omitnil,min=1"`
	CreatedBy   *string `json:"createdBy"`
	Description *string `json:"description"`
	SecurityURL *string `json:"securityUrl" validate:"omitempty,url"`
	ImageURL    *string `json:"imageUrl" validate:"omitempty,url"`
	ImageKey    *string `json:"imageKey"`
}

type ToolService struct {
	tools  *repository.ToolRepository
	files  *storage.Resolver
	logger *slog.Logger
}

func NewToolService(tools *repository.ToolRepository, files *storage.Resolver, logger *slog.Logger) *ToolService {
	return &ToolService{
		tools:  tools,
		files:  files,
		logger: logger.With("component", "tools"),
	}
}

// List returns one page of tools, each with a freshly signed image URL.
// A tool whose image cannot be signed gets a nil URL.
func (s *ToolService) List(ctx context.Context, req query.Request) (*query.Page[models.ToolWithImage], error) {
	page, err := query.Run(ctx, s.tools.Adapter(), req)
	if err != nil {
		return nil, listErr(err)
	}

	items := assemble(page.Items, func(t *models.SecurityTool) models.ToolWithImage {
		return models.ToolWithImage{
			SecurityTool:   *t,
			SignedImageURL: signedOrNil(ctx, s.files, s.logger, t.ImageKey, "tool_id", t.ID),
		}
	})

	return &query.Page[models.ToolWithImage]{Items: items, Metadata: page.Metadata}, nil
}

func (s *ToolService) Get(ctx context.Context, id string) (*models.SecurityTool, error) {
	t, err := s.tools.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, notFound("security tool", id)
	}
	return t, nil
}

func (s *ToolService) Create(ctx context.Context, in ToolInput) (*models.SecurityTool, error) {
	if err := check(in); err != nil {
		return nil, err
	}

	t := &models.SecurityTool{
		Name:        in.Name,
		CreatedBy:   in.CreatedBy,
		Description: in.Description,
		SecurityURL: in.SecurityURL,
		ImageURL:    in.ImageURL,
	}
	temp := storage.IsTemp(in.ImageKey)
	if in.ImageKey != "" && !temp {
		t.ImageKey = in.ImageKey
		t.ImageURL = s.files.URL(in.ImageKey)
	}

	if err := s.tools.Create(ctx, t); err != nil {
		return nil, err
	}
	s.logger.Info("security tool created", "id", t.ID, "name", t.Name)

	if temp {
		loc, err := finalize(ctx, s.files, s.logger, "imageKey", storage.KindToolImage, t.ID, in.ImageKey)
		if err != nil {
			return nil, fmt.Errorf("security tool %s created without its image: %w", t.ID, err)
		}
		t.ImageKey, t.ImageURL = loc.Key, loc.URL
		if err := s.tools.Update(ctx, t); err != nil {
			return nil, err
		}
	}

	return t, nil
}

func (s *ToolService) Update(ctx context.Context, id string, p ToolPatch) (*models.SecurityTool, error) {
	if err := check(p); err != nil {
		return nil, err
	}
	t, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if p.Name != nil {
		t.Name = *p.Name
	}
	if p.CreatedBy != nil {
		t.CreatedBy = *p.CreatedBy
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.SecurityURL != nil {
		t.SecurityURL = *p.SecurityURL
	}
	if p.ImageURL != nil {
		t.ImageURL = *p.ImageURL
		t.ImageKey = s.files.KeyFromURL(*p.ImageURL)
	}
	if p.ImageKey != nil {
		if *p.ImageKey == "" {
			t.ImageKey, t.ImageURL = "", ""
		} else {
			loc, err := finalize(ctx, s.files, s.logger, "imageKey", storage.KindToolImage, id, *p.ImageKey)
			if err != nil {
				return nil, err
			}
			t.ImageKey, t.ImageURL = loc.Key, loc.URL
		}
	}

	if err := s.tools.Update(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *ToolService) Delete(ctx context.Context, id string) error {
	ok, err := s.tools.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return notFound("security tool", id)
	}
	s.logger.Info("security tool deleted", "id", id)
	return nil
}

// ImageURL signs a download of one tool's image. Unlike List, a signing
// failure is returned to the caller.
func (s *ToolService) ImageURL(ctx context.Context, id string) (string, error) {
	t, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if t.ImageKey == "" {
		return "", fmt.Errorf("security tool %q has no image: %w", id, ErrNotFound)
	}
	return s.files.DownloadURL(ctx, t.ImageKey, 0)
}

func (s *ToolService) UploadImage(ctx context.Context, id, fileName string) (*storage.Upload, error) {
	if id != "" && id != storage.NewEntityID {
		if _, err := s.Get(ctx, id); err != nil {
			return nil, err
		}
	}
	u, err := s.files.PrepareUpload(ctx, storage.KindToolImage, id, fileName)
	if err != nil {
		return nil, keyErr(err)
	}
	return u, nil
}
