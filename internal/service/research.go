package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/orangehats/orangehats/internal/content"
	"github.com/orangehats/orangehats/internal/models"
	"github.com/orangehats/orangehats/internal/query"
	"github.com/orangehats/orangehats/internal/repository"
	"github.com/orangehats/orangehats/internal/storage"
)

// maxSlugSuffix bounds the search for a free "-N" slug suffix
const maxSlugSuffix = 1000

type ResearchInput struct {
	Protocol          string `json:"protocol" validate:"required"`
	Type              string `json:"type" validate:"required"`
	Title             string `json:"title" validate:"required"`
	Description       string `json:"description"`
	Content           string `json:"content" validate:"required"`
	PublishedAt       string `json:"publishedAt" validate:"required"`
	MainImageKey      string `json:"mainImageKey"`
	SecondaryImageKey string `json:"secondaryImageKey"`
}

// ResearchPatch changes the fields that are set. An empty image key removes
// the image.
type ResearchPatch struct {
	Protocol          *string `json:"protocol" validate:"omitnil,min=1"`
	Type              *string `json:"type" validate:"omitnil,min=1"`
	Title             *string `json:"title" validate:"omitnil,min=1"`
	Description       *string `json:"description"`
	Content           *string `json:"content" validate:"omitnil,min=1"`
	PublishedAt       *string `json:"publishedAt"`
	MainImageKey      *string `json:"mainImageKey"`
	SecondaryImageKey *string `json:"secondaryImageKey"`
}

// ResearchService keeps research records and their mirror files in step.
// The record owns the metadata; the mirror owns the body served to readers.
type ResearchService struct {
	research *repository.ResearchRepository
	mirror   *content.Synchronizer
	files    *storage.Resolver
	logger   *slog.Logger
}

func NewResearchService(research *repository.ResearchRepository, mirror *content.Synchronizer, files *storage.Resolver, logger *slog.Logger) *ResearchService {
	return &ResearchService{
		research: research,
		mirror:   mirror,
		files:    files,
		logger:   logger.With("component", "research"),
	}
}

// List returns one page of posts with mirror content and signed image URLs.
// Each item degrades on its own: DB content stands in for a missing mirror
// and an image that cannot be signed is nil.
func (s *ResearchService) List(ctx context.Context, req query.Request) (*query.Page[models.ResearchPost], error) {
	page, err := query.Run(ctx, s.research.Adapter(), req)
	if err != nil {
		return nil, listErr(err)
	}

	items := assemble(page.Items, func(r *models.Research) models.ResearchPost {
		return s.post(ctx, r)
	})

	return &query.Page[models.ResearchPost]{Items: items, Metadata: page.Metadata}, nil
}

func (s *ResearchService) post(ctx context.Context, r *models.Research) models.ResearchPost {
	p := models.NewResearchPost(r)

	if mp, err := s.mirror.GetBySlug(r.Slug); err != nil {
		s.logger.Warn("mirror unavailable, serving stored content", "id", r.ID, "slug", r.Slug, "error", err)
	} else {
		p.Content = mp.Content
	}

	p.MainImage = signedOrNil(ctx, s.files, s.logger, r.MainImageKey, "research_id", r.ID, "image", "main")
	p.SecondaryImage = signedOrNil(ctx, s.files, s.logger, r.SecondaryImageKey, "research_id", r.ID, "image", "secondary")
	return p
}

func (s *ResearchService) Get(ctx context.Context, id string) (*models.Research, error) {
	r, err := s.research.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, notFound("research", id)
	}
	return r, nil
}

// GetBySlug returns one post as served to readers
func (s *ResearchService) GetBySlug(ctx context.Context, slug string) (*models.ResearchPost, error) {
	r, err := s.research.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, notFound("research", slug)
	}
	p := s.post(ctx, r)
	return &p, nil
}

// Posts returns every mirrored post, newest first
func (s *ResearchService) Posts() ([]content.Post, error) {
	return s.mirror.All()
}

// Create stores the record with an empty public URL, writes its mirror,
// stores the mirror URL and finally relocates temporary image uploads.
func (s *ResearchService) Create(ctx context.Context, in ResearchInput) (*models.Research, error) {
	if err := check(in); err != nil {
		return nil, err
	}
	published, err := parseDate("publishedAt", in.PublishedAt)
	if err != nil {
		return nil, err
	}
	slug, err := s.slugFor(ctx, in.Title, "")
	if err != nil {
		return nil, err
	}

	r := &models.Research{
		Protocol:    in.Protocol,
		Type:        in.Type,
		Title:       in.Title,
		Description: in.Description,
		Content:     in.Content,
		Slug:        slug,
		PublishedAt: published,
	}
	if err := s.research.Create(ctx, r); err != nil {
		return nil, err
	}

	url, err := s.mirror.Create(r)
	if err != nil {
		return nil, fmt.Errorf("research %s stored without its mirror: %w", r.ID, err)
	}
	if err := s.research.SetPublicURL(ctx, r.ID, url); err != nil {
		return nil, err
	}
	r.PublicURL = url
	s.logger.Info("research created", "id", r.ID, "slug", r.Slug, "url", url)

	changed, err := s.attachImages(ctx, r, &in.MainImageKey, &in.SecondaryImageKey)
	if err != nil {
		return nil, fmt.Errorf("research %s stored without its images: %w", r.ID, err)
	}
	if changed {
		if err := s.research.Update(ctx, r); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Update applies p. A new title gets a new slug. The mirror is rewritten
// when the body, the slug or the publish date changes; other changes touch
// only the record.
func (s *ResearchService) Update(ctx context.Context, id string, p ResearchPatch) (*models.Research, error) {
	if err := check(p); err != nil {
		return nil, err
	}
	prev, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	r := *prev
	if p.Protocol != nil {
		r.Protocol = *p.Protocol
	}
	if p.Type != nil {
		r.Type = *p.Type
	}
	if p.Description != nil {
		r.Description = *p.Description
	}
	if p.Content != nil {
		r.Content = *p.Content
	}
	if p.PublishedAt != nil {
		if r.PublishedAt, err = parseDate("publishedAt", *p.PublishedAt); err != nil {
			return nil, err
		}
	}
	if p.Title != nil && *p.Title != prev.Title {
		r.Title = *p.Title
		if r.Slug, err = s.slugFor(ctx, r.Title, id); err != nil {
			return nil, err
		}
	}
	if _, err := s.attachImages(ctx, &r, p.MainImageKey, p.SecondaryImageKey); err != nil {
		return nil, err
	}

	if err := s.research.Update(ctx, &r); err != nil {
		return nil, err
	}

	if !mirrorStale(prev, &r) {
		return &r, nil
	}

	url, err := s.mirror.Update(prev.Slug, &r)
	if err != nil {
		return nil, fmt.Errorf("research %s updated but its mirror was not: %w", id, err)
	}
	if url != r.PublicURL {
		if err := s.research.SetPublicURL(ctx, id, url); err != nil {
			return nil, err
		}
		r.PublicURL = url
	}
	s.logger.Info("research mirror regenerated", "id", id, "slug", r.Slug, "url", url)

	return &r, nil
}

func mirrorStale(prev, next *models.Research) bool {
	return prev.Content != next.Content ||
		prev.Slug != next.Slug ||
		!content.NormalizeDate(prev.PublishedAt).Equal(content.NormalizeDate(next.PublishedAt))
}

// Delete removes the mirror and then the record. A failure in between leaves
// a record without a mirror, which readers tolerate.
func (s *ResearchService) Delete(ctx context.Context, id string) error {
	r, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.mirror.Delete(r.Slug); err != nil {
		return err
	}

	ok, err := s.research.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return notFound("research", id)
	}

	s.logger.Info("research deleted", "id", id, "slug", r.Slug)
	return nil
}

// ImageURL signs a download of the main or secondary image of one record
func (s *ResearchService) ImageURL(ctx context.Context, id, which string) (string, error) {
	kind, err := storage.ImageKind(which)
	if err != nil {
		return "", keyErr(err)
	}
	r, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}

	key := r.MainImageKey
	if kind == storage.KindResearchSecondaryImage {
		key = r.SecondaryImageKey
	}
	if key == "" {
		return "", fmt.Errorf("research %q has no %s image: %w", id, which, ErrNotFound)
	}

	return s.files.DownloadURL(ctx, key, 0)
}

func (s *ResearchService) UploadImage(ctx context.Context, id, fileName, which string) (*storage.Upload, error) {
	kind, err := storage.ImageKind(which)
	if err != nil {
		return nil, keyErr(err)
	}
	if id != "" && id != storage.NewEntityID {
		if _, err := s.Get(ctx, id); err != nil {
			return nil, err
		}
	}
	u, err := s.files.PrepareUpload(ctx, kind, id, fileName)
	if err != nil {
		return nil, keyErr(err)
	}
	return u, nil
}

// RebuildMirrors rewrites the mirror of every record and refreshes stored
// URLs. It stops at the first failure and reports how many were rebuilt.
func (s *ResearchService) RebuildMirrors(ctx context.Context) (int, error) {
	all, err := s.research.All(ctx)
	if err != nil {
		return 0, err
	}

	for i := range all {
		r := &all[i]
		url, err := s.mirror.Update(r.Slug, r)
		if err != nil {
			return i, fmt.Errorf("rebuild mirror of %s: %w", r.Slug, err)
		}
		if url != r.PublicURL {
			if err := s.research.SetPublicURL(ctx, r.ID, url); err != nil {
				return i, err
			}
		}
	}

	// drop index entries for mirrors that no longer exist
	if _, err := s.mirror.Reindex(); err != nil {
		return len(all), err
	}

	s.logger.Info("research mirrors rebuilt", "count", len(all))
	return len(all), nil
}

// attachImages points r at the given image keys, relocating temporary uploads
// under r.ID. A nil key leaves that image alone; an empty one removes it.
func (s *ResearchService) attachImages(ctx context.Context, r *models.Research, main, secondary *string) (bool, error) {
	slots := []struct {
		field  string
		kind   storage.Kind
		key    *string
		oldKey *string
		oldURL *string
	}{
		{"mainImageKey", storage.KindResearchMainImage, main, &r.MainImageKey, &r.MainImageURL},
		{"secondaryImageKey", storage.KindResearchSecondaryImage, secondary, &r.SecondaryImageKey, &r.SecondaryImageURL},
	}

	changed := false
	for _, slot := range slots {
		if slot.key == nil || *slot.key == *slot.oldKey {
			continue
		}
		changed = true
		if *slot.key == "" {
			*slot.oldKey, *slot.oldURL = "", ""
			continue
		}
		loc, err := finalize(ctx, s.files, s.logger, slot.field, slot.kind, r.ID, *slot.key)
		if err != nil {
			return changed, err
		}
		*slot.oldKey, *slot.oldURL = loc.Key, loc.URL
	}
	return changed, nil
}

// slugFor derives a slug from title that no record other than exceptID uses,
// appending -1, -2, ... when needed.
func (s *ResearchService) slugFor(ctx context.Context, title, exceptID string) (string, error) {
	base := content.Slugify(title)
	if base == "" {
		return "", invalidField("title", "must contain letters or digits")
	}

	candidate := base
	for n := 1; n <= maxSlugSuffix; n++ {
		taken, err := s.research.SlugTaken(ctx, candidate, exceptID)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, n)
	}
	return "", fmt.Errorf("no free slug for %q: %w", base, ErrConflict)
}

