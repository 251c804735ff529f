package models

import "time"

// Research is the relational record of a research post
type Research struct {
	ID                string    `json:"id" db:"id"`
	Protocol          string    `json:"protocol" db:"protocol"`
	Type              string    `json:"type" db:"type"`
	Title             string    `json:"title" db:"title"`
	Description       string    `json:"description" db:"description"`
	Content           string    `json:"content" db:"content"`
	Slug              string    `json:"slug" db:"slug"`
	PublishedAt       time.Time `json:"publishedAt" db:"published_at"`
	PublicURL         string    `json:"publicUrl" db:"public_url"`
	MainImageURL      string    `json:"mainImageUrl,omitempty" db:"main_image_url"`
	MainImageKey      string    `json:"mainImageKey,omitempty" db:"main_image_key"`
	SecondaryImageURL string    `json:"secondaryImageUrl,omitempty" db:"secondary_image_url"`
	SecondaryImageKey string    `json:"secondaryImageKey,omitempty" db:"secondary_image_key"`
	CreatedAt         time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt         time.Time `json:"updatedAt" db:"updated_at"`
}

// ResearchPost is a research record as served to readers: body from the
// mirror and freshly signed image URLs (nil when unavailable).
type ResearchPost struct {
	ID                string    `json:"id"`
	Slug              string    `json:"slug"`
	Title             string    `json:"title"`
	Protocol          string    `json:"protocol"`
	Type              string    `json:"type"`
	Description       string    `json:"description"`
	Content           string    `json:"content"`
	PublishedAt       time.Time `json:"publishedAt"`
	PublicURL         string    `json:"publicUrl"`
	MainImage         *string   `json:"mainImage"`
	MainImageKey      string    `json:"mainImageKey,omitempty"`
	SecondaryImage    *string   `json:"secondaryImage"`
	SecondaryImageKey string    `json:"secondaryImageKey,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// NewResearchPost copies the record fields; content and images are filled by the caller
func NewResearchPost(r *Research) ResearchPost {
	return ResearchPost{
		ID:                r.ID,
		Slug:              r.Slug,
		Title:             r.Title,
		Protocol:          r.Protocol,
		Type:              r.Type,
		Description:       r.Description,
		Content:           r.Content,
		PublishedAt:       r.PublishedAt,
		PublicURL:         r.PublicURL,
		MainImageKey:      r.MainImageKey,
		SecondaryImageKey: r.SecondaryImageKey,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}
