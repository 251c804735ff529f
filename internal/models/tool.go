package models

import "time"

type SecurityTool struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	CreatedBy   string    `json:"createdBy" db:"created_by"`
	Description string    `json:"description" db:"description"`
	SecurityURL string    `json:"securityUrl,omitempty" db:"security_url"`
	ImageURL    string    `json:"imageUrl,omitempty" db:"image_url"`
	ImageKey    string    `json:"imageKey,omitempty" db:"image_key"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

// ToolWithImage carries a signed image URL resolved at read time
type ToolWithImage struct {
	SecurityTool
	SignedImageURL *string `json:"signedImageUrl"`
}
