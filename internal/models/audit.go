package models

import "time"

type Audit struct {
	ID          string     `json:"id" db:"id"`
	Protocol    string     `json:"protocol" db:"protocol"`
	Contracts   StringList `json:"contracts" db:"contracts"`
	PublishedAt time.Time  `json:"publishedAt" db:"published_at"`
	PdfURL      string     `json:"pdfUrl" db:"pdf_url"`
	PdfKey      string     `json:"pdfKey" db:"pdf_key"`
	AuditURL    string     `json:"auditUrl,omitempty" db:"audit_url"`
	CreatedAt   time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time  `json:"updatedAt" db:"updated_at"`
}

// AuditorRef is the short form of an auditor attached to an audit
type AuditorRef struct {
	ID   string `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

type AuditWithAuditors struct {
	Audit
	Auditors []AuditorRef `json:"auditors"`
}

type Auditor struct {
	ID          string     `json:"id" db:"id"`
	Name        string     `json:"name" db:"name"`
	Team        string     `json:"team,omitempty" db:"team"`
	ProofOfWork StringList `json:"proofOfWork" db:"proof_of_work"`
	Contact     string     `json:"contact" db:"contact"`
	WebsiteURL  string     `json:"websiteUrl,omitempty" db:"website_url"`
	CreatedAt   time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time  `json:"updatedAt" db:"updated_at"`
}
