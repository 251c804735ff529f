package models

import (
	"fmt"
	"time"
)

type ApplicationStatus string

const (
	StatusPending  ApplicationStatus = "pending"
	StatusApproved ApplicationStatus = "approved"
	StatusRejected ApplicationStatus = "rejected"
)

func (s ApplicationStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// ApplicationKind names one of the three intake forms
type ApplicationKind string

const (
	KindAuditor ApplicationKind = "auditor"
	KindAudit   ApplicationKind = "audit"
	KindGrant   ApplicationKind = "grant"
)

func ParseApplicationKind(s string) (ApplicationKind, error) {
	switch k := ApplicationKind(s); k {
	case KindAuditor, KindAudit, KindGrant:
		return k, nil
	}
	return "", fmt.Errorf("unknown application kind %q", s)
}

type AuditorApplication struct {
	ID              string            `json:"id" db:"id"`
	Email           string            `json:"email" db:"email"`
	Name            string            `json:"name" db:"name"`
	GithubURL       string            `json:"githubUrl" db:"github_url"`
	ApplicationURL  string            `json:"applicationUrl,omitempty" db:"application_url"`
	PreviousAudits  StringList        `json:"previousAudits" db:"previous_audits"`
	YearsInClarity  int               `json:"yearsInClarity" db:"years_in_clarity"`
	YearsInSecurity int               `json:"yearsInSecurity" db:"years_in_security"`
	Referral        string            `json:"referral,omitempty" db:"referral"`
	Status          ApplicationStatus `json:"status" db:"status"`
	CreatedAt       time.Time         `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time         `json:"updatedAt" db:"updated_at"`
}

type AuditApplication struct {
	ID                 string            `json:"id" db:"id"`
	Email              string            `json:"email" db:"email"`
	Name               string            `json:"name" db:"name"`
	Team               string            `json:"team" db:"team"`
	LandingPageURL     string            `json:"landingPageUrl,omitempty" db:"landing_page_url"`
	GithubURL          string            `json:"githubUrl" db:"github_url"`
	TwitterURL         string            `json:"twitterUrl,omitempty" db:"twitter_url"`
	ContractCount      int               `json:"contractCount" db:"contract_count"`
	HasFundraised      bool              `json:"hasFundraised" db:"has_fundraised"`
	Has100TestCoverage bool              `json:"has100TestCoverage" db:"has_100_test_coverage"`
	HasAuditHash       bool              `json:"hasAuditHash" db:"has_audit_hash"`
	IsNewLaunch        bool              `json:"isNewLaunch" db:"is_new_launch"`
	Status             ApplicationStatus `json:"status" db:"status"`
	CreatedAt          time.Time         `json:"createdAt" db:"created_at"`
	UpdatedAt          time.Time         `json:"updatedAt" db:"updated_at"`
}

type GrantApplication struct {
	ID                    string            `json:"id" db:"id"`
	Name                  string            `json:"name" db:"name"`
	Email                 string            `json:"email" db:"email"`
	LandingPageURL        string            `json:"landingPageUrl,omitempty" db:"landing_page_url"`
	IsLive                bool              `json:"isLive" db:"is_live"`
	GithubURL             string            `json:"githubUrl,omitempty" db:"github_url"`
	TwitterURL            string            `json:"twitterUrl,omitempty" db:"twitter_url"`
	CommunityImpact       string            `json:"communityImpact" db:"community_impact"`
	SecurityImprovement   string            `json:"securityImprovement" db:"security_improvement"`
	CanLaunchWithoutGrant bool              `json:"canLaunchWithoutGrant" db:"can_launch_without_grant"`
	RequestedAmount       float64           `json:"requestedAmount" db:"requested_amount"`
	TimeLineProposal      string            `json:"timeLineProposal" db:"time_line_proposal"`
	TeamSize              int               `json:"teamSize" db:"team_size"`
	Status                ApplicationStatus `json:"status" db:"status"`
	CreatedAt             time.Time         `json:"createdAt" db:"created_at"`
	UpdatedAt             time.Time         `json:"updatedAt" db:"updated_at"`
}
