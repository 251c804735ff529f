package db

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

type DB struct {
	*sqlx.DB
}

// New opens (creating if needed) the sqlite database at path
func New(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	return Open(path + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
}

// Open opens a sqlite database from a raw DSN such as ":memory:"
func Open(dsn string) (*DB, error) {
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return &DB{db}, nil
}

func (db *DB) Migrate() error {
	migrations := []string{
		migrationUsers,
		migrationSessions,
		migrationAudits,
		migrationAuditors,
		migrationAuditAuditors,
		migrationResearch,
		migrationSecurityTools,
		migrationAuditApplications,
		migrationAuditorApplications,
		migrationGrantApplications,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}

const migrationUsers = `
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    username TEXT UNIQUE NOT NULL,
    password_hash TEXT NOT NULL DEFAULT '',
    auth_source TEXT NOT NULL DEFAULT 'local',
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
`

const migrationSessions = `
CREATE TABLE IF NOT EXISTS sessions (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    token_hash TEXT UNIQUE NOT NULL,
    expires_at TIMESTAMP NOT NULL,
    created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_expires ON sessions(expires_at);
`

const migrationAudits = `
CREATE TABLE IF NOT EXISTS audits (
    id TEXT PRIMARY KEY,
    protocol TEXT NOT NULL,
    contracts JSON NOT NULL DEFAULT '[]',
    published_at TIMESTAMP NOT NULL,
    pdf_url TEXT NOT NULL DEFAULT '',
    pdf_key TEXT NOT NULL DEFAULT '',
    audit_url TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audits_published ON audits(published_at);
`

const migrationAuditors = `
CREATE TABLE IF NOT EXISTS auditors (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    team TEXT NOT NULL DEFAULT '',
    proof_of_work JSON NOT NULL DEFAULT '[]',
    contact TEXT NOT NULL,
    website_url TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
`

const migrationAuditAuditors = `
CREATE TABLE IF NOT EXISTS audit_auditors (
    audit_id TEXT NOT NULL REFERENCES audits(id) ON DELETE CASCADE,
    auditor_id TEXT NOT NULL REFERENCES auditors(id) ON DELETE CASCADE,
    PRIMARY KEY (audit_id, auditor_id)
);
CREATE INDEX IF NOT EXISTS idx_audit_auditors_auditor ON audit_auditors(auditor_id);
`

const migrationResearch = `
CREATE TABLE IF NOT EXISTS research (
    id TEXT PRIMARY KEY,
    protocol TEXT NOT NULL,
    type TEXT NOT NULL,
    title TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    content TEXT NOT NULL DEFAULT '',
    slug TEXT UNIQUE NOT NULL,
    published_at TIMESTAMP NOT NULL,
    public_url TEXT NOT NULL DEFAULT '',
    main_image_url TEXT NOT NULL DEFAULT '',
    main_image_key TEXT NOT NULL DEFAULT '',
    secondary_image_url TEXT NOT NULL DEFAULT '',
    secondary_image_key TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_research_published ON research(published_at);
`

const migrationSecurityTools = `
CREATE TABLE IF NOT EXISTS security_tools (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    created_by TEXT NOT NULL DEFAULT '',
    description TEXT NOT NULL DEFAULT '',
    security_url TEXT NOT NULL DEFAULT '',
    image_url TEXT NOT NULL DEFAULT '',
    image_key TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
`

const migrationAuditApplications = `
CREATE TABLE IF NOT EXISTS audit_applications (
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL,
    name TEXT NOT NULL,
    team TEXT NOT NULL,
    landing_page_url TEXT NOT NULL DEFAULT '',
    github_url TEXT NOT NULL,
    twitter_url TEXT NOT NULL DEFAULT '',
    contract_count INTEGER NOT NULL DEFAULT 0,
    has_fundraised BOOLEAN NOT NULL DEFAULT 0,
    has_100_test_coverage BOOLEAN NOT NULL DEFAULT 0,
    has_audit_hash BOOLEAN NOT NULL DEFAULT 0,
    is_new_launch BOOLEAN NOT NULL DEFAULT 0,
    status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'approved', 'rejected')),
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_applications_status ON audit_applications(status);
`

const migrationAuditorApplications = `
CREATE TABLE IF NOT EXISTS auditor_applications (
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL,
    name TEXT NOT NULL,
    github_url TEXT NOT NULL,
    application_url TEXT NOT NULL DEFAULT '',
    previous_audits JSON NOT NULL DEFAULT '[]',
    years_in_clarity INTEGER NOT NULL DEFAULT 0,
    years_in_security INTEGER NOT NULL DEFAULT 0,
    referral TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'approved', 'rejected')),
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_auditor_applications_status ON auditor_applications(status);
`

const migrationGrantApplications = `
CREATE TABLE IF NOT EXISTS grant_applications (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    email TEXT NOT NULL,
    landing_page_url TEXT NOT NULL DEFAULT '',
    is_live BOOLEAN NOT NULL DEFAULT 0,
    github_url TEXT NOT NULL DEFAULT '',
    twitter_url TEXT NOT NULL DEFAULT '',
    community_impact TEXT NOT NULL,
    security_improvement TEXT NOT NULL,
    can_launch_without_grant BOOLEAN NOT NULL DEFAULT 0,
    requested_amount REAL NOT NULL DEFAULT 0,
    time_line_proposal TEXT NOT NULL,
    team_size INTEGER NOT NULL DEFAULT 0,
    status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'approved', 'rejected')),
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_grant_applications_status ON grant_applications(status);
`
