package storage

import (
	"fmt"
	"mime"
	"net/url"
	"path"
	"regexp"
	"strings"
)

// Kind selects the key scheme of an uploaded asset
type Kind string

const (
	KindAuditPDF               Kind = "audit-pdf"
	KindResearchMainImage      Kind = "research-main"
	KindResearchSecondaryImage Kind = "research-secondary"
	KindToolImage              Kind = "tool-image"
)

const (
	// TempPrefix holds uploads made before their entity exists
	TempPrefix = "temp/"
	// NewEntityID is the placeholder id clients send for an entity not yet created
	NewEntityID = "new"
)

var unsafeFileChars = regexp.MustCompile(`[^a-zA-Z0-9.-]`)

// SanitizeFileName replaces every character outside [a-zA-Z0-9.-] with '_'
func SanitizeFileName(name string) string {
	return unsafeFileChars.ReplaceAllString(name, "_")
}

// ImageKind maps the research image slot name to its Kind
func ImageKind(slot string) (Kind, error) {
	switch slot {
	case "main":
		return KindResearchMainImage, nil
	case "secondary":
		return KindResearchSecondaryImage, nil
	default:
		return "", fmt.Errorf("unknown image type %q", slot)
	}
}

// KeyFor derives the object key of fileName for the entity. An empty or
// "new" entityID yields a temporary key.
func KeyFor(kind Kind, entityID, fileName string) (string, error) {
	file := SanitizeFileName(fileName)
	if file == "" || strings.Trim(file, ".") == "" {
		return "", fmt.Errorf("invalid file name %q", fileName)
	}

	if entityID == "" || entityID == NewEntityID {
		return TempPrefix + file, nil
	}
	if strings.ContainsAny(entityID, "/\\") {
		return "", fmt.Errorf("invalid entity id %q", entityID)
	}

	switch kind {
	case KindAuditPDF:
		return "audits/" + entityID + "/" + file, nil
	case KindResearchMainImage:
		return "research/" + entityID + "/main/" + file, nil
	case KindResearchSecondaryImage:
		return "research/" + entityID + "/secondary/" + file, nil
	case KindToolImage:
		return "tools/" + entityID + "/" + file, nil
	default:
		return "", fmt.Errorf("unknown asset kind %q", kind)
	}
}

// IsTemp reports whether key lives under the temporary prefix
func IsTemp(key string) bool {
	return strings.HasPrefix(key, TempPrefix)
}

// ContentTypeFor returns the upload content type for a file of the given kind
func ContentTypeFor(kind Kind, fileName string) string {
	if kind == KindAuditPDF {
		return "application/pdf"
	}
	ct := mime.TypeByExtension(strings.ToLower(path.Ext(fileName)))
	if strings.HasPrefix(ct, "image/") {
		return ct
	}
	return "image/*"
}

// KeyFromURL recovers the object key from a permanent URL issued by an
// AWS endpoint. It returns "" when the URL is not recognised.
func KeyFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || !strings.HasSuffix(u.Hostname(), ".amazonaws.com") {
		return ""
	}
	return strings.TrimPrefix(u.Path, "/")
}
