package content

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"gopkg.in/yaml.v3"

	"github.com/orangehats/orangehats/internal/models"
)

const (
	// Ext is the extension of every mirror file
	Ext = ".mdx"

	dateLayout = "2006-01-02"
	isoLayout  = "2006-01-02T15:04:05.000Z07:00"
	delimiter  = "---"
)

var (
	dashRuns        = regexp.MustCompile(`-+`)
	unsafeSlugChars = regexp.MustCompile(`[^a-zA-Z0-9-]`)
)

// Post is one mirror file: front matter plus body
type Post struct {
	Title       string `yaml:"title" json:"title"`
	Protocol    string `yaml:"protocol" json:"protocol"`
	Type        string `yaml:"type" json:"type"`
	Description string `yaml:"description" json:"description"`
	PublishedAt string `yaml:"publishedAt" json:"publishedAt"`
	Slug        string `yaml:"slug" json:"slug"`
	ID          string `yaml:"id" json:"id"`
	PublicURL   string `yaml:"publicUrl" json:"publicUrl"`
	CreatedAt   string `yaml:"createdAt" json:"createdAt"`
	UpdatedAt   string `yaml:"updatedAt" json:"updatedAt"`
	Content     string `yaml:"-" json:"content"`
}

// Slugify lowercases title, collapses every run of other characters into a
// single dash and trims dashes at both ends.
func Slugify(title string) string {
	s := strings.ReplaceAll(slug.Make(title), "_", "-")
	s = dashRuns.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// NormalizeDate pins t to noon UTC of its UTC calendar day
func NormalizeDate(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 12, 0, 0, 0, time.UTC)
}

// fileToken is the slug as it appears inside a file name
func fileToken(s string) string {
	return unsafeSlugChars.ReplaceAllString(s, "-")
}

// FileName returns the mirror file name for a post published at publishedAt
func FileName(publishedAt time.Time, s string) string {
	return NormalizeDate(publishedAt).Format(dateLayout) + "-" + fileToken(s) + Ext
}

// PublicURL returns /research/{YYYY}/{MM}/{DD}/{slug}
func PublicURL(publishedAt time.Time, s string) string {
	d := NormalizeDate(publishedAt)
	return fmt.Sprintf("/research/%04d/%02d/%02d/%s", d.Year(), int(d.Month()), d.Day(), s)
}

// tokenOf extracts the slug token from a mirror file name. It returns
// false for names that do not follow {YYYY-MM-DD}-{token}.mdx.
func tokenOf(name string) (string, bool) {
	if !strings.HasSuffix(name, Ext) || len(name) <= len(dateLayout)+1+len(Ext) {
		return "", false
	}
	if _, err := time.Parse(dateLayout, name[:len(dateLayout)]); err != nil {
		return "", false
	}
	if name[len(dateLayout)] != '-' {
		return "", false
	}
	return strings.TrimSuffix(name[len(dateLayout)+1:], Ext), true
}

func newPost(r *models.Research) Post {
	return Post{
		Title:       r.Title,
		Protocol:    r.Protocol,
		Type:        r.Type,
		Description: r.Description,
		PublishedAt: NormalizeDate(r.PublishedAt).Format(dateLayout),
		Slug:        r.Slug,
		ID:          r.ID,
		PublicURL:   PublicURL(r.PublishedAt, r.Slug),
		CreatedAt:   r.CreatedAt.UTC().Format(isoLayout),
		UpdatedAt:   r.UpdatedAt.UTC().Format(isoLayout),
		Content:     r.Content,
	}
}

// encode renders front matter, a blank line and the body
func encode(p Post) ([]byte, error) {
	fm, err := yaml.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to encode front matter: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString(delimiter + "\n")
	buf.Write(fm)
	buf.WriteString(delimiter + "\n\n")
	buf.WriteString(p.Content)
	return buf.Bytes(), nil
}

// decode parses a mirror file written by encode or by hand
func decode(data []byte) (Post, error) {
	var p Post

	text := string(data)
	if strings.HasPrefix(text, delimiter+"\r\n") {
		text = strings.ReplaceAll(text, "\r\n", "\n")
	}
	if !strings.HasPrefix(text, delimiter+"\n") {
		return p, fmt.Errorf("missing front matter")
	}
	rest := text[len(delimiter)+1:]

	var fm, body string
	if strings.HasPrefix(rest, delimiter+"\n") || rest == delimiter {
		body = strings.TrimPrefix(rest, delimiter)
	} else {
		end := strings.Index(rest, "\n"+delimiter+"\n")
		if end < 0 {
			if !strings.HasSuffix(rest, "\n"+delimiter) {
				return p, fmt.Errorf("unterminated front matter")
			}
			end = len(rest) - len(delimiter) - 1
		}
		fm = rest[:end+1]
		body = rest[min(end+1+len(delimiter), len(rest)):]
	}
	body = strings.TrimPrefix(body, "\n")
	body = strings.TrimPrefix(body, "\n")

	if err := yaml.Unmarshal([]byte(fm), &p); err != nil {
		return p, fmt.Errorf("invalid front matter: %w", err)
	}
	p.Content = body
	return p, nil
}
