package canon

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/tradl-labs/newsgraph/pkg/common"
)

// Date layouts accepted for raw article dates, tried in order.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"02-01-2006",
	"02/01/2006",
	"2006/01/02",
}

// Canonicalizer turns raw article payloads into uniform Article records:
// cleaned text, a detected language tag, a parsed timestamp, a stable id and
// event tags.
type Canonicalizer struct {
	now func() time.Time
}

// NewCanonicalizer creates a Canonicalizer using the wall clock for records
// without a date.
func NewCanonicalizer() *Canonicalizer {
	return &Canonicalizer{now: time.Now}
}

// Canonicalize normalizes one raw record. It fails with ErrMalformedArticle
// when title and content are both empty or a non-empty date cannot be
// parsed; an empty date falls back to ingestion time.
func (c *Canonicalizer) Canonicalize(raw common.RawArticle) (common.Article, error) {
	title := cleanText(raw.Title)
	body := cleanText(raw.Content)
	if title == "" && body == "" {
		return common.Article{}, fmt.Errorf("article %q has no title and no content: %w", raw.ID, common.ErrMalformedArticle)
	}

	publishedAt, err := parseDate(raw.Date, c.now)
	if err != nil {
		return common.Article{}, fmt.Errorf("article %q: %w", raw.ID, err)
	}

	id := raw.ID
	if id == "" {
		id = contentID(title, body)
	}

	language := detectLanguage(title + " " + body)
	if language == "" {
		language = "en"
	}

	return common.Article{
		ID:          id,
		Title:       title,
		Body:        body,
		Source:      strings.TrimSpace(raw.Source),
		PublishedAt: publishedAt,
		Language:    language,
		Events:      DetectEvents(title + " " + body),
	}, nil
}

func parseDate(value string, now func() time.Time) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return now().UTC(), nil
	}

	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed.UTC(), nil
		}
	}

	return time.Time{}, fmt.Errorf("unparseable date %q: %w", value, common.ErrMalformedArticle)
}

// cleanText collapses whitespace and strips control and symbol characters,
// keeping letters, digits and basic sentence punctuation. Case is preserved
// for the recognizer.
func cleanText(value string) string {
	var b strings.Builder
	b.Grow(len(value))

	lastSpace := true
	for _, r := range value {
		switch {
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		case unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune(`.,!?-'"%&()`, r):
			b.WriteRune(r)
			lastSpace = false
		}
	}

	return strings.TrimSpace(b.String())
}

// contentID derives a stable article id from the cleaned text, used when
// the source supplies none. Identical resubmissions map to the same id.
func contentID(title string, body string) string {
	sum := md5.Sum([]byte(title + "\n" + body))
	return hex.EncodeToString(sum[:])
}
