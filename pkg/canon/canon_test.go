package canon

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/tradl-labs/newsgraph/pkg/common"
)

func TestCanonicalize_NormalizesTextAndDate(t *testing.T) {
	c := NewCanonicalizer()

	article, err := c.Canonicalize(common.RawArticle{
		ID:      "a1",
		Title:   "HDFC Bank \t raises \n rates",
		Content: "The bank announced a 25 bps increase in interest rates today.",
		Source:  " Economic Times ",
		Date:    "2026-08-20",
	})
	if err != nil {
		t.Fatalf("Canonicalize: %v", err)
	}

	if article.Title != "HDFC Bank raises rates" {
		t.Fatalf("title = %q", article.Title)
	}
	if article.Source != "Economic Times" {
		t.Fatalf("source = %q", article.Source)
	}
	want := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	if !article.PublishedAt.Equal(want) {
		t.Fatalf("published_at = %v, want %v", article.PublishedAt, want)
	}
	if article.Language != "en" {
		t.Fatalf("language = %q, want en", article.Language)
	}
}

func TestCanonicalize_DateFormats(t *testing.T) {
	c := NewCanonicalizer()
	want := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)

	for _, date := range []string{"2026-08-20", "20-08-2026", "20/08/2026", "2026/08/20"} {
		t.Run(date, func(t *testing.T) {
			article, err := c.Canonicalize(common.RawArticle{
				Title:   "RBI keeps repo rate unchanged",
				Content: "No change this quarter.",
				Date:    date,
			})
			if err != nil {
				t.Fatalf("Canonicalize: %v", err)
			}
			if !article.PublishedAt.Equal(want) {
				t.Fatalf("published_at = %v, want %v", article.PublishedAt, want)
			}
		})
	}
}

func TestCanonicalize_MalformedInput(t *testing.T) {
	c := NewCanonicalizer()

	tests := []struct {
		name string
		raw  common.RawArticle
	}{
		{
			name: "empty title and content",
			raw:  common.RawArticle{ID: "a1", Date: "2026-08-20"},
		},
		{
			name: "unparseable date",
			raw:  common.RawArticle{ID: "a2", Title: "x", Content: "y", Date: "not a date"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Canonicalize(tt.raw)
			if !errors.Is(err, common.ErrMalformedArticle) {
				t.Fatalf("expected ErrMalformedArticle, got %v", err)
			}
		})
	}
}

func TestCanonicalize_EmptyDateFallsBackToNow(t *testing.T) {
	fixed := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	c := &Canonicalizer{now: func() time.Time { return fixed }}

	article, err := c.Canonicalize(common.RawArticle{Title: "t", Content: "c"})
	if err != nil {
		t.Fatalf("Canonicalize: %v", err)
	}
	if !article.PublishedAt.Equal(fixed) {
		t.Fatalf("published_at = %v, want %v", article.PublishedAt, fixed)
	}
}

func TestCanonicalize_StableContentID(t *testing.T) {
	c := NewCanonicalizer()
	raw := common.RawArticle{Title: "HDFC Bank raises rates", Content: "Details.", Date: "2026-08-20"}

	first, err := c.Canonicalize(raw)
	if err != nil {
		t.Fatalf("Canonicalize: %v", err)
	}
	second, err := c.Canonicalize(raw)
	if err != nil {
		t.Fatalf("Canonicalize: %v", err)
	}
	if first.ID == "" || first.ID != second.ID {
		t.Fatalf("content ids differ: %q vs %q", first.ID, second.ID)
	}
}

func TestDetectEvents(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "rate change",
			text: "RBI announces repo rate hike of 25 bps",
			want: []string{"rate_change"},
		},
		{
			name: "multiple tags",
			text: "Board approves dividend and share buyback after strong earnings",
			want: []string{"dividend", "buyback", "earnings"},
		},
		{
			name: "no tags",
			text: "Company opens new office in Pune",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectEvents(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("DetectEvents = %v, want %v", got, tt.want)
			}
		})
	}
}
