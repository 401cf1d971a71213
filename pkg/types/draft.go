// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"strings"
)

// OutlineSection describes one top-level section of an article outline.
type OutlineSection struct {
	// Title is the section heading.
	Title string `json:"title" yaml:"title"`

	// Subsections lists the ordered subsection headings (may be empty).
	Subsections []string `json:"subsections,omitempty" yaml:"subsections,omitempty"`
}

// Outline holds the article structure derived from the topic and mind map.
type Outline struct {
	// Sections lists the article's sections in order.
	Sections []OutlineSection `json:"sections" yaml:"sections"`
}

// Titles returns the section titles in outline order.
func (o Outline) Titles() []string {
	titles := make([]string, len(o.Sections))
	for i, s := range o.Sections {
		titles[i] = s.Title
	}
	return titles
}

// Markdown renders the outline as `#` / `##` headings.
func (o Outline) Markdown() string {
	var b strings.Builder
	for _, s := range o.Sections {
		fmt.Fprintf(&b, "# %s\n", s.Title)
		for _, sub := range s.Subsections {
			fmt.Fprintf(&b, "## %s\n", sub)
		}
	}
	return b.String()
}

// SectionStatus tracks a section's progress through synthesis.
type SectionStatus string

const (
	StatusPending     SectionStatus = "pending"
	StatusWritten     SectionStatus = "written"
	StatusRetried     SectionStatus = "retried"
	StatusPlaceholder SectionStatus = "placeholder"
)

// ArticleSection is one section of the article draft.
type ArticleSection struct {
	// Title is the section heading, copied from the outline.
	Title string `json:"title" yaml:"title"`

	// Subsections are the outline's subsection headings for this section.
	Subsections []string `json:"subsections,omitempty" yaml:"subsections,omitempty"`

	// Body is the generated section text (empty until written).
	Body string `json:"body" yaml:"body"`

	// Status records how the body was produced.
	Status SectionStatus `json:"status" yaml:"status"`

	// Attempts is the number of generation attempts made for the section.
	Attempts int `json:"attempts" yaml:"attempts"`

	// Error holds the last generation error for placeholder sections.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Article is the article draft: one section per outline entry, in outline order.
type Article struct {
	Topic    string           `json:"topic" yaml:"topic"`
	Outline  Outline          `json:"outline" yaml:"outline"`
	Sections []ArticleSection `json:"sections" yaml:"sections"`

	// Completed lists section indexes in the order their synthesis finished.
	Completed []int `json:"completed,omitempty" yaml:"completed,omitempty"`
}

// NewArticle creates an article with one pending section per outline entry.
func NewArticle(topic string, outline Outline) *Article {
	a := &Article{
		Topic:    topic,
		Outline:  outline,
		Sections: make([]ArticleSection, len(outline.Sections)),
	}
	for i, s := range outline.Sections {
		a.Sections[i] = ArticleSection{
			Title:       s.Title,
			Subsections: s.Subsections,
			Status:      StatusPending,
		}
	}
	return a
}

// Failed returns the indexes of sections that carry a placeholder body.
func (a *Article) Failed() []int {
	var idx []int
	for i, s := range a.Sections {
		if s.Status == StatusPlaceholder {
			idx = append(idx, i)
		}
	}
	return idx
}

// Complete reports whether every section has a body.
func (a *Article) Complete() bool {
	for _, s := range a.Sections {
		if s.Status == StatusPending {
			return false
		}
	}
	return true
}

// Draft concatenates the sections as `## Title` blocks in outline order.
func (a *Article) Draft() string {
	var b strings.Builder
	for i, s := range a.Sections {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "## %s\n\n%s", s.Title, strings.TrimSpace(s.Body))
	}
	return b.String()
}
