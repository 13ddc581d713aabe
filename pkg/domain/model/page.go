package model

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/tidepool/pkg/domain/types"
)

// PageSummary is one entry of the page listing
type PageSummary struct {
	Name string     `json:"name"`
	Slug types.Slug `json:"slug"`
}

// PageList is the response envelope of the page listing
type PageList struct {
	Files []*PageSummary `json:"files"`
}

// Page is a markdown page with its version token
type Page struct {
	Name        string       `json:"name"`
	SHA         string       `json:"sha"`
	Content     string       `json:"content"`
	FrontMatter *FrontMatter `json:"frontmatter,omitempty"`
}

// Promotion is a promotional image/text pair declared in front matter
type Promotion struct {
	Image string `json:"image"`
	Text  string `json:"text"`
}

// FrontMatter is the parsed YAML header of a page
type FrontMatter struct {
	Title       string         `json:"title,omitempty"`
	Description string         `json:"description,omitempty"`
	Promotions  []*Promotion   `json:"promotions,omitempty"`
	Raw         map[string]any `json:"raw,omitempty"`
}

// UpdatePageInput is the body of a page update
type UpdatePageInput struct {
	Content string `json:"content"`
	SHA     string `json:"sha"`
}

// Validate checks that both the new content and the prior version token are present
func (x *UpdatePageInput) Validate() error {
	if err := validation.ValidateStruct(x,
		validation.Field(&x.Content, validation.Required),
		validation.Field(&x.SHA, validation.Required),
	); err != nil {
		return goerr.Wrap(err, "Missing content or sha", goerr.T(types.ErrTagBadRequest))
	}
	return nil
}

// UpdatePageResult carries the upstream confirmation of a page write
type UpdatePageResult struct {
	Content *FileInfo `json:"content"`
}

// PreviewInput is the body of a preview request
type PreviewInput struct {
	Content string `json:"content"`
}

// Preview is markdown rendered to HTML together with its front matter
type Preview struct {
	HTML        string       `json:"html"`
	FrontMatter *FrontMatter `json:"frontmatter,omitempty"`
}
