package types

import (
	"regexp"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// MarkdownExt is the extension of page files in the pages directory
const MarkdownExt = ".md"

var namePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// Slug identifies a page: its file name without the markdown extension
type Slug string

func (x Slug) String() string { return string(x) }

// Validate rejects empty slugs and anything that could leave the pages directory
func (x Slug) Validate() error {
	if x == "" {
		return goerr.New("Missing slug parameter", goerr.T(ErrTagBadRequest))
	}
	if !namePattern.MatchString(string(x)) || strings.Contains(string(x), "..") {
		return goerr.New("Invalid slug", goerr.T(ErrTagBadRequest), goerr.V("slug", string(x)))
	}
	return nil
}

// FileName returns the page file name, e.g. "about.md"
func (x Slug) FileName() string {
	return string(x) + MarkdownExt
}

// IsMarkdownFile reports whether name carries the markdown extension
func IsMarkdownFile(name string) bool {
	return strings.HasSuffix(name, MarkdownExt)
}

// SlugFromFileName strips the markdown extension from name
func SlugFromFileName(name string) Slug {
	return Slug(strings.TrimSuffix(name, MarkdownExt))
}

// ImageName is the file name of an uploaded image, extension included
type ImageName string

func (x ImageName) String() string { return string(x) }

// Validate rejects empty names and path components
func (x ImageName) Validate() error {
	if x == "" {
		return goerr.New("No file uploaded", goerr.T(ErrTagBadRequest))
	}
	if !namePattern.MatchString(string(x)) || strings.Contains(string(x), "..") {
		return goerr.New("Invalid file name", goerr.T(ErrTagBadRequest), goerr.V("name", string(x)))
	}
	return nil
}

// GitHubLogin is a GitHub account name
type GitHubLogin string

func (x GitHubLogin) String() string { return string(x) }
