package types_test

import (
	"testing"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/tidepool/pkg/domain/types"
)

func TestSlug_Validate(t *testing.T) {
	tests := []struct {
		name    string
		slug    types.Slug
		wantErr bool
	}{
		{name: "simple", slug: "about", wantErr: false},
		{name: "with dash and digits", slug: "pool-opening-2024", wantErr: false},
		{name: "with dot", slug: "v1.2", wantErr: false},
		{name: "empty", slug: "", wantErr: true},
		{name: "path separator", slug: "a/b", wantErr: true},
		{name: "parent traversal", slug: "..", wantErr: true},
		{name: "embedded traversal", slug: "a..b", wantErr: true},
		{name: "leading dot", slug: ".hidden", wantErr: true},
		{name: "backslash", slug: `a\b`, wantErr: true},
		{name: "space", slug: "a b", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.slug.Validate()
			if tt.wantErr {
				gt.Error(t, err)
				gt.True(t, goerr.HasTag(err, types.ErrTagBadRequest))
			} else {
				gt.NoError(t, err)
			}
		})
	}
}

func TestSlugFromFileName(t *testing.T) {
	gt.Equal(t, types.SlugFromFileName("about.md"), types.Slug("about"))
	gt.Equal(t, types.SlugFromFileName("notes.md.md"), types.Slug("notes.md"))
	gt.Equal(t, types.Slug("home").FileName(), "home.md")
	gt.True(t, types.IsMarkdownFile("home.md"))
	gt.False(t, types.IsMarkdownFile("home.mdx"))
	gt.False(t, types.IsMarkdownFile("README"))
}

func TestImageName_Validate(t *testing.T) {
	gt.NoError(t, types.ImageName("pool_1.png").Validate())
	gt.Error(t, types.ImageName("").Validate())
	gt.Error(t, types.ImageName("../secret.png").Validate())
	gt.Error(t, types.ImageName("dir/pool.png").Validate())
}

func TestUpstreamError(t *testing.T) {
	err := &types.UpstreamError{Status: 404}
	gt.Equal(t, err.Error(), "GitHub API error: 404")
	gt.True(t, err.IsNotFound())

	err = &types.UpstreamError{Status: 409, Message: "sha does not match"}
	gt.Equal(t, err.Error(), "sha does not match")
	gt.False(t, err.IsNotFound())
}
