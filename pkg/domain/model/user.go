package model

import (
	"fmt"

	"github.com/m-mizutani/tidepool/pkg/domain/types"
)

// User is an authenticated GitHub account
type User struct {
	Login     types.GitHubLogin `json:"login"`
	Name      string            `json:"name,omitempty"`
	AvatarURL string            `json:"avatarUrl,omitempty"`
}

// CommitAuthor returns the author identity used for commits made on behalf of the user
func (x *User) CommitAuthor() *CommitAuthor {
	if x == nil || x.Login == "" {
		return nil
	}
	name := x.Name
	if name == "" {
		name = x.Login.String()
	}
	return &CommitAuthor{
		Name:  name,
		Email: fmt.Sprintf("%s@users.noreply.github.com", x.Login),
	}
}
