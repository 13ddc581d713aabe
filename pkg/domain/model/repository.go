package model

// EntryType is the kind of a repository contents entry
type EntryType string

const (
	EntryTypeFile    EntryType = "file"
	EntryTypeDir     EntryType = "dir"
	EntryTypeSymlink EntryType = "symlink"
)

// RepoEntry is one item of a directory listing from the contents API
type RepoEntry struct {
	Name string
	Path string
	SHA  string
	Type EntryType
	Size int
}

// RepoFile is a file fetched from the contents API with its body decoded
type RepoFile struct {
	Name    string
	Path    string
	SHA     string
	Content []byte
}

// CommitAuthor identifies who a CMS commit is attributed to
type CommitAuthor struct {
	Name  string
	Email string
}

// PutFileInput describes a single create-or-update write
type PutFileInput struct {
	Path    string
	Message string
	Content []byte
	// SHA is the expected prior blob hash. Empty means the file is created.
	SHA    string
	Author *CommitAuthor
}

// FileInfo is the upstream confirmation of a written file
type FileInfo struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	SHA         string `json:"sha"`
	Size        int    `json:"size"`
	HTMLURL     string `json:"html_url,omitempty"`
	DownloadURL string `json:"download_url,omitempty"`
	CommitSHA   string `json:"commit_sha,omitempty"`
}
