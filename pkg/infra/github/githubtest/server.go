// Package githubtest provides an in-memory fake of the GitHub contents and
// users API for tests.
package githubtest

import (
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path"
	"sort"
	"strings"
	"sync"
)

// Request is a request received by the fake, recorded for assertions
type Request struct {
	Method string
	Path   string
	Body   map[string]any
}

// Server is a fake GitHub REST API holding files of a single repository
type Server struct {
	*httptest.Server

	owner string
	repo  string
	login string

	mu       sync.Mutex
	files    map[string][]byte
	requests []Request
	commits  int
}

// NewServer starts a fake for owner/repo. Call Close when done.
func NewServer(owner, repo string) *Server {
	s := &Server{
		owner: owner,
		repo:  repo,
		login: "octocat",
		files: map[string][]byte{},
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// SetLogin sets the login returned by GET /user
func (s *Server) SetLogin(login string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.login = login
}

// PutFile seeds a file
func (s *Server) PutFile(filePath string, content []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[filePath] = content
}

// File returns the stored content of filePath
func (s *Server) File(filePath string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	content, ok := s.files[filePath]
	return content, ok
}

// Requests returns the requests received so far
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Writes returns the PUT requests received so far
func (s *Server) Writes() []Request {
	var writes []Request
	for _, r := range s.Requests() {
		if r.Method == http.MethodPut {
			writes = append(writes, r)
		}
	}
	return writes
}

// BlobSHA computes the git blob hash of content, as GitHub reports it
func BlobSHA(content []byte) string {
	h := sha1.New()
	fmt.Fprintf(h, "blob %d\x00", len(content))
	h.Write(content)
	return hex.EncodeToString(h.Sum(nil))
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	req := Request{Method: r.Method, Path: r.URL.Path}
	if r.Method == http.MethodPut {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Problems parsing JSON"})
			return
		}
		req.Body = body
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)

	if r.URL.Path == "/user" && r.Method == http.MethodGet {
		writeJSON(w, http.StatusOK, map[string]any{
			"login":      s.login,
			"name":       "The Octocat",
			"avatar_url": "https://avatars.example.com/" + s.login,
		})
		return
	}

	prefix := fmt.Sprintf("/repos/%s/%s/contents/", s.owner, s.repo)
	if !strings.HasPrefix(r.URL.Path, prefix) {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
		return
	}
	filePath := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, prefix), "/")

	switch r.Method {
	case http.MethodGet:
		s.get(w, filePath)
	case http.MethodPut:
		s.put(w, filePath, req.Body)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"message": "Method Not Allowed"})
	}
}

func (s *Server) get(w http.ResponseWriter, filePath string) {
	if content, ok := s.files[filePath]; ok {
		entry := s.entry(filePath, "file")
		entry["encoding"] = "base64"
		entry["content"] = wrapBase64(base64.StdEncoding.EncodeToString(content))
		writeJSON(w, http.StatusOK, entry)
		return
	}

	children := map[string]string{}
	dirPrefix := filePath + "/"
	for p := range s.files {
		if !strings.HasPrefix(p, dirPrefix) {
			continue
		}
		rest := strings.TrimPrefix(p, dirPrefix)
		if idx := strings.Index(rest, "/"); idx >= 0 {
			children[dirPrefix+rest[:idx]] = "dir"
		} else {
			children[p] = "file"
		}
	}
	if len(children) == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
		return
	}

	paths := make([]string, 0, len(children))
	for p := range children {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	entries := make([]map[string]any, 0, len(paths))
	for _, p := range paths {
		entries = append(entries, s.entry(p, children[p]))
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) put(w http.ResponseWriter, filePath string, body map[string]any) {
	encoded, _ := body["content"].(string)
	content, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": "content is not valid Base64"})
		return
	}
	sha, _ := body["sha"].(string)

	status := http.StatusCreated
	if current, ok := s.files[filePath]; ok {
		if sha == "" {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": "Invalid request.\n\n\"sha\" wasn't supplied."})
			return
		}
		if sha != BlobSHA(current) {
			writeJSON(w, http.StatusConflict, map[string]string{
				"message": fmt.Sprintf("%s does not match %s", filePath, sha),
			})
			return
		}
		status = http.StatusOK
	}

	s.files[filePath] = content
	s.commits++

	writeJSON(w, status, map[string]any{
		"content": s.entry(filePath, "file"),
		"commit": map[string]any{
			"sha":     fmt.Sprintf("%040d", s.commits),
			"message": body["message"],
		},
	})
}

func (s *Server) entry(filePath, typ string) map[string]any {
	entry := map[string]any{
		"type": typ,
		"name": path.Base(filePath),
		"path": filePath,
	}
	if typ == "file" {
		content := s.files[filePath]
		entry["sha"] = BlobSHA(content)
		entry["size"] = len(content)
		entry["html_url"] = fmt.Sprintf("https://github.com/%s/%s/blob/main/%s", s.owner, s.repo, filePath)
		entry["download_url"] = fmt.Sprintf("https://raw.githubusercontent.com/%s/%s/main/%s", s.owner, s.repo, filePath)
	} else {
		entry["sha"] = BlobSHA([]byte(filePath))
		entry["size"] = 0
	}
	return entry
}

// wrapBase64 breaks encoded data into 60 character lines like the real API
func wrapBase64(encoded string) string {
	var b strings.Builder
	for len(encoded) > 60 {
		b.WriteString(encoded[:60])
		b.WriteString("\n")
		encoded = encoded[60:]
	}
	b.WriteString(encoded)
	return b.String()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
