package workspace

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is a reference implementation of the workspace file service over a
// local directory tree. It exists so the correction pipeline can run without
// an external workspace host: search walks the tree, read and edit operate
// on files under Root only.
type Server struct {
	root   string
	logger *slog.Logger
}

// NewServer creates a workspace service rooted at dir.
func NewServer(root string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{root: root, logger: logger}
}

// Router builds the chi router exposing the three operations.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Post("/v1/workspace/files/search", s.handleSearch)
	r.Post("/v1/workspace/files/read", s.handleRead)
	r.Post("/v1/workspace/files/edit", s.handleEdit)
	return r
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query       string `json:"query"`
		FilePattern string `json:"filePattern"`
		MaxResults  int    `json:"maxResults"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if req.MaxResults <= 0 {
		req.MaxResults = 50
	}

	matcher, err := compileGlob(req.FilePattern)
	if err != nil {
		http.Error(w, "bad file pattern", http.StatusBadRequest)
		return
	}

	var b strings.Builder
	count := 0
	filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || count >= req.MaxResults {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if !matcher.MatchString(rel) {
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		if !strings.Contains(string(content), req.Query) {
			return nil
		}
		fmt.Fprintf(&b, "## %s\n", rel)
		count++
		return nil
	})

	results := b.String()
	if count == 0 {
		results = "No matches found"
	}
	s.logger.Debug("workspace: search", "query", req.Query, "pattern", req.FilePattern, "hits", count)
	writeJSON(w, map[string]string{"results": results})
}

func (s *Server) handleRead(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FilePath string `json:"filePath"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	path, err := s.resolve(req.FilePath)
	if err != nil {
		writeJSON(w, map[string]any{"success": false, "content": ""})
		return
	}
	content, err := os.ReadFile(path)
	if err != nil {
		writeJSON(w, map[string]any{"success": false, "content": ""})
		return
	}
	writeJSON(w, map[string]any{"success": true, "content": string(content)})
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FilePath     string        `json:"filePath"`
		Replacements []Replacement `json:"replacements"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	path, err := s.resolve(req.FilePath)
	if err != nil {
		writeJSON(w, EditResult{Success: false, Errors: []string{err.Error()}})
		return
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		writeJSON(w, EditResult{Success: false, Errors: []string{fmt.Sprintf("read: %v", err)}})
		return
	}

	// Validate the whole batch before touching the file: an edit either
	// applies completely or not at all.
	content := string(raw)
	var errs []string
	for _, rep := range req.Replacements {
		if !strings.Contains(content, rep.OldString) {
			errs = append(errs, fmt.Sprintf("not found: %s", truncate(rep.OldString, 80)))
		}
	}
	if len(errs) > 0 {
		writeJSON(w, EditResult{Success: false, Errors: errs})
		return
	}

	for _, rep := range req.Replacements {
		content = strings.ReplaceAll(content, rep.OldString, rep.NewString)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		writeJSON(w, EditResult{Success: false, Errors: []string{fmt.Sprintf("write: %v", err)}})
		return
	}

	s.logger.Info("workspace: edited file", "path", req.FilePath, "replacements", len(req.Replacements))
	writeJSON(w, EditResult{Success: true})
}

// resolve maps a service path onto the root, rejecting escapes.
func (s *Server) resolve(p string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(p))
	if filepath.IsAbs(clean) {
		// Absolute paths are accepted when they already point under root.
		rel, err := filepath.Rel(s.root, clean)
		if err != nil || strings.HasPrefix(rel, "..") {
			return "", fmt.Errorf("path outside workspace: %s", p)
		}
		return clean, nil
	}
	if strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("path outside workspace: %s", p)
	}
	return filepath.Join(s.root, clean), nil
}

// compileGlob turns a file glob like "automation_tools/**/*.py" into a
// regexp. ** crosses directory separators, * and ? do not.
func compileGlob(pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		pattern = "**/*"
	}
	var b strings.Builder
	b.WriteString("^")
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		switch c {
		case '*':
			if i+1 < len(pattern) && pattern[i+1] == '*' {
				// "**/" matches zero or more path segments.
				if i+2 < len(pattern) && pattern[i+2] == '/' {
					b.WriteString(`(?:[^/]+/)*`)
					i += 2
				} else {
					b.WriteString(`.*`)
					i++
				}
			} else {
				b.WriteString(`[^/]*`)
			}
		case '?':
			b.WriteString(`[^/]`)
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	b.WriteString("$")
	return regexp.Compile(b.String())
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
