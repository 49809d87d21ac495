package http

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/fyrsmithlabs/repolens/internal/analyze"
	"github.com/fyrsmithlabs/repolens/internal/assistant"
	"github.com/fyrsmithlabs/repolens/internal/ingest"
	"github.com/fyrsmithlabs/repolens/internal/logging"
	"github.com/fyrsmithlabs/repolens/internal/project"
	"github.com/fyrsmithlabs/repolens/internal/search"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// listingFiles is how many paths a search summary lists when nothing matched.
const listingFiles = 10

// handleIngest ingests a GitHub repository and stores it as a project.
func (s *Server) handleIngest(c echo.Context) error {
	var req IngestRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid ingest request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	owner, repo := strings.TrimSpace(req.Owner), strings.TrimSpace(req.Repo)
	if req.Repository != "" {
		var ok bool
		if owner, repo, ok = parseRepository(req.Repository); !ok {
			return echo.NewHTTPError(http.StatusBadRequest, "repository must be owner/repo or a github.com URL")
		}
	}
	if !validName(owner) || !validName(repo) {
		return echo.NewHTTPError(http.StatusBadRequest, "owner and repo are required")
	}

	token := req.Token
	if token == "" {
		token = s.config.DefaultToken.Value()
	}

	ctx := logging.WithRepository(c.Request().Context(), owner, repo)
	res, err := s.deps.Ingester.Ingest(ctx, owner, repo, token)
	if err != nil {
		return s.fail(ctx, "repository ingestion failed", err)
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = owner + "/" + repo
	}
	p, err := s.store(ctx, name, project.SourceGitHub, owner+"/"+repo, res)
	if err != nil {
		return s.fail(ctx, "storing project failed", err)
	}

	return c.JSON(http.StatusCreated, projectResponse(p))
}

// handleUpload ingests a ZIP archive from the multipart "file" field.
func (s *Server) handleUpload(c echo.Context) error {
	req := c.Request()
	if req.ContentLength > s.config.MaxArchiveBytes {
		return s.fail(req.Context(), "upload rejected", &http.MaxBytesError{Limit: s.config.MaxArchiveBytes})
	}
	req.Body = http.MaxBytesReader(c.Response(), req.Body, s.config.MaxArchiveBytes)
	ctx := req.Context()

	fh, err := c.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return s.fail(ctx, "upload rejected", err)
		}
		return echo.NewHTTPError(http.StatusBadRequest, "multipart field \"file\" is required")
	}
	if fh.Size > s.config.MaxArchiveBytes {
		return s.fail(ctx, "upload rejected", &http.MaxBytesError{Limit: s.config.MaxArchiveBytes})
	}
	if !strings.HasSuffix(strings.ToLower(fh.Filename), ".zip") {
		return echo.NewHTTPError(http.StatusBadRequest, "only .zip archives are supported")
	}

	f, err := fh.Open()
	if err != nil {
		return s.fail(ctx, "opening upload failed", err)
	}
	defer f.Close()

	res, err := s.deps.Extractor.Extract(ctx, f, fh.Size)
	if err != nil {
		return s.fail(ctx, "archive extraction failed", err)
	}

	name := strings.TrimSpace(c.FormValue("name"))
	if name == "" {
		name = strings.TrimSuffix(path.Base(fh.Filename), path.Ext(fh.Filename))
	}
	p, err := s.store(ctx, name, project.SourceUpload, "", res)
	if err != nil {
		return s.fail(ctx, "storing project failed", err)
	}
	return c.JSON(http.StatusCreated, projectResponse(p))
}

// handleTree returns the project's file tree.
func (s *Server) handleTree(c echo.Context) error {
	p, _, err := s.project(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, TreeResponse{ProjectID: p.ID, Tree: p.Tree})
}

// handleSearch ranks the project's files against a query.
func (s *Server) handleSearch(c echo.Context) error {
	p, _, err := s.project(c)
	if err != nil {
		return err
	}

	var req SearchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query field is required")
	}

	docs := p.Documents()
	results := s.deps.Engine.Query(docs, query)

	resp := SearchResponse{Query: query, Results: make([]SearchHit, 0, len(results))}
	for _, r := range results {
		resp.Results = append(resp.Results, SearchHit{
			Path:      r.Path,
			Relevance: r.Relevance,
			Matches:   r.Matches,
			Preview:   search.Preview(r.Content),
		})
	}
	if len(results) > 0 {
		resp.Summary = search.Summarize(query, results)
	} else {
		resp.Summary = search.Listing(docs, listingFiles)
	}
	return c.JSON(http.StatusOK, resp)
}

// handleChat answers a question about the project.
func (s *Server) handleChat(c echo.Context) error {
	p, ctx, err := s.project(c)
	if err != nil {
		return err
	}

	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ans, err := s.deps.Assistant.Answer(ctx, p, req.Message)
	if errors.Is(err, assistant.ErrEmptyQuestion) {
		return echo.NewHTTPError(http.StatusBadRequest, "message field is required")
	}
	if err != nil {
		return s.fail(ctx, "answering question failed", err)
	}

	files := make([]string, len(ans.Results))
	for i, r := range ans.Results {
		files[i] = r.Path
	}
	return c.JSON(http.StatusOK, ChatResponse{
		Message:  ans.Text,
		Source:   ans.Source,
		Provider: ans.Provider,
		Files:    files,
	})
}

// handleFileChat answers a question about one project file.
func (s *Server) handleFileChat(c echo.Context) error {
	p, ctx, err := s.project(c)
	if err != nil {
		return err
	}

	var req FileChatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Path) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "path field is required")
	}

	ans, err := s.deps.Assistant.AnswerFile(ctx, p, req.Path, req.Message)
	if errors.Is(err, assistant.ErrEmptyQuestion) {
		return echo.NewHTTPError(http.StatusBadRequest, "message field is required")
	}
	if err != nil {
		return s.fail(ctx, "answering file question failed", err)
	}
	return c.JSON(http.StatusOK, FileChatResponse{
		Path:     ans.Path,
		Language: ans.Language,
		Intent:   ans.Intent,
		Message:  ans.Text,
		Source:   ans.Source,
		Provider: ans.Provider,
	})
}

// handleReadme generates a README for the project.
func (s *Server) handleReadme(c echo.Context) error {
	p, ctx, err := s.project(c)
	if err != nil {
		return err
	}

	r, err := s.deps.Assistant.Readme(ctx, p)
	if err != nil {
		return s.fail(ctx, "generating readme failed", err)
	}
	return c.JSON(http.StatusOK, ReadmeResponse{
		ProjectID: p.ID,
		Readme:    r.Text,
		Source:    r.Source,
		Provider:  r.Provider,
	})
}

// handleAnalyze runs the local static analyzer over one project file.
func (s *Server) handleAnalyze(c echo.Context) error {
	p, ctx, err := s.project(c)
	if err != nil {
		return err
	}

	var req AnalyzeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Path) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "path field is required")
	}

	f, err := p.File(req.Path)
	if err != nil {
		return s.fail(ctx, "analyze target missing", err)
	}

	filename := path.Base(f.Path)
	language := analyze.Language(filename)
	issues := analyze.Analyze(f.Content, language, filename)
	if issues == nil {
		issues = []analyze.Issue{}
	}
	return c.JSON(http.StatusOK, AnalyzeResponse{
		Path:     f.Path,
		Language: language,
		Issues:   issues,
		Report:   analyze.Report(issues, filename, language),
	})
}

// project resolves the :id parameter and tags the request context with it.
func (s *Server) project(c echo.Context) (*project.Project, context.Context, error) {
	ctx := c.Request().Context()
	p, ok := s.deps.Store.Get(c.Param("id"))
	if !ok {
		return nil, ctx, s.fail(ctx, "project lookup failed", project.ErrProjectNotFound)
	}
	ctx = logging.WithProjectID(ctx, p.ID)
	c.SetRequest(c.Request().WithContext(ctx))
	return p, ctx, nil
}

func (s *Server) store(ctx context.Context, name string, src project.Source, repository string, res *ingest.Result) (*project.Project, error) {
	p, err := project.New(name, src, res)
	if err != nil {
		return nil, err
	}
	p.Repository = repository
	s.deps.Store.Put(p)

	ctx = logging.WithProjectID(ctx, p.ID)
	s.logger.Info("project created", append(logging.ContextFields(ctx),
		zap.String("source", string(src)),
		zap.Int("file_count", p.FileCount),
		zap.Int("imported", p.Imported()),
	)...)
	return p, nil
}

// fail logs err with the request's correlation fields and converts it to
// an HTTP error.
func (s *Server) fail(ctx context.Context, msg string, err error) error {
	he := httpError(err)
	fields := append(logging.ContextFields(ctx), zap.Int("status", he.Code), zap.Error(err))
	if he.Code >= http.StatusInternalServerError {
		s.logger.Error(msg, fields...)
	} else {
		s.logger.Warn(msg, fields...)
	}
	return he
}

func projectResponse(p *project.Project) ProjectResponse {
	return ProjectResponse{
		ProjectID: p.ID,
		Name:      p.Name,
		FileCount: p.FileCount,
		Imported:  p.Imported(),
		Tree:      p.Tree,
		Stats:     p.Stats,
	}
}

var namePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,100}$`)

// validName reports whether s is a plausible GitHub owner or repository name.
func validName(s string) bool {
	return namePattern.MatchString(s) && s != "." && s != ".."
}

// parseRepository accepts owner/repo or a github.com URL, optionally with a
// .git suffix or a trailing path such as /tree/main.
func parseRepository(s string) (owner, repo string, ok bool) {
	s = strings.TrimSpace(s)

	var p string
	switch {
	case strings.Contains(s, "://"):
		u, err := url.Parse(s)
		if err != nil {
			return "", "", false
		}
		if host := strings.TrimPrefix(strings.ToLower(u.Host), "www."); host != "github.com" {
			return "", "", false
		}
		p = u.Path
	case strings.HasPrefix(strings.ToLower(s), "github.com/"):
		p = s[len("github.com/"):]
	default:
		if strings.Count(strings.Trim(s, "/"), "/") != 1 {
			return "", "", false
		}
		p = s
	}

	parts := strings.Split(strings.Trim(p, "/"), "/")
	if len(parts) < 2 {
		return "", "", false
	}
	owner, repo = parts[0], strings.TrimSuffix(parts[1], ".git")
	if !validName(owner) || !validName(repo) {
		return "", "", false
	}
	return owner, repo, true
}
