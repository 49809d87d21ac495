package http

import (
	"github.com/fyrsmithlabs/repolens/internal/analyze"
	"github.com/fyrsmithlabs/repolens/internal/assistant"
	"github.com/fyrsmithlabs/repolens/internal/filetree"
	"github.com/fyrsmithlabs/repolens/internal/ingest"
)

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status   string `json:"status"`
	Projects int    `json:"projects"`
}

// IngestRequest is the request body for POST /api/v1/ingest. Either Owner
// and Repo or a Repository of the form owner/repo or a github.com URL must
// be set.
type IngestRequest struct {
	Owner      string `json:"owner"`
	Repo       string `json:"repo"`
	Repository string `json:"repository"`
	Token      string `json:"token"`
	Name       string `json:"name"`
}

// ProjectResponse describes a newly created project. It is returned by both
// ingestion endpoints.
type ProjectResponse struct {
	ProjectID string           `json:"project_id"`
	Name      string           `json:"name"`
	FileCount int              `json:"file_count"`
	Imported  int              `json:"imported"`
	Tree      []*filetree.Node `json:"tree"`
	Stats     ingest.Stats     `json:"stats"`
}

// TreeResponse is the response body for GET /api/v1/projects/:id/tree.
type TreeResponse struct {
	ProjectID string           `json:"project_id"`
	Tree      []*filetree.Node `json:"tree"`
}

// SearchRequest is the request body for POST /api/v1/projects/:id/search.
type SearchRequest struct {
	Query string `json:"query"`
}

// SearchHit is one ranked file. Content is reduced to a preview.
type SearchHit struct {
	Path      string   `json:"path"`
	Relevance int      `json:"relevance"`
	Matches   []string `json:"matches"`
	Preview   string   `json:"preview"`
}

// SearchResponse is the response body for POST /api/v1/projects/:id/search.
type SearchResponse struct {
	Query   string      `json:"query"`
	Results []SearchHit `json:"results"`
	Summary string      `json:"summary"`
}

// ChatRequest is the request body for POST /api/v1/projects/:id/chat.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse is the response body for POST /api/v1/projects/:id/chat.
type ChatResponse struct {
	Message  string           `json:"message"`
	Source   assistant.Source `json:"source"`
	Provider string           `json:"provider,omitempty"`
	Files    []string         `json:"files"`
}

// AnalyzeRequest is the request body for POST /api/v1/projects/:id/analyze.
type AnalyzeRequest struct {
	Path string `json:"path"`
}

// AnalyzeResponse is the response body for POST /api/v1/projects/:id/analyze.
type AnalyzeResponse struct {
	Path     string          `json:"path"`
	Language string          `json:"language"`
	Issues   []analyze.Issue `json:"issues"`
	Report   string          `json:"report"`
}

// FileChatRequest is the request body for POST /api/v1/projects/:id/chat/file.
type FileChatRequest struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// FileChatResponse is the response body for POST /api/v1/projects/:id/chat/file.
type FileChatResponse struct {
	Path     string           `json:"path"`
	Language string           `json:"language"`
	Intent   assistant.Intent `json:"intent"`
	Message  string           `json:"message"`
	Source   assistant.Source `json:"source"`
	Provider string           `json:"provider,omitempty"`
}

// ReadmeResponse is the response body for POST /api/v1/projects/:id/readme.
type ReadmeResponse struct {
	ProjectID string           `json:"project_id"`
	Readme    string           `json:"readme"`
	Source    assistant.Source `json:"source"`
	Provider  string           `json:"provider,omitempty"`
}
