// Package project holds ingested projects in memory for the lifetime of
// the process.
//
// A project is created once from an ingestion result and never mutated
// afterwards. The store is bounded by entry count and age; the oldest or
// least recently used project is evicted first. There is no listing or
// deletion API.
package project

import (
	"errors"
	"time"

	"github.com/fyrsmithlabs/repolens/internal/filetree"
	"github.com/fyrsmithlabs/repolens/internal/ingest"
	"github.com/fyrsmithlabs/repolens/internal/search"
	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Common errors.
var (
	ErrProjectNotFound  = errors.New("project not found")
	ErrEmptyProjectName = errors.New("project name cannot be empty")
	ErrFileNotFound     = errors.New("file not found in project")
)

// Source records where a project's files came from.
type Source string

const (
	SourceGitHub Source = "github"
	SourceUpload Source = "upload"
	SourceLocal  Source = "local"
)

// Project is an ingested codebase.
type Project struct {
	// ID is the unique project identifier (UUID).
	ID string `json:"id"`

	// Name is the human-readable project name.
	Name string `json:"name"`

	Source Source `json:"source"`

	// Repository is owner/repo for GitHub projects.
	Repository string `json:"repository,omitempty"`

	Files     []ingest.File    `json:"-"`
	Tree      []*filetree.Node `json:"tree"`
	FileCount int              `json:"file_count"`
	Stats     ingest.Stats     `json:"stats"`

	CreatedAt time.Time `json:"created_at"`
}

// New creates a project from an ingestion result with a generated UUID.
func New(name string, source Source, res *ingest.Result) (*Project, error) {
	if name == "" {
		return nil, ErrEmptyProjectName
	}
	return &Project{
		ID:        uuid.New().String(),
		Name:      name,
		Source:    source,
		Files:     res.Files,
		Tree:      res.Tree,
		FileCount: res.FileCount,
		Stats:     res.Stats,
		CreatedAt: time.Now(),
	}, nil
}

// Imported returns the number of stored files.
func (p *Project) Imported() int {
	return len(p.Files)
}

// Documents returns the files in the shape the search engine takes.
func (p *Project) Documents() []search.Document {
	docs := make([]search.Document, len(p.Files))
	for i, f := range p.Files {
		docs[i] = search.Document{Path: f.Path, Content: f.Content}
	}
	return docs
}

// File returns the stored file at path.
func (p *Project) File(path string) (ingest.File, error) {
	for _, f := range p.Files {
		if f.Path == path {
			return f, nil
		}
	}
	return ingest.File{}, ErrFileNotFound
}

// Store is a bounded, expiring, concurrency-safe project cache.
type Store struct {
	cache *expirable.LRU[string, *Project]
}

// NewStore creates a Store holding at most maxEntries projects, each for at
// most ttl.
func NewStore(maxEntries int, ttl time.Duration) *Store {
	return &Store{cache: expirable.NewLRU[string, *Project](maxEntries, nil, ttl)}
}

// Put stores p, replacing any project with the same ID.
func (s *Store) Put(p *Project) *Project {
	s.cache.Add(p.ID, p)
	return p
}

// Get returns the project with the given ID. Malformed IDs never match.
func (s *Store) Get(id string) (*Project, bool) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, false
	}
	return s.cache.Get(id)
}

// Len returns the number of live projects.
func (s *Store) Len() int {
	return s.cache.Len()
}
