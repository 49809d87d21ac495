package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/fyrsmithlabs/repolens/internal/analyze"
	"github.com/fyrsmithlabs/repolens/internal/ingest"
	"github.com/fyrsmithlabs/repolens/internal/project"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	// readmeFiles caps how many files are considered for the README prompt.
	readmeFiles = 30

	// readmeFileChars and readmeContextChars bound each file excerpt and the
	// whole excerpt block.
	readmeFileChars    = 2000
	readmeContextChars = 20_000

	// readmeKeyFiles is how many paths the template README lists.
	readmeKeyFiles = 10
)

// Readme is a generated README document.
type Readme struct {
	Text     string `json:"readme"`
	Source   Source `json:"source"`
	Provider string `json:"provider,omitempty"`
}

// Readme writes a README.md for p. Without a completion backend, or when
// every backend fails, a template README built from the file list is
// returned instead. Only cancellation is reported as an error.
func (a *Assistant) Readme(ctx context.Context, p *project.Project) (*Readme, error) {
	ctx, span := tracer.Start(ctx, "assistant.Readme")
	defer span.End()
	span.SetAttributes(attribute.String("project.id", p.ID))

	if a.chain.Len() == 0 {
		return &Readme{Text: templateReadme(p), Source: SourceLocal}, nil
	}

	text, provider, err := a.chain.complete(ctx, readmePrompt(p))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("generating readme: %w", ctxErr)
		}
		a.logger.Warn("all completion backends failed, using template readme",
			zap.String("project_id", p.ID),
			zap.Error(err),
		)
		return &Readme{Text: templateReadme(p), Source: SourceFallback}, nil
	}

	span.SetAttributes(attribute.String("provider", provider))
	return &Readme{Text: text, Source: SourceAI, Provider: provider}, nil
}

// readmeRank orders files so the manifest and existing docs lead the prompt.
func readmeRank(path string) int {
	switch {
	case strings.Contains(path, "package.json"):
		return 100
	case strings.Contains(path, "README"):
		return 90
	case strings.Contains(path, "src/"):
		return 80
	case strings.Contains(path, "app/"):
		return 70
	case strings.Contains(path, "components/"):
		return 60
	default:
		return 10
	}
}

// readmeContext renders the highest ranked files as excerpts. A file whose
// excerpt would overflow the block is skipped; later, shorter ones may fit.
func readmeContext(files []ingest.File) string {
	ranked := append([]ingest.File(nil), files[:min(readmeFiles, len(files))]...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return readmeRank(ranked[i].Path) > readmeRank(ranked[j].Path)
	})

	var b strings.Builder
	for _, f := range ranked {
		if b.Len() >= readmeContextChars {
			break
		}
		content := f.Content
		if len(content) > readmeFileChars {
			content = content[:readmeFileChars]
		}
		excerpt := fmt.Sprintf("--- %s ---\n%s\n\n", f.Path, content)
		if b.Len()+len(excerpt) <= readmeContextChars {
			b.WriteString(excerpt)
		}
	}
	return b.String()
}

type packageManifest struct {
	Name            string            `json:"name"`
	Version         string            `json:"version"`
	Description     string            `json:"description"`
	Main            string            `json:"main"`
	Scripts         map[string]string `json:"scripts"`
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

// packageInfo summarizes the first package.json in files. It returns "" when
// there is none or it does not parse.
func packageInfo(files []ingest.File, repo string) string {
	for _, f := range files {
		if !strings.Contains(f.Path, "package.json") {
			continue
		}
		var m packageManifest
		if err := json.Unmarshal([]byte(f.Content), &m); err != nil {
			return ""
		}
		scripts := "None"
		if len(m.Scripts) > 0 {
			names := make([]string, 0, len(m.Scripts))
			for name := range m.Scripts {
				names = append(names, name)
			}
			sort.Strings(names)
			scripts = strings.Join(names, ", ")
		}
		return fmt.Sprintf("Package Info:\n- Name: %s\n- Version: %s\n- Description: %s\n- Main Entry: %s\n- Scripts: %s\n- Dependencies: %d\n- Dev Dependencies: %d",
			orDefault(m.Name, orDefault(repo, "Not specified")),
			orDefault(m.Version, "Not specified"),
			orDefault(m.Description, "Not specified"),
			orDefault(m.Main, "Not specified"),
			scripts,
			len(m.Dependencies),
			len(m.DevDependencies),
		)
	}
	return ""
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// githubLinks lists the repository pages of a GitHub project.
func githubLinks(repository string) string {
	if repository == "" {
		return ""
	}
	base := "https://github.com/" + repository
	return fmt.Sprintf("GitHub Repository: %s\nGitHub Issues: %s/issues\nGitHub Discussions: %s/discussions",
		base, base, base)
}

func repoName(repository string) string {
	if _, name, ok := strings.Cut(repository, "/"); ok {
		return name
	}
	return ""
}

const readmePromptTemplate = `You are a senior developer writing a detailed, professional README.md for the project %q.
Base every section on the project files below. If something is not in the code, do not invent it.

%s

Key Files Content:
%s
%s

Include these sections, in Markdown:
1. Title with badges for the tech stack found in the files
2. Introduction: what this project does, in 2-3 paragraphs
3. Features found in the code
4. Tech Stack: libraries, their purpose and versions where known
5. Installation: %s
6. Configuration: environment variables and build settings found in the code
7. Project Structure: key directories and their purpose
8. API Reference, if API routes exist
9. Contributing
10. License: MIT if no license file is present`

func readmePrompt(p *project.Project) string {
	clone := "use `git clone <repository-url>`, the project was uploaded as an archive"
	if p.Repository != "" {
		clone = fmt.Sprintf("use `git clone https://github.com/%s.git`", p.Repository)
	}
	return fmt.Sprintf(readmePromptTemplate,
		p.Name,
		packageInfo(p.Files, repoName(p.Repository)),
		analyze.Redact(readmeContext(p.Files)),
		githubLinks(p.Repository),
		clone,
	)
}

// templateReadme is the README returned when no backend produced one.
func templateReadme(p *project.Project) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", p.Name)

	if links := githubLinks(p.Repository); links != "" {
		fmt.Fprintf(&b, "## GitHub\n%s\n\n", links)
	}

	b.WriteString("## Project Structure\n")
	fmt.Fprintf(&b, "This project contains %d files.\n\n", p.FileCount)
	if len(p.Files) > 0 {
		b.WriteString("### Key Files:\n")
		for _, f := range p.Files[:min(readmeKeyFiles, len(p.Files))] {
			fmt.Fprintf(&b, "- `%s`\n", f.Path)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Setup\n")
	if p.Repository != "" {
		fmt.Fprintf(&b, "1. Clone the repository: `git clone https://github.com/%s`\n", p.Repository)
	} else {
		b.WriteString("1. Clone the repository\n")
	}
	b.WriteString("2. Install dependencies: `npm install`\n")
	b.WriteString("3. Start development server: `npm run dev`\n\n")
	b.WriteString("---\n\n")
	b.WriteString("*Note: This README was generated from the file list because no AI service was available. Please edit it with your project details.*")
	return b.String()
}
