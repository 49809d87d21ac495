package assistant

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/fyrsmithlabs/repolens/internal/analyze"
	"github.com/fyrsmithlabs/repolens/internal/project"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// fileExcerptChars bounds the file content sent with explain, refactor and
// free-form questions. Comment requests send the whole file up to
// Options.PromptChars since the reply is the file itself.
const fileExcerptChars = 5000

// Intent classifies a question about a single file.
type Intent string

const (
	IntentComment  Intent = "comment"
	IntentExplain  Intent = "explain"
	IntentRefactor Intent = "refactor"
	IntentQuestion Intent = "question"
)

// DetectIntent classifies message by keyword. Comment requests win over
// explanations, which win over refactors.
func DetectIntent(message string) Intent {
	m := strings.ToLower(message)
	switch {
	case strings.Contains(m, "comment"):
		return IntentComment
	case strings.Contains(m, "explain"), strings.Contains(m, "what does this do"):
		return IntentExplain
	case strings.Contains(m, "refactor"), strings.Contains(m, "improve"):
		return IntentRefactor
	default:
		return IntentQuestion
	}
}

// FileAnswer is the response to a question about one file.
type FileAnswer struct {
	Path     string `json:"path"`
	Language string `json:"language"`
	Intent   Intent `json:"intent"`
	Text     string `json:"message"`
	Source   Source `json:"source"`
	Provider string `json:"provider,omitempty"`
}

// AnswerFile answers message about the file at filePath in p. Without a
// backend, or when every backend fails, the answer comes from the local
// static analyzer. Unknown paths return project.ErrFileNotFound.
func (a *Assistant) AnswerFile(ctx context.Context, p *project.Project, filePath, message string) (*FileAnswer, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyQuestion
	}
	f, err := p.File(filePath)
	if err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "assistant.AnswerFile")
	defer span.End()

	filename := path.Base(f.Path)
	ans := &FileAnswer{
		Path:     f.Path,
		Language: analyze.Language(filename),
		Intent:   DetectIntent(message),
	}
	span.SetAttributes(
		attribute.String("project.id", p.ID),
		attribute.String("intent", string(ans.Intent)),
	)

	if a.chain.Len() == 0 {
		ans.Text, ans.Source = localFileAnswer(f.Content, filename, ans.Language, ans.Intent), SourceLocal
		return ans, nil
	}

	prompt := filePrompt(ans.Intent, message, ans.Language, analyze.Redact(f.Content), a.opts.PromptChars)
	text, provider, err := a.chain.complete(ctx, prompt)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("answering file question: %w", ctxErr)
		}
		a.logger.Warn("all completion backends failed, analyzing file locally",
			zap.String("project_id", p.ID),
			zap.String("path", f.Path),
			zap.Error(err),
		)
		ans.Text = "The AI service is unavailable right now. Here is a local analysis instead:\n\n" +
			localFileAnswer(f.Content, filename, ans.Language, ans.Intent)
		ans.Source = SourceFallback
		return ans, nil
	}

	span.SetAttributes(attribute.String("provider", provider))
	ans.Text, ans.Source, ans.Provider = text, SourceAI, provider
	return ans, nil
}

func clip(s string, n int) string {
	if n > 0 && len(s) > n {
		return s[:n]
	}
	return s
}

// filePrompt builds the intent-specific prompt. content is already redacted.
func filePrompt(intent Intent, message, language, content string, budget int) string {
	switch intent {
	case IntentComment:
		return fmt.Sprintf(`Add helpful comments to this %[1]s code to explain the complex parts.

Return ONLY the commented code, with no explanation before or after.
Keep the existing code exactly as it is and only add comments.

`+"```%[1]s\n%[2]s\n```", language, clip(content, budget))
	case IntentExplain:
		return fmt.Sprintf("Explain what this %[1]s code does in simple terms, in 2-3 paragraphs at most.\n\n```%[1]s\n%[2]s\n```",
			language, clip(content, fileExcerptChars))
	case IntentRefactor:
		return fmt.Sprintf("Refactor this %[1]s code to improve it. Return the refactored code with a brief explanation of each change.\n\n```%[1]s\n%[2]s\n```",
			language, clip(content, fileExcerptChars))
	default:
		return fmt.Sprintf("User asked: %[1]q\n\nAbout this %[2]s code:\n```%[2]s\n%[3]s\n```\n\nAnswer the question directly and concisely.",
			message, language, clip(content, fileExcerptChars))
	}
}

// localFileAnswer answers without a backend. Comment requests get the lines
// that declare functions or components; everything else gets the static
// analysis report.
func localFileAnswer(content, filename, language string, intent Intent) string {
	report := analyze.Report(analyze.Analyze(content, language, filename), filename, language)
	if intent != IntentComment {
		return report
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## Comment Suggestions for %s\n\n", filename)
	n := 0
	for i, line := range strings.Split(content, "\n") {
		if !declaresFunction(line) {
			continue
		}
		n++
		kind := "component"
		if strings.Contains(line, "function") {
			kind = "function"
		}
		fmt.Fprintf(&b, "%d. **Line %d**: `%s`\n   Add a description for this %s.\n\n",
			n, i+1, clipEllipsis(strings.TrimSpace(line), 60), kind)
	}
	if n == 0 {
		b.WriteString("No function or component declarations were found.\n\n")
	}
	b.WriteString(report)
	return b.String()
}

func declaresFunction(line string) bool {
	if strings.Contains(line, "export default") || strings.Contains(line, "function ") {
		return true
	}
	return strings.Contains(line, "const ") &&
		(strings.Contains(line, "= () =>") || strings.Contains(line, "= function"))
}

func clipEllipsis(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
