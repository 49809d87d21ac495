package analyze

import "regexp"

// Category groups issues in reports.
type Category string

const (
	Security        Category = "security"
	Performance     Category = "performance"
	BestPractice    Category = "best-practice"
	Maintainability Category = "maintainability"
)

// Categories lists every category in report order.
var Categories = []Category{Security, Performance, BestPractice, Maintainability}

// Severity ranks an issue.
type Severity string

const (
	Low    Severity = "low"
	Medium Severity = "medium"
	High   Severity = "high"
)

// Rule is a line-level check.
type Rule struct {
	ID       string
	Category Category
	Severity Severity
	Message  string
	Pattern  string
}

type compiledRule struct {
	Rule
	re *regexp.Regexp
}

const envHint = " - consider using environment variables"

// DefaultRules returns the line-level checks applied to every file.
func DefaultRules() []Rule {
	return []Rule{
		// Security
		{ID: "hardcoded-api-key", Category: Security, Severity: High,
			Message: "Hardcoded API key detected" + envHint,
			Pattern: `api[_-]?key\s*[:=]\s*['"` + "`" + `]`},
		{ID: "hardcoded-password", Category: Security, Severity: High,
			Message: "Hardcoded password detected" + envHint,
			Pattern: `password\s*[:=]\s*['"` + "`" + `]`},
		{ID: "hardcoded-secret", Category: Security, Severity: High,
			Message: "Hardcoded secret detected" + envHint,
			Pattern: `secret\s*[:=]\s*['"` + "`" + `]`},
		{ID: "hardcoded-token", Category: Security, Severity: High,
			Message: "Hardcoded token detected" + envHint,
			Pattern: `token\s*[:=]\s*['"` + "`" + `]`},
		{ID: "hardcoded-private-key", Category: Security, Severity: High,
			Message: "Hardcoded private key detected" + envHint,
			Pattern: `private[_-]?key\s*[:=]\s*['"` + "`" + `]`},
		{ID: "env-file-reference", Category: Security, Severity: High,
			Message: "Potential environment variable file reference" + envHint,
			Pattern: `\.env\.[a-z]+`},
		{ID: "github-token", Category: Security, Severity: High,
			Message: "GitHub token detected" + envHint,
			Pattern: `(?:ghp|gho|ghu|ghs)_[A-Za-z0-9]{36}|github_pat_[A-Za-z0-9_]{22,}`},
		{ID: "aws-access-key-id", Category: Security, Severity: High,
			Message: "AWS access key ID detected" + envHint,
			Pattern: `(?:A3T[A-Z0-9]|AKIA|AGPA|AIDA|AROA|AIPA|ANPA|ANVA|ASIA)[A-Z0-9]{16}`},

		// Performance
		{ID: "uncached-length", Category: Performance, Severity: Medium,
			Message: "Cache array length in loop for better performance",
			Pattern: `for\s*\(\s*let\s+i\s*=\s*0\s*;\s*i\s*<\s*\w+\.length\s*;\s*i\+\+\s*\)`},
		{ID: "console-log", Category: Performance, Severity: Medium,
			Message: "Console.log in production code",
			Pattern: `console\.log\(`},
		{ID: "eval", Category: Performance, Severity: Medium,
			Message: "Avoid eval() for security and performance",
			Pattern: `\beval\(`},
		{ID: "inner-html", Category: Performance, Severity: Medium,
			Message: "Potential XSS vulnerability with innerHTML",
			Pattern: `innerHTML\s*=`},

		// Best practice
		{ID: "empty-catch", Category: BestPractice, Severity: Low,
			Message: "Empty catch block",
			Pattern: `catch\s*\(\s*\)|catch\s*(?:\(\s*\w*\s*\))?\s*\{\s*\}`},
		{ID: "log-only-catch", Category: BestPractice, Severity: Low,
			Message: "Generic error handling with only console.log",
			Pattern: `catch\s*\(\s*e\s*\)\s*\{\s*console\.log`},
		{ID: "any-type", Category: BestPractice, Severity: Low,
			Message: `Avoid using "any" type in TypeScript`,
			Pattern: `(?::|\bas|<)\s*any\b`},
		{ID: "long-function", Category: BestPractice, Severity: Low,
			Message: "Large function detected - consider breaking it down",
			Pattern: `function\s+\w+\s*\([^)]*\)\s*\{.{200,}`},
	}
}

// secretPatterns drive Redact. Each match is replaced wholesale.
var secretPatterns = []string{
	`(?i)(?:api[_-]?key|apikey)\s*[:=]\s*['"]?[A-Za-z0-9_\-]{16,64}['"]?`,
	`(?i)(?:secret|password|passwd|pwd)\s*[:=]\s*['"]?[^\s'"]{8,}['"]?`,
	`-----BEGIN (?:RSA |DSA |EC |OPENSSH |PGP )?PRIVATE KEY(?:[- ]BLOCK)?-----`,
	`(?:ghp|gho|ghu|ghs)_[A-Za-z0-9]{36}`,
	`github_pat_[A-Za-z0-9_]{22,}`,
	`glpat-[A-Za-z0-9\-]{20,}`,
	`xox[baprs]-[A-Za-z0-9\-]{10,}`,
	`(?:sk|pk)_(?:live|test)_[A-Za-z0-9]{24,}`,
	`(?:A3T[A-Z0-9]|AKIA|AGPA|AIDA|AROA|AIPA|ANPA|ANVA|ASIA)[A-Z0-9]{16}`,
	`(?i)(?:postgres|mysql|mongodb|redis|amqp)://[^:\s]+:[^@\s]+@[^\s]+`,
	`eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*`,
	`AIza[A-Za-z0-9_\-]{35}`,
	`sk-ant-[A-Za-z0-9_\-]{90,}`,
	`sk-[A-Za-z0-9]{48,}`,
	`npm_[A-Za-z0-9]{36}`,
	`(?i)bearer\s+[A-Za-z0-9_\-\.]{20,}`,
}
