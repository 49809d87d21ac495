package pathfilter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type classification struct {
	ignore bool
	text   bool
}

// corpus covers every rule family at least once.
var corpus = map[string]classification{
	"package.json":                    {false, true},
	"README.md":                       {false, true},
	"readme":                          {false, true},
	"LICENSE":                         {false, true},
	"Dockerfile":                      {false, true},
	"Makefile":                        {false, true},
	"src/index.ts":                    {false, true},
	"src/components/App.tsx":          {false, true},
	"lib/util.js":                     {false, true},
	"app/page.jsx":                    {false, true},
	"server/main.go":                  {false, true},
	"scripts/deploy.sh":               {false, true},
	"db/schema.sql":                   {false, true},
	"prisma/schema.prisma":            {false, true},
	"api/user.proto":                  {false, true},
	"config/db.yaml":                  {false, true},
	"config/app.toml":                 {false, true},
	"styles/main.scss":                {false, true},
	"docs/guide.txt":                  {false, true},
	".gitignore":                      {false, true},
	"web/index.html":                  {false, true},
	"pkg/mod.rs":                      {false, true},
	"tool.py":                         {false, true},
	"schema.graphql":                  {false, true},
	"settings.ini":                    {false, true},
	"node_modules/x/y.js":             {true, true},
	"packages/a/node_modules/b.js":    {true, true},
	".git/config":                     {true, false},
	"dist/bundle.js":                  {true, true},
	"build/output.css":                {true, true},
	".next/server/page.js":            {true, true},
	"__pycache__/mod.pyc":             {true, false},
	"venv/lib/site.py":                {true, true},
	".venv/bin/activate":              {true, false},
	"coverage/lcov.info":              {true, false},
	".vscode/settings.json":           {true, true},
	".idea/workspace.xml":             {true, true},
	"package-lock.json":               {true, true},
	"web/yarn.lock":                   {true, false},
	"pnpm-lock.yaml":                  {true, true},
	".DS_Store":                       {true, false},
	".env":                            {true, false},
	".env.example":                    {true, true},
	".env.local":                      {true, false},
	".envrc":                          {true, false},
	".env-local":                      {true, false},
	"deploy/.env.production":          {true, false},
	"public/app.min.js":               {true, true},
	"public/app.js.map":               {true, false},
	"assets/logo.PNG":                 {true, false},
	"fonts/inter.woff2":               {true, false},
	"media/intro.mp4":                 {true, false},
	"release.tar.gz":                  {true, false},
	"debug.log":                       {true, false},
	"deploy/id_rsa":                   {true, false},
	"project.sublime-project":         {true, false},
	"redistributable/notes.md":        {false, true},
	"src/builder/index.ts":            {false, true},
	"docs/manual.pdf":                 {true, false},
	"bin/tool":                        {false, false},
	"images/diagram.svg":              {true, false},
}

func TestClassification(t *testing.T) {
	for p, want := range corpus {
		t.Run(p, func(t *testing.T) {
			assert.Equal(t, want.ignore, ShouldIgnore(p), "ShouldIgnore")
			assert.Equal(t, want.text, IsTextFile(p), "IsTextFile")
			assert.Equal(t, !want.ignore && want.text, Accept(p), "Accept")
		})
	}
}

func TestClassification_Deterministic(t *testing.T) {
	assert.GreaterOrEqual(t, len(corpus), 50)
	for i := 0; i < 3; i++ {
		for p, want := range corpus {
			assert.Equal(t, want.ignore, ShouldIgnore(p), p)
			assert.Equal(t, want.text, IsTextFile(p), p)
		}
	}
}

func TestIgnoreTakesPrecedence(t *testing.T) {
	for _, p := range []string{"node_modules/x/y.js", ".env.example", "package-lock.json", "dist/index.html"} {
		assert.True(t, IsTextFile(p), p)
		assert.False(t, Accept(p), p)
	}
}

func TestShouldIgnore_Normalization(t *testing.T) {
	assert.True(t, ShouldIgnore(""))
	assert.True(t, ShouldIgnore("/node_modules/a.js"))
	assert.False(t, ShouldIgnore("/src/a.ts"))
	assert.True(t, ShouldIgnore("Node_Modules/a.js"))
}
