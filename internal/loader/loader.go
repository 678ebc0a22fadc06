// Package loader walks a textbook source tree and produces documents for
// indexing. Markdown files may carry a YAML frontmatter block; chapter and
// section fall back to the file's position in the tree when the frontmatter
// does not name them.
package loader

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lectern-ai/lectern-core/internal/core/domain"
	"github.com/lectern-ai/lectern-core/internal/core/ports/driven"
)

// Ensure Loader implements DocumentSource
var _ driven.DocumentSource = (*Loader)(nil)

// frontmatter is the YAML block at the top of a markdown file.
type frontmatter struct {
	Title   string `yaml:"title"`
	Chapter string `yaml:"chapter"`
	Section string `yaml:"section"`
}

// Loader reads .md/.mdx files under a root directory.
type Loader struct {
	root   string
	logger *slog.Logger
}

// New creates a loader over the given docs root.
func New(root string, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{root: root, logger: logger}
}

// Load walks the tree and returns every parseable document. A malformed
// file is skipped with a warning instead of failing the batch.
func (l *Loader) Load(ctx context.Context) ([]domain.Document, error) {
	var docs []domain.Document

	err := filepath.WalkDir(l.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() || !isMarkdown(path) {
			return nil
		}

		doc, err := l.loadFile(path)
		if err != nil {
			l.logger.Warn("skipping malformed document", "path", path, "error", err)
			return nil
		}
		docs = append(docs, *doc)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", l.root, err)
	}
	return docs, nil
}

// LoadOne loads a single document by its path relative to the root.
func (l *Loader) LoadOne(ctx context.Context, path string) (*domain.Document, error) {
	full := filepath.Join(l.root, filepath.Clean("/"+path))
	if !isMarkdown(full) {
		return nil, fmt.Errorf("%w: not a markdown file: %s", domain.ErrInvalidInput, path)
	}
	doc, err := l.loadFile(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, path)
		}
		return nil, err
	}
	return doc, nil
}

func isMarkdown(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".mdx":
		return true
	}
	return false
}

func (l *Loader) loadFile(path string) (*domain.Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	fm, body, err := splitFrontmatter(raw)
	if err != nil {
		return nil, err
	}

	content := stripMarkdown(string(body))
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("document has no content")
	}

	rel, err := filepath.Rel(l.root, path)
	if err != nil {
		rel = path
	}
	rel = filepath.ToSlash(rel)

	chapter, section := positionFromPath(rel)
	if fm.Chapter != "" {
		chapter = fm.Chapter
	}
	if fm.Section != "" {
		section = fm.Section
	}
	title := fm.Title
	if title == "" {
		title = titleFromPath(rel)
	}

	return &domain.Document{
		ID:      rel,
		Content: content,
		Metadata: map[string]string{
			domain.MetaTitle:        title,
			domain.MetaChapter:      chapter,
			domain.MetaSection:      section,
			domain.MetaRelativePath: rel,
			domain.MetaSource:       "docs",
		},
	}, nil
}

// splitFrontmatter separates an optional leading "---" YAML block from the
// markdown body. Bad YAML is an error so the file gets skipped loudly.
func splitFrontmatter(raw []byte) (frontmatter, []byte, error) {
	var fm frontmatter

	trimmed := bytes.TrimLeft(raw, "\uFEFF\n\r")
	if !bytes.HasPrefix(trimmed, []byte("---\n")) && !bytes.HasPrefix(trimmed, []byte("---\r\n")) {
		return fm, raw, nil
	}

	rest := trimmed[bytes.IndexByte(trimmed, '\n')+1:]
	end := bytes.Index(rest, []byte("\n---"))
	if end < 0 {
		return fm, nil, fmt.Errorf("unterminated frontmatter block")
	}

	if err := yaml.Unmarshal(rest[:end], &fm); err != nil {
		return fm, nil, fmt.Errorf("parsing frontmatter: %w", err)
	}

	body := rest[end+len("\n---"):]
	if i := bytes.IndexByte(body, '\n'); i >= 0 {
		body = body[i+1:]
	}
	return fm, body, nil
}

var (
	codeFenceRe  = regexp.MustCompile("(?s)```.*?```")
	inlineCodeRe = regexp.MustCompile("`([^`]*)`")
	imageRe      = regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`)
	linkRe       = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	headingRe    = regexp.MustCompile(`(?m)^#{1,6}\s*`)
	emphasisRe   = regexp.MustCompile(`[*_]{1,3}([^*_]+)[*_]{1,3}`)
	htmlTagRe    = regexp.MustCompile(`<[^>]+>`)
	blankRunRe   = regexp.MustCompile(`\n{3,}`)
)

// stripMarkdown reduces markdown to plain prose. Formatting carries no
// signal for embeddings; code blocks are dropped entirely because raw
// syntax pollutes similarity scores.
func stripMarkdown(text string) string {
	text = codeFenceRe.ReplaceAllString(text, "")
	text = imageRe.ReplaceAllString(text, "")
	text = linkRe.ReplaceAllString(text, "$1")
	text = inlineCodeRe.ReplaceAllString(text, "$1")
	text = headingRe.ReplaceAllString(text, "")
	text = emphasisRe.ReplaceAllString(text, "$1")
	text = htmlTagRe.ReplaceAllString(text, "")
	text = blankRunRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

var leadingNumberRe = regexp.MustCompile(`^\d+[-_.]?\s*`)

// positionFromPath derives chapter and section from a relative path like
// "03-energy/02-photosynthesis.md" -> chapter "3", section "2".
func positionFromPath(rel string) (chapter, section string) {
	parts := strings.Split(rel, "/")
	base := strings.TrimSuffix(parts[len(parts)-1], filepath.Ext(parts[len(parts)-1]))

	if len(parts) > 1 {
		chapter = numberOrName(parts[0])
		section = numberOrName(base)
	} else {
		chapter = numberOrName(base)
	}
	return chapter, section
}

// numberOrName extracts a leading number ("03-energy" -> "3"); names
// without one are used as-is.
func numberOrName(part string) string {
	m := leadingNumberRe.FindString(part)
	if m == "" {
		return part
	}
	return strings.TrimLeft(strings.TrimRight(m, "-_. \t"), "0")
}

// titleFromPath turns "02-photosynthesis.md" into "Photosynthesis".
func titleFromPath(rel string) string {
	base := filepath.Base(rel)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = leadingNumberRe.ReplaceAllString(base, "")
	base = strings.NewReplacer("-", " ", "_", " ").Replace(base)
	if base == "" {
		return ""
	}
	return strings.ToUpper(base[:1]) + base[1:]
}
