// Package scanner discovers pages in a landing source tree.
//
// A page is a directory under the pages root holding an index.js script
// entry and an index.html template. The page name is the path between the
// pages anchor and the leaf file, so src/pages/blog/post/index.js yields the
// page "blog/post". Script entries and templates are matched independently
// with the same extraction rule, which is what pairs them by name.
package scanner

import (
	"context"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	lerrors "github.com/conneroisu/landing/internal/errors"
	"github.com/conneroisu/landing/internal/logging"
)

const (
	// ScriptLeaf is the file name of a page's script entry.
	ScriptLeaf = "index.js"
	// TemplateLeaf is the file name of a page's HTML template.
	TemplateLeaf = "index.html"
)

// ErrAnchorNotFound is returned when a matched path has no name segment
// between the pages anchor and the leaf file.
var ErrAnchorNotFound = lerrors.NewDiscoveryError("ANCHOR_NOT_FOUND",
	"matched path has no page name between the pages anchor and the leaf file")

// PageDescriptor names one page file.
type PageDescriptor struct {
	// Name is the page name derived from the directory path.
	Name string `json:"name" yaml:"name"`
	// Path is the matched file path, rooted at the scanner's source root.
	Path string `json:"path" yaml:"path"`
}

// Pages is the result of a full scan.
type Pages struct {
	Entries   map[string]string
	Templates []PageDescriptor
}

// Names returns the sorted union of page names across entries and templates.
func (p *Pages) Names() []string {
	seen := make(map[string]struct{}, len(p.Entries))
	for name := range p.Entries {
		seen[name] = struct{}{}
	}
	for _, tmpl := range p.Templates {
		seen[tmpl.Name] = struct{}{}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// matcher pairs a glob with the name extraction rule for one leaf file.
type matcher struct {
	glob    string
	extract *regexp.Regexp
}

func newMatcher(pagesDir, leaf string) *matcher {
	anchor := path.Base(pagesDir)
	return &matcher{
		glob:    path.Join(pagesDir, "**", leaf),
		extract: regexp.MustCompile("/" + regexp.QuoteMeta(anchor) + "/(.+)/" + regexp.QuoteMeta(leaf) + "$"),
	}
}

// name extracts the page name from a slash-separated match.
func (m *matcher) name(match string) (string, error) {
	sub := m.extract.FindStringSubmatch("/" + match)
	if sub == nil {
		return "", lerrors.NewDiscoveryError(ErrAnchorNotFound.Code, ErrAnchorNotFound.Message).
			WithLocation(match, 0).
			WithContext("pattern", m.extract.String())
	}
	return sub[1], nil
}

// PageScanner resolves entries and templates under a source root.
type PageScanner struct {
	root      string
	fsys      fs.FS
	scripts   *matcher
	templates *matcher
	logger    logging.Logger
}

// Options configures a PageScanner.
type Options struct {
	// PagesDir is the pages root relative to the source root. Defaults to "pages".
	PagesDir string
	// FS overrides the filesystem; it defaults to os.DirFS(root).
	FS     fs.FS
	Logger logging.Logger
}

// NewPageScanner creates a scanner rooted at root.
func NewPageScanner(root string, opts Options) *PageScanner {
	pagesDir := opts.PagesDir
	if pagesDir == "" {
		pagesDir = "pages"
	}
	fsys := opts.FS
	if fsys == nil {
		fsys = os.DirFS(root)
	}
	var logger logging.Logger = logging.Nop()
	if opts.Logger != nil {
		logger = opts.Logger
	}
	return &PageScanner{
		root:      root,
		fsys:      fsys,
		scripts:   newMatcher(pagesDir, ScriptLeaf),
		templates: newMatcher(pagesDir, TemplateLeaf),
		logger:    logger.WithComponent("scanner"),
	}
}

// ResolveEntries maps every page name to its script entry path. When two
// matches produce the same name the later one wins.
func (s *PageScanner) ResolveEntries(ctx context.Context) (map[string]string, error) {
	descriptors, err := s.scan(s.scripts)
	if err != nil {
		return nil, err
	}

	entries := make(map[string]string, len(descriptors))
	for _, d := range descriptors {
		if prev, ok := entries[d.Name]; ok {
			s.logger.Warn(ctx, nil, "Duplicate page name, keeping the later entry",
				"page", d.Name, "previous", prev, "path", d.Path)
		}
		entries[d.Name] = d.Path
	}
	return entries, nil
}

// ResolveTemplates lists every page template in scan order.
func (s *PageScanner) ResolveTemplates(ctx context.Context) ([]PageDescriptor, error) {
	return s.scan(s.templates)
}

// Resolve runs both scans. Names that only have one half of the pair are
// kept: an entry without a template is bundled but gets no page, and a
// template without an entry is emitted without a script.
func (s *PageScanner) Resolve(ctx context.Context) (*Pages, error) {
	entries, err := s.ResolveEntries(ctx)
	if err != nil {
		return nil, err
	}
	templates, err := s.ResolveTemplates(ctx)
	if err != nil {
		return nil, err
	}

	for _, t := range templates {
		if _, ok := entries[t.Name]; !ok {
			s.logger.Debug(ctx, "Template has no script entry", "page", t.Name)
		}
	}

	s.logger.Info(ctx, "Pages discovered", "entries", len(entries), "templates", len(templates))
	return &Pages{Entries: entries, Templates: templates}, nil
}

func (s *PageScanner) scan(m *matcher) ([]PageDescriptor, error) {
	matches, err := doublestar.Glob(s.fsys, m.glob, doublestar.WithFilesOnly())
	if err != nil {
		return nil, lerrors.NewIOError("GLOB_FAILED", m.glob, err)
	}

	descriptors := make([]PageDescriptor, 0, len(matches))
	for _, match := range matches {
		name, err := m.name(match)
		if err != nil {
			return nil, err
		}
		descriptors = append(descriptors, PageDescriptor{
			Name: name,
			Path: filepath.Join(s.root, filepath.FromSlash(match)),
		})
	}
	return descriptors, nil
}
