package build

import (
	"path"
	"sort"
	"strings"
	"sync"
)

// AssetKind classifies an emitted file.
type AssetKind string

const (
	KindScript AssetKind = "script"
	KindStyle  AssetKind = "style"
	KindImage  AssetKind = "image"
	KindFont   AssetKind = "font"
	KindHTML   AssetKind = "html"
	KindStatic AssetKind = "static"
	KindOther  AssetKind = "other"
)

// Asset is one file of the output tree, held in memory until the build
// succeeds.
type Asset struct {
	// Name is the slash-separated path relative to the output root.
	Name string
	Data []byte
	Kind AssetKind
	// Entry is the page the asset was bundled for, if any.
	Entry string
	// Source is the file the asset was produced from, if any.
	Source string
}

// Size returns the asset size in bytes.
func (a *Asset) Size() int64 { return int64(len(a.Data)) }

// AssetSet is a concurrency-safe collection of assets keyed by name.
type AssetSet struct {
	mu     sync.RWMutex
	assets map[string]*Asset
}

// NewAssetSet creates an empty set.
func NewAssetSet() *AssetSet {
	return &AssetSet{assets: make(map[string]*Asset)}
}

// Emit adds or replaces an asset.
func (s *AssetSet) Emit(a *Asset) {
	a.Name = path.Clean(a.Name)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assets[a.Name] = a
}

// EmitOnce adds a unless an asset of the same name exists. It reports
// whether a was added.
func (s *AssetSet) EmitOnce(a *Asset) bool {
	a.Name = path.Clean(a.Name)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.assets[a.Name]; ok {
		return false
	}
	s.assets[a.Name] = a
	return true
}

// Get returns the asset called name.
func (s *AssetSet) Get(name string) (*Asset, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assets[name]
	return a, ok
}

// Rename moves an asset to a new name.
func (s *AssetSet) Rename(from, to string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.assets[from]
	if !ok {
		return
	}
	delete(s.assets, from)
	a.Name = path.Clean(to)
	s.assets[a.Name] = a
}

// Replace swaps the contents of an existing asset.
func (s *AssetSet) Replace(name string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.assets[name]; ok {
		a.Data = data
	}
}

// Len returns the number of assets.
func (s *AssetSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.assets)
}

// All returns the assets sorted by name.
func (s *AssetSet) All() []*Asset {
	s.mu.RLock()
	out := make([]*Asset, 0, len(s.assets))
	for _, a := range s.assets {
		out = append(out, a)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// OfKind returns the assets of one kind sorted by name.
func (s *AssetSet) OfKind(kind AssetKind) []*Asset {
	var out []*Asset
	for _, a := range s.All() {
		if a.Kind == kind {
			out = append(out, a)
		}
	}
	return out
}

func kindOf(name string) AssetKind {
	switch strings.ToLower(path.Ext(name)) {
	case ".js":
		return KindScript
	case ".css":
		return KindStyle
	case ".png", ".gif", ".jpg", ".jpeg", ".svg", ".ico", ".webp":
		return KindImage
	case ".eot", ".ttf", ".woff", ".woff2":
		return KindFont
	case ".html":
		return KindHTML
	default:
		return KindOther
	}
}
