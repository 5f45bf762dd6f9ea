package domain

import (
	"maps"
	"strings"
)

// ImportMap maps bare module specifiers to URLs.
type ImportMap struct {
	Imports map[string]string            `json:"imports,omitempty"`
	Scopes  map[string]map[string]string `json:"scopes,omitempty"`
}

// Resolve looks up specifier using exact matches first, then the longest
// trailing-slash prefix.
func (im *ImportMap) Resolve(specifier string) (string, bool) {
	if im == nil {
		return "", false
	}
	if target, ok := im.Imports[specifier]; ok {
		return target, true
	}

	best := ""
	for prefix := range im.Imports {
		if !strings.HasSuffix(prefix, "/") || !strings.HasPrefix(specifier, prefix) {
			continue
		}
		if len(prefix) > len(best) {
			best = prefix
		}
	}
	if best == "" {
		return "", false
	}
	return im.Imports[best] + strings.TrimPrefix(specifier, best), true
}

// Clone returns a deep copy of the import map.
func (im *ImportMap) Clone() *ImportMap {
	if im == nil {
		return &ImportMap{}
	}
	out := &ImportMap{
		Imports: maps.Clone(im.Imports),
		Scopes:  make(map[string]map[string]string, len(im.Scopes)),
	}
	for scope, imports := range im.Scopes {
		out.Scopes[scope] = maps.Clone(imports)
	}
	return out
}
