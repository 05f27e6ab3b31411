package registry

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hbollon/go-edlib"
)

// suggestThreshold is the minimum Jaro-Winkler similarity of a suggestion.
const suggestThreshold = 0.8

// Suggest returns the registered language whose name or alias is closest to
// name, or "" when nothing is reasonably close.
func (r *Registry) Suggest(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return ""
	}
	keys := make([]string, 0, len(r.byName))
	for k := range r.byName {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var best string
	var bestScore float32
	for _, k := range keys {
		score, err := edlib.StringsSimilarity(name, k, edlib.JaroWinkler)
		if err != nil {
			continue
		}
		if score > bestScore {
			best, bestScore = k, score
		}
	}
	if best == "" || bestScore < suggestThreshold {
		return ""
	}
	return r.byName[best].Name
}

// WithOverrides returns a derived registry in which each extension maps to
// exactly the given language. Overridden extensions lose any ambiguity mark.
// The receiver is not modified.
func (r *Registry) WithOverrides(mappings map[string]string) (*Registry, error) {
	if len(mappings) == 0 {
		return r, nil
	}
	derived := *r
	derived.extensions = make(map[string][]*LanguageDefinition, len(r.extensions)+len(mappings))
	for k, v := range r.extensions {
		derived.extensions[k] = v
	}
	derived.ambiguous = make(map[string]struct{}, len(r.ambiguous))
	for k := range r.ambiguous {
		derived.ambiguous[k] = struct{}{}
	}
	derived.overrides = make(map[string]string, len(r.overrides)+len(mappings))
	for k, v := range r.overrides {
		derived.overrides[k] = v
	}

	for ext, lang := range mappings {
		key := NormalizeExtension(ext)
		if key == "" {
			return nil, fmt.Errorf("%w: empty extension in language mapping", ErrUnknownLanguage)
		}
		d, ok := r.Language(lang)
		if !ok {
			if s := r.Suggest(lang); s != "" {
				return nil, fmt.Errorf("%w: %q mapped from %q (did you mean %q?)", ErrUnknownLanguage, lang, ext, s)
			}
			return nil, fmt.Errorf("%w: %q mapped from %q", ErrUnknownLanguage, lang, ext)
		}
		key = derived.extensionKey(key)
		derived.extensions[key] = []*LanguageDefinition{d}
		delete(derived.ambiguous, key)
		derived.overrides[key] = d.Name
		if n := strings.Count(key, "."); n > derived.maxExtDots {
			derived.maxExtDots = n
		}
	}
	return &derived, nil
}

// NormalizeExtension trims whitespace and ensures a leading dot.
func NormalizeExtension(ext string) string {
	ext = strings.TrimSpace(ext)
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
