package registry

import (
	"errors"
	"os"
	"sync"
)

const (
	SourceBuiltin  = "builtin"
	SourceLinguist = "linguist"
)

var defaultRegistry = sync.OnceValues(func() (*Registry, error) {
	return Builtin(DefaultCasePolicy())
})

// Default returns the builtin registry with the default case policy. It is
// built on first use and shared for the life of the process.
func Default() (*Registry, error) {
	return defaultRegistry()
}

// Load resolves a registry reference: "builtin" (or ""), "linguist", a
// snapshot path (.gob, .snapshot.json) or a YAML, JSON or TOML document path.
func Load(ref string, policy CasePolicy) (*Registry, error) {
	switch ref {
	case "", SourceBuiltin:
		if policy.normalized() == DefaultCasePolicy() {
			return Default()
		}
		return Builtin(policy)
	case SourceLinguist:
		return Linguist(policy)
	}
	if IsSnapshotPath(ref) {
		return LoadSnapshotFile(ref, policy)
	}
	return LoadFile(ref, policy)
}

// LoadFile reads and compiles a registry document.
func LoadFile(path string, policy CasePolicy) (*Registry, error) {
	format, ok := FormatFromPath(path)
	if !ok {
		return nil, loadErr(path, nil, "unrecognized registry file extension (want .yaml, .yml, .json, .toml, .gob or .snapshot.json)")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, loadErr(path, err, "registry file not found")
		}
		return nil, loadErr(path, err, "reading registry file")
	}
	doc, err := ParseDocument(path, data, format)
	if err != nil {
		return nil, err
	}
	return FromDocument(path, doc, policy)
}
