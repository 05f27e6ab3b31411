// Package cache persists per-file detection results between runs so that
// unchanged files skip the pipeline.
package cache

import (
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/stackvity/stack-polyglot/pkg/util"
)

// FileName is the default cache index name, created under the input root.
const FileName = ".stackpolyglot.cache"

// SchemaVersion changes whenever Entry or the file layout changes
// incompatibly. A file with a different version is discarded on Load.
const SchemaVersion = "1"

// Format is the serialization of the cache file.
type Format string

const (
	FormatGob  Format = "gob"
	FormatJSON Format = "json"
)

var (
	// ErrCacheLoad reports a cache file that exists but cannot be opened.
	// Undecodable or outdated content is not an error: it is a cold cache.
	ErrCacheLoad = errors.New("failed to load cache index")

	// ErrCachePersist reports a failed write of the cache index.
	ErrCachePersist = errors.New("failed to persist cache index")
)

// Entry is the stored detection of one file.
type Entry struct {
	ModTime     time.Time `json:"modTime"`
	ContentHash string    `json:"contentHash"`
	Fingerprint string    `json:"fingerprint"`
	Language    string    `json:"language"`
	Method      string    `json:"method"`
	Encoding    string    `json:"encoding,omitempty"`
}

// Header opens every cache file.
type Header struct {
	SchemaVersion string `json:"schemaVersion"`
	ToolVersion   string `json:"toolVersion"`
}

type jsonFile struct {
	Header Header           `json:"header"`
	Index  map[string]Entry `json:"index"`
}

// Manager reads and writes the detection cache. Check and Update are safe
// for concurrent use once Load has returned.
type Manager interface {
	Load(path string) error
	// Check returns the entry for relPath when its modification time,
	// content hash and registry fingerprint all match.
	Check(relPath string, modTime time.Time, contentHash, fingerprint string) (Entry, bool)
	Update(relPath string, e Entry) error
	Persist(path string) error
}

// ContentHash fingerprints file content for cache validation.
func ContentHash(content []byte) string {
	return strconv.FormatUint(xxhash.Sum64(content), 16)
}

// NoOp is a Manager that never hits and never writes.
type NoOp struct{}

func (NoOp) Load(string) error { return nil }

func (NoOp) Check(string, time.Time, string, string) (Entry, bool) { return Entry{}, false }

func (NoOp) Update(string, Entry) error { return nil }

func (NoOp) Persist(string) error { return nil }

type fileManager struct {
	mu          sync.RWMutex
	index       map[string]Entry
	logger      *slog.Logger
	toolVersion string
	format      Format
}

// NewFileManager returns a Manager persisting to a local file. Entries
// written by another tool version are discarded unless either side is "dev".
func NewFileManager(handler slog.Handler, toolVersion string, format Format) Manager {
	if handler == nil {
		handler = slog.NewTextHandler(io.Discard, nil)
	}
	if f := Format(strings.ToLower(string(format))); f == FormatJSON {
		format = FormatJSON
	} else {
		format = FormatGob
	}
	if toolVersion == "" {
		toolVersion = "dev"
	}
	return &fileManager{
		index:       make(map[string]Entry),
		toolVersion: toolVersion,
		format:      format,
		logger: slog.New(handler).With(
			slog.String("component", "cache"),
			slog.String("format", string(format))),
	}
}

func (c *fileManager) Load(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.index = make(map[string]Entry)

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			c.logger.Info("Cache file not found, starting cold", slog.String("path", path))
			return nil
		}
		return fmt.Errorf("%w: opening %q: %w", ErrCacheLoad, path, err)
	}
	defer f.Close()

	var header Header
	var index map[string]Entry
	if c.format == FormatJSON {
		var data jsonFile
		err = json.NewDecoder(f).Decode(&data)
		header, index = data.Header, data.Index
	} else {
		dec := gob.NewDecoder(f)
		if err = dec.Decode(&header); err == nil {
			err = dec.Decode(&index)
		}
	}
	if err != nil {
		c.logger.Warn("Cache file unreadable, starting cold", slog.String("path", path), slog.String("error", err.Error()))
		return nil
	}
	if header.SchemaVersion != SchemaVersion {
		c.logger.Warn("Cache schema version mismatch, starting cold",
			slog.String("path", path), slog.String("found", header.SchemaVersion), slog.String("expected", SchemaVersion))
		return nil
	}
	if !compatible(header.ToolVersion, c.toolVersion) {
		c.logger.Warn("Cache written by another version, starting cold",
			slog.String("path", path), slog.String("found", header.ToolVersion), slog.String("expected", c.toolVersion))
		return nil
	}
	if index != nil {
		c.index = index
	}
	c.logger.Info("Cache loaded", slog.String("path", path), slog.Int("entries", len(c.index)))
	return nil
}

func compatible(a, b string) bool {
	return a == b || a == "dev" || b == "dev"
}

func (c *fileManager) Check(relPath string, modTime time.Time, contentHash, fingerprint string) (Entry, bool) {
	c.mu.RLock()
	e, ok := c.index[relPath]
	c.mu.RUnlock()

	switch {
	case !ok:
		c.logger.Debug("Cache miss", slog.String("path", relPath), slog.String("reason", "absent"))
		return Entry{}, false
	case !e.ModTime.Equal(modTime):
		c.logger.Debug("Cache miss", slog.String("path", relPath), slog.String("reason", "modtime"))
		return Entry{}, false
	case e.ContentHash != contentHash:
		c.logger.Debug("Cache miss", slog.String("path", relPath), slog.String("reason", "content"))
		return Entry{}, false
	case e.Fingerprint != fingerprint:
		c.logger.Debug("Cache miss", slog.String("path", relPath), slog.String("reason", "registry"))
		return Entry{}, false
	}
	c.logger.Debug("Cache hit", slog.String("path", relPath), slog.String("language", e.Language))
	return e, true
}

func (c *fileManager) Update(relPath string, e Entry) error {
	if relPath == "" {
		return errors.New("cache update: empty path")
	}
	c.mu.Lock()
	c.index[relPath] = e
	c.mu.Unlock()
	return nil
}

func (c *fileManager) Persist(path string) error {
	c.mu.RLock()
	index := make(map[string]Entry, len(c.index))
	for k, v := range c.index {
		index[k] = v
	}
	c.mu.RUnlock()

	header := Header{SchemaVersion: SchemaVersion, ToolVersion: c.toolVersion}
	err := util.WriteFileAtomic(path, func(w io.Writer) error {
		if c.format == FormatJSON {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(jsonFile{Header: header, Index: index})
		}
		enc := gob.NewEncoder(w)
		if err := enc.Encode(header); err != nil {
			return err
		}
		return enc.Encode(index)
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCachePersist, err)
	}
	c.logger.Info("Cache persisted", slog.String("path", path), slog.Int("entries", len(index)))
	return nil
}
