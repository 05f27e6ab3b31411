package classifier

import (
	"fmt"
	"io/fs"
	"math"
	"path"
	"sort"
	"strings"
)

// Trainer accumulates token counts from labelled samples.
type Trainer struct {
	order   []string
	samples map[string]int
	counts  map[string]map[string]int
	totals  map[string]int
	vocab   map[string]struct{}
}

func NewTrainer() *Trainer {
	return &Trainer{
		samples: make(map[string]int),
		counts:  make(map[string]map[string]int),
		totals:  make(map[string]int),
		vocab:   make(map[string]struct{}),
	}
}

// Add records one sample of language.
func (t *Trainer) Add(language string, content []byte) {
	if _, ok := t.counts[language]; !ok {
		t.order = append(t.order, language)
		t.counts[language] = make(map[string]int)
	}
	t.samples[language]++
	for _, tok := range Tokenize(content) {
		t.counts[language][tok]++
		t.totals[language]++
		t.vocab[tok] = struct{}{}
	}
}

// AddFS reads a samples tree laid out as <root>/<language>/<file>, where files
// may sit in nested directories below the language directory. resolve maps a
// directory name to a canonical language; unresolved directories are skipped
// and returned.
func (t *Trainer) AddFS(fsys fs.FS, root string, resolve func(dir string) (string, bool)) ([]string, error) {
	entries, err := fs.ReadDir(fsys, root)
	if err != nil {
		return nil, fmt.Errorf("reading samples root %q: %w", root, err)
	}
	var skipped []string
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		language, ok := resolve(entry.Name())
		if !ok {
			skipped = append(skipped, entry.Name())
			continue
		}
		dir := path.Join(root, entry.Name())
		err := fs.WalkDir(fsys, dir, func(p string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if d.IsDir() {
				return nil
			}
			content, readErr := fs.ReadFile(fsys, p)
			if readErr != nil {
				return fmt.Errorf("reading sample %q: %w", p, readErr)
			}
			t.Add(language, content)
			return nil
		})
		if err != nil {
			return skipped, err
		}
	}
	return skipped, nil
}

// Languages returns the trained languages in the order first seen.
func (t *Trainer) Languages() []string {
	return append([]string(nil), t.order...)
}

// Models builds one model per trained language. Token probabilities use
// add-one smoothing over the shared vocabulary; priors follow sample counts.
func (t *Trainer) Models() map[string]*Model {
	models := make(map[string]*Model, len(t.order))
	totalSamples := 0
	for _, n := range t.samples {
		totalSamples += n
	}
	vocab := float64(len(t.vocab))
	for _, lang := range t.order {
		denom := float64(t.totals[lang]) + vocab
		if denom == 0 {
			denom = 1
		}
		probs := make(map[string]float64, len(t.counts[lang]))
		for tok, n := range t.counts[lang] {
			probs[tok] = math.Log(float64(n+1) / denom)
		}
		models[lang] = &Model{
			Language:       lang,
			LogPrior:       math.Log(float64(t.samples[lang]) / float64(totalSamples)),
			DefaultLogProb: math.Log(1 / denom),
			TokenLogProb:   probs,
		}
	}
	return models
}

// SortedTokens lists a model's tokens from most to least likely, for reports.
func SortedTokens(m *Model, limit int) []string {
	toks := make([]string, 0, len(m.TokenLogProb))
	for tok := range m.TokenLogProb {
		toks = append(toks, tok)
	}
	sort.Slice(toks, func(i, j int) bool {
		pi, pj := m.TokenLogProb[toks[i]], m.TokenLogProb[toks[j]]
		if pi != pj {
			return pi > pj
		}
		return toks[i] < toks[j]
	})
	if limit > 0 && len(toks) > limit {
		toks = toks[:limit]
	}
	return toks
}
