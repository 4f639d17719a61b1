// Package mushaf loads the word layout of the printed Mushaf from a JSON or
// YAML file and serves it as a domain.MushafPort.
package mushaf

import (
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/escalopa/quran-recite-checker/internal/domain"
)

type word struct {
	Page int    `json:"page" yaml:"page"`
	Line int    `json:"line" yaml:"line"`
	Sura int    `json:"sura" yaml:"sura"`
	Aya  int    `json:"aya" yaml:"aya"`
	Word int    `json:"word" yaml:"word"`
	Text string `json:"text" yaml:"text"`
}

type file struct {
	LastPage int    `json:"last_page" yaml:"last_page"`
	Words    []word `json:"words" yaml:"words"`
}

// Mushaf is an in-memory, read-only Mushaf layout
type Mushaf struct {
	tokens   []domain.MushafToken
	lastPage int
}

var _ domain.MushafPort = (*Mushaf)(nil)

// Load reads a layout file. The format is chosen by extension: .json,
// .yaml or .yml.
func Load(path string) (*Mushaf, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mushaf file: %w", err)
	}

	var f file
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		err = json.Unmarshal(data, &f)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &f)
	default:
		return nil, fmt.Errorf("unsupported mushaf file extension %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("decode mushaf file: %w", err)
	}

	tokens := make([]domain.MushafToken, 0, len(f.Words))
	for _, w := range f.Words {
		tokens = append(tokens, domain.MushafToken{
			Sura:   w.Sura,
			Aya:    w.Aya,
			WordID: w.Word,
			Text:   w.Text,
			Page:   w.Page,
			Line:   w.Line,
		})
	}

	m, err := New(tokens, f.LastPage)
	if err != nil {
		return nil, fmt.Errorf("load mushaf %s: %w", path, err)
	}
	return m, nil
}

// New builds a Mushaf from tokens. Tokens are put in reading order by page
// and line; words within a line keep their given order. lastPage defaults
// to the highest page present.
func New(tokens []domain.MushafToken, lastPage int) (*Mushaf, error) {
	if len(tokens) == 0 {
		return nil, errors.New("mushaf has no words")
	}

	sorted := slices.Clone(tokens)
	slices.SortStableFunc(sorted, func(a, b domain.MushafToken) int {
		return cmp.Or(cmp.Compare(a.Page, b.Page), cmp.Compare(a.Line, b.Line))
	})

	highest := 0
	for i, t := range sorted {
		if t.Page < 1 {
			return nil, fmt.Errorf("word %d:%d/%d has invalid page %d", t.Sura, t.Aya, t.WordID, t.Page)
		}
		if !domain.ValidPosition(t.Position()) {
			return nil, fmt.Errorf("word on page %d has invalid position %s", t.Page, t.Position())
		}
		if i > 0 && t.Position().Compare(sorted[i-1].Position()) < 0 {
			return nil, fmt.Errorf("word %s on page %d is out of reading order", t.Position(), t.Page)
		}
		highest = max(highest, t.Page)
	}

	if lastPage == 0 {
		lastPage = highest
	}
	if lastPage < highest {
		return nil, fmt.Errorf("last page %d is before page %d", lastPage, highest)
	}

	return &Mushaf{tokens: sorted, lastPage: lastPage}, nil
}

// Tokens yields every token in reading order
func (m *Mushaf) Tokens() iter.Seq[domain.MushafToken] {
	return slices.Values(m.tokens)
}

// PageForGlobalIndex returns the page of the i-th token
func (m *Mushaf) PageForGlobalIndex(i int) (int, bool) {
	if i < 0 || i >= len(m.tokens) {
		return 0, false
	}
	return m.tokens[i].Page, true
}

func (m *Mushaf) LastPage() int {
	return m.lastPage
}

// Len returns the number of tokens, ayah markers included
func (m *Mushaf) Len() int {
	return len(m.tokens)
}

// PageOf returns the page where the ayah at p starts
func (m *Mushaf) PageOf(p domain.Position) (int, bool) {
	i, found := slices.BinarySearchFunc(m.tokens, p, func(t domain.MushafToken, p domain.Position) int {
		return t.Position().Compare(p)
	})
	if !found {
		return 0, false
	}
	return m.tokens[i].Page, true
}
