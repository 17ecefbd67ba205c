// Package words supplies human-memorable identity words for bundle names.
package words

import (
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"strings"
	"sync"

	"mantis/internal/mantis"
)

// DictionaryPicker picks a random word from the system dictionary file,
// fetching a word list over HTTP when the file is absent. The fetched list
// is cached for the lifetime of the picker. Safe for concurrent use.
type DictionaryPicker struct {
	FilePath string
	URL      string

	mu    sync.Mutex
	words []string
}

var _ mantis.WordPicker = (*DictionaryPicker)(nil)

// Pick returns one random dictionary word, lowercased with no punctuation.
func (p *DictionaryPicker) Pick() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.words) == 0 {
		if err := p.load(); err != nil {
			return "", err
		}
	}
	for range 50 {
		w := strings.ToLower(strings.TrimSpace(p.words[rand.Intn(len(p.words))]))
		if isClean(w) {
			return w, nil
		}
	}
	return "", fmt.Errorf("no usable word found in list of %d", len(p.words))
}

func (p *DictionaryPicker) load() error {
	if data, err := os.ReadFile(p.FilePath); err == nil {
		p.words = splitWords(string(data))
	} else {
		resp, err := http.Get(p.URL)
		if err != nil {
			return mantis.Tag(mantis.ErrTransient, fmt.Errorf("fetching word list: %w", err))
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return mantis.Tag(mantis.ErrTransient, fmt.Errorf("fetching word list: status %s", resp.Status))
		}
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return mantis.Tag(mantis.ErrTransient, fmt.Errorf("reading word list: %w", err))
		}
		p.words = splitWords(string(data))
	}
	if len(p.words) == 0 {
		return fmt.Errorf("empty word list")
	}
	return nil
}

func splitWords(data string) []string {
	var out []string
	for _, line := range strings.Split(data, "\n") {
		if w := strings.TrimSpace(line); w != "" {
			out = append(out, w)
		}
	}
	return out
}

// isClean rejects words that would produce awkward directory names.
func isClean(w string) bool {
	if len(w) < 3 || len(w) > 12 {
		return false
	}
	for _, r := range w {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}

// FixedPicker always returns the same word. Used when the caller pins a
// keyword, and in tests.
type FixedPicker struct {
	Word string
}

var _ mantis.WordPicker = (*FixedPicker)(nil)

func (p *FixedPicker) Pick() (string, error) {
	if p.Word == "" {
		return "", fmt.Errorf("empty keyword")
	}
	return p.Word, nil
}
