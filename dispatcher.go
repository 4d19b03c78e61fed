package bincodec

import (
	"bytes"
	"sort"
	"sync"
)

// TemplateDispatcher is the header-prefix-keyed template index: given a
// reader positioned at the start of a message, it picks the compiled
// Template whose header start sequence matches the bytes at that position,
// preferring the longest matching key (spec.md section 4.6, testable
// property 4: dispatcher prefix-maximality). It also drives the
// best-effort re-sync search the parser facade uses after a failed decode.
type TemplateDispatcher struct {
	mu      sync.RWMutex
	entries []dispatcherEntry
	byKey   map[string]*Template
}

type dispatcherEntry struct {
	key  []byte
	lps  []int
	tmpl *Template
}

// NewTemplateDispatcher returns an empty dispatcher.
func NewTemplateDispatcher() *TemplateDispatcher {
	return &TemplateDispatcher{byKey: map[string]*Template{}}
}

// Add registers every header start sequence of tmpl (as returned by
// Template.HeaderKeys) into the index. Two templates sharing a start byte
// sequence is a LoaderError.
func (d *TemplateDispatcher) Add(tmpl *Template) error {
	keys, err := tmpl.HeaderKeys()
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, key := range keys {
		ks := string(key)
		if _, exists := d.byKey[ks]; exists {
			return &LoaderError{Key: key}
		}
		d.byKey[ks] = tmpl
		d.entries = append(d.entries, dispatcherEntry{key: key, lps: computeLPS(key), tmpl: tmpl})
	}
	sort.SliceStable(d.entries, func(i, j int) bool {
		return len(d.entries[i].key) > len(d.entries[j].key)
	})
	return nil
}

// Pick returns the template whose header key, compared against the bytes at
// reader's current byte position, is both a match and the longest of all
// matching keys. Entries are kept sorted by descending key length so the
// first hit found is already the maximal one.
func (d *TemplateDispatcher) Pick(reader *BitReader) (*Template, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	pos := reader.PositionBytes()
	for _, e := range d.entries {
		end := pos + len(e.key)
		if end <= len(reader.buf) && bytes.Equal(reader.buf[pos:end], e.key) {
			return e.tmpl, nil
		}
	}
	return nil, ErrTemplateNotFound
}

// NextMessageIndex searches the reader's buffer, starting one byte past the
// current position, for the earliest occurrence of any registered header
// key, using a precomputed-LPS-table (KMP) search per key. It returns -1 if
// no key occurs again before the end of the buffer.
func (d *TemplateDispatcher) NextMessageIndex(reader *BitReader) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	start := reader.PositionBytes() + 1
	best := -1
	for _, e := range d.entries {
		idx := kmpSearch(reader.buf, start, e.key, e.lps)
		if idx >= 0 && (best < 0 || idx < best) {
			best = idx
		}
	}
	return best
}

// computeLPS builds the standard KMP "longest proper prefix that is also a
// suffix" failure table for pattern.
func computeLPS(pattern []byte) []int {
	lps := make([]int, len(pattern))
	length := 0
	i := 1
	for i < len(pattern) {
		if pattern[i] == pattern[length] {
			length++
			lps[i] = length
			i++
			continue
		}
		if length != 0 {
			length = lps[length-1]
			continue
		}
		lps[i] = 0
		i++
	}
	return lps
}

// kmpSearch returns the index of the first occurrence of pattern in buf at
// or after start, or -1 if absent. lps is pattern's precomputed failure
// table from computeLPS.
func kmpSearch(buf []byte, start int, pattern []byte, lps []int) int {
	if len(pattern) == 0 || start >= len(buf) {
		return -1
	}
	i, j := start, 0
	for i < len(buf) {
		if buf[i] == pattern[j] {
			i++
			j++
			if j == len(pattern) {
				return i - j
			}
			continue
		}
		if j != 0 {
			j = lps[j-1]
			continue
		}
		i++
	}
	return -1
}
