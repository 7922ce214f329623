// Package annotate parses event annotation files produced alongside
// recordings. Each line marks one event as a tag and a timestamp in
// seconds:
//
//	left,	12.43
//	right,	15.20
//	# comments and blank lines are skipped
//
// Separators are forgiving: any mix of commas, tabs and spaces between the
// tag and the timestamp is accepted.
package annotate

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
)

// IgnoreTag marks spans an operator flagged as unusable. Timestamps under
// this tag are excluded from [Set.Tags] and exposed via [Set.Ignored] so
// tooling can blank out the surrounding region instead of cutting a snippet.
const IgnoreTag = "ignore"

// Set holds the parsed annotations of one recording, preserving the order
// in which tags first appear.
type Set struct {
	order []string
	tags  map[string][]float64
}

// NewSet returns an empty annotation set.
func NewSet() *Set {
	return &Set{tags: make(map[string][]float64)}
}

// Add appends a timestamp under tag.
func (s *Set) Add(tag string, t float64) {
	if _, ok := s.tags[tag]; !ok {
		s.order = append(s.order, tag)
	}
	s.tags[tag] = append(s.tags[tag], t)
}

// Tags lists the event tags in first-appearance order, excluding [IgnoreTag].
func (s *Set) Tags() []string {
	out := make([]string, 0, len(s.order))
	for _, tag := range s.order {
		if tag == IgnoreTag {
			continue
		}
		out = append(out, tag)
	}
	return out
}

// Times returns the timestamps recorded under tag, in file order.
func (s *Set) Times(tag string) []float64 {
	return s.tags[tag]
}

// Ignored returns the timestamps recorded under [IgnoreTag].
func (s *Set) Ignored() []float64 {
	return s.tags[IgnoreTag]
}

// Len reports the total number of annotations, ignored spans included.
func (s *Set) Len() int {
	n := 0
	for _, ts := range s.tags {
		n += len(ts)
	}
	return n
}

// Parse reads annotations from r. Malformed lines abort with an error
// naming the line number.
func Parse(r io.Reader) (*Set, error) {
	set := NewSet()
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.FieldsFunc(line, func(r rune) bool {
			return r == ',' || r == '\t' || r == ' '
		})
		if len(fields) != 2 {
			return nil, fmt.Errorf("annotate: line %d: expected \"tag, timestamp\", got %q", lineNo, line)
		}
		t, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("annotate: line %d: bad timestamp %q: %w", lineNo, fields[1], err)
		}
		if t < 0 {
			return nil, fmt.Errorf("annotate: line %d: negative timestamp %v", lineNo, t)
		}
		set.Add(strings.ToLower(fields[0]), t)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("annotate: scan: %w", err)
	}
	return set, nil
}

// Load parses the annotation file at path.
func Load(path string) (*Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("annotate: open %q: %w", path, err)
	}
	defer f.Close()
	set, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%w (file %q)", err, path)
	}
	return set, nil
}

// LoadOptional is [Load], except a missing file yields an empty set rather
// than an error. Recordings without annotations are common; they simply
// produce no snippets.
func LoadOptional(path string) (*Set, error) {
	set, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return NewSet(), nil
	}
	return set, err
}
