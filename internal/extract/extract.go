// Package extract pulls structured fields out of announcement free text.
//
// Each category owns one Pattern, a regular expression with named
// capture groups kept as data rather than control flow. Applying a
// pattern yields a Fields map; category-specific decoders turn that map
// into a typed record for the notifiers.
package extract

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/uwasa-watch/uwasa/internal/feed"
)

// Pattern is a compiled locale-specific extraction rule.
type Pattern struct {
	re *regexp.Regexp
}

// Compile builds a Pattern. The expression must declare at least one
// named capture group, otherwise extraction could never produce fields.
func Compile(expr string) (*Pattern, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("compile pattern: %w", err)
	}
	named := 0
	for _, name := range re.SubexpNames() {
		if name != "" {
			named++
		}
	}
	if named == 0 {
		return nil, fmt.Errorf("pattern %q has no named capture groups", expr)
	}
	return &Pattern{re: re}, nil
}

// MustCompile is Compile for package-level defaults.
func MustCompile(expr string) *Pattern {
	p, err := Compile(expr)
	if err != nil {
		panic(err)
	}
	return p
}

// Apply matches the pattern against text and returns the named capture
// fields. The second return is false when the text does not match.
func (p *Pattern) Apply(text string) (Fields, bool) {
	match := p.re.FindStringSubmatch(text)
	if match == nil {
		return nil, false
	}
	fields := make(Fields)
	for i, name := range p.re.SubexpNames() {
		if name == "" || i >= len(match) {
			continue
		}
		fields[name] = match[i]
	}
	return fields, true
}

// Fields maps capture-group names to their matched text.
type Fields map[string]string

// Int parses the named field as a decimal integer.
func (f Fields) Int(name string) (int, error) {
	raw, ok := f[name]
	if !ok {
		return 0, fmt.Errorf("field %q not captured", name)
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("field %q: %w", name, err)
	}
	return n, nil
}

// Result couples extracted fields with the id of the item they came from.
type Result struct {
	ItemID int64
	Fields Fields
}

// Latest applies pattern to every item of the given category and keeps
// the match with the highest item id above floor. The floor is the
// cursor id the run started from, so an extraction from an already
// notified item is never re-surfaced. Matches at or below the current
// best id are discarded, which also means that on a duplicate id the
// first-seen match wins.
func Latest(items []feed.Item, category feed.Category, pattern *Pattern, floor int64) (Result, bool) {
	best := Result{ItemID: floor}
	found := false
	for _, item := range items {
		if item.Category != category || item.ID <= best.ItemID {
			continue
		}
		fields, ok := pattern.Apply(item.Text)
		if !ok {
			continue
		}
		best = Result{ItemID: item.ID, Fields: fields}
		found = true
	}
	return best, found
}
