// Package feed defines core types shared across subsystems.
package feed

import (
	"encoding/json"
	"strconv"
)

// Category classifies an announcement item and selects its extraction
// pattern and notifier.
type Category string

// Category codes as they appear on the wire.
const (
	CategoryMaintenance Category = "MNT"
	CategoryAppVersion  Category = "UPD"
	CategoryBulletin    Category = "NEW"
	CategoryOther       Category = "OTHER"
)

// ParseCategory maps a wire code onto a known Category. Unknown codes
// collapse to CategoryOther rather than failing the decode.
func ParseCategory(code string) Category {
	switch Category(code) {
	case CategoryMaintenance, CategoryAppVersion, CategoryBulletin:
		return Category(code)
	default:
		return CategoryOther
	}
}

// Cursor is the persisted watermark delimiting already-processed
// announcements: the highest item id seen plus the cache validator
// (ETag) returned by the origin. The validator is opaque and only ever
// echoed back in If-None-Match.
type Cursor struct {
	LastID    int64
	Validator string
}

// ParseCursor builds a Cursor from the raw stored strings. Missing or
// corrupt state yields the zero cursor, never an error.
func ParseCursor(last, validator string) Cursor {
	id, err := strconv.ParseInt(last, 10, 64)
	if err != nil || id < 0 {
		id = 0
	}
	return Cursor{LastID: id, Validator: validator}
}

// Item is a single announcement as served by the origin. Raw carries
// the verbatim JSON object for archival.
type Item struct {
	ID       int64    `json:"id"`
	Category Category `json:"-"`
	Text     string   `json:"text"`

	Raw json.RawMessage `json:"-"`
}

// UnmarshalJSON decodes the wire object and retains the raw bytes.
func (it *Item) UnmarshalJSON(data []byte) error {
	var wire struct {
		ID       int64  `json:"id"`
		Category string `json:"category"`
		Text     string `json:"text"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	it.ID = wire.ID
	it.Category = ParseCategory(wire.Category)
	it.Text = wire.Text
	it.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// FetchOutcome is the result of the origin race.
type FetchOutcome struct {
	// NotModified reports the 304 steady state; Payload and Validator
	// are empty when set.
	NotModified bool
	// Payload is the raw JSON array body from the winning origin.
	Payload []byte
	// Validator is the ETag supplied alongside the payload.
	Validator string
}

// Batch carries the outcome of one ingest pass: the items beyond the
// prior cursor and the candidate cursor computed from the whole payload.
type Batch struct {
	Items     []Item
	Candidate Cursor
}

// Advanced reports whether committing the candidate would change
// durable state relative to the cursor the run started from.
func (b Batch) Advanced(prior Cursor) bool {
	return b.Candidate != prior
}
