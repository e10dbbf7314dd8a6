// Package domain – post content documents.
//
// A post's content is stored as the raw JSON document retrieved from the
// source, kept opaque apart from two extraction points: the owning account
// and the media entity list. Validation happens once at write time so every
// later read (including the seen-set projection, which uses json_extract in
// SQL) can treat the stored value as well-formed.
package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedContent is returned when a content payload is rejected at
// insert time: not valid JSON, not an object, or missing the owning-account
// fields the seen-set projection depends on.
var ErrMalformedContent = errors.New("malformed content document")

// Media entity types as they appear in content documents.
const (
	MediaTypePhoto = "photo"
	MediaTypeVideo = "video"
)

// Document is a post's full content payload, stored verbatim as JSON text.
// It implements driver.Valuer and sql.Scanner so GORM maps it to a TEXT
// column without re-encoding.
type Document json.RawMessage

// envelope is the subset of a content document the ledger ever looks at.
type envelope struct {
	Account struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"account"`
	Media []MediaEntity `json:"media"`
}

// MediaEntity is one attachment referenced by a content document.
type MediaEntity struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// Photoset is a unit of pending download work: every photo attached to one
// active post that has not had its media fetched yet.
type Photoset struct {
	PostID      int64
	StatusID    string
	AccountName string
	PhotoURLs   []string
}

// NewDocument validates raw JSON as a content document and returns it typed.
// The payload must be a JSON object whose account id and name are non-empty;
// anything else fails with ErrMalformedContent.
func NewDocument(raw []byte) (Document, error) {
	d := Document(raw)
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// Validate checks well-formedness without retaining any decoded state.
func (d Document) Validate() error {
	if len(d) == 0 {
		return fmt.Errorf("%w: empty payload", ErrMalformedContent)
	}
	var env envelope
	if err := json.Unmarshal(d, &env); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedContent, err)
	}
	if env.Account.ID == "" || env.Account.Name == "" {
		return fmt.Errorf("%w: missing account id or name", ErrMalformedContent)
	}
	return nil
}

// AccountID extracts the owning-account identifier. Returns "" on a payload
// that never passed Validate.
func (d Document) AccountID() string {
	var env envelope
	_ = json.Unmarshal(d, &env)
	return env.Account.ID
}

// AccountName extracts the owning-account display name.
func (d Document) AccountName() string {
	var env envelope
	_ = json.Unmarshal(d, &env)
	return env.Account.Name
}

// Media returns the document's media entities; nil when the post has none.
func (d Document) Media() []MediaEntity {
	var env envelope
	_ = json.Unmarshal(d, &env)
	return env.Media
}

// MediaSummary re-encodes just the media entity list for denormalized
// storage on an archived record. Returns nil when the post has no media.
func (d Document) MediaSummary() *string {
	media := d.Media()
	if len(media) == 0 {
		return nil
	}
	b, err := json.Marshal(media)
	if err != nil {
		return nil
	}
	s := string(b)
	return &s
}

// PhotoURLs filters the media entities down to photo URLs, preserving order.
func (d Document) PhotoURLs() []string {
	var urls []string
	for _, m := range d.Media() {
		if m.Type == MediaTypePhoto && m.URL != "" {
			urls = append(urls, m.URL)
		}
	}
	return urls
}

// HasPhotos reports whether any media entity is a photo. Used by the pruning
// policy: a post with no photos never blocks archival on download state.
func HasPhotos(media []MediaEntity) bool {
	for _, m := range media {
		if m.Type == MediaTypePhoto {
			return true
		}
	}
	return false
}

// Value implements driver.Valuer, storing the raw JSON text.
func (d Document) Value() (driver.Value, error) {
	if len(d) == 0 {
		return nil, nil
	}
	return string(d), nil
}

// Scan implements sql.Scanner.
func (d *Document) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = nil
	case string:
		*d = Document(v)
	case []byte:
		buf := make([]byte, len(v))
		copy(buf, v)
		*d = Document(buf)
	default:
		return fmt.Errorf("cannot scan %T into Document", src)
	}
	return nil
}

// MarshalJSON embeds the document verbatim.
func (d Document) MarshalJSON() ([]byte, error) {
	if len(d) == 0 {
		return []byte("null"), nil
	}
	return d, nil
}

// UnmarshalJSON stores the raw bytes without re-encoding.
func (d *Document) UnmarshalJSON(data []byte) error {
	buf := make([]byte, len(data))
	copy(buf, data)
	*d = Document(buf)
	return nil
}
