package domain

import (
	"errors"
	"testing"
)

const sampleDoc = `{
	"account": {"id": "42", "name": "anon"},
	"text": "two photos and a video",
	"media": [
		{"type": "photo", "url": "https://img/1.jpg"},
		{"type": "video", "url": "https://vid/1.mp4"},
		{"type": "photo", "url": "https://img/2.jpg"}
	]
}`

func TestNewDocument_Valid(t *testing.T) {
	d, err := NewDocument([]byte(sampleDoc))
	if err != nil {
		t.Fatalf("NewDocument: %v", err)
	}
	if d.AccountID() != "42" || d.AccountName() != "anon" {
		t.Fatalf("account extraction failed: %q / %q", d.AccountID(), d.AccountName())
	}
	if len(d.Media()) != 3 {
		t.Fatalf("media entities = %d, want 3", len(d.Media()))
	}
}

func TestNewDocument_Invalid(t *testing.T) {
	cases := map[string]string{
		"empty":            ``,
		"not json":         `{{`,
		"array":            `[1,2]`,
		"missing account":  `{"text":"x"}`,
		"blank account id": `{"account":{"id":"","name":"anon"}}`,
		"blank name":       `{"account":{"id":"1","name":""}}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := NewDocument([]byte(raw)); !errors.Is(err, ErrMalformedContent) {
				t.Fatalf("expected ErrMalformedContent, got %v", err)
			}
		})
	}
}

func TestDocument_PhotoURLs(t *testing.T) {
	d, err := NewDocument([]byte(sampleDoc))
	if err != nil {
		t.Fatalf("NewDocument: %v", err)
	}
	urls := d.PhotoURLs()
	if len(urls) != 2 || urls[0] != "https://img/1.jpg" || urls[1] != "https://img/2.jpg" {
		t.Fatalf("unexpected photo urls: %v", urls)
	}

	noMedia, err := NewDocument([]byte(`{"account":{"id":"1","name":"a"}}`))
	if err != nil {
		t.Fatalf("NewDocument: %v", err)
	}
	if noMedia.PhotoURLs() != nil {
		t.Fatalf("expected nil urls for media-less doc")
	}
}

func TestDocument_MediaSummary(t *testing.T) {
	d, err := NewDocument([]byte(sampleDoc))
	if err != nil {
		t.Fatalf("NewDocument: %v", err)
	}
	summary := d.MediaSummary()
	if summary == nil {
		t.Fatalf("expected a media summary")
	}
	// Summary must itself be a loadable document fragment.
	if *summary == "" || (*summary)[0] != '[' {
		t.Fatalf("unexpected summary shape: %q", *summary)
	}

	noMedia, _ := NewDocument([]byte(`{"account":{"id":"1","name":"a"}}`))
	if noMedia.MediaSummary() != nil {
		t.Fatalf("media-less doc must summarize to nil")
	}
}

func TestHasPhotos(t *testing.T) {
	if HasPhotos(nil) {
		t.Fatalf("nil media has no photos")
	}
	if HasPhotos([]MediaEntity{{Type: MediaTypeVideo, URL: "v"}}) {
		t.Fatalf("video-only media has no photos")
	}
	if !HasPhotos([]MediaEntity{{Type: MediaTypeVideo}, {Type: MediaTypePhoto}}) {
		t.Fatalf("photo entity not detected")
	}
}

func TestDocument_ScanValueRoundTrip(t *testing.T) {
	d, err := NewDocument([]byte(sampleDoc))
	if err != nil {
		t.Fatalf("NewDocument: %v", err)
	}
	v, err := d.Value()
	if err != nil {
		t.Fatalf("Value: %v", err)
	}

	var back Document
	if err := back.Scan(v); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if back.AccountID() != "42" {
		t.Fatalf("round trip lost content: %q", back.AccountID())
	}

	if err := back.Scan(3.14); err == nil {
		t.Fatalf("expected error scanning unsupported type")
	}
}
