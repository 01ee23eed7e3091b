// Package attach manages the pending attachments of the message composer:
// a bounded batch of selected files classified by coarse media kind, and the
// concurrent upload of the whole batch before a send proceeds.
package attach

import (
	"errors"
	"fmt"
	"sync"

	"github.com/h2non/filetype"
)

// MaxAttachments is the per-send cap on pending attachments.
const MaxAttachments = 3

var (
	// ErrBatchFull is the hard rejection when the cap is already reached.
	ErrBatchFull = errors.New("attachment limit reached")
)

// PartialError reports that only part of a selection was accepted because the
// batch ran out of room. It is a warning, not a failure: the accepted files
// are kept.
type PartialError struct {
	Accepted int
	Allowed  int
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("only %d more attachment(s) may be added", e.Allowed)
}

type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

// Preview is a revocable local preview resource for a pending attachment.
// Previews are revoked on removal, on successful send and on conversation
// close, never left dangling.
type Preview interface {
	Revoke()
}

// noPreview is used for files selected without a preview handle.
type noPreview struct{}

func (noPreview) Revoke() {}

// File is one selected file before classification.
type File struct {
	Name    string
	Data    []byte
	Preview Preview
}

// Pending is an accepted attachment waiting for upload.
type Pending struct {
	Name    string
	Data    []byte
	Kind    Kind
	preview Preview
}

// Batch is the composer's set of pending attachments.
type Batch struct {
	pending []Pending

	mux sync.Mutex
}

func NewBatch() *Batch {
	return &Batch{}
}

// Add classifies and accepts files up to the cap. Files that are neither
// image nor video are silently dropped from the selection. When the
// selection does not fit, the first files are accepted up to the remaining
// room and a *PartialError reports how many more were allowed; when the
// batch is already full, Add is a hard rejection with ErrBatchFull.
func (b *Batch) Add(files ...File) (int, error) {
	b.mux.Lock()
	defer b.mux.Unlock()

	room := MaxAttachments - len(b.pending)
	if room <= 0 {
		return 0, ErrBatchFull
	}

	accepted := 0
	truncated := false
	for _, f := range files {
		kind, ok := classify(f.Data)
		if !ok {
			continue
		}
		if accepted >= room {
			truncated = true
			break
		}
		preview := f.Preview
		if preview == nil {
			preview = noPreview{}
		}
		b.pending = append(b.pending, Pending{
			Name:    f.Name,
			Data:    f.Data,
			Kind:    kind,
			preview: preview,
		})
		accepted++
	}

	if truncated {
		return accepted, &PartialError{Accepted: accepted, Allowed: room}
	}
	return accepted, nil
}

// Remove drops the pending attachment at index i and revokes its preview.
func (b *Batch) Remove(i int) {
	b.mux.Lock()
	defer b.mux.Unlock()

	if i < 0 || i >= len(b.pending) {
		return
	}
	b.pending[i].preview.Revoke()
	b.pending = append(b.pending[:i], b.pending[i+1:]...)
}

// Clear drops all pending attachments, revoking every preview.
func (b *Batch) Clear() {
	b.mux.Lock()
	defer b.mux.Unlock()

	for _, p := range b.pending {
		p.preview.Revoke()
	}
	b.pending = nil
}

// Pending returns a copy of the current batch contents.
func (b *Batch) Pending() []Pending {
	b.mux.Lock()
	defer b.mux.Unlock()

	out := make([]Pending, len(b.pending))
	copy(out, b.pending)
	return out
}

func (b *Batch) Len() int {
	b.mux.Lock()
	defer b.mux.Unlock()

	return len(b.pending)
}

// classify detects the coarse media kind from the file content.
func classify(data []byte) (Kind, bool) {
	switch {
	case filetype.IsImage(data):
		return KindImage, true
	case filetype.IsVideo(data):
		return KindVideo, true
	}
	return "", false
}
