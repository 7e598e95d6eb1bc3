// Package annotation keeps the timestamped feedback notes of one review
// session, addressable by id regardless of display order.
package annotation

import (
	"errors"
	"fmt"
	"iter"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
)

var (
	ErrNotFound            = errors.New("annotation not found")
	ErrValidation          = errors.New("annotation validation failed")
	ErrTimestampOutOfRange = errors.New("timestamp outside video duration")
)

// ValidationError names the field that failed the non-empty rule.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s is required", e.Field)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Annotation is a note tied to a moment in the video. Media is an opaque
// reference (URL or blob handle) owned by the host UI.
type Annotation struct {
	ID        string  `json:"id"`
	Timestamp float64 `json:"timestamp"`
	Title     string  `json:"title"`
	Note      string  `json:"note"`
	Media     *string `json:"media"`
}

func (a Annotation) clone() Annotation {
	if a.Media != nil {
		m := *a.Media
		a.Media = &m
	}
	return a
}

// Patch lists the fields an edit replaces. Nil fields are left alone;
// ClearMedia removes the attachment.
type Patch struct {
	Title      *string `json:"title,omitempty"`
	Note       *string `json:"note,omitempty"`
	Media      *string `json:"media,omitempty"`
	ClearMedia bool    `json:"clear_media,omitempty"`
}

type entry struct {
	seq uint64
	ann Annotation
}

// Store holds the annotations of one session. Both title and note must be
// non-blank; the same rule applies to edits.
type Store struct {
	mu       sync.RWMutex
	entries  []*entry
	nextSeq  uint64
	duration float64
	selected string
}

func NewStore() *Store {
	return &Store{}
}

// SetDuration bounds accepted timestamps to [0, d]. Zero disables the upper
// bound until metadata is known.
func (s *Store) SetDuration(d float64) {
	s.mu.Lock()
	s.duration = d
	s.mu.Unlock()
}

// Add records a new annotation at timestamp.
func (s *Store) Add(timestamp float64, title, note string, media *string) (Annotation, error) {
	if err := validateText(title, note); err != nil {
		return Annotation{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if timestamp < 0 || (s.duration > 0 && timestamp > s.duration) {
		return Annotation{}, fmt.Errorf("%w: %.3fs", ErrTimestampOutOfRange, timestamp)
	}

	a := Annotation{
		ID:        uuid.NewString(),
		Timestamp: timestamp,
		Title:     title,
		Note:      note,
		Media:     media,
	}
	a = a.clone()
	s.entries = append(s.entries, &entry{seq: s.nextSeq, ann: a})
	s.nextSeq++
	return a.clone(), nil
}

// Edit replaces the patched fields in place. Timestamp and id never change.
func (s *Store) Edit(id string, p Patch) (Annotation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.find(id)
	if e == nil {
		return Annotation{}, ErrNotFound
	}

	title, note := e.ann.Title, e.ann.Note
	if p.Title != nil {
		title = *p.Title
	}
	if p.Note != nil {
		note = *p.Note
	}
	if err := validateText(title, note); err != nil {
		return Annotation{}, err
	}

	e.ann.Title = title
	e.ann.Note = note
	switch {
	case p.ClearMedia:
		e.ann.Media = nil
	case p.Media != nil:
		m := *p.Media
		e.ann.Media = &m
	}
	return e.ann.clone(), nil
}

// Delete removes an annotation, clearing the selection if it pointed at it.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := slices.IndexFunc(s.entries, func(e *entry) bool { return e.ann.ID == id })
	if i < 0 {
		return ErrNotFound
	}
	s.entries = slices.Delete(s.entries, i, i+1)
	if s.selected == id {
		s.selected = ""
	}
	return nil
}

// Get returns one annotation by id.
func (s *Store) Get(id string) (Annotation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e := s.find(id)
	if e == nil {
		return Annotation{}, ErrNotFound
	}
	return e.ann.clone(), nil
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// SortedView yields annotations by ascending timestamp, ties in insertion
// order. Each iteration takes a fresh snapshot, so the sequence can be
// ranged over repeatedly.
func (s *Store) SortedView() iter.Seq[Annotation] {
	return func(yield func(Annotation) bool) {
		s.mu.RLock()
		snap := make([]entry, len(s.entries))
		for i, e := range s.entries {
			snap[i] = entry{seq: e.seq, ann: e.ann.clone()}
		}
		s.mu.RUnlock()

		slices.SortStableFunc(snap, func(a, b entry) int {
			switch {
			case a.ann.Timestamp < b.ann.Timestamp:
				return -1
			case a.ann.Timestamp > b.ann.Timestamp:
				return 1
			case a.seq < b.seq:
				return -1
			case a.seq > b.seq:
				return 1
			}
			return 0
		})

		for _, e := range snap {
			if !yield(e.ann) {
				return
			}
		}
	}
}

// List collects SortedView into a slice.
func (s *Store) List() []Annotation {
	out := slices.Collect(s.SortedView())
	if out == nil {
		out = []Annotation{}
	}
	return out
}

// Select marks an annotation as the active detail.
func (s *Store) Select(id string) (Annotation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.find(id)
	if e == nil {
		return Annotation{}, ErrNotFound
	}
	s.selected = id
	return e.ann.clone(), nil
}

// Selected returns the active annotation, if any.
func (s *Store) Selected() (Annotation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.selected == "" {
		return Annotation{}, false
	}
	e := s.find(s.selected)
	if e == nil {
		return Annotation{}, false
	}
	return e.ann.clone(), true
}

func (s *Store) ClearSelection() {
	s.mu.Lock()
	s.selected = ""
	s.mu.Unlock()
}

func (s *Store) find(id string) *entry {
	for _, e := range s.entries {
		if e.ann.ID == id {
			return e
		}
	}
	return nil
}

func validateText(title, note string) error {
	if strings.TrimSpace(title) == "" {
		return &ValidationError{Field: "title"}
	}
	if strings.TrimSpace(note) == "" {
		return &ValidationError{Field: "note"}
	}
	return nil
}
