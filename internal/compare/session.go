package compare

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/google/uuid"
)

// DraftPatch holds the fields of a draft to change. Nil fields are left as is.
type DraftPatch struct {
	Name        *string
	RawPrice    *string
	RawQuantity *string
	Unit        *Unit
}

// Session is an ordered list of drafts plus the most recent ranking.
// A new or reset session holds a single blank draft measured in grams.
// A Session is not safe for concurrent use.
type Session struct {
	drafts  []Draft
	results []Ranked

	// NewID overrides draft id generation.
	NewID func() uuid.UUID
}

// NewSession returns a session with one blank draft.
func NewSession() *Session {
	s := &Session{}
	s.Reset()
	return s
}

func (s *Session) nextID() uuid.UUID {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.New()
}

func (s *Session) blank() Draft {
	return Draft{ID: s.nextID(), Unit: Gram}
}

func (s *Session) find(id uuid.UUID) int {
	return slices.IndexFunc(s.drafts, func(d Draft) bool { return d.ID == id })
}

// AddDraft appends a blank draft with patch applied.
func (s *Session) AddDraft(patch DraftPatch) (Draft, error) {
	d := s.blank()
	if err := patch.apply(&d); err != nil {
		return Draft{}, err
	}
	s.drafts = append(s.drafts, d)
	return d, nil
}

// UpdateDraft edits a draft in place. Unknown ids are ignored.
func (s *Session) UpdateDraft(id uuid.UUID, patch DraftPatch) error {
	i := s.find(id)
	if i < 0 {
		return nil
	}
	d := s.drafts[i]
	if err := patch.apply(&d); err != nil {
		return err
	}
	s.drafts[i] = d
	return nil
}

// RemoveDraft deletes a draft. Unknown ids are ignored.
func (s *Session) RemoveDraft(id uuid.UUID) {
	if i := s.find(id); i >= 0 {
		s.drafts = slices.Delete(s.drafts, i, i+1)
	}
}

// Reset discards all drafts and results, leaving one blank draft.
func (s *Session) Reset() {
	s.drafts = []Draft{s.blank()}
	s.results = nil
}

// Draft returns the draft with the given id.
func (s *Session) Draft(id uuid.UUID) (Draft, bool) {
	if i := s.find(id); i >= 0 {
		return s.drafts[i], true
	}
	return Draft{}, false
}

// Drafts returns a copy of the drafts in order.
func (s *Session) Drafts() []Draft { return slices.Clone(s.drafts) }

// CanRank reports whether at least one draft would survive ranking.
func (s *Session) CanRank() bool {
	return slices.ContainsFunc(s.drafts, Draft.Rankable)
}

// Rank recomputes and stores the ranking of the current drafts.
func (s *Session) Rank() []Ranked {
	s.results = Rank(s.drafts)
	return slices.Clone(s.results)
}

// Results returns the ranking computed by the last Rank call.
func (s *Session) Results() []Ranked { return slices.Clone(s.results) }

func (p DraftPatch) apply(d *Draft) error {
	if p.Unit != nil {
		if !p.Unit.Valid() {
			return fmt.Errorf("%w: %q", ErrUnknownUnit, string(*p.Unit))
		}
		d.Unit = *p.Unit
	}
	if p.Name != nil {
		d.Name = *p.Name
	}
	if p.RawPrice != nil {
		d.RawPrice = *p.RawPrice
	}
	if p.RawQuantity != nil {
		d.RawQuantity = *p.RawQuantity
	}
	return nil
}

type sessionDocument struct {
	Drafts  []Draft  `json:"drafts"`
	Results []Ranked `json:"results,omitempty"`
}

// MarshalJSON stores one record per draft plus the last ranking.
func (s *Session) MarshalJSON() ([]byte, error) {
	return json.Marshal(sessionDocument{Drafts: s.drafts, Results: s.results})
}

// UnmarshalJSON restores drafts, dropping records with a nil id or an
// unsupported unit.
func (s *Session) UnmarshalJSON(data []byte) error {
	var doc sessionDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	drafts := make([]Draft, 0, len(doc.Drafts))
	for _, d := range doc.Drafts {
		if d.ID == uuid.Nil || !d.Unit.Valid() {
			continue
		}
		drafts = append(drafts, d)
	}
	s.drafts = drafts
	s.results = doc.Results
	return nil
}
