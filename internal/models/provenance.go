package models

import (
	"errors"
	"fmt"
)

// Provenance tracks where a note's title and summary came from.
//
//	Draft ──create──▶ Derived
//	Draft ──create──▶ AISuggested ──diverging update──▶ AIEdited
//
// No transition leaves AIEdited and none removes AI metadata.
type Provenance string

const (
	ProvenanceDraft       Provenance = "draft"
	ProvenanceDerived     Provenance = "derived"
	ProvenanceAISuggested Provenance = "ai_suggested"
	ProvenanceAIEdited    Provenance = "ai_edited"
)

// ErrInvalidTransition is returned for transitions the state machine does not allow.
var ErrInvalidTransition = errors.New("invalid provenance transition")

// Created is the transition taken when a draft is first persisted.
func (p Provenance) Created(withAI bool) (Provenance, error) {
	if p != ProvenanceDraft {
		return p, fmt.Errorf("%w: create from %s", ErrInvalidTransition, p)
	}
	if withAI {
		return ProvenanceAISuggested, nil
	}
	return ProvenanceDerived, nil
}

// Updated is the transition taken on save. diverged reports whether the saved
// title, summary or content differs from the stored AI suggestion.
func (p Provenance) Updated(diverged bool) (Provenance, error) {
	switch p {
	case ProvenanceDraft:
		return p, fmt.Errorf("%w: update of unsaved draft", ErrInvalidTransition)
	case ProvenanceAISuggested:
		if diverged {
			return ProvenanceAIEdited, nil
		}
		return p, nil
	default:
		return p, nil
	}
}

// HasAI reports whether the state carries AI metadata.
func (p Provenance) HasAI() bool {
	return p == ProvenanceAISuggested || p == ProvenanceAIEdited
}

// ProvenanceOf reads the state back from a note's stored fields.
func ProvenanceOf(n *Note) Provenance {
	switch {
	case n.StoreID == "":
		return ProvenanceDraft
	case n.Metadata.AIMetadata == nil:
		return ProvenanceDerived
	case n.Metadata.AIMetadata.UserEdited:
		return ProvenanceAIEdited
	default:
		return ProvenanceAISuggested
	}
}
