// Package ocel provides Object-Centric Event Log (OCEL) 2.0 support for
// OC-DECLARE constraint discovery and conformance checking.
//
// Mathematical Model:
//
//	L = (E, O, evtype, time, objtype, E2O, O2O)
//
// Where:
//   - E ⊆ 𝕌_ev           : Set of events
//   - O ⊆ 𝕌_obj          : Set of objects
//   - E2O ⊆ E × 𝕌_qual × O : Event-to-Object relations (qualified)
//   - O2O ⊆ O × 𝕌_qual × O : Object-to-Object relations (qualified)
package ocel

import (
	"fmt"
	"time"
)

// Event represents an event in the OCEL log.
// Maps to: E ⊆ 𝕌_ev with evtype: E → 𝕌_etype and time: E → 𝕌_time
type Event struct {
	ID        string    `json:"id"`
	Activity  string    `json:"activity"`
	Timestamp time.Time `json:"timestamp"`

	// Seq is the ingestion sequence number, assigned by AddEvent. It breaks
	// timestamp ties so that event ordering stays stable across runs.
	Seq int `json:"-"`

	Attributes map[string]interface{} `json:"attributes,omitempty"`
}

// Object represents an object in the OCEL log.
// Maps to: O ⊆ 𝕌_obj with objtype: O → 𝕌_otype
type Object struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// E2O represents an Event-to-Object relation with qualifier.
type E2O struct {
	EventID   string `json:"event_id"`
	ObjectID  string `json:"object_id"`
	Qualifier string `json:"qualifier"`
}

// O2O represents a directed Object-to-Object relation with qualifier.
type O2O struct {
	SourceID  string `json:"source_id"`
	TargetID  string `json:"target_id"`
	Qualifier string `json:"qualifier"`
}

// Log represents a complete OCEL 2.0 log.
type Log struct {
	Events  map[string]*Event  `json:"events"`  // E: event_id -> Event
	Objects map[string]*Object `json:"objects"` // O: object_id -> Object

	E2ORelations []E2O `json:"e2o"`
	O2ORelations []O2O `json:"o2o"`

	Metadata *Metadata `json:"metadata"`

	nextSeq int
}

// Metadata contains OCEL log metadata.
type Metadata struct {
	Version     string   `json:"version"` // "2.0"
	EventTypes  []string `json:"event_types"`
	ObjectTypes []string `json:"object_types"`
	TimeRange   struct {
		Min time.Time `json:"min"`
		Max time.Time `json:"max"`
	} `json:"time_range"`
	Statistics struct {
		EventCount  int64            `json:"event_count"`
		ObjectCount int64            `json:"object_count"`
		E2OCount    int64            `json:"e2o_count"`
		O2OCount    int64            `json:"o2o_count"`
		ByType      map[string]int64 `json:"by_type"` // object_type -> count
	} `json:"statistics"`
}

// NewLog creates a new empty OCEL 2.0 log.
func NewLog() *Log {
	return &Log{
		Events:       make(map[string]*Event),
		Objects:      make(map[string]*Object),
		E2ORelations: make([]E2O, 0),
		O2ORelations: make([]O2O, 0),
		Metadata: &Metadata{
			Version:     "2.0",
			EventTypes:  make([]string, 0),
			ObjectTypes: make([]string, 0),
		},
	}
}

// AddEvent adds an event to the log and assigns its ingestion sequence.
func (l *Log) AddEvent(event *Event) {
	event.Seq = l.nextSeq
	l.nextSeq++
	l.Events[event.ID] = event
	l.updateMetadataForEvent(event)
}

// AddObject adds an object to the log.
func (l *Log) AddObject(object *Object) {
	l.Objects[object.ID] = object
	l.updateMetadataForObject(object)
}

// AddE2O adds an event-to-object relation.
func (l *Log) AddE2O(eventID, objectID, qualifier string) error {
	if _, ok := l.Events[eventID]; !ok {
		return fmt.Errorf("event %s not found", eventID)
	}
	if _, ok := l.Objects[objectID]; !ok {
		return fmt.Errorf("object %s not found", objectID)
	}

	l.E2ORelations = append(l.E2ORelations, E2O{
		EventID:   eventID,
		ObjectID:  objectID,
		Qualifier: qualifier,
	})
	l.Metadata.Statistics.E2OCount++
	return nil
}

// AddO2O adds a directed object-to-object relation.
func (l *Log) AddO2O(sourceID, targetID, qualifier string) error {
	if _, ok := l.Objects[sourceID]; !ok {
		return fmt.Errorf("source object %s not found", sourceID)
	}
	if _, ok := l.Objects[targetID]; !ok {
		return fmt.Errorf("target object %s not found", targetID)
	}

	l.O2ORelations = append(l.O2ORelations, O2O{
		SourceID:  sourceID,
		TargetID:  targetID,
		Qualifier: qualifier,
	})
	l.Metadata.Statistics.O2OCount++
	return nil
}

// GetObjectsForEvent returns all objects related to an event.
func (l *Log) GetObjectsForEvent(eventID string) []*Object {
	var result []*Object
	for _, e2o := range l.E2ORelations {
		if e2o.EventID == eventID {
			if obj, ok := l.Objects[e2o.ObjectID]; ok {
				result = append(result, obj)
			}
		}
	}
	return result
}

// --- Metadata Helpers ---

func (l *Log) updateMetadataForEvent(event *Event) {
	found := false
	for _, t := range l.Metadata.EventTypes {
		if t == event.Activity {
			found = true
			break
		}
	}
	if !found {
		l.Metadata.EventTypes = append(l.Metadata.EventTypes, event.Activity)
	}

	if l.Metadata.TimeRange.Min.IsZero() || event.Timestamp.Before(l.Metadata.TimeRange.Min) {
		l.Metadata.TimeRange.Min = event.Timestamp
	}
	if event.Timestamp.After(l.Metadata.TimeRange.Max) {
		l.Metadata.TimeRange.Max = event.Timestamp
	}

	l.Metadata.Statistics.EventCount++
}

func (l *Log) updateMetadataForObject(object *Object) {
	found := false
	for _, t := range l.Metadata.ObjectTypes {
		if t == object.Type {
			found = true
			break
		}
	}
	if !found {
		l.Metadata.ObjectTypes = append(l.Metadata.ObjectTypes, object.Type)
	}

	l.Metadata.Statistics.ObjectCount++

	if l.Metadata.Statistics.ByType == nil {
		l.Metadata.Statistics.ByType = make(map[string]int64)
	}
	l.Metadata.Statistics.ByType[object.Type]++
}

// --- Validation ---

// Validate checks the log for consistency. The parser never produces
// dangling references, but programmatically assembled logs can; the
// store refuses to persist them.
func (l *Log) Validate() []string {
	var errors []string

	for _, e2o := range l.E2ORelations {
		if _, ok := l.Events[e2o.EventID]; !ok {
			errors = append(errors, fmt.Sprintf("E2O references non-existent event: %s", e2o.EventID))
		}
		if _, ok := l.Objects[e2o.ObjectID]; !ok {
			errors = append(errors, fmt.Sprintf("E2O references non-existent object: %s", e2o.ObjectID))
		}
	}

	for _, o2o := range l.O2ORelations {
		if _, ok := l.Objects[o2o.SourceID]; !ok {
			errors = append(errors, fmt.Sprintf("O2O references non-existent source: %s", o2o.SourceID))
		}
		if _, ok := l.Objects[o2o.TargetID]; !ok {
			errors = append(errors, fmt.Sprintf("O2O references non-existent target: %s", o2o.TargetID))
		}
	}

	return errors
}

// Stats returns statistics about the log.
func (l *Log) Stats() map[string]interface{} {
	return map[string]interface{}{
		"events":        len(l.Events),
		"objects":       len(l.Objects),
		"e2o_relations": len(l.E2ORelations),
		"o2o_relations": len(l.O2ORelations),
		"event_types":   len(l.Metadata.EventTypes),
		"object_types":  len(l.Metadata.ObjectTypes),
		"time_range": map[string]string{
			"min": l.Metadata.TimeRange.Min.Format(time.RFC3339),
			"max": l.Metadata.TimeRange.Max.Format(time.RFC3339),
		},
	}
}
