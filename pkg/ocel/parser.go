package ocel

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

// Parser parses OCEL 2.0 JSON files into a Log.
type Parser struct{}

// NewParser creates a new OCEL parser.
func NewParser() *Parser {
	return &Parser{}
}

// rawRelationship is the OCEL 2.0 relationship entry on events and objects.
type rawRelationship struct {
	ObjectID  string `json:"objectId"`
	Qualifier string `json:"qualifier"`
}

// rawEvent accepts both the OCEL 2.0 event form (type/time/relationships)
// and the older omap form (activity/timestamp/omap).
type rawEvent struct {
	ID            string            `json:"id"`
	Type          string            `json:"type"`
	Activity      string            `json:"activity"`
	Time          string            `json:"time"`
	Timestamp     string            `json:"timestamp"`
	Relationships []rawRelationship `json:"relationships"`
	OMap          []string          `json:"omap"`

	Attributes json.RawMessage `json:"attributes,omitempty"`
}

type rawObject struct {
	ID            string            `json:"id"`
	Type          string            `json:"type"`
	Relationships []rawRelationship `json:"relationships"`
}

// ParseFile parses an OCEL 2.0 JSON file from disk.
func (p *Parser) ParseFile(ctx context.Context, path string) (*Log, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open OCEL file %q: %w", path, err)
	}
	defer f.Close()
	return p.Parse(ctx, f)
}

// Parse parses an OCEL 2.0 JSON document.
// Objects are registered before events so that E2O/O2O references resolve;
// relationship entries pointing at unknown objects are dropped, matching
// the permissive behavior of other OCEL tooling.
func (p *Parser) Parse(ctx context.Context, r io.Reader) (*Log, error) {
	var doc struct {
		Objects []rawObject `json:"objects"`
		Events  []rawEvent  `json:"events"`
	}

	decoder := json.NewDecoder(r)
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode OCEL JSON: %w", err)
	}

	log := NewLog()

	for _, ro := range doc.Objects {
		if ro.ID == "" {
			continue
		}
		log.AddObject(&Object{ID: ro.ID, Type: ro.Type})
	}

	// O2O relations come from object relationship lists.
	for _, ro := range doc.Objects {
		for _, rel := range ro.Relationships {
			// Unknown targets are skipped, not fatal.
			_ = log.AddO2O(ro.ID, rel.ObjectID, rel.Qualifier)
		}
	}

	for i, re := range doc.Events {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		event, err := p.convertEvent(re, i)
		if err != nil {
			return nil, err
		}
		log.AddEvent(event)

		for _, rel := range re.Relationships {
			_ = log.AddE2O(event.ID, rel.ObjectID, rel.Qualifier)
		}
		for _, objID := range re.OMap {
			_ = log.AddE2O(event.ID, objID, "")
		}
	}

	return log, nil
}

func (p *Parser) convertEvent(re rawEvent, index int) (*Event, error) {
	activity := re.Type
	if activity == "" {
		activity = re.Activity
	}
	if activity == "" {
		return nil, fmt.Errorf("event %d (%s) has no activity", index, re.ID)
	}

	id := re.ID
	if id == "" {
		id = fmt.Sprintf("e%d", index)
	}

	raw := re.Time
	if raw == "" {
		raw = re.Timestamp
	}

	ts, err := parseTimestamp(raw)
	if err != nil {
		return nil, fmt.Errorf("event %s: %w", id, err)
	}

	event := &Event{
		ID:        id,
		Activity:  activity,
		Timestamp: ts,
	}

	if len(re.Attributes) > 0 {
		var attrs map[string]interface{}
		if err := json.Unmarshal(re.Attributes, &attrs); err == nil {
			event.Attributes = attrs
		}
	}

	return event, nil
}

// parseTimestamp accepts the timestamp layouts seen in OCEL exports.
func parseTimestamp(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, fmt.Errorf("missing timestamp")
	}

	layouts := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04:05.999999",
	}
	for _, layout := range layouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", raw)
}
