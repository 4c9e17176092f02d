// Package tags defines the core data model: tag values, metadata, and the
// concurrent point table that stores the gateway's current tag state.
package tags

import (
	"encoding/json"
	"fmt"
	"time"
)

// Quality is a coarse tag-value confidence label, independent of the value
// payload.
type Quality int

const (
	QualityInitializing Quality = iota
	QualityGood
	QualityUncertain
	QualityBad
	QualityCommFailure
	QualityConfigError
)

var qualityNames = [...]string{
	QualityInitializing: "Initializing",
	QualityGood:         "Good",
	QualityUncertain:    "Uncertain",
	QualityBad:          "Bad",
	QualityCommFailure:  "CommFailure",
	QualityConfigError:  "ConfigError",
}

func (q Quality) String() string {
	if int(q) < 0 || int(q) >= len(qualityNames) {
		return "Unknown"
	}
	return qualityNames[q]
}

func (q Quality) MarshalJSON() ([]byte, error) {
	return json.Marshal(q.String())
}

func (q *Quality) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	for i, name := range qualityNames {
		if name == s {
			*q = Quality(i)
			return nil
		}
	}
	return fmt.Errorf("tags: unknown quality %q", s)
}

// ValueKind identifies which payload field of a Value is meaningful.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindBool
	KindSignedInt
	KindUnsignedInt
	KindFloat
	KindText
)

// Value is a tagged union over the payload types a TagValue can carry.
// Only the field matching Kind is meaningful.
type Value struct {
	Kind        ValueKind
	Bool        bool
	SignedInt   int64
	UnsignedInt uint64
	Float       float64
	Text        string
}

func NullValue() Value                  { return Value{Kind: KindNull} }
func BoolValue(b bool) Value            { return Value{Kind: KindBool, Bool: b} }
func SignedIntValue(i int64) Value      { return Value{Kind: KindSignedInt, SignedInt: i} }
func UnsignedIntValue(u uint64) Value   { return Value{Kind: KindUnsignedInt, UnsignedInt: u} }
func FloatValue(f float64) Value        { return Value{Kind: KindFloat, Float: f} }
func TextValue(s string) Value          { return Value{Kind: KindText, Text: s} }

// Any returns the payload as a plain interface{}, useful for JSON encoding.
func (v Value) Any() interface{} {
	switch v.Kind {
	case KindBool:
		return v.Bool
	case KindSignedInt:
		return v.SignedInt
	case KindUnsignedInt:
		return v.UnsignedInt
	case KindFloat:
		return v.Float
	case KindText:
		return v.Text
	default:
		return nil
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Any())
}

// TagValue is a value, its quality, and the millisecond Unix timestamp at
// which it was produced.
type TagValue struct {
	Value     Value   `json:"value"`
	Quality   Quality `json:"quality"`
	Timestamp int64   `json:"timestamp"`
}

// NewTagValue stamps the current wall clock onto value/quality.
func NewTagValue(value Value, quality Quality) TagValue {
	return TagValue{
		Value:     value,
		Quality:   quality,
		Timestamp: time.Now().UnixMilli(),
	}
}

// BadTagValue returns a Null-payload TagValue carrying the given quality,
// the shape every newly registered Tag starts with.
func BadTagValue(quality Quality) TagValue {
	return NewTagValue(NullValue(), quality)
}

// TagMetadata holds optional descriptive information about a tag.
type TagMetadata struct {
	Description *string  `json:"description,omitempty"`
	EngUnit     *string  `json:"eng_unit,omitempty"`
	EngLow      *float64 `json:"eng_low,omitempty"`
	EngHigh     *float64 `json:"eng_high,omitempty"`
	Writable    bool     `json:"writable"`
}

// deepCopy returns a TagMetadata whose pointer fields are independent
// allocations from m's, so a caller can't mutate a Table entry through a
// returned Tag's metadata.
func (m TagMetadata) deepCopy() TagMetadata {
	cp := m
	if m.Description != nil {
		d := *m.Description
		cp.Description = &d
	}
	if m.EngUnit != nil {
		u := *m.EngUnit
		cp.EngUnit = &u
	}
	if m.EngLow != nil {
		l := *m.EngLow
		cp.EngLow = &l
	}
	if m.EngHigh != nil {
		h := *m.EngHigh
		cp.EngHigh = &h
	}
	return cp
}

// Tag is a single registered data point: its identity (Path), its owning
// driver and protocol address, its poll rate, its current value, and its
// metadata.
type Tag struct {
	Path          string      `json:"path"`
	DriverID      string      `json:"driver_id"`
	DriverAddress string      `json:"driver_address"`
	PollRateMS    uint64      `json:"poll_rate_ms"`
	Value         TagValue    `json:"value"`
	Metadata      TagMetadata `json:"metadata"`
}

// DeepCopy returns a Tag with its own independent TagMetadata pointer
// allocations, safe to hand to a caller outside the Table's lock.
func (t Tag) DeepCopy() Tag {
	cp := t
	cp.Metadata = t.Metadata.deepCopy()
	return cp
}
