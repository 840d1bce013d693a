package rules

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log"
)

// Reason explains why an interpretation was rejected.
type Reason string

const (
	ReasonNotAParkingSign   Reason = "NotAParkingSign"
	ReasonSchemaViolation   Reason = "SchemaViolation"
	ReasonMalformedResponse Reason = "MalformedResponse"
)

// Result is either Rejected or Accepted. No other implementations exist.
type Result interface {
	isResult()
}

// Rejected means the model output could not be turned into a spot.
type Rejected struct {
	Reason Reason
}

// Accepted carries the normalized content of a recognized parking sign.
type Accepted struct {
	Description *string
	RawText     *string
	Periods     []Period
}

func (Rejected) isResult() {}
func (Accepted) isResult() {}

// ValidateResponse is the top-level gate over the model's JSON document.
// Periods are validated one by one; a bad period is dropped, not fatal.
func ValidateResponse(raw []byte) Result {
	doc, err := decodeDocument(raw)
	if err != nil {
		logf("malformed model response: %v", err)
		return Rejected{Reason: ReasonMalformedResponse}
	}

	obj, ok := doc.(map[string]any)
	if !ok {
		logf("schema violation: top-level value is %T, not an object", doc)
		return Rejected{Reason: ReasonSchemaViolation}
	}

	isSign, ok := obj["is_parking_sign"].(bool)
	if !ok {
		logf("schema violation: is_parking_sign missing or not a boolean")
		return Rejected{Reason: ReasonSchemaViolation}
	}
	if !isSign {
		return Rejected{Reason: ReasonNotAParkingSign}
	}

	var rawPeriods []any
	switch v := obj["periods"].(type) {
	case nil:
	case []any:
		rawPeriods = v
	default:
		logf("periods is %T, treating as empty", v)
	}

	periods := make([]Period, 0, len(rawPeriods))
	for i, item := range rawPeriods {
		m, ok := item.(map[string]any)
		if !ok {
			logf("dropping period %d: not an object (%T)", i, item)
			continue
		}
		p, err := ValidatePeriod(RawPeriod(m))
		if err != nil {
			logf("dropping period %d: %v", i, err)
			continue
		}
		periods = append(periods, p)
	}

	return Accepted{
		Description: optionalText(obj["description"]),
		RawText:     optionalText(obj["raw_text"]),
		Periods:     periods,
	}
}

// decodeDocument decodes exactly one JSON value, keeping numbers exact.
func decodeDocument(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("trailing data after JSON value")
	}
	return doc, nil
}

func logf(format string, args ...any) {
	log.Printf("rules: "+format, args...)
}
