package ingest

import "fmt"

// Reason is the stable, caller-visible failure category of an ingestion.
type Reason string

const (
	ReasonInvalidCoordinates     Reason = "InvalidCoordinates"
	ReasonInvalidImage           Reason = "InvalidImage"
	ReasonInterpreterUnavailable Reason = "InterpreterUnavailable"
	ReasonNotAParkingSign        Reason = "NotAParkingSign"
	ReasonSchemaViolation        Reason = "SchemaViolation"
)

// IngestionError is returned for every ingestion that persisted nothing
// for a reason other than a store failure.
type IngestionError struct {
	Reason Reason
	Err    error
}

func (e *IngestionError) Error() string {
	if e.Err == nil {
		return "ingest: " + string(e.Reason)
	}
	return fmt.Sprintf("ingest: %s: %v", e.Reason, e.Err)
}

func (e *IngestionError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the same request may succeed later.
func (e *IngestionError) Retryable() bool {
	return e.Reason == ReasonInterpreterUnavailable
}
