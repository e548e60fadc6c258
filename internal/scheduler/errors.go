package scheduler

import (
	"errors"
	"fmt"
)

// Stage identifies the pipeline stage an error originated from.
type Stage string

const (
	StageRoute   Stage = "route"
	StageExtract Stage = "extract"
	StageResolve Stage = "resolve"
	StageInsert  Stage = "insert"
)

// ParseError reports model output that does not conform to the expected
// schema, or an unparsable date-time in extracted event details. It is
// fatal for the affected message but never for the batch. Raw carries the
// offending text for diagnosis.
type ParseError struct {
	Stage Stage
	Raw   string
	Err   error
}

func (e *ParseError) Error() string {
	msg := "malformed model output"
	if e.Stage != "" {
		msg = fmt.Sprintf("%s: %s", e.Stage, msg)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// IsParseError reports whether err is or wraps a ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}
