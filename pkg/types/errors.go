// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"context"
	"errors"
	"fmt"
)

// Stage names a pipeline stage for error reporting.
type Stage string

const (
	StageConfig  Stage = "config"
	StageMindMap Stage = "mindmap"
	StageTable   Stage = "table"
	StageOutline Stage = "outline"
	StageArticle Stage = "article"
	StagePolish  Stage = "polish"
	StageOutput  Stage = "output"
)

// Adapter names used in AdapterError.
const (
	AdapterRetriever = "retriever"
	AdapterGenerator = "generator"
)

// AdapterError reports a failed call to an external adapter (retriever or
// generator). Call carries an excerpt of the query or prompt.
type AdapterError struct {
	Adapter string
	Backend string
	Call    string
	Err     error
}

func (e *AdapterError) Error() string {
	who := e.Adapter
	if e.Backend != "" {
		who += "/" + e.Backend
	}
	return fmt.Sprintf("%s call %q failed: %v", who, excerpt(e.Call, 60), e.Err)
}

func (e *AdapterError) Unwrap() error { return e.Err }

// Timeout reports whether the call failed because its deadline expired.
func (e *AdapterError) Timeout() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}

// StructuralError reports stage output that cannot be mapped onto the
// expected data model (unparsable outline, section count mismatch).
type StructuralError struct {
	Stage  Stage
	Detail string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("%s: malformed output: %s", e.Stage, e.Detail)
}

// ConfigurationError reports missing credentials or invalid settings.
type ConfigurationError struct {
	Field  string
	Detail string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration %s: %s", e.Field, e.Detail)
}

// StageError is the fatal error surfaced by the pipeline driver: the stage
// that failed and its cause.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func excerpt(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
