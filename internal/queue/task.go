package queue

import (
	"fmt"

	"rankwise.app/analyst/internal/model"
)

// Task asks a worker to analyze one target. Target holds the normalized key;
// the worker parses it again before running.
type Task struct {
	Target  string
	Kind    model.TargetKind
	Attempt int
	TraceID string
}

func (t Task) validate() error {
	if t.Target == "" {
		return fmt.Errorf("missing target")
	}
	if !t.Kind.Valid() {
		return fmt.Errorf("invalid kind %q", t.Kind)
	}
	return nil
}
