package logging

import (
	"errors"
	"testing"
	"time"
)

func TestNewFields(t *testing.T) {
	f := NewFields()
	if f == nil || len(f) != 0 {
		t.Fatalf("NewFields() = %v, want empty map", f)
	}
}

func TestFields_Component(t *testing.T) {
	f := NewFields().Component("exploration-loop")
	if f["component"] != "exploration-loop" {
		t.Errorf("Component() = %v", f["component"])
	}
}

func TestFields_Operation(t *testing.T) {
	f := NewFields().Operation("classify")
	if f["operation"] != "classify" {
		t.Errorf("Operation() = %v", f["operation"])
	}
}

func TestFields_Resource(t *testing.T) {
	f := NewFields().Resource("hypothesis", "hyp-1")
	if f["resource_type"] != "hypothesis" || f["resource_name"] != "hyp-1" {
		t.Errorf("Resource() = %v", f)
	}
}

func TestFields_ResourceWithoutName(t *testing.T) {
	f := NewFields().Resource("hypothesis", "")
	if _, ok := f["resource_name"]; ok {
		t.Error("Resource() should not set resource_name when empty")
	}
}

func TestFields_Duration(t *testing.T) {
	f := NewFields().Duration(150 * time.Millisecond)
	if f["duration_ms"] != int64(150) {
		t.Errorf("Duration() = %v", f["duration_ms"])
	}
}

func TestFields_Error(t *testing.T) {
	f := NewFields().Error(errors.New("boom"))
	if f["error"] != "boom" {
		t.Errorf("Error() = %v", f["error"])
	}
	f2 := NewFields().Error(nil)
	if _, ok := f2["error"]; ok {
		t.Error("Error(nil) should not set error field")
	}
}

func TestFields_EntityIDAndRunID(t *testing.T) {
	f := NewFields().EntityID("E1").RunID("run-1")
	if f["entity_id"] != "E1" || f["run_id"] != "run-1" {
		t.Errorf("EntityID/RunID() = %v", f)
	}
	f2 := NewFields().EntityID("")
	if _, ok := f2["entity_id"]; ok {
		t.Error("EntityID(\"\") should not set entity_id field")
	}
}

func TestFields_Count(t *testing.T) {
	if got := NewFields().Count(42)["count"]; got != 42 {
		t.Errorf("Count() = %v", got)
	}
}

func TestFields_Custom(t *testing.T) {
	if got := NewFields().Custom("decision", "ACCEPT")["decision"]; got != "ACCEPT" {
		t.Errorf("Custom() = %v", got)
	}
}
