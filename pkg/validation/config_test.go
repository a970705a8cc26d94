package validation

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestConfigValidator_Required(t *testing.T) {
	cv := NewConfigValidator("TestConfig")
	cv.Required("Name", "")

	if !cv.HasErrors() {
		t.Error("Expected error for empty required field")
	}

	cv2 := NewConfigValidator("TestConfig")
	cv2.Required("Name", "value")

	if cv2.HasErrors() {
		t.Error("Expected no error for non-empty required field")
	}
}

func TestConfigValidator_RangeInt(t *testing.T) {
	tests := []struct {
		value   int
		wantErr bool
	}{
		{0, true},
		{1, false},
		{65535, false},
		{65536, true},
	}

	for _, tt := range tests {
		cv := NewConfigValidator("Replica").RangeInt("Port", tt.value, 1, 65535)
		if cv.HasErrors() != tt.wantErr {
			t.Errorf("RangeInt(%d) hasErrors = %v, want %v", tt.value, cv.HasErrors(), tt.wantErr)
		}
	}
}

func TestConfigValidator_Durations(t *testing.T) {
	cv := NewConfigValidator("LFD")
	cv.MinDuration("HeartbeatFreq", 0, time.Millisecond)
	cv.AtLeast("Timeout", time.Second, "HeartbeatFreq", 2*time.Second)

	if got := len(cv.Errors()); got != 2 {
		t.Fatalf("Expected 2 errors, got %d: %v", got, cv.Errors())
	}

	ok := NewConfigValidator("LFD").
		MinDuration("HeartbeatFreq", time.Second, time.Millisecond).
		AtLeast("Timeout", 3*time.Second, "HeartbeatFreq", time.Second)
	if ok.HasErrors() {
		t.Errorf("Expected no errors, got %v", ok.Errors())
	}
}

func TestConfigValidator_OneOf(t *testing.T) {
	if NewConfigValidator("Cluster").OneOf("Mode", "passive", []string{"active", "passive"}).HasErrors() {
		t.Error("passive should be accepted")
	}
	if !NewConfigValidator("Cluster").OneOf("Mode", "hybrid", []string{"active", "passive"}).HasErrors() {
		t.Error("hybrid should be rejected")
	}
}

func TestConfigValidator_Unique(t *testing.T) {
	cv := NewConfigValidator("Cluster").Unique("Replicas", []string{"S1", "S2", "S1"})
	if len(cv.Errors()) != 1 {
		t.Fatalf("Expected 1 duplicate error, got %v", cv.Errors())
	}
	if !strings.Contains(cv.Errors()[0].Error(), `"S1"`) {
		t.Errorf("error should name the duplicate: %v", cv.Errors()[0])
	}
}

func TestConfigValidator_Custom(t *testing.T) {
	sentinel := errors.New("unknown replica")
	cv := NewConfigValidator("Detector").Custom("ReplicaID", func() error { return sentinel })

	if !errors.Is(cv.Validate(), sentinel) {
		t.Errorf("Validate() should wrap the custom error, got %v", cv.Validate())
	}
}

func TestConfigValidator_When(t *testing.T) {
	cv := NewConfigValidator("Admin")
	cv.When(false, func(v *ConfigValidator) { v.Required("Addr", "") })
	if cv.HasErrors() {
		t.Error("When(false) should not run validations")
	}
	cv.When(true, func(v *ConfigValidator) { v.Required("Addr", "") })
	if !cv.HasErrors() {
		t.Error("When(true) should run validations")
	}
}

func TestConfigValidator_ValidateJoinsAll(t *testing.T) {
	err := NewConfigValidator("Replica").
		Required("ID", "").
		RangeInt("Port", 0, 1, 65535).
		Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	for _, want := range []string{"Replica.ID", "Replica.Port"} {
		if !strings.Contains(msg, want) {
			t.Errorf("joined error %q missing %q", msg, want)
		}
	}

	if err := NewConfigValidator("Replica").Validate(); err != nil {
		t.Errorf("empty validator should return nil, got %v", err)
	}
}

func TestDefaultOr(t *testing.T) {
	if got := DefaultOr("", "127.0.0.1"); got != "127.0.0.1" {
		t.Errorf("DefaultOr empty = %q", got)
	}
	if got := DefaultOr("10.0.0.1", "127.0.0.1"); got != "10.0.0.1" {
		t.Errorf("DefaultOr set = %q", got)
	}
	if got := DefaultOrInt(-1, 5); got != 5 {
		t.Errorf("DefaultOrInt = %d", got)
	}
	if got := DefaultOrDuration(0, time.Second); got != time.Second {
		t.Errorf("DefaultOrDuration = %v", got)
	}
	if got := DefaultOrDuration(2*time.Second, time.Second); got != 2*time.Second {
		t.Errorf("DefaultOrDuration kept = %v", got)
	}
}
