package validation

import (
	"strings"
	"testing"
)

type heartbeatProbe struct {
	DetectorID string `validate:"required"`
	Status     string `validate:"required,oneof=alive warn failed"`
	Port       int    `validate:"min=1,max=65535"`
}

func TestStruct(t *testing.T) {
	tests := []struct {
		name    string
		input   any
		wantErr string
	}{
		{
			name:  "valid",
			input: &heartbeatProbe{DetectorID: "LFD1", Status: "alive", Port: 5001},
		},
		{
			name:    "missing detector",
			input:   &heartbeatProbe{Status: "alive", Port: 5001},
			wantErr: "DetectorID: field is required",
		},
		{
			name:    "bad status",
			input:   &heartbeatProbe{DetectorID: "LFD1", Status: "dead", Port: 5001},
			wantErr: "must be one of [alive warn failed]",
		},
		{
			name:    "port too large",
			input:   &heartbeatProbe{DetectorID: "LFD1", Status: "warn", Port: 70000},
			wantErr: "must not exceed 65535",
		},
		{
			name:    "nil",
			input:   nil,
			wantErr: "cannot be nil",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.input)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Struct() unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Struct() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}
