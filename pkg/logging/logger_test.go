package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"DEBUG", DebugLevel},
		{"debug", DebugLevel},
		{"INFO", InfoLevel},
		{"WARN", WarnLevel},
		{"warning", WarnLevel},
		{"ERROR", ErrorLevel},
		{"invalid", InfoLevel}, // Default
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestFieldConstructors(t *testing.T) {
	t.Run("Duration", func(t *testing.T) {
		f := Duration("timeout", 5*time.Second)
		if f.Key != "timeout" || f.Value != "5s" {
			t.Errorf("Duration() = %+v", f)
		}
	})

	t.Run("Error", func(t *testing.T) {
		f := Error(errors.New("refused"))
		if f.Key != "error" || f.Value != "refused" {
			t.Errorf("Error() = %+v", f)
		}
	})

	t.Run("Error_nil", func(t *testing.T) {
		f := Error(nil)
		if f.Key != "error" || f.Value != nil {
			t.Errorf("Error(nil) = %+v", f)
		}
	})

	t.Run("Members", func(t *testing.T) {
		f := Members([]string{"S1", "S2", "S3"})
		if f.Key != "members" || f.Value != "S1 S2 S3" {
			t.Errorf("Members() = %+v", f)
		}
	})

	t.Run("ReplicaID", func(t *testing.T) {
		f := ReplicaID("S2")
		if f.Key != "replica_id" || f.Value != "S2" {
			t.Errorf("ReplicaID() = %+v", f)
		}
	})
}

func TestJSONLogger_BasicLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, DebugLevel)

	logger.Info("heartbeat acknowledged", ReplicaID("S1"))

	var entry LogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to unmarshal log entry: %v", err)
	}

	if entry.Level != "INFO" {
		t.Errorf("Level = %v, want INFO", entry.Level)
	}
	if entry.Message != "heartbeat acknowledged" {
		t.Errorf("Message = %v", entry.Message)
	}
	if entry.Fields["replica_id"] != "S1" {
		t.Errorf("Fields[replica_id] = %v, want S1", entry.Fields["replica_id"])
	}
	if entry.Time == "" {
		t.Error("Time field is empty")
	}
}

func TestJSONLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, WarnLevel)

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected 2 log entries, got %d", len(lines))
	}

	for i, want := range []string{"WARN", "ERROR"} {
		var entry LogEntry
		if err := json.Unmarshal([]byte(lines[i]), &entry); err != nil {
			t.Fatalf("Failed to unmarshal entry %d: %v", i, err)
		}
		if entry.Level != want {
			t.Errorf("Entry %d level = %v, want %v", i, entry.Level, want)
		}
	}
}

func TestJSONLogger_With(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, InfoLevel)

	child := logger.With(Component("gfd"), DetectorID("LFD1"))
	child.Info("status change", Status("alive"))

	var entry LogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}

	if entry.Fields["component"] != "gfd" {
		t.Errorf("component field = %v, want gfd", entry.Fields["component"])
	}
	if entry.Fields["lfd_id"] != "LFD1" {
		t.Errorf("lfd_id field = %v, want LFD1", entry.Fields["lfd_id"])
	}
	if entry.Fields["status"] != "alive" {
		t.Errorf("status field = %v, want alive", entry.Fields["status"])
	}
}

func TestJSONLogger_ChildSharesLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, InfoLevel)
	child := logger.With(Component("rm"))

	logger.SetLevel(ErrorLevel)
	child.Info("suppressed")

	if buf.Len() != 0 {
		t.Errorf("Expected child to honor parent level change, got %q", buf.String())
	}
	if child.GetLevel() != ErrorLevel {
		t.Errorf("child level = %v, want ErrorLevel", child.GetLevel())
	}
}

func TestJSONLogger_NoFieldsOmitted(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, InfoLevel)

	logger.Info("message without fields")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}

	if _, exists := entry["fields"]; exists {
		t.Error("Expected fields key to be omitted when empty")
	}
}

func TestConsoleLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewConsoleLogger(&buf, InfoLevel)

	logger.Debug("hidden")
	logger.With(Component("gfd")).Info("membership changed", Members([]string{"S1", "S2"}), Count(2))

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("debug line should have been filtered")
	}
	for _, want := range []string{"INFO", "membership changed", "component=gfd", `members="S1 S2"`, "count=2"} {
		if !strings.Contains(out, want) {
			t.Errorf("console output %q missing %q", out, want)
		}
	}
	if strings.Count(out, "\n") != 1 {
		t.Errorf("expected exactly one line, got %q", out)
	}
}

func TestNewWithLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "replica.log")
	var stdout bytes.Buffer

	logger, closer, err := New(Options{Format: FormatJSON, Level: InfoLevel, Output: &stdout, FilePath: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("state_S1 = 3 after processing")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !bytes.Equal(data, stdout.Bytes()) {
		t.Errorf("file copy %q differs from stdout %q", data, stdout.Bytes())
	}
}

func TestNewUnknownFormat(t *testing.T) {
	if _, _, err := New(Options{Format: "xml"}); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestGlobalHelperFunctions(t *testing.T) {
	var buf bytes.Buffer
	SetDefaultLogger(NewJSONLogger(&buf, DebugLevel))
	defer SetDefaultLogger(nil)

	Info("info msg")
	Warn("warn msg")
	ErrorLog("error msg")
	With(String("service", "counter")).Info("child")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("Expected 4 log entries, got %d", len(lines))
	}

	var entry LogEntry
	if err := json.Unmarshal([]byte(lines[3]), &entry); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}
	if entry.Fields["service"] != "counter" {
		t.Errorf("service field = %v, want counter", entry.Fields["service"])
	}
}

func BenchmarkJSONLogger_Info(b *testing.B) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, InfoLevel)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.Info("benchmark message",
			ReplicaID("S1"),
			Counter(42),
		)
	}
}
