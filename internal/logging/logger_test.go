package logging_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"converteasy/internal/logging"
)

func TestNewJSONLoggerWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "daemon.log")
	logger, err := logging.New(logging.Options{
		Level:       "info",
		Format:      "json",
		OutputPaths: []string{path},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Info("conversion started",
		logging.String(logging.FieldTaskID, "abc"),
		logging.Int("attempt", 2),
	)
	logger.Debug("suppressed at info level")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 1 {
		t.Fatalf("log lines = %d:\n%s", len(lines), data)
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("parse log line: %v", err)
	}
	if entry["msg"] != "conversion started" || entry[logging.FieldTaskID] != "abc" {
		t.Fatalf("entry = %v", entry)
	}
}

func TestNewConsoleLoggerFormatsAttrs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daemon.log")
	logger, err := logging.New(logging.Options{
		Format:      "console",
		OutputPaths: []string{path},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	log := logging.NewComponentLogger(logger, "dispatcher")
	log.Warn("queue saturated", logging.Int("depth", 64), logging.String("note", "two words"))

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	line := strings.TrimSpace(string(data))
	for _, want := range []string{"WARN", "queue saturated", "component=dispatcher", "depth=64", `note="two words"`} {
		if !strings.Contains(line, want) {
			t.Errorf("line missing %q: %s", want, line)
		}
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("unknown format should be rejected")
	}
}

func TestDebugLevelEnablesDebugRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daemon.log")
	logger, err := logging.New(logging.Options{
		Level:       "debug",
		Format:      "json",
		OutputPaths: []string{path},
	})
	if err != nil {
		t.Fatal(err)
	}
	logger.Debug("visible")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "visible") {
		t.Fatalf("debug record missing: %s", data)
	}
}

func TestNewComponentLoggerNilBase(t *testing.T) {
	log := logging.NewComponentLogger(nil, "test")
	log.Info("must not panic")
}

func TestErrorAttr(t *testing.T) {
	attr := logging.Error(nil)
	if attr.Value.String() != "<nil>" {
		t.Fatalf("nil error attr = %v", attr.Value)
	}
}
