package deps_test

import (
	"os"
	"path/filepath"
	"testing"

	"converteasy/internal/deps"
	"converteasy/internal/registry"
)

func TestCheckBinaries(t *testing.T) {
	statuses := deps.CheckBinaries([]deps.Requirement{
		{Name: "shell", Command: "sh", Description: "posix shell"},
		{Name: "ghost", Command: "definitely-not-a-real-binary-xyz"},
		{Name: "blank", Command: " "},
	})

	if len(statuses) != 3 {
		t.Fatalf("statuses = %d", len(statuses))
	}
	if !statuses[0].Available {
		t.Fatalf("sh should be available: %+v", statuses[0])
	}
	if statuses[1].Available || statuses[1].Detail == "" {
		t.Fatalf("missing binary should carry detail: %+v", statuses[1])
	}
	if statuses[2].Available || statuses[2].Detail != "command not configured" {
		t.Fatalf("blank command status = %+v", statuses[2])
	}
}

func TestCheckPrograms(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "pdf_to_doc"), []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	statuses := deps.CheckPrograms(registry.New(dir))

	byName := make(map[string]deps.Status, len(statuses))
	for _, status := range statuses {
		byName[status.Name] = status
	}
	if !byName["pdf_to_doc"].Available {
		t.Fatalf("pdf_to_doc should be available: %+v", byName["pdf_to_doc"])
	}
	if byName["html_to_pdf"].Available {
		t.Fatalf("html_to_pdf should be missing: %+v", byName["html_to_pdf"])
	}
	if _, ok := byName[registry.ImageProgram]; !ok {
		t.Fatal("image program should be reported")
	}
}
