package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/example/room-reservation/internal/calendar"
	"github.com/example/room-reservation/internal/testfixtures"
)

func runTool(t *testing.T, db string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	err := run(context.Background(), append([]string{"-db", db, "-tz", "Asia/Tokyo"}, args...), &out, logger)
	return out.String(), err
}

func TestMemberCommands(t *testing.T) {
	db := filepath.Join(t.TempDir(), "members.db")

	out, err := runTool(t, db, "add", "-id", "t001", "-name", "Sato", "-role", "教員", "-password", "teacher-pass")
	if err != nil {
		t.Fatalf("expected add to succeed, got %v", err)
	}
	if !strings.Contains(out, "created t001") {
		t.Fatalf("expected confirmation, got %q", out)
	}

	t.Run("duplicate id", func(t *testing.T) {
		out, err := runTool(t, db, "add", "-id", "t001", "-name", "Sato", "-password", "teacher-pass")
		if err == nil {
			t.Fatalf("expected duplicate add to fail")
		}
		if !strings.Contains(out, "id: already registered") {
			t.Fatalf("expected field error in output, got %q", out)
		}
	})

	t.Run("short password", func(t *testing.T) {
		if _, err := runTool(t, db, "add", "-id", "s002", "-name", "Ito", "-password", "short"); err == nil {
			t.Fatalf("expected short password to fail")
		}
	})

	t.Run("list", func(t *testing.T) {
		out, err := runTool(t, db, "list")
		if err != nil {
			t.Fatalf("expected list to succeed, got %v", err)
		}
		if !strings.Contains(out, "t001") || !strings.Contains(out, "教員") {
			t.Fatalf("expected teacher row, got %q", out)
		}
		if strings.Contains(out, "s002") {
			t.Fatalf("expected rejected member to be absent, got %q", out)
		}
	})
}

func TestImportICS(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "calendar.db")
	icsPath := filepath.Join(dir, "room.ics")

	start := testfixtures.At(2025, 4, 17, 13, 10)
	events := []calendar.Event{
		{ID: "ev-1", Title: calendar.Title(calendar.KindClass, "", "Math"), Kind: calendar.KindClass, Start: start, End: start.Add(90 * time.Minute)},
		{ID: "ev-2", Title: "【学生】Alice", Kind: calendar.KindNormal, Start: start.Add(-3 * time.Hour), End: start.Add(-2 * time.Hour)},
	}
	var buf bytes.Buffer
	if err := calendar.WriteICS(&buf, events, calendar.ICSOptions{Now: start}); err != nil {
		t.Fatalf("failed to write ics: %v", err)
	}
	if err := os.WriteFile(icsPath, buf.Bytes(), 0o600); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	out, err := runTool(t, db, "import-ics", icsPath)
	if err != nil {
		t.Fatalf("expected import to succeed, got %v", err)
	}
	if !strings.Contains(out, "imported 2 events, skipped 0") {
		t.Fatalf("unexpected output %q", out)
	}

	out, err = runTool(t, db, "import-ics", icsPath)
	if err != nil {
		t.Fatalf("expected rerun to succeed, got %v", err)
	}
	if !strings.Contains(out, "imported 0 events, skipped 2") {
		t.Fatalf("expected rerun to skip existing events, got %q", out)
	}
}

func TestRunUsage(t *testing.T) {
	db := filepath.Join(t.TempDir(), "usage.db")
	if _, err := runTool(t, db); err == nil {
		t.Fatalf("expected usage error without a command")
	}
	if _, err := runTool(t, db, "drop"); err == nil {
		t.Fatalf("expected error for unknown command")
	}
	if _, err := runTool(t, db, "import-ics"); err == nil {
		t.Fatalf("expected error without a file")
	}
}
