package workspace

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := New(filepath.Join(t.TempDir(), "workspace"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return m
}

func TestWriteAndReadArtifact(t *testing.T) {
	m := newTestManager(t)

	a, err := m.WriteArtifact("app.py", "print('hi')")
	if err != nil {
		t.Fatalf("WriteArtifact: %v", err)
	}
	if a.Name != "app.py" {
		t.Errorf("Name = %q", a.Name)
	}
	if a.Size != int64(len("print('hi')")) {
		t.Errorf("Size = %d", a.Size)
	}

	content, err := m.ReadArtifact("app.py")
	if err != nil {
		t.Fatalf("ReadArtifact: %v", err)
	}
	if content != "print('hi')" {
		t.Errorf("content = %q", content)
	}
}

func TestWriteArtifactNested(t *testing.T) {
	m := newTestManager(t)

	a, err := m.WriteArtifact("static/index.html", "<html></html>")
	if err != nil {
		t.Fatalf("WriteArtifact nested: %v", err)
	}
	if a.Name != filepath.Join("static", "index.html") {
		t.Errorf("Name = %q", a.Name)
	}
}

func TestPathEscapeRejected(t *testing.T) {
	m := newTestManager(t)

	if _, err := m.WriteArtifact("../outside.txt", "x"); !errors.Is(err, ErrPathEscapes) {
		t.Errorf("WriteArtifact escape = %v, want ErrPathEscapes", err)
	}
	if _, err := m.ReadArtifact("../../etc/passwd"); !errors.Is(err, ErrPathEscapes) {
		t.Errorf("ReadArtifact escape = %v, want ErrPathEscapes", err)
	}
}

func TestListWithRunnableFlag(t *testing.T) {
	m := newTestManager(t)
	if _, err := m.WriteArtifact("app.py", "print('hi')"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.WriteArtifact("index.html", "<html></html>"); err != nil {
		t.Fatal(err)
	}

	artifacts, err := m.List(func(name string) bool { return name == "app.py" })
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(artifacts) != 2 {
		t.Fatalf("List returned %d artifacts, want 2", len(artifacts))
	}
	// Sorted by name: app.py, index.html.
	if artifacts[0].Name != "app.py" || !artifacts[0].Runnable {
		t.Errorf("artifacts[0] = %+v", artifacts[0])
	}
	if artifacts[1].Name != "index.html" || artifacts[1].Runnable {
		t.Errorf("artifacts[1] = %+v", artifacts[1])
	}
}

func TestResetArchivesAndRecreates(t *testing.T) {
	m := newTestManager(t)
	m.now = func() time.Time { return time.Date(2026, 3, 14, 15, 9, 26, 0, time.Local) }

	if _, err := m.WriteArtifact("app.py", "print('hi')"); err != nil {
		t.Fatal(err)
	}

	archivedTo, err := m.Reset()
	if err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if filepath.Base(archivedTo) != "project_20260314_150926" {
		t.Errorf("archive name = %q", filepath.Base(archivedTo))
	}

	// Archived file survives; workspace is empty again.
	if _, err := os.Stat(filepath.Join(archivedTo, "app.py")); err != nil {
		t.Errorf("archived artifact missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(archivedTo, archiveManifestName)); err != nil {
		t.Errorf("archive manifest missing: %v", err)
	}
	archives, err := m.Archives()
	if err != nil {
		t.Fatalf("Archives: %v", err)
	}
	if len(archives) != 1 || archives[0].FileCount != 1 {
		t.Errorf("Archives = %+v, want one entry with FileCount 1", archives)
	}
	artifacts, err := m.List(nil)
	if err != nil {
		t.Fatalf("List after reset: %v", err)
	}
	if len(artifacts) != 0 {
		t.Errorf("workspace not empty after reset: %v", artifacts)
	}
}

func TestResetEmptyWorkspaceSkipsArchive(t *testing.T) {
	m := newTestManager(t)

	archivedTo, err := m.Reset()
	if err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if archivedTo != "" {
		t.Errorf("empty workspace produced archive %q", archivedTo)
	}
	if entries, _ := m.Archives(); len(entries) != 0 {
		t.Errorf("Archives = %v, want none", entries)
	}
}

func TestArchivesNewestFirst(t *testing.T) {
	m := newTestManager(t)

	times := []time.Time{
		time.Date(2026, 1, 1, 10, 0, 0, 0, time.Local),
		time.Date(2026, 2, 1, 10, 0, 0, 0, time.Local),
	}
	for _, ts := range times {
		m.now = func() time.Time { return ts }
		if _, err := m.WriteArtifact("app.py", "x"); err != nil {
			t.Fatal(err)
		}
		if _, err := m.Reset(); err != nil {
			t.Fatalf("Reset: %v", err)
		}
	}

	archives, err := m.Archives()
	if err != nil {
		t.Fatalf("Archives: %v", err)
	}
	if len(archives) != 2 {
		t.Fatalf("Archives returned %d entries, want 2", len(archives))
	}
	if !archives[0].ArchivedAt.After(archives[1].ArchivedAt) {
		t.Errorf("archives not newest first: %v, %v", archives[0].ArchivedAt, archives[1].ArchivedAt)
	}
	if archives[0].FileCount != 1 {
		t.Errorf("FileCount = %d, want 1", archives[0].FileCount)
	}
}
