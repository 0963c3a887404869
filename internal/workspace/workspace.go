// Package workspace persists generated artifacts under a project-scoped
// directory and implements reset-with-archive semantics: resetting moves the
// whole project directory into a timestamped archive before recreating a
// clean layout.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// archiveDirName is the sibling directory reset archives projects into.
const archiveDirName = "completed_archive"

// archiveTimeLayout names archived projects project_YYYYMMDD_HHMMSS.
const archiveTimeLayout = "20060102_150405"

// archiveManifestName is written into the workspace just before it is
// archived, so each archive records what it contained.
const archiveManifestName = ".loom-archive.yaml"

// archiveManifest is the YAML document stored at archiveManifestName.
type archiveManifest struct {
	ArchivedAt time.Time `yaml:"archived_at"`
	Files      []string  `yaml:"files"`
}

// ErrPathEscapes is returned when an artifact path would resolve outside the
// workspace.
var ErrPathEscapes = fmt.Errorf("path escapes workspace")

// Artifact describes one file in the workspace.
type Artifact struct {
	// Name is the path relative to the workspace root.
	Name string `json:"name"`
	// Path is the absolute path on disk.
	Path string `json:"path"`
	// Size is the file size in bytes.
	Size int64 `json:"size"`
	// ModTime is the last modification time.
	ModTime time.Time `json:"mod_time"`
	// Runnable mirrors the validation verdict for the artifact, when known.
	Runnable bool `json:"runnable"`
}

// ArchiveEntry describes one archived project directory.
type ArchiveEntry struct {
	// Name is the archive directory name (project_YYYYMMDD_HHMMSS).
	Name string `json:"name"`
	// Path is the absolute path of the archive directory.
	Path string `json:"path"`
	// ArchivedAt is parsed from the directory name.
	ArchivedAt time.Time `json:"archived_at"`
	// FileCount is the number of regular files in the archive.
	FileCount int `json:"file_count"`
}

// Manager owns one project workspace directory and its archive sibling.
type Manager struct {
	root    string
	archive string
	now     func() time.Time
}

// New creates a manager rooted at dir, creating the directory if needed.
func New(dir string) (*Manager, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving workspace path: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("creating workspace: %w", err)
	}
	return &Manager{
		root:    abs,
		archive: filepath.Join(filepath.Dir(abs), archiveDirName),
		now:     time.Now,
	}, nil
}

// Root returns the absolute workspace directory.
func (m *Manager) Root() string { return m.root }

// resolve maps a workspace-relative name to an absolute path, rejecting
// anything that would escape the root.
func (m *Manager) resolve(name string) (string, error) {
	cleaned := filepath.Clean("/" + name)
	abs := filepath.Join(m.root, cleaned)
	if abs != m.root && !strings.HasPrefix(abs, m.root+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrPathEscapes, name)
	}
	return abs, nil
}

// WriteArtifact writes content to the named file under the workspace root,
// creating parent directories as needed, and returns the artifact record.
func (m *Manager) WriteArtifact(name, content string) (Artifact, error) {
	abs, err := m.resolve(name)
	if err != nil {
		return Artifact{}, err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return Artifact{}, fmt.Errorf("creating artifact directory: %w", err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		return Artifact{}, fmt.Errorf("writing artifact %s: %w", name, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return Artifact{}, fmt.Errorf("stat artifact %s: %w", name, err)
	}
	rel, _ := filepath.Rel(m.root, abs)
	return Artifact{Name: rel, Path: abs, Size: info.Size(), ModTime: info.ModTime()}, nil
}

// ReadArtifact returns the content of the named workspace file.
func (m *Manager) ReadArtifact(name string) (string, error) {
	abs, err := m.resolve(name)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return "", fmt.Errorf("reading artifact %s: %w", name, err)
	}
	return string(data), nil
}

// List returns all workspace files sorted by name. When runnable is non-nil
// it is consulted per artifact name to fill the Runnable flag.
func (m *Manager) List(runnable func(name string) bool) ([]Artifact, error) {
	var out []Artifact
	err := filepath.WalkDir(m.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(m.root, path)
		if err != nil {
			return err
		}
		a := Artifact{Name: rel, Path: path, Size: info.Size(), ModTime: info.ModTime()}
		if runnable != nil {
			a.Runnable = runnable(rel)
		}
		out = append(out, a)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing workspace: %w", err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Reset archives the current workspace and recreates it empty. An empty
// workspace is recreated without producing an archive entry; the returned
// path is "" in that case.
func (m *Manager) Reset() (archivedTo string, err error) {
	entries, err := os.ReadDir(m.root)
	if err != nil {
		return "", fmt.Errorf("reading workspace: %w", err)
	}

	if len(entries) > 0 {
		if err := os.MkdirAll(m.archive, 0o755); err != nil {
			return "", fmt.Errorf("creating archive directory: %w", err)
		}
		at := m.now()
		if err := m.writeManifest(at); err != nil {
			return "", err
		}
		archivedTo = filepath.Join(m.archive, "project_"+at.Format(archiveTimeLayout))
		if err := os.Rename(m.root, archivedTo); err != nil {
			return "", fmt.Errorf("archiving workspace: %w", err)
		}
	}

	if err := os.MkdirAll(m.root, 0o755); err != nil {
		return "", fmt.Errorf("recreating workspace: %w", err)
	}
	return archivedTo, nil
}

// writeManifest records the workspace contents into the archive manifest so
// the file travels with the archived directory.
func (m *Manager) writeManifest(at time.Time) error {
	artifacts, err := m.List(nil)
	if err != nil {
		return err
	}
	manifest := archiveManifest{ArchivedAt: at}
	for _, a := range artifacts {
		manifest.Files = append(manifest.Files, a.Name)
	}
	data, err := yaml.Marshal(manifest)
	if err != nil {
		return fmt.Errorf("encoding archive manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(m.root, archiveManifestName), data, 0o644); err != nil {
		return fmt.Errorf("writing archive manifest: %w", err)
	}
	return nil
}

// readManifest loads the manifest from an archived project directory.
func readManifest(dir string) (archiveManifest, bool) {
	data, err := os.ReadFile(filepath.Join(dir, archiveManifestName))
	if err != nil {
		return archiveManifest{}, false
	}
	var manifest archiveManifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return archiveManifest{}, false
	}
	return manifest, true
}

// Archives lists archived projects, newest first.
func (m *Manager) Archives() ([]ArchiveEntry, error) {
	entries, err := os.ReadDir(m.archive)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading archive directory: %w", err)
	}

	var out []ArchiveEntry
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), "project_") {
			continue
		}
		at, err := time.ParseInLocation(archiveTimeLayout, strings.TrimPrefix(e.Name(), "project_"), time.Local)
		if err != nil {
			continue
		}
		dir := filepath.Join(m.archive, e.Name())
		entry := ArchiveEntry{Name: e.Name(), Path: dir, ArchivedAt: at}
		if manifest, ok := readManifest(dir); ok {
			entry.FileCount = len(manifest.Files)
		} else {
			entry.FileCount = countFiles(dir)
		}
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ArchivedAt.After(out[j].ArchivedAt) })
	return out, nil
}

func countFiles(dir string) int {
	n := 0
	filepath.WalkDir(dir, func(_ string, d os.DirEntry, err error) error {
		if err == nil && !d.IsDir() {
			n++
		}
		return nil
	})
	return n
}
