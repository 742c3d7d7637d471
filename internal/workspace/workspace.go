// Package workspace implements C1: scratch-directory lifecycle for one
// compilation. Per spec.md §9's design note, each judge run gets its own
// subdirectory (tmp/<job-uuid>/) rather than sharing a single tmp/, so the
// same layout works whether the pipeline is serialized by a single worker
// (the default, per §5) or — in a future iteration — run in parallel.
package workspace

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"onlinejudge/internal/assetstore"
	"onlinejudge/internal/models"

	"github.com/google/uuid"
)

const compiledBinaryName = "out_put_program"

// Workspace is one job's scratch directory.
type Workspace struct {
	dir    string
	assets *assetstore.Store
}

// Manager creates and tears down per-job Workspaces rooted at a single
// configured directory.
type Manager struct {
	root   string
	assets *assetstore.Store
}

func NewManager(root string, assets *assetstore.Store) (*Manager, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("workspace: create root %s: %w", root, err)
	}
	return &Manager{root: root, assets: assets}, nil
}

// New creates a fresh, empty subdirectory for one job.
func (m *Manager) New() (*Workspace, error) {
	dir := filepath.Join(m.root, uuid.New().String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("workspace: create %s: %w", dir, err)
	}
	return &Workspace{dir: dir, assets: m.assets}, nil
}

// Close removes the workspace directory and everything under it.
func (w *Workspace) Close() error {
	return os.RemoveAll(w.dir)
}

// SourcePath is where the Compiler Driver writes source_code, named after
// Language.FileName.
func (w *Workspace) SourcePath(fileName string) string {
	return filepath.Join(w.dir, fileName)
}

// BinaryPath is the fixed location of the compiled output.
func (w *Workspace) BinaryPath() string {
	return filepath.Join(w.dir, compiledBinaryName)
}

// CaseOutputPath is where the Case Runner captures stdout for case index i
// (0-based over the problem's cases).
func (w *Workspace) CaseOutputPath(i int) string {
	return filepath.Join(w.dir, fmt.Sprintf("%d.out", i))
}

// WriteSource writes source_code to the workspace's source file.
func (w *Workspace) WriteSource(fileName, sourceCode string) error {
	if err := os.WriteFile(w.SourcePath(fileName), []byte(sourceCode), 0o644); err != nil {
		return fmt.Errorf("workspace: write source: %w", err)
	}
	return nil
}

// ResolveCaseFiles ensures c.InputFile and c.AnswerFile exist on disk,
// fetching them from the configured asset store first if c.AssetSource is
// set and the files are not already present locally. AssetSource is an
// object-key prefix; the input and answer blobs live at "<prefix>.in" and
// "<prefix>.ans". It returns the local paths to use for the run.
func (w *Workspace) ResolveCaseFiles(ctx context.Context, c models.Case) (inputPath, answerPath string, err error) {
	if c.AssetSource == "" {
		return c.InputFile, c.AnswerFile, nil
	}
	if _, statErr := os.Stat(c.InputFile); statErr == nil {
		if _, statErr := os.Stat(c.AnswerFile); statErr == nil {
			return c.InputFile, c.AnswerFile, nil
		}
	}
	if w.assets == nil {
		return "", "", fmt.Errorf("workspace: case references asset %q but no asset store is configured", c.AssetSource)
	}

	inputPath, err = w.materializeAsset(ctx, c.AssetSource+".in", "input")
	if err != nil {
		return "", "", err
	}
	answerPath, err = w.materializeAsset(ctx, c.AssetSource+".ans", "answer")
	if err != nil {
		return "", "", err
	}
	return inputPath, answerPath, nil
}

func (w *Workspace) materializeAsset(ctx context.Context, key, kind string) (string, error) {
	data, err := w.assets.Fetch(ctx, key)
	if err != nil {
		return "", fmt.Errorf("workspace: fetch %s asset %s: %w", kind, key, err)
	}
	localPath := filepath.Join(w.dir, filepath.Base(key))
	if err := os.WriteFile(localPath, data, 0o644); err != nil {
		return "", fmt.Errorf("workspace: materialize %s asset %s: %w", kind, key, err)
	}
	return localPath, nil
}

// Dir returns the workspace's root directory, mainly for logging.
func (w *Workspace) Dir() string {
	return w.dir
}
