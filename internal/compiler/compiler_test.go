package compiler

import (
	"context"
	"testing"

	"onlinejudge/internal/assetstore"
	"onlinejudge/internal/config"
	"onlinejudge/internal/models"
	"onlinejudge/internal/workspace"
)

func newTestWorkspace(t *testing.T) *workspace.Workspace {
	t.Helper()
	assets, err := assetstore.New(config.MinIOConfig{Enabled: false})
	if err != nil {
		t.Fatalf("assetstore.New: %v", err)
	}
	mgr, err := workspace.NewManager(t.TempDir(), assets)
	if err != nil {
		t.Fatalf("workspace.NewManager: %v", err)
	}
	ws, err := mgr.New()
	if err != nil {
		t.Fatalf("mgr.New: %v", err)
	}
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func TestCompileSuccess(t *testing.T) {
	ws := newTestWorkspace(t)
	lang := models.Language{
		Name:     "shell-copy",
		FileName: "source.sh",
		Command:  []string{"cp", "%INPUT%", "%OUTPUT%"},
	}

	ok, err := Compile(context.Background(), ws, "#!/bin/sh\necho hi\n", lang)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("want success=true")
	}
}

func TestCompileNonZeroExitIsNotAnError(t *testing.T) {
	ws := newTestWorkspace(t)
	lang := models.Language{
		Name:     "always-fail",
		FileName: "source.sh",
		Command:  []string{"false"},
	}

	ok, err := Compile(context.Background(), ws, "irrelevant", lang)
	if err != nil {
		t.Fatalf("a rejected compile should not be a service error: %v", err)
	}
	if ok {
		t.Fatal("want success=false")
	}
}

func TestCompileSpawnFailureIsInternalError(t *testing.T) {
	ws := newTestWorkspace(t)
	lang := models.Language{
		Name:     "missing-toolchain",
		FileName: "source.sh",
		Command:  []string{"this-binary-does-not-exist-anywhere"},
	}

	_, err := Compile(context.Background(), ws, "irrelevant", lang)
	if err == nil {
		t.Fatal("want an error when the toolchain binary cannot be spawned")
	}
}

func TestCompileEmptyCommandTemplateIsInternalError(t *testing.T) {
	ws := newTestWorkspace(t)
	lang := models.Language{Name: "broken", FileName: "source.sh", Command: nil}

	_, err := Compile(context.Background(), ws, "irrelevant", lang)
	if err == nil {
		t.Fatal("want an error for an empty command template")
	}
}
