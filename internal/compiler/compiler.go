// Package compiler implements C2: expanding a Language's command template
// and spawning the toolchain synchronously, inheriting stdio, exactly as
// spec.md §4.2 specifies.
package compiler

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"

	"onlinejudge/internal/apperror"
	"onlinejudge/internal/models"
	"onlinejudge/internal/workspace"
)

const (
	inputToken  = "%INPUT%"
	outputToken = "%OUTPUT%"
)

// Compile writes sourceCode into the workspace under lang.FileName, expands
// lang.Command, and runs it to completion. It returns success=true when
// the toolchain exited zero. A spawn failure (the process never started)
// is reported as apperror.Internal, per spec.md §4.2 ("Err(Internal) if
// spawn fails") — distinguished from a nonzero exit, which is a normal
// compile failure (success=false, nil error).
func Compile(ctx context.Context, ws *workspace.Workspace, sourceCode string, lang models.Language) (success bool, err error) {
	if err := ws.WriteSource(lang.FileName, sourceCode); err != nil {
		return false, apperror.Internalf("compiler: %v", err)
	}

	argv := expand(lang.Command, ws.SourcePath(lang.FileName), ws.BinaryPath())
	if len(argv) == 0 {
		return false, apperror.Internalf("compiler: language %q has an empty command template", lang.Name)
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin

	runErr := cmd.Run()
	if runErr == nil {
		return true, nil
	}

	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		// The toolchain ran and rejected the program: a compilation
		// failure, not a service error.
		return false, nil
	}
	return false, apperror.Internalf("compiler: failed to spawn %q: %v", argv[0], runErr)
}

// expand substitutes %INPUT% and %OUTPUT% in command's argv entries.
func expand(command []string, input, output string) []string {
	argv := make([]string, len(command))
	for i, tok := range command {
		tok = strings.ReplaceAll(tok, inputToken, input)
		tok = strings.ReplaceAll(tok, outputToken, output)
		argv[i] = tok
	}
	return argv
}
