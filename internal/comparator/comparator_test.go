package comparator

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"onlinejudge/internal/config"
	"onlinejudge/internal/models"
)

func writeTemp(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func newTestComparator(t *testing.T) *Comparator {
	t.Helper()
	cfg := config.CircuitBreakerConfig{
		MaxRequests:         1,
		ConsecutiveFailures: 3,
	}
	return New(cfg, nil)
}

func TestCompareStrictExact(t *testing.T) {
	dir := t.TempDir()
	out := writeTemp(t, dir, "out.txt", "hello\n")
	ans := writeTemp(t, dir, "ans.txt", "hello\n")

	c := newTestComparator(t)
	verdict, _, err := c.Compare(context.Background(), models.TypeStrict, nil, "", out, ans)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if verdict != models.Accepted {
		t.Fatalf("want Accepted, got %s", verdict)
	}
}

func TestCompareStrictTrailingWhitespaceFails(t *testing.T) {
	dir := t.TempDir()
	out := writeTemp(t, dir, "out.txt", "hello \n")
	ans := writeTemp(t, dir, "ans.txt", "hello\n")

	c := newTestComparator(t)
	verdict, _, err := c.Compare(context.Background(), models.TypeStrict, nil, "", out, ans)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if verdict != models.WrongAnswer {
		t.Fatalf("want WrongAnswer, got %s", verdict)
	}
}

func TestCompareStandardIgnoresTrailingWhitespaceAndBlankLines(t *testing.T) {
	dir := t.TempDir()
	out := writeTemp(t, dir, "out.txt", "1 2 3 \n4 5 6\n\n")
	ans := writeTemp(t, dir, "ans.txt", "1 2 3\n4 5 6")

	c := newTestComparator(t)
	verdict, _, err := c.Compare(context.Background(), models.TypeStandard, nil, "", out, ans)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if verdict != models.Accepted {
		t.Fatalf("want Accepted, got %s", verdict)
	}
}

func TestCompareStandardMismatch(t *testing.T) {
	dir := t.TempDir()
	out := writeTemp(t, dir, "out.txt", "1 2 3\n")
	ans := writeTemp(t, dir, "ans.txt", "1 2 4\n")

	c := newTestComparator(t)
	verdict, _, err := c.Compare(context.Background(), models.TypeStandard, nil, "", out, ans)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if verdict != models.WrongAnswer {
		t.Fatalf("want WrongAnswer, got %s", verdict)
	}
}

func TestCompareSPJMissingCommandIsInternalError(t *testing.T) {
	dir := t.TempDir()
	out := writeTemp(t, dir, "out.txt", "")
	ans := writeTemp(t, dir, "ans.txt", "")

	c := newTestComparator(t)
	_, _, err := c.Compare(context.Background(), models.TypeSPJ, nil, out, out, ans)
	if err == nil {
		t.Fatal("want error for a spj problem with no special_judge command")
	}
}

func TestCompareSPJAccepted(t *testing.T) {
	dir := t.TempDir()
	input := writeTemp(t, dir, "in.txt", "")
	out := writeTemp(t, dir, "out.txt", "")
	ans := writeTemp(t, dir, "ans.txt", "")

	c := newTestComparator(t)
	argv := []string{"/bin/echo", "-e", "Accepted\nlooks good"}
	verdict, info, err := c.Compare(context.Background(), models.TypeSPJ, argv, input, out, ans)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if verdict != models.Accepted {
		t.Fatalf("want Accepted, got %s (%s)", verdict, info)
	}
}

func TestParseSPJOutputUnrecognizedVerdictIsSPJError(t *testing.T) {
	verdict, _ := parseSPJOutput("Not A Real Verdict\nsomething")
	if verdict != models.SPJError {
		t.Fatalf("want SPJError, got %s", verdict)
	}
}

func TestParseSPJOutputEmptyIsSPJError(t *testing.T) {
	verdict, _ := parseSPJOutput("")
	if verdict != models.SPJError {
		t.Fatalf("want SPJError, got %s", verdict)
	}
}
