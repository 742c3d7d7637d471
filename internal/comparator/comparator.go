// Package comparator implements C4: deciding whether a case's captured
// output matches its answer file, under one of spec.md §4.4's three modes.
// The spj subprocess is the one comparator failure surface spec.md §7 maps
// to ERR_EXTERNAL, so it runs behind a circuit breaker in the teacher's
// style (see services.CircuitBreakerService in the copied tree).
package comparator

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strings"
	"time"

	"onlinejudge/internal/apperror"
	"onlinejudge/internal/config"
	"onlinejudge/internal/metrics"
	"onlinejudge/internal/models"

	"github.com/sony/gobreaker"
)

// legalVerdicts is the fixed set spec.md §4.4 allows as a special judge's
// first output line. Anything else is SPJError.
var legalVerdicts = map[string]models.Verdict{
	"Accepted":              models.Accepted,
	"Wrong Answer":          models.WrongAnswer,
	"Time Limit Exceeded":   models.TimeLimitExceeded,
	"Memory Limit Exceeded": models.MemoryLimitExceeded,
	"Runtime Error":         models.RuntimeError,
	"System Error":          models.SystemError,
}

const (
	spjOutputToken = "%OUTPUT%"
	spjAnswerToken = "%ANSWER%"
)

// Comparator compares a case's captured output against its answer file.
type Comparator struct {
	breaker *gobreaker.CircuitBreaker
	metrics *metrics.Metrics
}

func New(cfg config.CircuitBreakerConfig, m *metrics.Metrics) *Comparator {
	settings := gobreaker.Settings{
		Name:        "spj",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > cfg.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("circuit breaker %q changed from %s to %s", name, from, to)
			if to == gobreaker.StateOpen && m != nil {
				m.RecordCircuitBreakerTrip(name)
			}
		},
	}
	return &Comparator{breaker: gobreaker.NewCircuitBreaker(settings), metrics: m}
}

// Compare judges outputPath against answerPath under the given problem type.
// For spj it also receives the special_judge argv and the case's input
// file, since a special judge's contract (spec.md §4.4) includes the
// original input.
func (c *Comparator) Compare(ctx context.Context, problemType models.ProblemType, specialJudge []string, inputPath, outputPath, answerPath string) (verdict models.Verdict, info string, err error) {
	start := time.Now()
	defer func() {
		if c.metrics != nil {
			c.metrics.RecordComparatorDuration(string(problemType), time.Since(start))
		}
	}()

	switch problemType {
	case models.TypeStrict:
		ok, cmpErr := compareStrict(outputPath, answerPath)
		if cmpErr != nil {
			return models.SystemError, "", apperror.Internalf("comparator: strict: %v", cmpErr)
		}
		if ok {
			return models.Accepted, "", nil
		}
		return models.WrongAnswer, "", nil

	case models.TypeSPJ:
		return c.compareSPJ(ctx, specialJudge, inputPath, outputPath, answerPath)

	default: // standard, dynamic_ranking
		ok, cmpErr := compareStandard(outputPath, answerPath)
		if cmpErr != nil {
			return models.SystemError, "", apperror.Internalf("comparator: standard: %v", cmpErr)
		}
		if ok {
			return models.Accepted, "", nil
		}
		return models.WrongAnswer, "", nil
	}
}

// compareStrict requires byte-for-byte identical files.
func compareStrict(outputPath, answerPath string) (bool, error) {
	out, err := os.ReadFile(outputPath)
	if err != nil {
		return false, fmt.Errorf("read output: %w", err)
	}
	ans, err := os.ReadFile(answerPath)
	if err != nil {
		return false, fmt.Errorf("read answer: %w", err)
	}
	return bytes.Equal(out, ans), nil
}

// compareStandard compares line by line, trimming trailing whitespace from
// each line and ignoring a difference in trailing blank lines, per
// spec.md §4.4's "standard" mode.
func compareStandard(outputPath, answerPath string) (bool, error) {
	outLines, err := readTrimmedLines(outputPath)
	if err != nil {
		return false, fmt.Errorf("read output: %w", err)
	}
	ansLines, err := readTrimmedLines(answerPath)
	if err != nil {
		return false, fmt.Errorf("read answer: %w", err)
	}

	n := len(outLines)
	if len(ansLines) > n {
		n = len(ansLines)
	}
	for i := 0; i < n; i++ {
		var a, b string
		if i < len(outLines) {
			a = outLines[i]
		}
		if i < len(ansLines) {
			b = ansLines[i]
		}
		if a != b {
			return false, nil
		}
	}
	return true, nil
}

// readTrimmedLines splits on newlines, right-trims each line of spaces and
// tabs, and drops trailing empty lines so "1 2 3\n" and "1 2 3" compare
// equal.
func readTrimmedLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		lines = append(lines, strings.TrimRight(scanner.Text(), " \t\r"))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines, nil
}

// compareSPJ runs the problem's special_judge program, breaker-protected,
// and parses its two-line stdout contract.
// compareSPJ runs the special judge behind a circuit breaker. Per
// spec.md §4.4, any deviation — an unrecognized first line, or the
// special judge failing to run at all, including an open breaker — is
// reported as the SPJError verdict, never as an HTTP-level error; only a
// missing special_judge command (a configuration error, not a runtime
// one) is treated as a pipeline failure.
func (c *Comparator) compareSPJ(ctx context.Context, specialJudge []string, inputPath, outputPath, answerPath string) (models.Verdict, string, error) {
	if len(specialJudge) == 0 {
		return models.SystemError, "", apperror.Internalf("comparator: spj problem has no special_judge command")
	}

	argv := make([]string, len(specialJudge))
	for i, tok := range specialJudge {
		tok = strings.ReplaceAll(tok, spjOutputToken, outputPath)
		tok = strings.ReplaceAll(tok, spjAnswerToken, answerPath)
		argv[i] = tok
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return runSPJ(ctx, argv, inputPath)
	})
	if err != nil {
		return models.SPJError, fmt.Sprintf("special judge unavailable: %v", err), nil
	}

	out := result.(string)
	verdict, info := parseSPJOutput(out)
	return verdict, info, nil
}

func runSPJ(ctx context.Context, argv []string, inputPath string) (string, error) {
	inFile, err := os.Open(inputPath)
	if err != nil {
		return "", fmt.Errorf("open input: %w", err)
	}
	defer inFile.Close()

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdin = inFile

	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("run special judge %q: %w", argv[0], err)
	}
	return string(out), nil
}

// parseSPJOutput applies spec.md §4.4's contract: first line must be one of
// the legal verdict strings, second line is opaque info. Any deviation —
// an unrecognized first line, or fewer than one line — is SPJError.
func parseSPJOutput(out string) (models.Verdict, string) {
	lines := strings.SplitN(strings.TrimRight(out, "\n"), "\n", 2)
	if len(lines) == 0 || lines[0] == "" {
		return models.SPJError, ""
	}
	verdict, ok := legalVerdicts[strings.TrimSpace(lines[0])]
	if !ok {
		return models.SPJError, ""
	}
	info := ""
	if len(lines) > 1 {
		info = lines[1]
	}
	return verdict, info
}
