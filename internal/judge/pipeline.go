// Package judge implements C5: the per-submission state machine that
// drives C1 (workspace) through C4 (comparator) and the single-worker
// queue consumer that serializes it, per spec.md §4.5 and §5.
package judge

import (
	"context"
	"time"

	"onlinejudge/internal/apperror"
	"onlinejudge/internal/comparator"
	"onlinejudge/internal/compiler"
	"onlinejudge/internal/judgeconfig"
	"onlinejudge/internal/logging"
	"onlinejudge/internal/metrics"
	"onlinejudge/internal/models"
	"onlinejudge/internal/runner"
	"onlinejudge/internal/workspace"
)

// Pipeline runs VALIDATING (by the caller, via internal/contest) through
// FINISHED for one job. It holds no per-job state and each Run gets its
// own workspace subdirectory; Run does no locking of its own, and
// internal/judge.Worker serializes calls so that only one submission is
// judged at a time (spec.md §5).
type Pipeline struct {
	workspaces *workspace.Manager
	comparator *comparator.Comparator
	metrics    *metrics.Metrics
	log        *logging.Logger
}

func NewPipeline(workspaces *workspace.Manager, cmp *comparator.Comparator, m *metrics.Metrics, log *logging.Logger) *Pipeline {
	return &Pipeline{workspaces: workspaces, comparator: cmp, metrics: m, log: log}
}

// Run executes the judge pipeline for job against cat's problem and
// language catalog. job must already carry a validated Submission. The
// returned error is only a pipeline-internal failure (workspace, spawn,
// filesystem) — per spec.md §7 these surface as ERR_INTERNAL and the
// caller must not persist the job.
func (p *Pipeline) Run(ctx context.Context, cat *judgeconfig.Catalog, job models.Job) (models.Job, error) {
	start := time.Now()

	lang, ok := cat.Language(job.Submission.Language)
	if !ok {
		return models.Job{}, apperror.Internalf("judge: language %q missing from catalog at run time", job.Submission.Language)
	}
	problem, ok := cat.Problem(job.Submission.ProblemID)
	if !ok {
		return models.Job{}, apperror.Internalf("judge: problem %d missing from catalog at run time", job.Submission.ProblemID)
	}

	ws, err := p.workspaces.New()
	if err != nil {
		return models.Job{}, apperror.Internalf("judge: %v", err)
	}
	defer ws.Close()

	cases := make([]models.CaseResult, len(problem.Cases)+1)

	success, err := compiler.Compile(ctx, ws, job.Submission.SourceCode, lang)
	if err != nil {
		return models.Job{}, err
	}
	if !success {
		cases[0] = models.CaseResult{ID: 0, Result: models.CompilationError}
		job.Cases = cases
		job.Result = models.CompilationError
		job.Score = 0
		job.State = models.StateFinished
		job.UpdatedTime = time.Now().UTC()
		p.recordFinish(job, start)
		return job, nil
	}
	cases[0] = models.CaseResult{ID: 0, Result: models.CompilationSuccess}

	dynRatio := 0.0
	var specialJudge []string
	if problem.Misc != nil {
		if problem.Type == models.TypeDynamicRanking {
			dynRatio = problem.Misc.DynamicRankingRatio
		}
		specialJudge = problem.Misc.SpecialJudge
	}

	var total float64
	var firstBad models.Verdict

	for i, c := range problem.Cases {
		caseID := i + 1

		inputPath, answerPath, err := ws.ResolveCaseFiles(ctx, c)
		if err != nil {
			return models.Job{}, apperror.Internalf("judge: case %d: %v", caseID, err)
		}

		result, err := runner.Run(ctx, ws, ws.BinaryPath(), inputPath, i, c)
		if err != nil {
			return models.Job{}, apperror.Internalf("judge: case %d: %v", caseID, err)
		}

		var verdict models.Verdict
		var info string
		elapsed := result.ElapsedUs

		switch result.Class {
		case runner.Timeout:
			verdict = models.TimeLimitExceeded
			elapsed = c.TimeLimit
		case runner.RuntimeError:
			verdict = models.RuntimeError
		default: // OK
			if c.MemoryLimit > 0 && result.MemoryB > c.MemoryLimit {
				verdict = models.MemoryLimitExceeded
			} else {
				verdict, info, err = p.comparator.Compare(ctx, problem.Type, specialJudge, inputPath, ws.CaseOutputPath(i), answerPath)
				if err != nil {
					return models.Job{}, err
				}
			}
		}

		cases[caseID] = models.CaseResult{ID: caseID, Result: verdict, Time: elapsed, Memory: result.MemoryB, Info: info}

		if verdict == models.Accepted {
			caseScore := c.Score
			if problem.Type == models.TypeStandard || problem.Type == models.TypeDynamicRanking {
				caseScore *= 1 - dynRatio
			}
			total += caseScore
		} else if firstBad == "" {
			firstBad = verdict
		}
	}

	job.Cases = cases
	job.Score = total
	if firstBad == "" {
		job.Result = models.Accepted
	} else {
		job.Result = firstBad
	}
	job.State = models.StateFinished
	job.UpdatedTime = time.Now().UTC()

	p.recordFinish(job, start)
	return job, nil
}

func (p *Pipeline) recordFinish(job models.Job, start time.Time) {
	if p.log != nil {
		p.log.Info("job finished", map[string]interface{}{
			"job_id":  job.ID,
			"result":  string(job.Result),
			"score":   job.Score,
			"elapsed": time.Since(start).String(),
		})
	}
	if p.metrics == nil {
		return
	}
	p.metrics.RecordSubmission()
	p.metrics.RecordVerdict(string(job.Result))
	p.metrics.RecordJudgeDuration(time.Since(start))
}
