// Package contest implements C7: checking that a submission is admissible
// before a Job is created, per spec.md §4.7. Validation always runs
// in the order language → problem → user → contest roster/window/limit,
// confirmed against original_source's check_post_job (see SPEC_FULL.md).
package contest

import (
	"context"
	"time"

	"onlinejudge/internal/apperror"
	"onlinejudge/internal/appstate"
	"onlinejudge/internal/judgeconfig"
	"onlinejudge/internal/models"
)

// Validate checks S's admissibility without touching the submission
// counter. Used both by POST /jobs (via ValidateAndReserve) and by PUT
// /jobs/{id} re-judge, which re-validates but must not increment the
// counter again (spec.md §5's ordering guarantee).
func Validate(st *appstate.State, cat *judgeconfig.Catalog, s models.Submission) error {
	if _, ok := cat.Language(s.Language); !ok {
		return apperror.NotFoundf("language %q not found", s.Language)
	}
	if _, ok := cat.Problem(s.ProblemID); !ok {
		return apperror.NotFoundf("problem %d not found", s.ProblemID)
	}
	if _, ok := st.GetUser(s.UserID); !ok {
		return apperror.NotFoundf("user %d not found", s.UserID)
	}

	if s.ContestID == 0 {
		return nil
	}

	c, ok := st.GetContest(s.ContestID)
	if !ok {
		return apperror.InvalidArgumentf("contest %d not found", s.ContestID)
	}
	if !containsUint64(c.UserIDs, s.UserID) {
		return apperror.InvalidArgumentf("user %d is not in contest %d's roster", s.UserID, s.ContestID)
	}
	if !containsUint64(c.ProblemIDs, s.ProblemID) {
		return apperror.InvalidArgumentf("problem %d is not part of contest %d", s.ProblemID, s.ContestID)
	}
	now := time.Now().UTC()
	if now.Before(c.From) || now.After(c.To) {
		return apperror.InvalidArgumentf("contest %d is not open at %s", s.ContestID, now.Format(models.TimestampLayout))
	}
	// Unlike memory_limit, submission_limit has no "0 = unbounded" carve-out
	// (spec.md §3): a contest created with submission_limit=0 rejects every
	// submission, matching the original's unconditional count >= limit check.
	if st.SubmissionCount(s.ContestID, s.UserID) >= c.SubmissionLimit {
		return apperror.RateLimitf("submission limit reached for user %d in contest %d", s.UserID, s.ContestID)
	}
	return nil
}

// ValidateAndReserve validates S and, on success, atomically increments
// the (contest, user) counter, per spec.md §4.7 step 5. Contest 0 is
// incremented the same way as any other contest (§9's counter-semantics
// design note).
func ValidateAndReserve(ctx context.Context, st *appstate.State, cat *judgeconfig.Catalog, s models.Submission) error {
	if err := Validate(st, cat, s); err != nil {
		return err
	}
	return st.IncrementSubmissionCount(ctx, s.ContestID, s.UserID)
}

// ValidateRoster checks a contest's proposed user_ids/problem_ids before
// create or update, per original_source's check_post_contests: each list
// must be duplicate-free and every id must name a known user/problem,
// users checked before problems. A duplicate is ERR_INVALID_ARGUMENT; an
// unknown id is ERR_NOT_FOUND.
func ValidateRoster(st *appstate.State, cat *judgeconfig.Catalog, userIDs, problemIDs []uint64) error {
	seenUsers := make(map[uint64]bool, len(userIDs))
	for _, id := range userIDs {
		if seenUsers[id] {
			return apperror.InvalidArgumentf("duplicate user id %d in user_ids", id)
		}
		seenUsers[id] = true
		if _, ok := st.GetUser(id); !ok {
			return apperror.NotFoundf("user %d not found", id)
		}
	}

	seenProblems := make(map[uint64]bool, len(problemIDs))
	for _, id := range problemIDs {
		if seenProblems[id] {
			return apperror.InvalidArgumentf("duplicate problem id %d in problem_ids", id)
		}
		seenProblems[id] = true
		if _, ok := cat.Problem(id); !ok {
			return apperror.NotFoundf("problem %d not found", id)
		}
	}
	return nil
}

func containsUint64(xs []uint64, x uint64) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
