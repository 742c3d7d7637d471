// Package ranking implements C8: selecting one representative job per
// (user, problem), applying the dynamic-ranking bonus, summing per-user
// totals, and assigning ranks under a configurable tie-break, per
// spec.md §4.8. Grounded line-for-line against original_source's
// find_job_for_rank/find_job_for_dy/find_casetime_for_dy (see
// SPEC_FULL.md).
package ranking

import (
	"sort"
	"time"

	"onlinejudge/internal/apperror"
	"onlinejudge/internal/appstate"
	"onlinejudge/internal/judgeconfig"
	"onlinejudge/internal/models"
)

type ScoringRule string

const (
	RuleLatest  ScoringRule = "latest"
	RuleHighest ScoringRule = "highest"
)

type TieBreaker string

const (
	TieUnset           TieBreaker = ""
	TieUserID          TieBreaker = "user_id"
	TieSubmissionTime  TieBreaker = "submission_time"
	TieSubmissionCount TieBreaker = "submission_count"
)

type userRow struct {
	user       models.User
	total      float64
	scores     []float64
	subTime    time.Time
	hasSubTime bool
	subCount   int64
}

// Compute builds the ranklist for contestID under rule/tie.
func Compute(st *appstate.State, cat *judgeconfig.Catalog, contestID uint64, rule ScoringRule, tie TieBreaker) ([]models.Rank, error) {
	if rule == "" {
		rule = RuleLatest
	}

	users, problems, err := roster(st, cat, contestID)
	if err != nil {
		return nil, err
	}

	jobsByProblem := make(map[uint64][]models.Job, len(problems))
	cid := contestID
	for _, j := range st.ListJobs(appstate.JobFilter{ContestID: &cid, State: models.StateFinished}) {
		jobsByProblem[j.Submission.ProblemID] = append(jobsByProblem[j.Submission.ProblemID], j)
	}

	rosterIDs := make(map[uint64]bool, len(users))
	for _, u := range users {
		rosterIDs[u.ID] = true
	}

	bestCaseTime := make(map[uint64][]int64, len(problems))
	for _, p := range problems {
		if p.Type != models.TypeDynamicRanking {
			continue
		}
		bestCaseTime[p.ID] = bestTimesFor(p, filterByRoster(jobsByProblem[p.ID], rosterIDs))
	}

	rows := make([]*userRow, 0, len(users))
	for _, u := range users {
		row := &userRow{user: u, scores: make([]float64, len(problems))}
		for pi, p := range problems {
			candidates := filterByUser(jobsByProblem[p.ID], u.ID)
			if len(candidates) == 0 {
				continue
			}

			var rep *models.Job
			var bonus float64
			if p.Type == models.TypeDynamicRanking {
				rep, bonus = selectDynamicRepresentative(candidates, rule, p, bestCaseTime[p.ID])
			} else {
				rep = selectRepresentative(candidates, rule)
			}
			if rep == nil {
				continue
			}

			score := rep.Score + bonus
			row.scores[pi] = score
			row.total += score
			if !row.hasSubTime || rep.CreatedTime.After(row.subTime) {
				row.subTime = rep.CreatedTime
				row.hasSubTime = true
			}
		}
		row.subCount = st.SubmissionCount(contestID, u.ID)
		rows = append(rows, row)
	}

	sortRows(rows, tie)

	ranks := make([]models.Rank, len(rows))
	for i, row := range rows {
		rank := 1
		if i > 0 {
			prev := rows[i-1]
			switch {
			case row.total < prev.total:
				rank = i + 1
			case tie != TieUnset && tieKeyDiffers(prev, row, tie):
				rank = i + 1
			default:
				rank = ranks[i-1].Rank
			}
		}
		ranks[i] = models.Rank{User: row.user, Rank: rank, Scores: row.scores}
	}
	return ranks, nil
}

// roster returns the users and ordered problem set for contestID, per
// spec.md §4.8 step 1.
func roster(st *appstate.State, cat *judgeconfig.Catalog, contestID uint64) ([]models.User, []models.Problem, error) {
	if contestID == 0 {
		users := st.ListUsers()
		problems := make([]models.Problem, 0, len(cat.Problems))
		for _, id := range cat.AllProblemIDsSorted() {
			p, _ := cat.Problem(id)
			problems = append(problems, p)
		}
		return users, problems, nil
	}

	c, ok := st.GetContest(contestID)
	if !ok {
		return nil, nil, apperror.InvalidArgumentf("contest %d not found", contestID)
	}
	users := make([]models.User, 0, len(c.UserIDs))
	for _, uid := range c.UserIDs {
		if u, ok := st.GetUser(uid); ok {
			users = append(users, u)
		}
	}
	problems := make([]models.Problem, 0, len(c.ProblemIDs))
	for _, pid := range c.ProblemIDs {
		if p, ok := cat.Problem(pid); ok {
			problems = append(problems, p)
		}
	}
	return users, problems, nil
}

// filterByRoster restricts jobs to submitters currently in the contest's
// roster, matching find_casetime_for_dy: a user removed from a contest by
// a later update no longer contributes to the best-case-time scope, even
// though their old jobs are still on record.
func filterByRoster(jobs []models.Job, rosterIDs map[uint64]bool) []models.Job {
	out := make([]models.Job, 0, len(jobs))
	for _, j := range jobs {
		if rosterIDs[j.Submission.UserID] {
			out = append(out, j)
		}
	}
	return out
}

func filterByUser(jobs []models.Job, userID uint64) []models.Job {
	out := make([]models.Job, 0, len(jobs))
	for _, j := range jobs {
		if j.Submission.UserID == userID {
			out = append(out, j)
		}
	}
	return out
}

// selectRepresentative implements spec.md §4.8 step 2's non-dynamic rule.
func selectRepresentative(jobs []models.Job, rule ScoringRule) *models.Job {
	best := jobs[0]
	for _, j := range jobs[1:] {
		if rule == RuleHighest {
			if j.Score > best.Score || (j.Score == best.Score && j.CreatedTime.After(best.CreatedTime)) {
				best = j
			}
			continue
		}
		if j.CreatedTime.After(best.CreatedTime) || (j.CreatedTime.Equal(best.CreatedTime) && j.ID > best.ID) {
			best = j
		}
	}
	return &best
}

// selectDynamicRepresentative implements step 2's dynamic_ranking rule:
// prefer an Accepted representative, falling back to the plain rule over
// all candidates when none is Accepted, then computes the per-case bonus.
func selectDynamicRepresentative(jobs []models.Job, rule ScoringRule, p models.Problem, bestTime []int64) (*models.Job, float64) {
	pool := make([]models.Job, 0, len(jobs))
	for _, j := range jobs {
		if j.Result == models.Accepted {
			pool = append(pool, j)
		}
	}
	if len(pool) == 0 {
		pool = jobs
	}
	if len(pool) == 0 {
		return nil, 0
	}

	rep := pool[0]
	for _, j := range pool[1:] {
		if rule == RuleHighest {
			if j.Score > rep.Score || (j.Score == rep.Score && j.CreatedTime.After(rep.CreatedTime)) {
				rep = j
			}
			continue
		}
		if j.CreatedTime.After(rep.CreatedTime) || (j.CreatedTime.Equal(rep.CreatedTime) && j.ID > rep.ID) {
			rep = j
		}
	}

	var bonus float64
	if rep.Result == models.Accepted && p.Misc != nil && bestTime != nil {
		ratio := p.Misc.DynamicRankingRatio
		for k := 1; k < len(rep.Cases) && k-1 < len(p.Cases); k++ {
			if k >= len(bestTime) || bestTime[k] <= 0 {
				continue
			}
			own := rep.Cases[k].Time
			if own <= 0 {
				continue
			}
			bonus += p.Cases[k-1].Score * ratio * (float64(bestTime[k]) / float64(own))
		}
	}
	return &rep, bonus
}

// bestTimesFor computes, for each case index 1..N, the minimum observed
// time across every Accepted job for p within the given scope.
// bestTimesFor[k] == -1 means no Accepted job has reported that case yet.
func bestTimesFor(p models.Problem, jobs []models.Job) []int64 {
	best := make([]int64, len(p.Cases)+1)
	for i := range best {
		best[i] = -1
	}
	for _, j := range jobs {
		if j.Result != models.Accepted {
			continue
		}
		for k := 1; k < len(j.Cases) && k < len(best); k++ {
			t := j.Cases[k].Time
			if best[k] == -1 || t < best[k] {
				best[k] = t
			}
		}
	}
	return best
}

func sortRows(rows []*userRow, tie TieBreaker) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.total != b.total {
			return a.total > b.total
		}
		switch tie {
		case TieSubmissionTime:
			if a.hasSubTime != b.hasSubTime {
				return a.hasSubTime
			}
			if a.hasSubTime && !a.subTime.Equal(b.subTime) {
				return a.subTime.Before(b.subTime)
			}
			return a.user.ID < b.user.ID
		case TieSubmissionCount:
			if a.subCount != b.subCount {
				return a.subCount < b.subCount
			}
			return a.user.ID < b.user.ID
		default: // unset, user_id
			return a.user.ID < b.user.ID
		}
	})
}

// tieKeyDiffers reports whether the secondary tie-break key differs
// between two adjacent, equal-score rows, per spec.md §4.8 step 6.
func tieKeyDiffers(prev, cur *userRow, tie TieBreaker) bool {
	switch tie {
	case TieUserID:
		return prev.user.ID != cur.user.ID
	case TieSubmissionTime:
		if prev.hasSubTime != cur.hasSubTime {
			return true
		}
		if !prev.hasSubTime {
			return false
		}
		return !prev.subTime.Equal(cur.subTime)
	case TieSubmissionCount:
		return prev.subCount != cur.subCount
	default:
		return false
	}
}
