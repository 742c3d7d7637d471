package ranking

import (
	"context"
	"testing"
	"time"

	"onlinejudge/internal/appstate"
	"onlinejudge/internal/judgeconfig"
	"onlinejudge/internal/models"
	"onlinejudge/internal/teststore"
)

func newRankingFixture(t *testing.T) (*appstate.State, *judgeconfig.Catalog, models.Contest) {
	t.Helper()
	ctx := context.Background()
	st, err := appstate.New(ctx, teststore.New())
	if err != nil {
		t.Fatalf("appstate.New: %v", err)
	}

	alice, err := st.CreateUser(ctx, "alice")
	if err != nil {
		t.Fatalf("CreateUser alice: %v", err)
	}
	bob, err := st.CreateUser(ctx, "bob")
	if err != nil {
		t.Fatalf("CreateUser bob: %v", err)
	}

	cat := judgeconfig.NewCatalog(&judgeconfig.Document{
		Problems: []models.Problem{
			{ID: 1, Name: "A+B", Type: models.TypeStandard, Cases: []models.Case{{Score: 100}}},
		},
	})

	contest, err := st.CreateContest(ctx, models.Contest{
		Name:       "Round 1",
		From:       time.Now().Add(-time.Hour),
		To:         time.Now().Add(time.Hour),
		ProblemIDs: []uint64{1},
		UserIDs:    []uint64{alice.ID, bob.ID},
	})
	if err != nil {
		t.Fatalf("CreateContest: %v", err)
	}

	return st, cat, contest
}

func mustCreateJob(t *testing.T, st *appstate.State, userID, contestID, problemID uint64, score float64, result models.Verdict, created time.Time) models.Job {
	t.Helper()
	job, err := st.CreateJob(context.Background(), models.Job{
		CreatedTime: created,
		UpdatedTime: created,
		Submission: models.Submission{
			UserID:    userID,
			ContestID: contestID,
			ProblemID: problemID,
			Language:  "go",
		},
		State:  models.StateFinished,
		Result: result,
		Score:  score,
	})
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	return job
}

func TestComputeRanksByTotalScoreDescending(t *testing.T) {
	st, cat, contest := newRankingFixture(t)
	users := st.ListUsers()
	var alice, bob models.User
	for _, u := range users {
		switch u.Name {
		case "alice":
			alice = u
		case "bob":
			bob = u
		}
	}

	now := time.Now()
	mustCreateJob(t, st, alice.ID, contest.ID, 1, 100, models.Accepted, now)
	mustCreateJob(t, st, bob.ID, contest.ID, 1, 50, models.WrongAnswer, now)

	ranks, err := Compute(st, cat, contest.ID, RuleLatest, TieUnset)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if len(ranks) != 2 {
		t.Fatalf("want 2 ranks, got %d", len(ranks))
	}
	if ranks[0].User.ID != alice.ID || ranks[0].Rank != 1 {
		t.Fatalf("want alice rank 1, got %+v", ranks[0])
	}
	if ranks[1].User.ID != bob.ID || ranks[1].Rank != 2 {
		t.Fatalf("want bob rank 2, got %+v", ranks[1])
	}
}

func TestComputeTiedScoresCollapseRankByDefault(t *testing.T) {
	st, cat, contest := newRankingFixture(t)
	users := st.ListUsers()
	var alice, bob models.User
	for _, u := range users {
		switch u.Name {
		case "alice":
			alice = u
		case "bob":
			bob = u
		}
	}

	now := time.Now()
	mustCreateJob(t, st, alice.ID, contest.ID, 1, 100, models.Accepted, now)
	mustCreateJob(t, st, bob.ID, contest.ID, 1, 100, models.Accepted, now)

	ranks, err := Compute(st, cat, contest.ID, RuleLatest, TieUnset)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if ranks[0].Rank != ranks[1].Rank {
		t.Fatalf("tied scores should collapse to the same rank, got %d and %d", ranks[0].Rank, ranks[1].Rank)
	}
}

func TestComputeLatestRuleUsesMostRecentSubmission(t *testing.T) {
	st, cat, contest := newRankingFixture(t)
	users := st.ListUsers()
	var alice models.User
	for _, u := range users {
		if u.Name == "alice" {
			alice = u
		}
	}

	early := time.Now().Add(-time.Minute)
	late := time.Now()
	mustCreateJob(t, st, alice.ID, contest.ID, 1, 100, models.Accepted, early)
	mustCreateJob(t, st, alice.ID, contest.ID, 1, 40, models.WrongAnswer, late)

	ranks, err := Compute(st, cat, contest.ID, RuleLatest, TieUnset)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	for _, r := range ranks {
		if r.User.ID == alice.ID && r.Scores[0] != 40 {
			t.Fatalf("want latest submission's score 40, got %v", r.Scores[0])
		}
	}
}

func TestComputeDynamicRankingBestTimeExcludesUsersRemovedFromRoster(t *testing.T) {
	ctx := context.Background()
	st, err := appstate.New(ctx, teststore.New())
	if err != nil {
		t.Fatalf("appstate.New: %v", err)
	}
	alice, err := st.CreateUser(ctx, "alice")
	if err != nil {
		t.Fatalf("CreateUser alice: %v", err)
	}
	bob, err := st.CreateUser(ctx, "bob")
	if err != nil {
		t.Fatalf("CreateUser bob: %v", err)
	}

	cat := judgeconfig.NewCatalog(&judgeconfig.Document{
		Problems: []models.Problem{
			{
				ID:    1,
				Name:  "Dyn",
				Type:  models.TypeDynamicRanking,
				Misc:  &models.ProblemMisc{DynamicRankingRatio: 1},
				Cases: []models.Case{{Score: 100}},
			},
		},
	})

	contest, err := st.CreateContest(ctx, models.Contest{
		Name:       "Round 1",
		From:       time.Now().Add(-time.Hour),
		To:         time.Now().Add(time.Hour),
		ProblemIDs: []uint64{1},
		UserIDs:    []uint64{alice.ID, bob.ID},
	})
	if err != nil {
		t.Fatalf("CreateContest: %v", err)
	}

	now := time.Now()
	if _, err := st.CreateJob(ctx, models.Job{
		CreatedTime: now,
		UpdatedTime: now,
		Submission:  models.Submission{UserID: bob.ID, ContestID: contest.ID, ProblemID: 1, Language: "go"},
		State:       models.StateFinished,
		Result:      models.Accepted,
		Score:       100,
		Cases:       []models.CaseResult{{ID: 0}, {ID: 1, Result: models.Accepted, Time: 100}},
	}); err != nil {
		t.Fatalf("CreateJob bob: %v", err)
	}

	contest, err = st.UpdateContest(ctx, contest.ID, models.Contest{
		Name:       contest.Name,
		From:       contest.From,
		To:         contest.To,
		ProblemIDs: contest.ProblemIDs,
		UserIDs:    []uint64{alice.ID},
	})
	if err != nil {
		t.Fatalf("UpdateContest: %v", err)
	}

	if _, err := st.CreateJob(ctx, models.Job{
		CreatedTime: now,
		UpdatedTime: now,
		Submission:  models.Submission{UserID: alice.ID, ContestID: contest.ID, ProblemID: 1, Language: "go"},
		State:       models.StateFinished,
		Result:      models.Accepted,
		Score:       100,
		Cases:       []models.CaseResult{{ID: 0}, {ID: 1, Result: models.Accepted, Time: 200}},
	}); err != nil {
		t.Fatalf("CreateJob alice: %v", err)
	}

	ranks, err := Compute(st, cat, contest.ID, RuleLatest, TieUnset)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	var aliceRank *models.Rank
	for i := range ranks {
		if ranks[i].User.ID == alice.ID {
			aliceRank = &ranks[i]
		}
	}
	if aliceRank == nil {
		t.Fatal("alice missing from ranklist")
	}
	// bob was removed from the roster before alice's job ran, so his
	// faster case time must not lower alice's best-case scope: she should
	// be compared only against her own 200us, earning the full bonus
	// instead of the partial bonus bob's 100us would imply.
	want := 100.0 + 100.0*1*(200.0/200.0)
	if aliceRank.Scores[0] != want {
		t.Fatalf("want score %v (full bonus, roster-excluded bob), got %v", want, aliceRank.Scores[0])
	}
}

func TestComputeHighestRulePrefersBestScore(t *testing.T) {
	st, cat, contest := newRankingFixture(t)
	users := st.ListUsers()
	var alice models.User
	for _, u := range users {
		if u.Name == "alice" {
			alice = u
		}
	}

	early := time.Now().Add(-time.Minute)
	late := time.Now()
	mustCreateJob(t, st, alice.ID, contest.ID, 1, 100, models.Accepted, early)
	mustCreateJob(t, st, alice.ID, contest.ID, 1, 40, models.WrongAnswer, late)

	ranks, err := Compute(st, cat, contest.ID, RuleHighest, TieUnset)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	for _, r := range ranks {
		if r.User.ID == alice.ID && r.Scores[0] != 100 {
			t.Fatalf("want best submission's score 100, got %v", r.Scores[0])
		}
	}
}
