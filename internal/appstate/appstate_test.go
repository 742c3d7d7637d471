package appstate_test

import (
	"context"
	"testing"
	"time"

	"onlinejudge/internal/appstate"
	"onlinejudge/internal/models"
	"onlinejudge/internal/teststore"
)

func newState(t *testing.T) *appstate.State {
	t.Helper()
	st, err := appstate.New(context.Background(), teststore.New())
	if err != nil {
		t.Fatalf("appstate.New: %v", err)
	}
	return st
}

func TestNewSeedsRootUserAndGlobalContest(t *testing.T) {
	st := newState(t)

	root, ok := st.GetUser(0)
	if !ok || root.Name != "root" {
		t.Fatalf("want seeded root user, got %+v, ok=%v", root, ok)
	}

	if _, ok := st.GetContest(0); !ok {
		t.Fatal("want contest 0 (global) to exist after seeding")
	}
}

func TestCreateUserRejectsDuplicateName(t *testing.T) {
	st := newState(t)
	ctx := context.Background()

	if _, err := st.CreateUser(ctx, "alice"); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := st.CreateUser(ctx, "alice"); err == nil {
		t.Fatal("want error creating a duplicate user name")
	}
}

func TestRenameUserUpdatesNameIndex(t *testing.T) {
	st := newState(t)
	ctx := context.Background()

	u, err := st.CreateUser(ctx, "alice")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if _, err := st.RenameUser(ctx, u.ID, "alicia"); err != nil {
		t.Fatalf("RenameUser: %v", err)
	}

	if _, ok := st.FindUserByName("alice"); ok {
		t.Fatal("old name should no longer resolve")
	}
	if found, ok := st.FindUserByName("alicia"); !ok || found.ID != u.ID {
		t.Fatalf("new name should resolve to the same id, got %+v, ok=%v", found, ok)
	}
}

func TestUpdateContestResetsSubmissionCounters(t *testing.T) {
	st := newState(t)
	ctx := context.Background()

	contest, err := st.CreateContest(ctx, models.Contest{
		Name:    "Round 1",
		From:    time.Now().Add(-time.Hour),
		To:      time.Now().Add(time.Hour),
		UserIDs: []uint64{0},
	})
	if err != nil {
		t.Fatalf("CreateContest: %v", err)
	}
	if err := st.IncrementSubmissionCount(ctx, contest.ID, 0); err != nil {
		t.Fatalf("IncrementSubmissionCount: %v", err)
	}
	if got := st.SubmissionCount(contest.ID, 0); got != 1 {
		t.Fatalf("want count 1 before update, got %d", got)
	}

	if _, err := st.UpdateContest(ctx, contest.ID, contest); err != nil {
		t.Fatalf("UpdateContest: %v", err)
	}
	if got := st.SubmissionCount(contest.ID, 0); got != 0 {
		t.Fatalf("want count reset to 0 after update, got %d", got)
	}
}

func TestListJobsFiltersByState(t *testing.T) {
	st := newState(t)
	ctx := context.Background()

	running, err := st.CreateJob(ctx, models.Job{
		Submission: models.Submission{ContestID: 0},
		State:      models.StateRunning,
	})
	if err != nil {
		t.Fatalf("CreateJob running: %v", err)
	}
	finished, err := st.CreateJob(ctx, models.Job{
		Submission: models.Submission{ContestID: 0},
		State:      models.StateFinished,
		Result:     models.Accepted,
	})
	if err != nil {
		t.Fatalf("CreateJob finished: %v", err)
	}

	jobs := st.ListJobs(appstate.JobFilter{State: models.StateFinished})
	if len(jobs) != 1 || jobs[0].ID != finished.ID {
		t.Fatalf("want only the finished job, got %+v", jobs)
	}

	all := st.ListJobs(appstate.JobFilter{})
	if len(all) != 2 {
		t.Fatalf("want both jobs with no filter, got %d", len(all))
	}
	_ = running
}

func TestFlushReseedsFromEmpty(t *testing.T) {
	st := newState(t)
	ctx := context.Background()

	if _, err := st.CreateUser(ctx, "alice"); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if err := st.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	if _, ok := st.FindUserByName("alice"); ok {
		t.Fatal("flush should have discarded the previously created user")
	}
	if _, ok := st.GetUser(0); !ok {
		t.Fatal("flush should reseed the root user")
	}
}
