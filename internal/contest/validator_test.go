package contest

import (
	"context"
	"testing"
	"time"

	"onlinejudge/internal/apperror"
	"onlinejudge/internal/appstate"
	"onlinejudge/internal/judgeconfig"
	"onlinejudge/internal/models"
	"onlinejudge/internal/teststore"
)

func newTestState(t *testing.T) *appstate.State {
	t.Helper()
	st, err := appstate.New(context.Background(), teststore.New())
	if err != nil {
		t.Fatalf("appstate.New: %v", err)
	}
	return st
}

func newTestCatalog() *judgeconfig.Catalog {
	return judgeconfig.NewCatalog(&judgeconfig.Document{
		Problems: []models.Problem{
			{ID: 1, Name: "A+B", Type: models.TypeStandard},
		},
		Languages: []models.Language{
			{Name: "go", FileName: "main.go", Command: []string{"go", "build"}},
		},
	})
}

func TestValidateUnknownLanguage(t *testing.T) {
	st := newTestState(t)
	cat := newTestCatalog()

	sub := models.Submission{Language: "rust", ProblemID: 1, UserID: 0}
	if err := Validate(st, cat, sub); err == nil {
		t.Fatal("want error for unknown language")
	}
}

func TestValidateUnknownProblem(t *testing.T) {
	st := newTestState(t)
	cat := newTestCatalog()

	sub := models.Submission{Language: "go", ProblemID: 999, UserID: 0}
	if err := Validate(st, cat, sub); err == nil {
		t.Fatal("want error for unknown problem")
	}
}

func TestValidateUnknownUser(t *testing.T) {
	st := newTestState(t)
	cat := newTestCatalog()

	sub := models.Submission{Language: "go", ProblemID: 1, UserID: 42}
	if err := Validate(st, cat, sub); err == nil {
		t.Fatal("want error for unknown user")
	}
}

func TestValidateGlobalContestAcceptsRootUser(t *testing.T) {
	st := newTestState(t)
	cat := newTestCatalog()

	sub := models.Submission{Language: "go", ProblemID: 1, UserID: 0, ContestID: 0}
	if err := Validate(st, cat, sub); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateUnknownContestIsInvalidArgument(t *testing.T) {
	st := newTestState(t)
	cat := newTestCatalog()

	sub := models.Submission{Language: "go", ProblemID: 1, UserID: 0, ContestID: 7}
	err := Validate(st, cat, sub)
	if err == nil {
		t.Fatal("want error for unknown contest")
	}
	if appErr, ok := err.(*apperror.Error); !ok || appErr.Code != apperror.InvalidArgument {
		t.Fatalf("want ERR_INVALID_ARGUMENT for unknown contest, got %v", err)
	}
}

func TestValidateUserOutsideRosterRejected(t *testing.T) {
	st := newTestState(t)
	cat := newTestCatalog()

	contest, err := st.CreateContest(context.Background(), models.Contest{
		Name:       "Round 1",
		From:       time.Now().Add(-time.Hour),
		To:         time.Now().Add(time.Hour),
		ProblemIDs: []uint64{1},
		UserIDs:    []uint64{99},
	})
	if err != nil {
		t.Fatalf("CreateContest: %v", err)
	}

	sub := models.Submission{Language: "go", ProblemID: 1, UserID: 0, ContestID: contest.ID}
	if err := Validate(st, cat, sub); err == nil {
		t.Fatal("want error for user not in contest roster")
	}
}

func TestValidateRosterAcceptsKnownUsersAndProblems(t *testing.T) {
	st := newTestState(t)
	cat := newTestCatalog()

	if err := ValidateRoster(st, cat, []uint64{0}, []uint64{1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRosterRejectsUnknownUser(t *testing.T) {
	st := newTestState(t)
	cat := newTestCatalog()

	err := ValidateRoster(st, cat, []uint64{42}, []uint64{1})
	if err == nil {
		t.Fatal("want error for unknown user id")
	}
}

func TestValidateRosterRejectsDuplicateUser(t *testing.T) {
	st := newTestState(t)
	cat := newTestCatalog()

	err := ValidateRoster(st, cat, []uint64{0, 0}, []uint64{1})
	if err == nil {
		t.Fatal("want error for duplicate user id")
	}
}

func TestValidateRosterRejectsUnknownProblem(t *testing.T) {
	st := newTestState(t)
	cat := newTestCatalog()

	err := ValidateRoster(st, cat, []uint64{0}, []uint64{999})
	if err == nil {
		t.Fatal("want error for unknown problem id")
	}
}

func TestValidateRosterRejectsDuplicateProblem(t *testing.T) {
	st := newTestState(t)
	cat := newTestCatalog()

	err := ValidateRoster(st, cat, []uint64{0}, []uint64{1, 1})
	if err == nil {
		t.Fatal("want error for duplicate problem id")
	}
}

func TestValidateRosterChecksUsersBeforeProblems(t *testing.T) {
	st := newTestState(t)
	cat := newTestCatalog()

	err := ValidateRoster(st, cat, []uint64{42}, []uint64{999})
	if err == nil {
		t.Fatal("want error")
	}
	if err.Error() != "user 42 not found" {
		t.Fatalf("want the user check to fire first, got: %v", err)
	}
}

func TestValidateAndReserveRespectsSubmissionLimit(t *testing.T) {
	st := newTestState(t)
	cat := newTestCatalog()
	ctx := context.Background()

	contest, err := st.CreateContest(ctx, models.Contest{
		Name:            "Round 1",
		From:            time.Now().Add(-time.Hour),
		To:              time.Now().Add(time.Hour),
		ProblemIDs:      []uint64{1},
		UserIDs:         []uint64{0},
		SubmissionLimit: 1,
	})
	if err != nil {
		t.Fatalf("CreateContest: %v", err)
	}

	sub := models.Submission{Language: "go", ProblemID: 1, UserID: 0, ContestID: contest.ID}
	if err := ValidateAndReserve(ctx, st, cat, sub); err != nil {
		t.Fatalf("first submission should be accepted: %v", err)
	}
	if err := ValidateAndReserve(ctx, st, cat, sub); err == nil {
		t.Fatal("second submission should exceed the contest's submission limit")
	}
}
