package api

import (
	"context"
	"net/http"
	"strconv"

	"onlinejudge/internal/apperror"
	"onlinejudge/internal/appstate"
	"onlinejudge/internal/contest"
	"onlinejudge/internal/judge"
	"onlinejudge/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CreateJob implements POST /jobs: validate, reserve the contest counter,
// run the judge pipeline to completion, and return the finished Job.
// Processing is synchronous end to end, per spec.md §1's Non-goals.
func (h *Handler) CreateJob(c *gin.Context) {
	var sub models.Submission
	if err := c.ShouldBindJSON(&sub); err != nil {
		writeError(c, apperror.InvalidArgumentf("malformed request body: %v", err))
		return
	}

	ctx := c.Request.Context()
	if err := contest.ValidateAndReserve(ctx, h.state, h.catalog, sub); err != nil {
		writeError(c, err)
		return
	}

	job, err := h.submitAndWait(ctx, judge.WorkRequest{Mode: judge.ModeCreate, Submission: sub})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toJobDTO(job))
}

// RejudgeJob implements PUT /jobs/{id}.
func (h *Handler) RejudgeJob(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if _, ok := h.state.GetJob(id); !ok {
		writeError(c, apperror.NotFoundf("job %d not found", id))
		return
	}

	job, err := h.submitAndWait(c.Request.Context(), judge.WorkRequest{Mode: judge.ModeRejudge, JobID: id})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toJobDTO(job))
}

// submitAndWait registers a completion channel before publishing, avoiding
// a race against the single worker goroutine finishing first.
func (h *Handler) submitAndWait(ctx context.Context, req judge.WorkRequest) (models.Job, error) {
	req.RequestID = uuid.New().String()
	ch := h.worker.Register(req.RequestID)
	if err := h.worker.Submit(ctx, req); err != nil {
		return models.Job{}, apperror.Internalf("judge: publish work request: %v", err)
	}
	select {
	case result := <-ch:
		return result.Job, result.Err
	case <-ctx.Done():
		return models.Job{}, apperror.Internalf("judge: request canceled: %v", ctx.Err())
	}
}

func (h *Handler) GetJob(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	job, ok := h.state.GetJob(id)
	if !ok {
		writeError(c, apperror.NotFoundf("job %d not found", id))
		return
	}
	c.JSON(http.StatusOK, toJobDTO(job))
}

// ListJobs implements GET /jobs with the filter set of spec.md §4.9.
func (h *Handler) ListJobs(c *gin.Context) {
	var f appstate.JobFilter

	if v := c.Query("user_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			writeError(c, apperror.InvalidArgumentf("invalid user_id %q", v))
			return
		}
		f.UserID = &id
	}
	f.UserName = c.Query("user_name")
	if v := c.Query("contest_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			writeError(c, apperror.InvalidArgumentf("invalid contest_id %q", v))
			return
		}
		f.ContestID = &id
	}
	if v := c.Query("problem_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			writeError(c, apperror.InvalidArgumentf("invalid problem_id %q", v))
			return
		}
		f.ProblemID = &id
	}
	f.Language = c.Query("language")

	if v := c.Query("from"); v != "" {
		t, err := models.ParseTimestamp(v)
		if err != nil {
			writeError(c, apperror.InvalidArgumentf("invalid from timestamp %q", v))
			return
		}
		f.From = &t
	}
	if v := c.Query("to"); v != "" {
		t, err := models.ParseTimestamp(v)
		if err != nil {
			writeError(c, apperror.InvalidArgumentf("invalid to timestamp %q", v))
			return
		}
		f.To = &t
	}

	if v := c.Query("state"); v != "" {
		if v != string(models.StateFinished) {
			writeError(c, apperror.InvalidArgumentf("state filter only accepts %q", models.StateFinished))
			return
		}
		f.State = models.StateFinished
	}
	f.Result = models.Verdict(c.Query("result"))

	c.JSON(http.StatusOK, toJobDTOs(h.state.ListJobs(f)))
}

func parseID(raw string) (uint64, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, apperror.InvalidArgumentf("invalid id %q", raw)
	}
	return id, nil
}
