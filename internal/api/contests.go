package api

import (
	"net/http"

	"onlinejudge/internal/apperror"
	"onlinejudge/internal/contest"
	"onlinejudge/internal/models"
	"onlinejudge/internal/ranking"

	"github.com/gin-gonic/gin"
)

func (h *Handler) ListContests(c *gin.Context) {
	c.JSON(http.StatusOK, toContestDTOs(h.state.ListContestsExceptGlobal()))
}

// GetContest implements GET /contests/{id}; id=0 is reported as
// ERR_INVALID_ARGUMENT since contest 0 is an internal sentinel, not a
// queryable contest, per spec.md §6.
func (h *Handler) GetContest(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if id == 0 {
		writeError(c, apperror.InvalidArgumentf("contest 0 is not a queryable contest"))
		return
	}
	found, ok := h.state.GetContest(id)
	if !ok {
		writeError(c, apperror.NotFoundf("contest %d not found", id))
		return
	}
	c.JSON(http.StatusOK, toContestDTO(found))
}

// UpsertContest implements POST /contests: id omitted creates, id given
// (≥1, existing) updates.
func (h *Handler) UpsertContest(c *gin.Context) {
	var req struct {
		ID              *uint64  `json:"id"`
		Name            string   `json:"name"`
		From            string   `json:"from"`
		To              string   `json:"to"`
		ProblemIDs      []uint64 `json:"problem_ids"`
		UserIDs         []uint64 `json:"user_ids"`
		SubmissionLimit int64    `json:"submission_limit"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperror.InvalidArgumentf("malformed request body: %v", err))
		return
	}

	from, err := models.ParseTimestamp(req.From)
	if err != nil {
		writeError(c, apperror.InvalidArgumentf("invalid from timestamp %q", req.From))
		return
	}
	to, err := models.ParseTimestamp(req.To)
	if err != nil {
		writeError(c, apperror.InvalidArgumentf("invalid to timestamp %q", req.To))
		return
	}

	if err := contest.ValidateRoster(h.state, h.catalog, req.UserIDs, req.ProblemIDs); err != nil {
		writeError(c, err)
		return
	}

	newContest := models.Contest{
		Name:            req.Name,
		From:            from,
		To:              to,
		ProblemIDs:      req.ProblemIDs,
		UserIDs:         req.UserIDs,
		SubmissionLimit: req.SubmissionLimit,
	}

	ctx := c.Request.Context()
	if req.ID == nil {
		created, err := h.state.CreateContest(ctx, newContest)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, toContestDTO(created))
		return
	}

	updated, err := h.state.UpdateContest(ctx, *req.ID, newContest)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toContestDTO(updated))
}

// Ranklist implements GET /contests/{id}/ranklist.
func (h *Handler) Ranklist(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	rule := ranking.ScoringRule(c.Query("scoring_rule"))
	tie := ranking.TieBreaker(c.Query("tie_breaker"))

	ranks, err := ranking.Compute(h.state, h.catalog, id, rule, tie)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ranks)
}
