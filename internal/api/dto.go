package api

import (
	"onlinejudge/internal/models"
)

// jobDTO is the wire shape of a Job: spec.md §6 pins timestamps to a
// specific UTC-millisecond format that time.Time's default JSON encoding
// does not produce, so the HTTP layer re-encodes through this type rather
// than marshaling models.Job directly.
type jobDTO struct {
	ID          uint64            `json:"id"`
	CreatedTime string            `json:"created_time"`
	UpdatedTime string            `json:"updated_time"`
	Submission  models.Submission `json:"submission"`
	State       models.JobState   `json:"state"`
	Result      models.Verdict    `json:"result"`
	Score       float64           `json:"score"`
	Cases       []models.CaseResult `json:"cases"`
}

func toJobDTO(j models.Job) jobDTO {
	return jobDTO{
		ID:          j.ID,
		CreatedTime: models.FormatTimestamp(j.CreatedTime),
		UpdatedTime: models.FormatTimestamp(j.UpdatedTime),
		Submission:  j.Submission,
		State:       j.State,
		Result:      j.Result,
		Score:       j.Score,
		Cases:       j.Cases,
	}
}

func toJobDTOs(jobs []models.Job) []jobDTO {
	out := make([]jobDTO, len(jobs))
	for i, j := range jobs {
		out[i] = toJobDTO(j)
	}
	return out
}

// contestDTO mirrors models.Contest with wire-formatted timestamps.
type contestDTO struct {
	ID              uint64   `json:"id"`
	Name            string   `json:"name"`
	From            string   `json:"from"`
	To              string   `json:"to"`
	ProblemIDs      []uint64 `json:"problem_ids"`
	UserIDs         []uint64 `json:"user_ids"`
	SubmissionLimit int64    `json:"submission_limit"`
}

func toContestDTO(c models.Contest) contestDTO {
	return contestDTO{
		ID:              c.ID,
		Name:            c.Name,
		From:            models.FormatTimestamp(c.From),
		To:              models.FormatTimestamp(c.To),
		ProblemIDs:      c.ProblemIDs,
		UserIDs:         c.UserIDs,
		SubmissionLimit: c.SubmissionLimit,
	}
}

func toContestDTOs(contests []models.Contest) []contestDTO {
	out := make([]contestDTO, len(contests))
	for i, c := range contests {
		out[i] = toContestDTO(c)
	}
	return out
}
