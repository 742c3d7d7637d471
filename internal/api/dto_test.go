package api

import (
	"encoding/json"
	"testing"
	"time"

	"onlinejudge/internal/models"
)

func TestToJobDTOFormatsTimestamps(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 678_000_000, time.UTC)
	job := models.Job{
		ID:          1,
		CreatedTime: created,
		UpdatedTime: created,
		Result:      models.Accepted,
		State:       models.StateFinished,
	}

	dto := toJobDTO(job)
	if dto.CreatedTime != "2026-01-02T03:04:05.678Z" {
		t.Fatalf("want formatted timestamp, got %q", dto.CreatedTime)
	}

	data, err := json.Marshal(dto)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["created_time"] != "2026-01-02T03:04:05.678Z" {
		t.Fatalf("want wire timestamp field, got %v", decoded["created_time"])
	}
}

func TestToContestDTOFormatsTimestamps(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 1, 1, 5, 0, 0, 0, time.UTC)
	c := models.Contest{ID: 3, Name: "Round 1", From: from, To: to}

	dto := toContestDTO(c)
	if dto.From != "2026-01-01T00:00:00.000Z" || dto.To != "2026-01-01T05:00:00.000Z" {
		t.Fatalf("unexpected formatted window: %+v", dto)
	}
}

func TestToJobDTOsPreservesOrder(t *testing.T) {
	jobs := []models.Job{{ID: 1}, {ID: 2}, {ID: 3}}
	dtos := toJobDTOs(jobs)
	for i, d := range dtos {
		if d.ID != jobs[i].ID {
			t.Fatalf("order not preserved at index %d", i)
		}
	}
}
