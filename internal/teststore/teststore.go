// Package teststore is an in-memory store.Store used by package tests that
// exercise appstate.State without a real Postgres instance.
package teststore

import (
	"context"
	"sync"

	"onlinejudge/internal/models"
	"onlinejudge/internal/store"
)

type Fake struct {
	mu       sync.Mutex
	users    map[uint64]models.User
	jobs     map[uint64]models.Job
	contests map[uint64]store.ContestRecord
}

func New() *Fake {
	return &Fake{
		users:    make(map[uint64]models.User),
		jobs:     make(map[uint64]models.Job),
		contests: make(map[uint64]store.ContestRecord),
	}
}

func (f *Fake) Close() error { return nil }

func (f *Fake) ReplayUsers(ctx context.Context) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, u)
	}
	return out, nil
}

func (f *Fake) ReplayJobs(ctx context.Context) ([]models.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Job, 0, len(f.jobs))
	for _, j := range f.jobs {
		out = append(out, j)
	}
	return out, nil
}

func (f *Fake) ReplayContests(ctx context.Context) ([]store.ContestRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]store.ContestRecord, 0, len(f.contests))
	for _, c := range f.contests {
		out = append(out, c)
	}
	return out, nil
}

func (f *Fake) UpsertUser(ctx context.Context, u models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[u.ID] = u
	return nil
}

func (f *Fake) UpsertJob(ctx context.Context, j models.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs[j.ID] = j
	return nil
}

func (f *Fake) UpsertContest(ctx context.Context, c store.ContestRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.contests[c.Contest.ID] = c
	return nil
}

func (f *Fake) Flush(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users = make(map[uint64]models.User)
	f.jobs = make(map[uint64]models.Job)
	f.contests = make(map[uint64]store.ContestRecord)
	return nil
}
