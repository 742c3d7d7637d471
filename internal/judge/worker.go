package judge

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"onlinejudge/internal/apperror"
	"onlinejudge/internal/appstate"
	"onlinejudge/internal/contest"
	"onlinejudge/internal/judgeconfig"
	"onlinejudge/internal/logging"
	"onlinejudge/internal/metrics"
	"onlinejudge/internal/models"
	"onlinejudge/internal/queue"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Mode distinguishes a brand new submission from a re-judge of an
// existing job inside a WorkRequest.
type Mode string

const (
	ModeCreate  Mode = "create"
	ModeRejudge Mode = "rejudge"
)

// WorkRequest is the message published to the queue: either a brand new
// Submission to judge, or the id of an existing Job to re-run.
type WorkRequest struct {
	RequestID  string            `json:"request_id"`
	Mode       Mode              `json:"mode"`
	JobID      uint64            `json:"job_id,omitempty"`
	Submission models.Submission `json:"submission,omitempty"`
}

// WorkResult is what the HTTP handler receives back once the single
// worker has finished this request.
type WorkResult struct {
	Job models.Job
	Err error
}

// Worker is the queue's single consumer: it is the only goroutine that
// ever calls Pipeline.Run, which is what gives the shared tmp/ workspace
// its required mutual exclusion (spec.md §5). The HTTP handler publishes
// a WorkRequest and blocks on the channel returned by Register until this
// worker reports completion — so POST/PUT /jobs remain synchronous, per
// spec.md §1's Non-goals, even though they are serialized through a real
// broker.
type Worker struct {
	state    *appstate.State
	catalog  *judgeconfig.Catalog
	pipeline *Pipeline
	client   *queue.Client
	log      *logging.Logger
	metrics  *metrics.Metrics

	mu      sync.Mutex
	waiters map[string]chan WorkResult
}

func NewWorker(state *appstate.State, cat *judgeconfig.Catalog, pipeline *Pipeline, client *queue.Client, log *logging.Logger, m *metrics.Metrics) *Worker {
	return &Worker{
		state:    state,
		catalog:  cat,
		pipeline: pipeline,
		client:   client,
		log:      log,
		metrics:  m,
		waiters:  make(map[string]chan WorkResult),
	}
}

// Register must be called before Submit to avoid a race where the worker
// finishes the request before the caller starts listening.
func (w *Worker) Register(requestID string) <-chan WorkResult {
	ch := make(chan WorkResult, 1)
	w.mu.Lock()
	w.waiters[requestID] = ch
	w.mu.Unlock()
	return ch
}

func (w *Worker) Submit(ctx context.Context, req WorkRequest) error {
	return w.client.PublishJob(ctx, encodeRequest(req))
}

// Run drains the queue until ctx is canceled. Qos(prefetch=1) on the
// underlying channel guarantees this loop only ever has one request in
// flight.
func (w *Worker) Run(ctx context.Context) error {
	msgs, err := w.client.Consume(ctx)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			w.handle(ctx, msg)
		}
	}
}

func (w *Worker) handle(ctx context.Context, msg amqp.Delivery) {
	req, err := decodeRequest(msg)
	if err != nil {
		if w.log != nil {
			w.log.Error("judge: malformed work request", map[string]interface{}{"error": err.Error()})
		}
		w.client.Nack(msg)
		return
	}

	var result WorkResult
	switch req.Mode {
	case ModeRejudge:
		result = w.runRejudge(ctx, req.JobID)
	default:
		result = w.runCreate(ctx, req.Submission)
	}

	w.client.Ack(msg)
	w.notify(req.RequestID, result)
}

func (w *Worker) runCreate(ctx context.Context, sub models.Submission) WorkResult {
	draft := models.Job{
		CreatedTime: time.Now().UTC(),
		UpdatedTime: time.Now().UTC(),
		Submission:  sub,
		State:       models.StateRunning,
		Result:      models.Waiting,
	}
	finished, err := w.pipeline.Run(ctx, w.catalog, draft)
	if err != nil {
		return WorkResult{Err: err}
	}
	created, err := w.state.CreateJob(ctx, finished)
	if err != nil {
		return WorkResult{Err: err}
	}
	return WorkResult{Job: created}
}

func (w *Worker) runRejudge(ctx context.Context, jobID uint64) WorkResult {
	job, ok := w.state.GetJob(jobID)
	if !ok {
		return WorkResult{Err: apperror.NotFoundf("job %d not found", jobID)}
	}
	if err := contest.Validate(w.state, w.catalog, job.Submission); err != nil {
		return WorkResult{Err: err}
	}
	job.Score = 0
	job.Cases = nil
	job.State = models.StateRunning
	job.Result = models.Waiting
	job.UpdatedTime = time.Now().UTC()

	finished, err := w.pipeline.Run(ctx, w.catalog, job)
	if err != nil {
		return WorkResult{Err: err}
	}
	if err := w.state.UpdateJob(ctx, finished); err != nil {
		return WorkResult{Err: err}
	}
	return WorkResult{Job: finished}
}

// encodeRequest marshals a WorkRequest for the queue; it panics only on a
// programming error (WorkRequest must always be JSON-encodable), matching
// the teacher's own "json.Marshal on a known-good struct never fails in
// practice" treatment elsewhere in the copied tree.
func encodeRequest(req WorkRequest) []byte {
	body, err := json.Marshal(req)
	if err != nil {
		panic(fmt.Sprintf("judge: marshal work request: %v", err))
	}
	return body
}

func decodeRequest(msg amqp.Delivery) (WorkRequest, error) {
	var req WorkRequest
	if err := json.Unmarshal(msg.Body, &req); err != nil {
		return WorkRequest{}, fmt.Errorf("judge: unmarshal work request: %w", err)
	}
	return req, nil
}

func (w *Worker) notify(requestID string, result WorkResult) {
	w.mu.Lock()
	ch, ok := w.waiters[requestID]
	if ok {
		delete(w.waiters, requestID)
	}
	w.mu.Unlock()
	if ok {
		ch <- result
		close(ch)
	}
}
