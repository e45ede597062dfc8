package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/TUD-INF-IAI-MCI/matshare/src/config"
	"github.com/TUD-INF-IAI-MCI/matshare/src/db"
	"github.com/TUD-INF-IAI-MCI/matshare/src/jobs"
	"github.com/TUD-INF-IAI-MCI/matshare/src/logging"
	"github.com/TUD-INF-IAI-MCI/matshare/src/oops"
	"github.com/TUD-INF-IAI-MCI/matshare/src/utils"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jpillora/backoff"
)

const defaultMaxAttempts = 3

/*
A handler runs one queued job. Returning nil deletes the job; returning an
error leaves it queued for another attempt until its attempts run out.
Handlers that reach a terminal business outcome (e.g. a build that failed
and was recorded as failed) must return nil so the queue does not retry
them.
*/
type Handler func(ctx context.Context, conn *pgxpool.Pool, payload json.RawMessage) error

var handlers = make(map[string]Handler)

// RegisterHandler wires a job type to its handler. Called during startup
// wiring, before any workers run.
func RegisterHandler(jobType string, handler Handler) {
	if _, exists := handlers[jobType]; exists {
		panic(fmt.Sprintf("a handler for job type %s is already registered", jobType))
	}
	handlers[jobType] = handler
}

type queuedJob struct {
	ID          int             `db:"id"`
	JobType     string          `db:"job_type"`
	Payload     json.RawMessage `db:"payload"`
	Attempts    int             `db:"attempts"`
	MaxAttempts int             `db:"max_attempts"`
	RunAfter    time.Time       `db:"run_after"`
	LastError   string          `db:"last_error"`
}

// Enqueue adds a job to the durable queue. The payload must marshal to
// JSON; it is handed back to the handler verbatim.
func Enqueue(ctx context.Context, conn db.ConnOrTx, jobType string, payload interface{}) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return oops.New(err, "failed to marshal payload for %s job", jobType)
	}

	_, err = conn.Exec(ctx,
		`
		INSERT INTO job_queue (job_type, payload, attempts, max_attempts, run_after, last_error)
		VALUES ($1, $2, 0, $3, NOW(), '')
		`,
		jobType, encoded, defaultMaxAttempts,
	)
	if err != nil {
		return oops.New(err, "failed to enqueue %s job", jobType)
	}
	return nil
}

/*
RunWorkers starts the configured number of queue workers. Each worker
repeatedly claims one due job with FOR UPDATE SKIP LOCKED, bumps its attempt
counter and retry horizon, commits, and only then runs the handler, so a
crashed worker's job resurfaces after the horizon instead of being lost.
*/
func RunWorkers(conn *pgxpool.Pool) *jobs.Job {
	job := jobs.New("queue workers")

	numWorkers := utils.OrDefault(config.Config.Queue.Workers, 2)
	pollInterval := utils.OrDefault(config.Config.Queue.PollInterval, 5*time.Second)

	workersDone := make(chan struct{}, numWorkers)
	for i := 0; i < numWorkers; i++ {
		workerLog := job.Logger.With().Int("worker", i).Logger()
		go func() {
			defer func() { workersDone <- struct{}{} }()
			for {
				ran, err := runOneJob(job.Ctx, conn)
				if err != nil {
					workerLog.Error().Err(err).Msg("queue worker failed to claim a job")
				}
				if ran {
					continue
				}
				err = utils.SleepContext(job.Ctx, pollInterval)
				if err != nil {
					return
				}
			}
		}()
	}

	go func() {
		defer job.Finish()
		for i := 0; i < numWorkers; i++ {
			<-workersDone
		}
	}()
	return job
}

// The horizon after which a claimed-but-unfinished job becomes claimable
// again, by attempt number.
func retryHorizon(attempt int) time.Duration {
	b := backoff.Backoff{
		Min:    1 * time.Minute,
		Max:    30 * time.Minute,
		Factor: 4,
	}
	return b.ForAttempt(float64(attempt))
}

func runOneJob(ctx context.Context, conn *pgxpool.Pool) (ran bool, err error) {
	defer utils.RecoverPanicAsError(&err)

	tx, err := conn.Begin(ctx)
	if err != nil {
		return false, oops.New(err, "failed to start claim transaction")
	}
	defer tx.Rollback(ctx)

	claimed, err := db.QueryOne[queuedJob](ctx, tx,
		`
		SELECT $columns
		FROM job_queue
		WHERE run_after <= NOW()
		ORDER BY id
		LIMIT 1
		FOR UPDATE SKIP LOCKED
		`,
	)
	if err == db.NotFound {
		return false, nil
	}
	if err != nil {
		return false, oops.New(err, "failed to claim job")
	}

	_, err = tx.Exec(ctx,
		`UPDATE job_queue SET attempts = attempts + 1, run_after = NOW() + $2 WHERE id = $1`,
		claimed.ID, retryHorizon(claimed.Attempts),
	)
	if err != nil {
		return false, oops.New(err, "failed to mark job claimed")
	}
	err = tx.Commit(ctx)
	if err != nil {
		return false, oops.New(err, "failed to commit job claim")
	}

	// The claim is committed; from here on the job either completes or waits
	// out its retry horizon.
	handlerErr := runHandler(ctx, conn, claimed)
	if handlerErr == nil {
		_, err = conn.Exec(ctx, `DELETE FROM job_queue WHERE id = $1`, claimed.ID)
		if err != nil {
			return true, oops.New(err, "failed to delete finished job %d", claimed.ID)
		}
		return true, nil
	}

	logging.Error().
		Err(handlerErr).
		Str("job type", claimed.JobType).
		Int("job id", claimed.ID).
		Int("attempt", claimed.Attempts+1).
		Msg("queued job failed")

	if claimed.Attempts+1 >= claimed.MaxAttempts {
		_, err = conn.Exec(ctx, `DELETE FROM job_queue WHERE id = $1`, claimed.ID)
		if err != nil {
			return true, oops.New(err, "failed to delete exhausted job %d", claimed.ID)
		}
		logging.Warn().
			Str("job type", claimed.JobType).
			Int("job id", claimed.ID).
			Msg("job exhausted its attempts and was dropped")
	} else {
		_, err = conn.Exec(ctx,
			`UPDATE job_queue SET last_error = $2 WHERE id = $1`,
			claimed.ID, handlerErr.Error(),
		)
		if err != nil {
			return true, oops.New(err, "failed to record job error")
		}
	}
	return true, nil
}

func runHandler(ctx context.Context, conn *pgxpool.Pool, job *queuedJob) (err error) {
	defer utils.RecoverPanicAsError(&err)

	handler, ok := handlers[job.JobType]
	if !ok {
		return oops.New(nil, "no handler registered for job type %s", job.JobType)
	}
	return handler(ctx, conn, job.Payload)
}
