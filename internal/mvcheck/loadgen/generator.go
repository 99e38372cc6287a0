// Package loadgen writes an unbounded stream of distinct rows to the base table until cancelled.
package loadgen

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/avast/retry-go"
	"github.com/gocql/gocql"
	"go.uber.org/atomic"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
	"k8s.io/utils/clock"

	"github.com/armadaproject/mvcheck/internal/common/logging"
	"github.com/armadaproject/mvcheck/internal/common/mvcontext"
	"github.com/armadaproject/mvcheck/internal/mvcheck/cql"
	"github.com/armadaproject/mvcheck/internal/mvcheck/keygen"
	"github.com/armadaproject/mvcheck/internal/mvcheck/metrics"
	"github.com/armadaproject/mvcheck/internal/mvcheck/model"
)

type Config struct {
	// Fully qualified base table, e.g. view_test.tab.
	Table       string
	Consistency gocql.Consistency
	// Maximum number of inserts in flight.
	Concurrency int
	// Zero means unlimited.
	WritesPerSecond float64
	// Total attempts per insert, including the first.
	InsertAttempts   uint
	InsertRetryDelay time.Duration
	// Progress is reported every ReportEvery issued rows and every ReportInterval, even while every
	// insert is stalled. Zero disables either.
	ReportEvery    int64
	ReportInterval time.Duration
}

// Summary counts what the generator has done so far.
type Summary struct {
	// Inserts dispatched.
	Issued int64
	// Inserts acknowledged by the cluster.
	Written int64
	// Inserts that failed on every attempt.
	Failed int64
	// Attempts that failed and were tried again.
	Retried int64
}

func (s Summary) String() string {
	return fmt.Sprintf("issued %d rows (%d written, %d failed, %d retried)", s.Issued, s.Written, s.Failed, s.Retried)
}

type Generator struct {
	config  Config
	session cql.Session
	keys    *keygen.KeyGenerator
	limiter *rate.Limiter
	metrics *metrics.Metrics
	clock   clock.WithTicker

	// Called whenever progress is due, never concurrently with itself. Defaults to logging the summary.
	Progress func(Summary)
	reportMu sync.Mutex

	issued  atomic.Int64
	written atomic.Int64
	failed  atomic.Int64
	retried atomic.Int64
}

// New returns a generator writing through session. keys is owned by the generator from here on.
func New(config Config, session cql.Session, keys *keygen.KeyGenerator, m *metrics.Metrics, clock clock.WithTicker) *Generator {
	var limiter *rate.Limiter
	if config.WritesPerSecond > 0 {
		burst := int(config.WritesPerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(config.WritesPerSecond), burst)
	}
	if config.InsertAttempts == 0 {
		config.InsertAttempts = 1
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 1
	}
	return &Generator{
		config:  config,
		session: session,
		keys:    keys,
		limiter: limiter,
		metrics: m,
		clock:   clock,
	}
}

// Summary returns the current counts. Safe to call while Run is in progress.
func (g *Generator) Summary() Summary {
	return Summary{
		Issued:  g.issued.Load(),
		Written: g.written.Load(),
		Failed:  g.failed.Load(),
		Retried: g.retried.Load(),
	}
}

// Run issues inserts until ctx is cancelled, then waits for inserts already in flight and returns the
// final counts. Cancellation is checked before every key is taken, so no insert is issued once it's
// been observed. Failed inserts are counted, never returned: the only error is running out of keys.
func (g *Generator) Run(ctx *mvcontext.Context) (Summary, error) {
	stmt := fmt.Sprintf("INSERT INTO %s (p, c, r) VALUES (?, ?, ?)", g.config.Table)
	// In-flight inserts are allowed to finish after the stop signal.
	insertCtx := context.WithoutCancel(ctx)

	sem := semaphore.NewWeighted(int64(g.config.Concurrency))
	wg := sync.WaitGroup{}
	stopReporting := g.reportPeriodically(ctx)

	var err error
	for ctx.Err() == nil {
		if g.limiter != nil {
			if g.limiter.Wait(ctx) != nil {
				break
			}
		}
		if sem.Acquire(ctx, 1) != nil {
			break
		}
		// Acquire can succeed on an already cancelled context.
		if ctx.Err() != nil {
			sem.Release(1)
			break
		}

		var row model.Row
		row, err = g.keys.Next()
		if err != nil {
			sem.Release(1)
			break
		}
		issued := g.issued.Inc()
		g.metrics.RecordIssued()

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)
			g.insert(insertCtx, ctx, stmt, row)
		}()

		if g.config.ReportEvery > 0 && issued%g.config.ReportEvery == 0 {
			g.report(ctx)
		}
	}

	wg.Wait()
	stopReporting()
	summary := g.Summary()
	if err != nil {
		logging.WithStacktrace(ctx.Log, err).Error("Stopped the writes")
		return summary, err
	}
	ctx.Log.Infof("Stopped the writes: %s", summary)
	return summary, nil
}

func (g *Generator) insert(insertCtx context.Context, ctx *mvcontext.Context, stmt string, row model.Row) {
	err := retry.Do(
		func() error {
			return g.session.Exec(insertCtx, stmt, g.config.Consistency, row.P, row.C, row.R)
		},
		retry.Attempts(g.config.InsertAttempts),
		retry.Delay(g.config.InsertRetryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			if n+1 < g.config.InsertAttempts {
				g.retried.Inc()
				g.metrics.RecordWriteRetry()
			}
		}),
	)
	if err != nil {
		g.failed.Inc()
		g.metrics.RecordWriteFailure()
		ctx.Log.WithError(err).Debugf("Insert of %s failed after %d attempt(s)", row, g.config.InsertAttempts)
		return
	}
	g.written.Inc()
	g.metrics.RecordWritten()
}

// reportPeriodically reports progress every ReportInterval until the returned func is called,
// which waits for any report in progress.
func (g *Generator) reportPeriodically(ctx *mvcontext.Context) (stop func()) {
	if g.config.ReportInterval <= 0 {
		return func() {}
	}
	ticker := g.clock.NewTicker(g.config.ReportInterval)
	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		for {
			select {
			case <-done:
				return
			case <-ticker.C():
				g.report(ctx)
			}
		}
	}()
	return func() {
		ticker.Stop()
		close(done)
		<-stopped
	}
}

func (g *Generator) report(ctx *mvcontext.Context) {
	g.reportMu.Lock()
	defer g.reportMu.Unlock()
	summary := g.Summary()
	if g.Progress != nil {
		g.Progress(summary)
		return
	}
	ctx.Log.Infof("Wrote ~%d rows...", summary.Issued)
}
