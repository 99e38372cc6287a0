package verifier

import (
	"fmt"
	"io"
	"time"

	"github.com/gocql/gocql"
	"github.com/pkg/errors"
	"k8s.io/utils/clock"

	"github.com/armadaproject/mvcheck/internal/common/logging"
	"github.com/armadaproject/mvcheck/internal/common/mverrors"
	"github.com/armadaproject/mvcheck/internal/common/mvcontext"
	"github.com/armadaproject/mvcheck/internal/mvcheck/compare"
	"github.com/armadaproject/mvcheck/internal/mvcheck/cql"
	"github.com/armadaproject/mvcheck/internal/mvcheck/metrics"
	"github.com/armadaproject/mvcheck/internal/mvcheck/model"
)

type Config struct {
	// Fully qualified names, e.g. view_test.tab and view_test.tab_view.
	BaseTable string
	ViewTable string
	// Wait before the first pass.
	SettleDelay time.Duration
	// Wait between passes.
	PassInterval time.Duration
	// Stop after this many passes. Zero runs forever.
	MaxPasses int
	// Stop after the first pass in which every node matches.
	ExitOnMatch bool
	// Differing rows printed per kind and node. Negative prints all of them.
	DiffLimit int
	// Number of nodes read concurrently. Zero reads every node at once.
	Parallelism int
}

// NodeResult is the outcome of comparing one node's view replica with the base table.
type NodeResult struct {
	Node model.NodeEndpoint
	compare.Result
	// Set when the view couldn't be read; Result is then empty.
	Err error
	// Set when the pass was aborted before this node was compared.
	Skipped bool
}

func (r NodeResult) outcome() metrics.NodeOutcome {
	switch {
	case r.Err != nil:
		return metrics.NodeError
	case r.Matched:
		return metrics.NodeMatch
	default:
		return metrics.NodeMismatch
	}
}

// PassReport holds everything found in one pass. It is printed and then discarded.
type PassReport struct {
	Number   int
	Duration time.Duration
	// Set when the base table couldn't be read. Every node is then Skipped.
	BaseErr   error
	BaseCount int
	Nodes     []NodeResult
}

// Converged reports whether every node's view matched the base table.
func (p PassReport) Converged() bool {
	if p.BaseErr != nil || len(p.Nodes) == 0 {
		return false
	}
	for _, n := range p.Nodes {
		if n.Err != nil || !n.Matched {
			return false
		}
	}
	return true
}

func (p PassReport) outcome() metrics.PassOutcome {
	switch {
	case p.BaseErr != nil:
		return metrics.PassAborted
	case p.Converged():
		return metrics.PassConverged
	default:
		return metrics.PassDiverged
	}
}

type Verifier struct {
	config  Config
	cluster *cql.Cluster
	clock   clock.Clock
	out     io.Writer
	metrics *metrics.Metrics
}

func New(config Config, cluster *cql.Cluster, clock clock.Clock, out io.Writer, m *metrics.Metrics) *Verifier {
	return &Verifier{
		config:  config,
		cluster: cluster,
		clock:   clock,
		out:     out,
		metrics: m,
	}
}

// Run performs passes until ctx is cancelled, returning ctx's error. With MaxPasses or ExitOnMatch
// set it may also return earlier: nil once converged, ErrNotConverged when out of passes.
func (v *Verifier) Run(ctx *mvcontext.Context) error {
	delay := v.config.SettleDelay
	fmt.Fprintf(v.out, "Waiting %s for the cluster to settle.\n", delay)
	for number := 1; ; number++ {
		select {
		case <-ctx.Done():
			return errors.WithStack(ctx.Err())
		case <-v.clock.After(delay):
		}

		report := v.Pass(mvcontext.WithLogField(ctx, "pass", number), number)
		printReport(v.out, report, v.config.DiffLimit)

		if v.config.ExitOnMatch && report.Converged() {
			fmt.Fprintf(v.out, "Every view matches the base table, stopping.\n")
			return nil
		}
		if v.config.MaxPasses > 0 && number >= v.config.MaxPasses {
			if report.Converged() {
				return nil
			}
			return errors.WithStack(&mverrors.ErrNotConverged{Passes: number})
		}

		delay = v.config.PassInterval
		fmt.Fprintf(v.out, "\nThe check will be repeated after %s\n", delay)
	}
}

// Pass reads the base table once and compares every node's view against that one snapshot.
func (v *Verifier) Pass(ctx *mvcontext.Context, number int) PassReport {
	start := v.clock.Now()
	report := v.pass(ctx, number)
	report.Duration = v.clock.Since(start)
	v.metrics.RecordPass(report.outcome())
	return report
}

func (v *Verifier) pass(ctx *mvcontext.Context, number int) PassReport {
	report := PassReport{Number: number}

	baseRows, err := v.cluster.Coordinator.ScanRows(ctx, selectAll(v.config.BaseTable), gocql.Quorum)
	if err != nil {
		report.BaseErr = errors.WithStack(&mverrors.ErrReadFailed{Table: v.config.BaseTable, Node: -1, Cause: err})
		logging.WithStacktrace(ctx.Log, report.BaseErr).Warn("Aborting pass")
		for _, endpoint := range v.cluster.Endpoints() {
			report.Nodes = append(report.Nodes, NodeResult{Node: endpoint, Skipped: true})
		}
		return report
	}
	base := model.NewSnapshot(baseRows)
	report.BaseCount = base.Len()
	v.metrics.RecordBaseRows(base.Len())
	if dups := base.Duplicates(); len(dups) > 0 {
		ctx.Log.Warnf("Base table returned %d duplicate row(s)", len(dups))
	}

	// Results are stored by index so they're reported in cluster order whatever order the reads finish in.
	report.Nodes = make([]NodeResult, len(v.cluster.Nodes))
	// Node failures are recorded in the results, so no read cancels the others.
	g, nodeCtx := mvcontext.ErrGroup(ctx)
	if v.config.Parallelism > 0 {
		g.SetLimit(v.config.Parallelism)
	}
	for i, node := range v.cluster.Nodes {
		i, node := i, node
		g.Go(func() error {
			report.Nodes[i] = v.checkNode(mvcontext.WithLogField(nodeCtx, "node", node.Endpoint.Index), node, base)
			return nil
		})
	}
	_ = g.Wait()
	return report
}

func (v *Verifier) checkNode(ctx *mvcontext.Context, node cql.NodeSession, base *model.Snapshot) NodeResult {
	result := NodeResult{Node: node.Endpoint}
	viewRows, err := node.Session.ScanRows(ctx, selectAll(v.config.ViewTable), gocql.One)
	if err != nil {
		result.Err = errors.WithStack(&mverrors.ErrReadFailed{Table: v.config.ViewTable, Node: node.Endpoint.Index, Cause: err})
		ctx.Log.WithError(err).Debug("View read failed")
	} else {
		result.Result = compare.Compare(base, model.NewSnapshot(viewRows))
	}
	v.metrics.RecordNodeResult(node.Endpoint.Index, result.outcome(), result.ViewCount)
	return result
}

func selectAll(table string) string {
	return fmt.Sprintf("SELECT p, c, r FROM %s", table)
}
