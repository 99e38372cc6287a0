package mvcheck

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"k8s.io/utils/clock"

	"github.com/armadaproject/mvcheck/internal/common"
	"github.com/armadaproject/mvcheck/internal/common/build"
	"github.com/armadaproject/mvcheck/internal/common/mvcontext"
	"github.com/armadaproject/mvcheck/internal/mvcheck/configuration"
	"github.com/armadaproject/mvcheck/internal/mvcheck/cql"
	"github.com/armadaproject/mvcheck/internal/mvcheck/keygen"
	"github.com/armadaproject/mvcheck/internal/mvcheck/loadgen"
	"github.com/armadaproject/mvcheck/internal/mvcheck/metrics"
	"github.com/armadaproject/mvcheck/internal/mvcheck/schema"
	"github.com/armadaproject/mvcheck/internal/mvcheck/stopper"
	"github.com/armadaproject/mvcheck/internal/mvcheck/verifier"
)

type App struct {
	// Configuration loaded by the CLI.
	Config configuration.Configuration
	// Out is used to write the output. Defaults to standard out,
	// but can be overridden in tests to make assertions on the applications's output.
	Out io.Writer
	// In is where the operator's stop signal is read from. Defaults to standard in.
	In io.Reader
	// Clock drives progress reports and the waits between verification passes.
	Clock clock.WithTicker
	// Registry holds the checker's metrics. It is served when Config.MetricsPort is set.
	Registry *prometheus.Registry
	// Connect opens the sessions to the cluster. Tests replace it with an in-memory cluster.
	Connect func(ctx context.Context, config cql.ConnectConfig) (*cql.Cluster, error)
}

// New instantiates an App reading from standard in, writing to standard out and connecting to a real cluster.
func New() *App {
	return &App{
		Out:      os.Stdout,
		In:       os.Stdin,
		Clock:    clock.RealClock{},
		Registry: prometheus.NewRegistry(),
		Connect: func(ctx context.Context, config cql.ConnectConfig) (*cql.Cluster, error) {
			return cql.NewConnector(config).Connect(ctx)
		},
	}
}

// Version prints build information (e.g., current git commit) to the app output.
func (a *App) Version() error {
	w := tabwriter.NewWriter(a.Out, 1, 1, 1, ' ', 0)
	defer w.Flush()
	fmt.Fprintf(w, "Version:\t%s\n", build.ReleaseVersion)
	fmt.Fprintf(w, "Commit:\t%s\n", build.GitCommit)
	fmt.Fprintf(w, "Go version:\t%s\n", build.GoVersion)
	fmt.Fprintf(w, "Built:\t%s\n", build.BuildTime)
	return nil
}

// Run writes rows until the operator asks it to stop, then verifies the view on every node.
// It only returns once verification ends, which by default is when ctx is cancelled.
func (a *App) Run(ctx *mvcontext.Context) error {
	ctx = a.withRunFields(ctx)
	cluster, err := a.connect(ctx)
	if err != nil {
		return err
	}
	defer cluster.Close()

	if a.Config.SetupSchema {
		if err := a.provision(ctx, cluster); err != nil {
			return err
		}
	}

	m, stopMetrics := a.startMetrics()
	defer stopMetrics()

	generator := loadgen.New(a.Config.LoadgenConfig(), cluster.Coordinator, keygen.New(a.Config.StartKey), m, a.Clock)
	generator.Progress = func(s loadgen.Summary) {
		fmt.Fprintf(a.Out, "Wrote ~%d rows... Press Enter to stop the writes and verify.\n", s.Issued)
	}
	summary, err := stopper.New(a.In, a.Out).Run(ctx, generator)
	fmt.Fprintf(a.Out, "Stopped the writes: %s\n", summary)
	if err != nil {
		return err
	}
	return a.newVerifier(cluster, m).Run(ctx)
}

// Verify runs only the verification phase against whatever the tables already hold.
func (a *App) Verify(ctx *mvcontext.Context) error {
	ctx = a.withRunFields(ctx)
	cluster, err := a.connect(ctx)
	if err != nil {
		return err
	}
	defer cluster.Close()

	m, stopMetrics := a.startMetrics()
	defer stopMetrics()
	return a.newVerifier(cluster, m).Run(ctx)
}

// Setup drops and recreates the keyspace, base table and view.
func (a *App) Setup(ctx *mvcontext.Context) error {
	ctx = a.withRunFields(ctx)
	cluster, err := a.connect(ctx)
	if err != nil {
		return err
	}
	defer cluster.Close()
	return a.provision(ctx, cluster)
}

func (a *App) connect(ctx *mvcontext.Context) (*cql.Cluster, error) {
	fmt.Fprintln(a.Out, "Connecting...")
	cluster, err := a.Connect(ctx, a.Config.ConnectConfig())
	if err != nil {
		return nil, err
	}
	ctx.Log.Debugf("Connected to %d node(s)", len(cluster.Nodes))
	return cluster, nil
}

func (a *App) provision(ctx *mvcontext.Context, cluster *cql.Cluster) error {
	names := a.Config.SchemaNames()
	fmt.Fprintf(a.Out, "Creating %s and %s...\n", names.BaseTable(), names.ViewTable())
	return schema.Provision(ctx, cluster.Coordinator, names, a.Config.ReplicationFactor)
}

func (a *App) startMetrics() (*metrics.Metrics, func()) {
	m := metrics.NewMetrics(a.Registry)
	if a.Config.MetricsPort == 0 {
		return m, func() {}
	}
	// The default registry carries the log line counters.
	return m, common.ServeMetricsFor(a.Config.MetricsPort, prometheus.Gatherers{a.Registry, prometheus.DefaultGatherer})
}

func (a *App) newVerifier(cluster *cql.Cluster, m *metrics.Metrics) *verifier.Verifier {
	return verifier.New(a.Config.VerifierConfig(), cluster, a.Clock, a.Out, m)
}

func (a *App) withRunFields(ctx *mvcontext.Context) *mvcontext.Context {
	return mvcontext.WithLogFields(ctx, logrus.Fields{
		"runId":    uuid.New().String(),
		"keyspace": a.Config.Keyspace,
	})
}
