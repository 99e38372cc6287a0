package mvcheck

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/gocql/gocql"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clock "k8s.io/utils/clock/testing"

	"github.com/armadaproject/mvcheck/internal/common/logging"
	"github.com/armadaproject/mvcheck/internal/common/mverrors"
	"github.com/armadaproject/mvcheck/internal/common/mvcontext"
	"github.com/armadaproject/mvcheck/internal/mvcheck/configuration"
	"github.com/armadaproject/mvcheck/internal/mvcheck/cql"
	"github.com/armadaproject/mvcheck/internal/mvcheck/model"
	"github.com/armadaproject/mvcheck/internal/mvcheck/stopper"
	"github.com/armadaproject/mvcheck/internal/mvcheck/testfixtures"
)

func testContext() *mvcontext.Context {
	return mvcontext.New(context.Background(), logrus.NewEntry(logging.NullLogger))
}

func newTestApp(t *testing.T, fc *testfixtures.FakeCluster, in io.Reader) (*App, *clock.FakeClock, *bytes.Buffer) {
	config, err := configuration.Load(viper.New(), "")
	require.NoError(t, err)
	config.Concurrency = 8
	config.MaxPasses = 1
	// The fake clock only drives the settle delay; a ticker would leave a waiter behind.
	config.ReportInterval = 0

	fakeClock := clock.NewFakeClock(time.Now())
	out := &bytes.Buffer{}
	app := &App{
		Config:   config,
		Out:      out,
		In:       in,
		Clock:    fakeClock,
		Registry: prometheus.NewRegistry(),
		Connect: func(context.Context, cql.ConnectConfig) (*cql.Cluster, error) {
			return fc.Cluster, nil
		},
	}
	return app, fakeClock, out
}

func awaitWaiter(t *testing.T, c *clock.FakeClock) {
	t.Helper()
	require.Eventually(t, c.HasWaiters, 5*time.Second, time.Millisecond)
}

func TestApp_Run(t *testing.T) {
	fc := testfixtures.NewFakeCluster(3)
	in, operator := io.Pipe()
	app, fakeClock, out := newTestApp(t, fc, in)
	app.Config.ExitOnMatch = true
	app.Config.MaxPasses = 0

	done := make(chan error, 1)
	go func() {
		done <- app.Run(testContext())
	}()

	require.Eventually(t, func() bool { return fc.Base.Len() >= 100 }, 5*time.Second, time.Millisecond)
	_, err := operator.Write([]byte("\n"))
	require.NoError(t, err)

	awaitWaiter(t, fakeClock)
	fc.Replicate()
	fakeClock.Step(app.Config.SettleDelay)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not finish")
	}

	written := fc.Base.Rows()
	keys := map[model.Key]bool{}
	for _, row := range written {
		keys[row.Key()] = true
	}
	assert.Len(t, keys, len(written))
	for _, call := range fc.CoordinatorSession().Execs() {
		assert.Equal(t, gocql.Quorum, call.Consistency)
		assert.Equal(t, "INSERT INTO view_test.tab (p, c, r) VALUES (?, ?, ?)", call.Stmt)
	}

	output := out.String()
	assert.Contains(t, output, stopper.Prompt)
	assert.Contains(t, output, "Stopped the writes: issued")
	assert.Contains(t, output, "Pass 1: 3/3 nodes match, 0 mismatched, 0 failed to read")
	assert.Contains(t, output, "Every view matches the base table, stopping.")
}

func TestApp_RunNotConverged(t *testing.T) {
	fc := testfixtures.NewFakeCluster(2)
	app, fakeClock, out := newTestApp(t, fc, bytes.NewReader(nil))
	fc.Base.Add(model.Row{P: -1, C: -1, R: -1})

	done := make(chan error, 1)
	go func() {
		done <- app.Run(testContext())
	}()
	awaitWaiter(t, fakeClock)
	fakeClock.Step(app.Config.SettleDelay)

	err := <-done
	assert.True(t, mverrors.IsNotConverged(err))
	assert.Contains(t, out.String(), "ERROR: View from node #0 (127.0.0.1:9042) doesn't match the base table")
}

func TestApp_RunSetupSchema(t *testing.T) {
	fc := testfixtures.NewFakeCluster(1)
	app, fakeClock, _ := newTestApp(t, fc, bytes.NewReader(nil))
	app.Config.SetupSchema = true

	done := make(chan error, 1)
	go func() {
		done <- app.Run(testContext())
	}()
	awaitWaiter(t, fakeClock)
	fakeClock.Step(app.Config.SettleDelay)
	<-done

	execs := fc.CoordinatorSession().Execs()
	require.GreaterOrEqual(t, len(execs), 4)
	assert.Equal(t, "DROP KEYSPACE IF EXISTS view_test", execs[0].Stmt)
	assert.Equal(t, gocql.All, execs[3].Consistency)
}

func TestApp_Verify(t *testing.T) {
	fc := testfixtures.NewFakeCluster(3)
	fc.Base.Add(model.Row{P: 1, C: 1, R: 1}, model.Row{P: 2, C: 2, R: 2})
	fc.Replicate()
	app, fakeClock, out := newTestApp(t, fc, nil)

	done := make(chan error, 1)
	go func() {
		done <- app.Verify(testContext())
	}()
	awaitWaiter(t, fakeClock)
	fakeClock.Step(app.Config.SettleDelay)

	require.NoError(t, <-done)
	assert.Empty(t, fc.CoordinatorSession().Execs())
	assert.Contains(t, out.String(), "Base table has 2 rows")
	assert.Contains(t, out.String(), "Pass 1: 3/3 nodes match")
}

func TestApp_Setup(t *testing.T) {
	fc := testfixtures.NewFakeCluster(3)
	app, _, _ := newTestApp(t, fc, nil)

	require.NoError(t, app.Setup(testContext()))
	assert.Len(t, fc.CoordinatorSession().Execs(), 4)
}

func TestApp_ConnectFailure(t *testing.T) {
	app, _, _ := newTestApp(t, testfixtures.NewFakeCluster(1), nil)
	app.Connect = func(context.Context, cql.ConnectConfig) (*cql.Cluster, error) {
		return nil, errors.WithStack(&mverrors.ErrConnectionFailed{Address: "127.0.0.1:9042", Cause: gocql.ErrNoConnections})
	}

	err := app.Run(testContext())

	var connErr *mverrors.ErrConnectionFailed
	assert.True(t, errors.As(err, &connErr))
}

func TestApp_Version(t *testing.T) {
	out := &bytes.Buffer{}
	app := New()
	app.Out = out

	require.NoError(t, app.Version())
	assert.Contains(t, out.String(), "Version:")
	assert.Contains(t, out.String(), "Go version:")
}
