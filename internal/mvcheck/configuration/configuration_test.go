package configuration

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gocql/gocql"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const exampleConfig = "../../../config/mvcheck/config.yaml"

func defaultConfiguration() Configuration {
	return Configuration{
		Nodes:             []string{"127.0.0.1:9042", "127.0.0.2:9042", "127.0.0.3:9042", "127.0.0.4:9042", "127.0.0.5:9042"},
		Keyspace:          "view_test",
		Table:             "tab",
		View:              "tab_view",
		ReplicationFactor: 3,
		WriteConsistency:  gocql.Quorum,
		Concurrency:       512,
		InsertAttempts:    8,
		InsertRetryDelay:  64 * time.Millisecond,
		ReportEvery:       5000,
		ReportInterval:    4 * time.Second,
		SettleDelay:       time.Minute,
		PassInterval:      time.Minute,
		DiffLimit:         20,
		ConnectTimeout:    10 * time.Second,
		RequestTimeout:    30 * time.Second,
		PageSize:          5000,
		ConnectMaxElapsed: time.Minute,
	}
}

func TestLoad_Defaults(t *testing.T) {
	config, err := Load(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, defaultConfiguration(), config)
}

func TestLoad_ExampleConfigMatchesDefaults(t *testing.T) {
	config, err := Load(viper.New(), exampleConfig)
	require.NoError(t, err)
	assert.Equal(t, defaultConfiguration(), config)
}

func TestLoad_UnboundFlagsKeepDefaults(t *testing.T) {
	v := viper.New()
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	AddFlags(flags)
	require.NoError(t, v.BindPFlags(flags))

	config, err := Load(v, "")
	require.NoError(t, err)
	assert.Equal(t, defaultConfiguration(), config)
}

func TestLoad_Precedence(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte("nodes: [10.0.0.1:9042]\nsettleDelay: 5s\npassInterval: 10s\nwriteConsistency: all\n"), 0o600))
	t.Setenv("MVCHECK_PASSINTERVAL", "20s")

	v := viper.New()
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	AddFlags(flags)
	require.NoError(t, flags.Parse([]string{"--maxPasses", "3", "--exitOnMatch", "--nodes", "10.0.0.2:9042,10.0.0.3:9042"}))
	require.NoError(t, v.BindPFlags(flags))

	config, err := Load(v, file)
	require.NoError(t, err)

	assert.Equal(t, []string{"10.0.0.2:9042", "10.0.0.3:9042"}, config.Nodes)
	assert.Equal(t, 5*time.Second, config.SettleDelay)
	assert.Equal(t, 20*time.Second, config.PassInterval)
	assert.Equal(t, gocql.All, config.WriteConsistency)
	assert.Equal(t, 3, config.MaxPasses)
	assert.True(t, config.ExitOnMatch)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]struct {
		key   string
		value interface{}
	}{
		"no nodes":            {key: "nodes", value: []string{}},
		"node without port":   {key: "nodes", value: []string{"127.0.0.1"}},
		"duplicate nodes":     {key: "nodes", value: []string{"127.0.0.1:9042", "127.0.0.1:9042"}},
		"view is base table":  {key: "view", value: "tab"},
		"zero concurrency":    {key: "concurrency", value: 0},
		"zero attempts":       {key: "insertAttempts", value: 0},
		"negative passes":     {key: "maxPasses", value: -1},
		"unknown consistency": {key: "writeConsistency", value: "most"},
		"zero page size":      {key: "pageSize", value: 0},
		"unbounded connect":   {key: "connectMaxElapsed", value: "0s"},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			v := viper.New()
			v.Set(tc.key, tc.value)
			_, err := Load(v, "")
			assert.Error(t, err)
		})
	}
}

func TestDerivedConfigs(t *testing.T) {
	config := defaultConfiguration()
	config.ReadParallelism = 2

	assert.Equal(t, "view_test.tab", config.LoadgenConfig().Table)
	assert.Equal(t, gocql.Quorum, config.LoadgenConfig().Consistency)

	verifierConfig := config.VerifierConfig()
	assert.Equal(t, "view_test.tab", verifierConfig.BaseTable)
	assert.Equal(t, "view_test.tab_view", verifierConfig.ViewTable)
	assert.Equal(t, 2, verifierConfig.Parallelism)

	connectConfig := config.ConnectConfig()
	assert.Equal(t, config.Nodes, connectConfig.Addresses)
	assert.Equal(t, 30*time.Second, connectConfig.Timeout)
	assert.Equal(t, 5000, connectConfig.PageSize)
}
