package configuration

import (
	"time"

	"github.com/gocql/gocql"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/armadaproject/mvcheck/internal/common"
	commonconfig "github.com/armadaproject/mvcheck/internal/common/config"
	"github.com/armadaproject/mvcheck/internal/mvcheck/cql"
	"github.com/armadaproject/mvcheck/internal/mvcheck/loadgen"
	"github.com/armadaproject/mvcheck/internal/mvcheck/schema"
	"github.com/armadaproject/mvcheck/internal/mvcheck/verifier"
)

type Configuration struct {
	// Addresses (host:port) of every cluster member. Results are reported in this order.
	Nodes             []string `mapstructure:"nodes" validate:"required,min=1,unique,dive,hostname_port"`
	Keyspace          string   `mapstructure:"keyspace" validate:"required"`
	Table             string   `mapstructure:"table" validate:"required"`
	View              string   `mapstructure:"view" validate:"required,nefield=Table"`
	ReplicationFactor int      `mapstructure:"replicationFactor" validate:"gte=1"`
	// Create the keyspace, table and view before writing. Drops any existing keyspace of the same name.
	SetupSchema bool `mapstructure:"setupSchema"`

	WriteConsistency gocql.Consistency `mapstructure:"writeConsistency"`
	// Maximum number of inserts in flight.
	Concurrency int `mapstructure:"concurrency" validate:"gte=1"`
	// Zero means unlimited.
	WritesPerSecond  float64       `mapstructure:"writesPerSecond" validate:"gte=0"`
	InsertAttempts   uint          `mapstructure:"insertAttempts" validate:"gte=1"`
	InsertRetryDelay time.Duration `mapstructure:"insertRetryDelay" validate:"gte=0"`
	// First key written. Rows are (n, n, n) for n counting up from here.
	StartKey       int32         `mapstructure:"startKey" validate:"gte=0"`
	ReportEvery    int64         `mapstructure:"reportEvery" validate:"gte=0"`
	ReportInterval time.Duration `mapstructure:"reportInterval" validate:"gte=0"`

	SettleDelay  time.Duration `mapstructure:"settleDelay" validate:"gte=0"`
	PassInterval time.Duration `mapstructure:"passInterval" validate:"gte=0"`
	// Zero runs passes until the process is killed.
	MaxPasses   int  `mapstructure:"maxPasses" validate:"gte=0"`
	ExitOnMatch bool `mapstructure:"exitOnMatch"`
	// Differing rows printed per kind and node. Negative prints every one.
	DiffLimit int `mapstructure:"diffLimit"`
	// Nodes read concurrently during a pass. Zero reads them all at once.
	ReadParallelism int `mapstructure:"readParallelism" validate:"gte=0"`

	ConnectTimeout    time.Duration `mapstructure:"connectTimeout" validate:"gt=0"`
	RequestTimeout    time.Duration `mapstructure:"requestTimeout" validate:"gt=0"`
	PageSize          int           `mapstructure:"pageSize" validate:"gte=1"`
	ConnectMaxElapsed time.Duration `mapstructure:"connectMaxElapsed" validate:"gt=0"`

	// If non-zero, prometheus metrics are served on this port.
	MetricsPort uint16 `mapstructure:"metricsPort"`
}

var defaults = map[string]interface{}{
	"nodes":             []string{"127.0.0.1:9042", "127.0.0.2:9042", "127.0.0.3:9042", "127.0.0.4:9042", "127.0.0.5:9042"},
	"keyspace":          "view_test",
	"table":             "tab",
	"view":              "tab_view",
	"replicationFactor": 3,
	"setupSchema":       false,
	"writeConsistency":  "quorum",
	"concurrency":       512,
	"writesPerSecond":   0.0,
	"insertAttempts":    uint(8),
	"insertRetryDelay":  64 * time.Millisecond,
	"startKey":          int32(0),
	"reportEvery":       int64(5000),
	"reportInterval":    4 * time.Second,
	"settleDelay":       time.Minute,
	"passInterval":      time.Minute,
	"maxPasses":         0,
	"exitOnMatch":       false,
	"diffLimit":         20,
	"readParallelism":   0,
	"connectTimeout":    10 * time.Second,
	"requestTimeout":    30 * time.Second,
	"pageSize":          5000,
	"connectMaxElapsed": time.Minute,
	"metricsPort":       uint16(0),
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}

// AddFlags registers one flag per configuration key. Flags only override the config file and
// environment when given explicitly.
func AddFlags(flags *pflag.FlagSet) {
	d := func(key string) time.Duration { return defaults[key].(time.Duration) }

	flags.StringSlice("nodes", defaults["nodes"].([]string), "Comma separated host:port of every cluster member, in reporting order")
	flags.String("keyspace", defaults["keyspace"].(string), "Keyspace holding the base table and view")
	flags.String("table", defaults["table"].(string), "Base table name")
	flags.String("view", defaults["view"].(string), "Materialized view name")
	flags.Int("replicationFactor", defaults["replicationFactor"].(int), "Replication factor used when creating the keyspace")
	flags.Bool("setupSchema", false, "Drop and recreate the keyspace, table and view before writing")

	flags.String("writeConsistency", defaults["writeConsistency"].(string), "Consistency level of the inserts, e.g. one, quorum, all")
	flags.Int("concurrency", defaults["concurrency"].(int), "Maximum number of inserts in flight")
	flags.Float64("writesPerSecond", 0, "Insert rate limit, 0 for unlimited")
	flags.Uint("insertAttempts", defaults["insertAttempts"].(uint), "Attempts per insert before it is counted as failed")
	flags.Duration("insertRetryDelay", d("insertRetryDelay"), "Delay between attempts of a failed insert")
	flags.Int32("startKey", 0, "First key written")
	flags.Int64("reportEvery", defaults["reportEvery"].(int64), "Report progress every this many rows")
	flags.Duration("reportInterval", d("reportInterval"), "Report progress at least this often")

	flags.Duration("settleDelay", d("settleDelay"), "Wait before the first verification pass")
	flags.Duration("passInterval", d("passInterval"), "Wait between verification passes")
	flags.Int("maxPasses", 0, "Stop after this many passes, 0 to run until killed")
	flags.Bool("exitOnMatch", false, "Stop after the first pass in which every view matches")
	flags.Int("diffLimit", defaults["diffLimit"].(int), "Differing rows printed per kind and node, negative for all")
	flags.Int("readParallelism", 0, "Nodes read concurrently during a pass, 0 for all")

	flags.Duration("connectTimeout", d("connectTimeout"), "Timeout for establishing a connection")
	flags.Duration("requestTimeout", d("requestTimeout"), "Timeout for a single request")
	flags.Int("pageSize", defaults["pageSize"].(int), "Rows fetched per page when reading a whole table")
	flags.Duration("connectMaxElapsed", d("connectMaxElapsed"), "Give up connecting after this long")

	flags.Uint16("metricsPort", 0, "Serve prometheus metrics on this port, 0 to disable")
}

// Load reads the configuration from defaults, userSpecifiedConfig (if set), MVCHECK_ environment
// variables and the flags already bound to v, in increasing order of precedence, then validates it.
func Load(v *viper.Viper, userSpecifiedConfig string) (Configuration, error) {
	SetDefaults(v)
	var config Configuration
	if err := common.LoadConfig(v, &config, userSpecifiedConfig); err != nil {
		return Configuration{}, err
	}
	if err := commonconfig.Validate(config); err != nil {
		return Configuration{}, err
	}
	return config, nil
}

func (c Configuration) SchemaNames() schema.Names {
	return schema.Names{Keyspace: c.Keyspace, Table: c.Table, View: c.View}
}

func (c Configuration) ConnectConfig() cql.ConnectConfig {
	return cql.ConnectConfig{
		Addresses:      c.Nodes,
		Timeout:        c.RequestTimeout,
		ConnectTimeout: c.ConnectTimeout,
		PageSize:       c.PageSize,
		MaxElapsed:     c.ConnectMaxElapsed,
	}
}

func (c Configuration) LoadgenConfig() loadgen.Config {
	return loadgen.Config{
		Table:            c.SchemaNames().BaseTable(),
		Consistency:      c.WriteConsistency,
		Concurrency:      c.Concurrency,
		WritesPerSecond:  c.WritesPerSecond,
		InsertAttempts:   c.InsertAttempts,
		InsertRetryDelay: c.InsertRetryDelay,
		ReportEvery:      c.ReportEvery,
		ReportInterval:   c.ReportInterval,
	}
}

func (c Configuration) VerifierConfig() verifier.Config {
	names := c.SchemaNames()
	return verifier.Config{
		BaseTable:    names.BaseTable(),
		ViewTable:    names.ViewTable(),
		SettleDelay:  c.SettleDelay,
		PassInterval: c.PassInterval,
		MaxPasses:    c.MaxPasses,
		ExitOnMatch:  c.ExitOnMatch,
		DiffLimit:    c.DiffLimit,
		Parallelism:  c.ReadParallelism,
	}
}
