package cmd

import (
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/weaveworks/promrus"

	"github.com/armadaproject/mvcheck/internal/common"
	"github.com/armadaproject/mvcheck/internal/common/logging"
	"github.com/armadaproject/mvcheck/internal/mvcheck"
	"github.com/armadaproject/mvcheck/internal/mvcheck/configuration"
)

const (
	configFlag    = "config"
	verboseFlag   = "verbose"
	logFormatFlag = "logFormat"
)

// The log line counter lives in the default prometheus registry, which only takes it once.
var countLogLines sync.Once

func addPersistentFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String(configFlag, "", "Config file, e.g. ./config/mvcheck/config.yaml. Flags and MVCHECK_ environment variables override it.")
	cmd.PersistentFlags().BoolP(verboseFlag, "v", false, "Log at debug level")
	cmd.PersistentFlags().String(logFormatFlag, logging.FormatCommandLine, "Log format, one of cli, text or json")
	configuration.AddFlags(cmd.PersistentFlags())
}

// initParams configures logging and loads app.Config from the config file, environment and flags.
func initParams(cmd *cobra.Command, app *mvcheck.App) error {
	if err := configureLogging(cmd); err != nil {
		return err
	}

	v := viper.New()
	if err := common.BindCommandlineArguments(v, cmd.Flags()); err != nil {
		return err
	}
	configFile, err := cmd.Flags().GetString(configFlag)
	if err != nil {
		return errors.WithStack(err)
	}
	config, err := configuration.Load(v, configFile)
	if err != nil {
		return err
	}
	app.Config = config

	countLogLines.Do(func() {
		log.AddHook(promrus.MustNewPrometheusHook())
	})
	return nil
}

func configureLogging(cmd *cobra.Command) error {
	verbose, err := cmd.Flags().GetBool(verboseFlag)
	if err != nil {
		return errors.WithStack(err)
	}
	format, err := cmd.Flags().GetString(logFormatFlag)
	if err != nil {
		return errors.WithStack(err)
	}
	c := logging.Config{Level: log.InfoLevel.String(), Format: format}
	if verbose {
		c.Level = log.DebugLevel.String()
		if !cmd.Flags().Changed(logFormatFlag) {
			c.Format = logging.FormatText
		}
	}
	return logging.Configure(c)
}
