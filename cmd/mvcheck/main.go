package main

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/armadaproject/mvcheck/cmd/mvcheck/cmd"
	"github.com/armadaproject/mvcheck/internal/common"
	"github.com/armadaproject/mvcheck/internal/common/logging"
	"github.com/armadaproject/mvcheck/internal/common/mverrors"
)

// Config is loaded by cmd/params.go
func main() {
	common.ConfigureCommandLineLogging()
	err := cmd.RootCmd().Execute()
	if err != nil {
		if mverrors.IsNotConverged(err) {
			fmt.Fprintln(os.Stderr, err)
		} else {
			log.Errorf("%+v", logging.RootWrapper(err))
		}
		os.Exit(1)
	}
}
