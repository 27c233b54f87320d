// Package main contains a command to mirror the recording bucket into a
// local data directory.
package main

import (
	"context"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"github.com/viam-labs/roboclip/mirror"
)

var logger = golog.NewDevelopmentLogger("mirror")

func main() {
	utils.ContextualMain(mainWithArgs, logger)
}

// Arguments for the command.
type Arguments struct {
	ConfigFile string `flag:"0,required,usage=mirror config file"`
}

func mainWithArgs(ctx context.Context, args []string, logger golog.Logger) error {
	var argsParsed Arguments
	if err := utils.ParseFlags(args, &argsParsed); err != nil {
		return err
	}

	cfg, err := mirror.ReadConfig(argsParsed.ConfigFile)
	if err != nil {
		return err
	}
	result, err := mirror.New(cfg, logger).Mirror(ctx)
	if err != nil {
		return err
	}
	if result.Failed != 0 {
		return errors.Errorf("%d of %d objects failed to download", result.Failed, result.Listed)
	}
	return nil
}
