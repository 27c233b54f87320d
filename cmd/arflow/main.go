// Package main contains a command to export a scan session into the layout
// ARFlow-style tooling consumes.
package main

import (
	"context"

	"github.com/edaniels/golog"
	"go.viam.com/utils"

	"github.com/viam-labs/roboclip/arflow"
	"github.com/viam-labs/roboclip/session"
)

var logger = golog.NewDevelopmentLogger("arflow")

func main() {
	utils.ContextualMain(mainWithArgs, logger)
}

// Arguments for the command.
type Arguments struct {
	SessionDir string `flag:"0,required,usage=session directory"`
	OutDir     string `flag:"1,required,usage=output directory"`
}

func mainWithArgs(ctx context.Context, args []string, logger golog.Logger) error {
	var argsParsed Arguments
	if err := utils.ParseFlags(args, &argsParsed); err != nil {
		return err
	}

	s, err := session.Load(argsParsed.SessionDir, logger)
	if err != nil {
		return err
	}
	_, err = arflow.Export(ctx, s, argsParsed.OutDir, logger)
	return err
}
