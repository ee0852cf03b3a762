package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/toyz/svcplan/internal/cli"
)

var version = "dev"

func main() {
	cli.SetVersion(version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := cli.Execute(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}
