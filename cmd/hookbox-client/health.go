package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"
	"github.com/hookbox/hookbox/pkg/rest/client"
)

type healthCmd struct{}

func (*healthCmd) Name() string {
	return "health"
}

func (*healthCmd) Synopsis() string {
	return "check service health"
}

func (*healthCmd) Usage() string {
	return `health:
	print the health status of the webhook API
`
}

func (*healthCmd) SetFlags(f *flag.FlagSet) {}

func (*healthCmd) Execute(
	ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	c, err := client.New(baseURL(), *apiKey)
	if err != nil {
		return fatal("Couldn't build client", err)
	}
	health, err := c.Health(ctx)
	if err != nil {
		return fatal("REST call failed", err)
	}
	fmt.Printf("%s: %s\n", health.Service, health.Status)

	return subcommands.ExitSuccess
}
