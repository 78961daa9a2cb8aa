// Package main implements a command line client for the Hookbox webhook API
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/google/subcommands"
)

var host = flag.String("host", "localhost", "host/IP of Hookbox server")
var port = flag.Uint("port", 42010, "HTTP port of the webhook API")
var apiKey = flag.String("key", os.Getenv("HOOKBOX_WEBHOOK_APIKEY"),
	"API key, defaults to $HOOKBOX_WEBHOOK_APIKEY")

func main() {
	// Important top-level flags
	subcommands.ImportantFlag("host")
	subcommands.ImportantFlag("port")
	subcommands.ImportantFlag("key")

	// Setup standard helpers
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")

	// Setup my commands
	subcommands.Register(&healthCmd{}, "")
	subcommands.Register(&listCmd{}, "")
	subcommands.Register(&showCmd{}, "")

	// Parse and execute
	flag.Parse()
	ctx := context.Background()
	os.Exit(int(subcommands.Execute(ctx)))
}

func baseURL() string {
	return "http://" + net.JoinHostPort(*host, strconv.FormatUint(uint64(*port), 10))
}

func fatal(msg string, err error) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	return subcommands.ExitFailure
}

func usage(msg string) subcommands.ExitStatus {
	fmt.Fprintln(os.Stderr, msg)
	return subcommands.ExitUsageError
}
