package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/google/subcommands"
	"github.com/hookbox/hookbox/pkg/rest/client"
)

type listCmd struct {
	limit     int64
	skip      int64
	fromEmail string
	subject   string
}

func (*listCmd) Name() string {
	return "list"
}

func (*listCmd) Synopsis() string {
	return "list stored emails"
}

func (*listCmd) Usage() string {
	return `list [-limit n] [-skip n] [-from addr] [-subject text]:
	list stored emails, newest first
`
}

func (l *listCmd) SetFlags(f *flag.FlagSet) {
	f.Int64Var(&l.limit, "limit", 10, "maximum emails to return")
	f.Int64Var(&l.skip, "skip", 0, "emails to skip")
	f.StringVar(&l.fromEmail, "from", "", "filter by exact sender address")
	f.StringVar(&l.subject, "subject", "", "filter by subject substring")
}

func (l *listCmd) Execute(
	ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	// Setup rest client
	c, err := client.New(baseURL(), *apiKey)
	if err != nil {
		return fatal("Couldn't build client", err)
	}

	// Get list
	emails, err := c.ListEmails(ctx, client.ListQuery{
		Limit:     l.limit,
		Skip:      l.skip,
		FromEmail: l.fromEmail,
		Subject:   l.subject,
	})
	if err != nil {
		return fatal("REST call failed", err)
	}
	w := tabwriter.NewWriter(os.Stdout, 2, 2, 2, ' ', 0)
	for _, e := range emails {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			e.ID.Hex(), e.ReceivedAt.Format("2006-01-02 15:04"), e.From.Email, e.Subject)
	}
	_ = w.Flush()

	return subcommands.ExitSuccess
}
