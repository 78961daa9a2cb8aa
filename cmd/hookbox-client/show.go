package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"github.com/hookbox/hookbox/pkg/rest/client"
)

type showCmd struct {
	attachment string
}

func (*showCmd) Name() string {
	return "show"
}

func (*showCmd) Synopsis() string {
	return "show a stored email"
}

func (*showCmd) Usage() string {
	return `show [-attachment name] <id>:
	print a stored email, or dump one of its attachments to stdout
`
}

func (s *showCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&s.attachment, "attachment", "", "write the named attachment to stdout")
}

func (s *showCmd) Execute(
	ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	id := f.Arg(0)
	if id == "" {
		return usage("email id required")
	}

	c, err := client.New(baseURL(), *apiKey)
	if err != nil {
		return fatal("Couldn't build client", err)
	}

	if s.attachment != "" {
		buf, err := c.GetAttachment(ctx, id, s.attachment)
		if err != nil {
			return fatal("REST call failed", err)
		}
		if _, err := buf.WriteTo(os.Stdout); err != nil {
			return fatal("Write failed", err)
		}
		return subcommands.ExitSuccess
	}

	email, err := c.GetEmail(ctx, id)
	if err != nil {
		return fatal("REST call failed", err)
	}
	fmt.Printf("From: %s <%s>\n", email.From.Name, email.From.Email)
	for _, to := range email.To {
		fmt.Printf("To: %s <%s>\n", to.Name, to.Email)
	}
	fmt.Printf("Date: %s\n", email.ReceivedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("Subject: %s\n", email.Subject)
	for _, a := range email.Attachments {
		fmt.Printf("Attachment: %s (%s)\n", a.Name, a.Type)
	}
	fmt.Println()
	if email.Text != "" {
		fmt.Println(email.Text)
	} else {
		fmt.Println(email.HTML)
	}

	return subcommands.ExitSuccess
}
