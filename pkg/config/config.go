// Package config parses the hookbox configuration from the environment.
package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	prefix      = "hookbox"
	tableFormat = `Hookbox is configured via the environment. The following environment
variables can be used:

KEY	DEFAULT	REQUIRED	DESCRIPTION
{{range .}}{{usage_key .}}	{{usage_default .}}	{{usage_required .}}	{{usage_description .}}
{{end}}`
)

var (
	// Version of this build, set by main
	Version = ""

	// BuildDate for this build, set by main
	BuildDate = ""
)

// Root wraps all other configurations.
type Root struct {
	LogLevel string `required:"true" default:"info" desc:"debug, info, warn, or error"`
	Mongo    Mongo
	Storage  Storage
	Webhook  Webhook
	Webmail  Webmail
	Relay    Relay
}

// Mongo contains the document store connection configuration.
type Mongo struct {
	Host     string        `required:"true" default:"localhost:27017" desc:"MongoDB host:port"`
	User     string        `desc:"MongoDB username"`
	Pass     string        `desc:"MongoDB password"`
	Database string        `required:"true" default:"hookbox" desc:"MongoDB database name"`
	Timeout  time.Duration `required:"true" default:"10s" desc:"Connect and ping timeout"`
}

// Storage selects the document store implementation.
type Storage struct {
	Type string `required:"true" default:"mongo" desc:"Store type: mongo or memory"`
}

// Webhook contains the webhook API server configuration.
type Webhook struct {
	Addr           string        `required:"true" default:"0.0.0.0:42010" desc:"Webhook API IP4 host:port"`
	APIKey         string        `required:"true" desc:"Static Bearer key guarding the API"`
	MaxFailures    int           `required:"true" default:"5" desc:"Auth failures allowed before lockout"`
	FailureWindow  time.Duration `required:"true" default:"5m" desc:"Trailing window for counting failures"`
	LockoutPeriod  time.Duration `required:"true" default:"15m" desc:"Duration a locked out client is rejected"`
	MonitorHistory int           `required:"true" default:"30" desc:"Monitor remembered messages"`
}

// Webmail contains the webmail UI server configuration.
type Webmail struct {
	Addr          string `required:"true" default:"0.0.0.0:26000" desc:"Webmail IP4 host:port"`
	TemplateDir   string `required:"true" default:"ui/templates" desc:"HTML template dir"`
	TemplateCache bool   `required:"true" default:"true" desc:"Cache templates after first use?"`
	CookieAuthKey string `desc:"Session cipher key (text)"`
	PerPage       int    `required:"true" default:"20" desc:"Default messages per page"`

	// Bootstrap admin, created once when the users collection is empty.
	BootstrapEmail    string `desc:"Initial admin address"`
	BootstrapPassword string `desc:"Initial admin password"`
}

// Relay contains the outbound SMTP relay configuration.
type Relay struct {
	Host     string        `desc:"Outbound SMTP relay host"`
	Port     int           `required:"true" default:"587" desc:"Outbound SMTP relay port"`
	Security string        `required:"true" default:"starttls" desc:"starttls or tls"`
	Timeout  time.Duration `required:"true" default:"30s" desc:"Relay dial timeout"`
}

// URI assembles the MongoDB connection string from its parts.
func (m Mongo) URI() string {
	if m.User == "" {
		return fmt.Sprintf("mongodb://%s", m.Host)
	}
	return fmt.Sprintf("mongodb://%s:%s@%s", m.User, m.Pass, m.Host)
}

// Process loads and parses configuration from the environment.
func Process() (*Root, error) {
	c := &Root{}
	err := envconfig.Process(prefix, c)
	if err != nil {
		return nil, err
	}
	c.Storage.Type = strings.ToLower(c.Storage.Type)
	c.Relay.Security = strings.ToLower(c.Relay.Security)
	switch c.Relay.Security {
	case "starttls", "tls":
	default:
		return nil, fmt.Errorf("relay security %q not one of: starttls, tls", c.Relay.Security)
	}
	return c, nil
}

// Usage prints out the envconfig usage to Stderr.
func Usage() {
	tabs := tabwriter.NewWriter(os.Stderr, 1, 0, 4, ' ', 0)
	if err := envconfig.Usagef(prefix, &Root{}, tabs, tableFormat); err != nil {
		log.Fatalf("Unable to parse env config: %v", err)
	}
	tabs.Flush()
}
