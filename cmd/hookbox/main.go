// main is the hookbox daemon launcher
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hookbox/hookbox/pkg/account"
	"github.com/hookbox/hookbox/pkg/config"
	"github.com/hookbox/hookbox/pkg/message"
	"github.com/hookbox/hookbox/pkg/msghub"
	"github.com/hookbox/hookbox/pkg/relay"
	"github.com/hookbox/hookbox/pkg/rest"
	"github.com/hookbox/hookbox/pkg/server/web"
	"github.com/hookbox/hookbox/pkg/storage"
	"github.com/hookbox/hookbox/pkg/storage/mem"
	"github.com/hookbox/hookbox/pkg/storage/mongo"
	"github.com/hookbox/hookbox/pkg/webui"
)

var (
	// version contains the build version number, populated during linking.
	version = "undefined"

	// date contains the build date, populated during linking.
	date = "undefined"
)

func init() {
	// Register storage implementations.
	storage.Constructors["mongo"] = mongo.New
	storage.Constructors["memory"] = mem.New
}

func main() {
	// Command line flags.
	help := flag.Bool("help", false, "Displays help on flags and env variables.")
	logfile := flag.String("logfile", "stderr", "Write out log into the specified file.")
	logjson := flag.Bool("logjson", false, "Logs are written in JSON format.")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: hookbox [options]")
		flag.PrintDefaults()
	}
	flag.Parse()
	if *help {
		flag.Usage()
		fmt.Fprintln(os.Stderr, "")
		config.Usage()
		return
	}

	// Optional .env file for local development.
	_ = godotenv.Load()

	// Process configuration.
	config.Version = version
	config.BuildDate = date
	conf, err := config.Process()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	// Logger setup.
	closeLog, err := openLog(conf.LogLevel, *logfile, *logjson)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Log error: %v\n", err)
		os.Exit(1)
	}
	startupLog := log.With().Str("phase", "startup").Logger()
	startupLog.Info().Str("version", config.Version).Str("buildDate", config.BuildDate).
		Msg("Hookbox starting")

	// Setup signal handler.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	// Configure internal services.
	rootCtx, rootCancel := context.WithCancel(context.Background())
	shutdownChan := make(chan bool)
	store, err := storage.FromConfig(*conf)
	if err != nil {
		startupLog.Fatal().Err(err).Str("module", "storage").Msg("Fatal storage error")
	}
	msgHub := msghub.New(conf.Webhook.MonitorHistory)
	go msgHub.Start(rootCtx)
	mmanager := &message.StoreManager{
		Store:  store,
		Sender: relay.NewSMTPSender(conf.Relay),
		Hub:    msgHub,
	}
	amanager := &account.Manager{Store: store}
	if err := amanager.Bootstrap(rootCtx,
		conf.Webmail.BootstrapEmail, conf.Webmail.BootstrapPassword); err != nil {
		startupLog.Fatal().Err(err).Str("module", "account").
			Msg("Failed to bootstrap admin account")
	}

	// Start webhook API server.
	apiServer := web.NewServer("api", conf, mmanager, amanager, msgHub, shutdownChan, true)
	rest.SetupRoutes(apiServer, conf.Webhook)
	go apiServer.Start(rootCtx, conf.Webhook.Addr)

	// Start webmail server.
	mailServer := web.NewServer("webmail", conf, mmanager, amanager, msgHub, shutdownChan, false)
	webui.SetupRoutes(mailServer)
	go mailServer.Start(rootCtx, conf.Webmail.Addr)

	// Loop forever waiting for signals or shutdown channel.
signalLoop:
	for {
		select {
		case sig := <-sigChan:
			switch sig {
			case syscall.SIGINT:
				// Shutdown requested
				log.Info().Str("phase", "shutdown").Str("signal", "SIGINT").
					Msg("Received SIGINT, shutting down")
				close(shutdownChan)
			case syscall.SIGTERM:
				// Shutdown requested
				log.Info().Str("phase", "shutdown").Str("signal", "SIGTERM").
					Msg("Received SIGTERM, shutting down")
				close(shutdownChan)
			}
		case <-shutdownChan:
			rootCancel()
			break signalLoop
		}
	}

	// Wait for active connections to finish.
	go timedExit()
	closeCtx, closeCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer closeCancel()
	if err := store.Close(closeCtx); err != nil {
		log.Error().Str("phase", "shutdown").Err(err).Msg("Failed to close store")
	}
	closeLog()
}

// openLog configures zerolog output, returns func to close logfile.
func openLog(level string, logfile string, json bool) (close func(), err error) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		return nil, fmt.Errorf("Log level %q not one of: debug, info, warn, error", level)
	}
	close = func() {}
	var w io.Writer
	color := runtime.GOOS != "windows"
	switch logfile {
	case "stderr":
		w = os.Stderr
	case "stdout":
		w = os.Stdout
	default:
		logf, err := os.OpenFile(logfile, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0666)
		if err != nil {
			return nil, err
		}
		bw := bufio.NewWriter(logf)
		w = bw
		color = false
		close = func() {
			_ = bw.Flush()
			_ = logf.Close()
		}
	}
	w = zerolog.SyncWriter(w)
	if json {
		log.Logger = log.Output(w)
		return close, nil
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:     w,
		NoColor: !color,
	})
	return close, nil
}

// timedExit is called as a goroutine during shutdown, it will force an exit after 15 seconds.
func timedExit() {
	time.Sleep(15 * time.Second)
	log.Error().Str("phase", "shutdown").Msg("Clean shutdown took too long, forcing exit")
	os.Exit(0)
}
