// Command taut-probe is an interactive client for exercising a
// resilient WebSocket connection.
//
// Usage:
//
//	taut-probe [flags]
//
// Flags:
//
//	-url string        Target address (ws:// or wss://)
//	-discover          Resolve the target via mDNS instead of -url
//	-service string    mDNS service type to browse (default "_taut._tcp")
//	-config string     YAML configuration file path
//	-log string        Append lifecycle events to a CBOR log file
//	-verbose           Mirror lifecycle events to stderr
//	-connect           Connect immediately on startup
//	-version           Print the protocol version and exit
//
// Examples:
//
//	# Probe a local endpoint with automatic reconnection
//	taut-probe -url ws://127.0.0.1:8080/ws -config retry.yaml
//
//	# Discover the endpoint over mDNS and record a protocol log
//	taut-probe -discover -log probe.tlog
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/tautline/taut-go/pkg/client"
	"github.com/tautline/taut-go/pkg/discovery"
	"github.com/tautline/taut-go/pkg/log"
	"github.com/tautline/taut-go/pkg/version"
)

func main() {
	var (
		urlFlag    = flag.String("url", "", "target address (ws:// or wss://)")
		discover   = flag.Bool("discover", false, "resolve the target via mDNS")
		service    = flag.String("service", discovery.DefaultService, "mDNS service type to browse")
		configPath = flag.String("config", "", "YAML configuration file path")
		logPath    = flag.String("log", "", "append lifecycle events to a CBOR log file")
		verbose    = flag.Bool("verbose", false, "mirror lifecycle events to stderr")
		connect    = flag.Bool("connect", false, "connect immediately on startup")
		showVer    = flag.Bool("version", false, "print the protocol version and exit")
	)
	flag.Parse()

	if *showVer {
		fmt.Printf("taut-probe protocol %s (%s)\n", version.Current, version.Subprotocol(1))
		return
	}

	if *urlFlag == "" && !*discover {
		fmt.Fprintln(os.Stderr, "either -url or -discover is required")
		flag.Usage()
		os.Exit(1)
	}

	opts := &client.Options{}
	if *configPath != "" {
		loaded, err := client.LoadOptions(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "load config: %v\n", err)
			os.Exit(1)
		}
		opts = loaded
	}

	var loggers []log.Logger
	var fileLogger *log.FileLogger
	if *logPath != "" {
		fl, err := log.NewFileLogger(*logPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "open log file: %v\n", err)
			os.Exit(1)
		}
		fileLogger = fl
		loggers = append(loggers, fl)
	}
	if *verbose {
		handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
		loggers = append(loggers, log.NewSlogAdapter(slog.New(handler)))
	}
	if len(loggers) > 0 {
		opts.Logger = log.NewMultiLogger(loggers...)
	}

	var c *client.Client
	var browser *discovery.Browser
	if *discover {
		browser = discovery.NewBrowser(discovery.Config{Service: *service})
		c = client.NewWithProvider(browser.Provider(), opts)
	} else {
		c = client.New(*urlFlag, opts)
	}

	p, err := newProbe(c)
	if err != nil {
		fmt.Fprintf(os.Stderr, "start interactive mode: %v\n", err)
		os.Exit(1)
	}

	if *connect {
		c.Connect()
	}

	p.run()

	c.Disconnect()
	if browser != nil {
		browser.Stop()
	}
	if fileLogger != nil {
		_ = fileLogger.Close()
	}
}
