// Command gleanerd runs the gleaner daemon: the worker fleet, the watchdog,
// and the HTTP API.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"gleaner/internal/config"
	"gleaner/internal/daemonrun"
)

func main() {
	configFlag := flag.String("config", "", "configuration file path")
	logLevelFlag := flag.String("log-level", "", "override configured log level")
	flag.Parse()

	cfg, _, _, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	if err := daemonrun.Run(context.Background(), cfg, daemonrun.Options{LogLevel: *logLevelFlag}); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
