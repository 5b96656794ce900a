// Command h1inspect runs a server answering every request with a JSON description of how
// it was parsed.
//
//	h1inspect -addr tcp://:8080 -config h1parse.yaml
//	curl -d hello localhost:8080/path?query
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/indigo-web/h1parse/config"
	"github.com/indigo-web/h1parse/internal/inspect"
	"go.uber.org/zap"
)

func main() {
	var (
		addr       = flag.String("addr", "tcp://:8080", "address to listen on")
		configPath = flag.String("config", "", "path to the YAML config, defaults are used if empty")
		logFile    = flag.String("log-file", "", "write logs into the file with rotation instead of stderr")
		logSize    = flag.Int("log-max-size", 100, "size of the log file in megabytes to rotate it at")
		debug      = flag.Bool("debug", false, "log every request")
		poolSize   = flag.Int("pool", 1024, "maximal number of connections served at once")
		multicore  = flag.Bool("multicore", true, "run an event loop per CPU core")
		shutdown   = flag.Duration("shutdown-timeout", 5*time.Second, "time given to connections on shutdown")
	)
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	logger := inspect.NewLogger(inspect.LogConfig{
		File:       *logFile,
		MaxSizeMB:  *logSize,
		MaxBackups: 3,
		Debug:      *debug,
	})
	defer func() {
		_ = logger.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := inspect.New(cfg, logger,
		inspect.WithPoolSize(*poolSize),
		inspect.WithMulticore(*multicore),
		inspect.WithShutdownTimeout(*shutdown),
	)

	logger.Info("h1inspect: starting", zap.String("addr", *addr))
	if err := server.Run(ctx, *addr); err != nil {
		logger.Error("h1inspect: stopped with error", zap.Error(err))
		os.Exit(1)
	}
}
