package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/mitchellh/go-homedir"
	"github.com/nfowatch/nfowatch/internal"
	"github.com/nfowatch/nfowatch/pkg/logger"
)

var log = logger.Get("Main")

// main is the entry point to the program; it loads the user configuration
// (from the path given by -config, defaulting to a file in the user's home
// directory), constructs the application and runs it until interrupted.
func main() {
	configPath := flag.String("config", defaultConfigPath(), "path to the YAML configuration file")
	flag.Parse()

	config := internal.Config{}
	if err := config.LoadFromFile(*configPath); err != nil {
		log.Emit(logger.FATAL, "Failed to load configuration: %s\n", err.Error())
		os.Exit(1)
	}

	logger.SetMinLoggingLevel(logger.Level(config.LogLevel))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := internal.New(config).Run(ctx); err != nil {
		log.Emit(logger.FATAL, "Failed to run: %s\n", err.Error())
		os.Exit(1)
	}
}

func defaultConfigPath() string {
	home, err := homedir.Dir()
	if err != nil {
		return "config.yaml"
	}

	return filepath.Join(home, ".config", "nfowatch", "config.yaml")
}
