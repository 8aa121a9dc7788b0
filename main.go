package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/hbomb79/Hermes/internal"
	"github.com/hbomb79/Hermes/pkg/logger"
	"github.com/joho/godotenv"
)

var log = logger.Get("Main")

// main is the entry point to the program, from here we will load the users
// Hermes configuration (from a YAML file if provided, else from the
// environment), construct the services, and hand control to the Hermes
// runtime until an interrupt arrives.
func main() {
	// A .env file is optional; when present it feeds the env-based config.
	_ = godotenv.Load()

	configPath := flag.String("config", "", "path to a YAML config file (environment-only config when omitted)")
	logLevel := flag.Int("log-level", int(logger.INFO), "minimum log level to emit (0=verbose, 1=debug, 2=info)")
	flag.Parse()

	logger.SetMinLoggingLevel(logger.LogStatus(*logLevel))

	config := internal.HermesConfig{}
	if *configPath != "" {
		if err := config.LoadFromFile(*configPath); err != nil {
			log.Emit(logger.FATAL, "%v\n", err)
			os.Exit(1)
		}
	} else if err := config.LoadFromEnv(); err != nil {
		log.Emit(logger.FATAL, "%v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := internal.New(config).Run(ctx); err != nil {
		log.Emit(logger.FATAL, "Hermes exited: %v\n", err)
		os.Exit(1)
	}

	log.Emit(logger.STOP, "Hermes stopped\n")
}
