package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
	"github.com/joho/godotenv"

	"SolarBudget/internal/logger"
)

func main() {
	// .env is optional; real environment variables win.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.GetLogger().WithError(err).Warn("load .env")
	}

	defaultConfig := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		defaultConfig = v
	}
	configPath := flag.String("config", defaultConfig, "path to the YAML config file")

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")
	commander.Register(&serveCmd{config: configPath}, "")
	commander.Register(&summaryCmd{config: configPath}, "")
	commander.Register(&checkCmd{config: configPath}, "")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
