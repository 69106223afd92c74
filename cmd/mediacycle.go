package main

import (
	"flag"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/indieinfra/mediacycle/config"
	"github.com/indieinfra/mediacycle/server"
	"github.com/indieinfra/mediacycle/server/util"
)

func main() {
	boot := util.NewLogger(false, "info").With().Str("component", "main").Logger()

	configFile := flag.String("config", "config.yml", "Path to the configuration file (i.e., /etc/mediacycle.yaml)")
	flag.Parse()

	if len(strings.Trim(*configFile, " ")) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	loadEnvFiles(boot)

	boot.Info().Str("file", *configFile).Msg("loading configuration")
	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		boot.Error().Err(err).Msg("failed to load configuration")
		os.Exit(1)
	}

	boot.Info().Msg("starting http server")
	if err := server.StartServer(cfg); err != nil {
		boot.Error().Err(err).Msg("server stopped with error")
		os.Exit(1)
	}
}

// loadEnvFiles lets a local .env supply MEDIACYCLE_* overrides. Variables already set win.
func loadEnvFiles(log zerolog.Logger) {
	for _, path := range []string{".env", "../.env"} {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("failed to load env file")
		}
	}
}
