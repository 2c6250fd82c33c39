package main

import (
	"flag"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/bookmarkai/bookmark-server/bookmarkservice"
)

func main() {
	envFile := flag.String("env-file", ".env", "Optional dotenv file loaded before configuration")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Str("file", *envFile).Msg("could not load env file")
	}

	if err := bookmarkservice.Run(); err != nil {
		os.Exit(1)
	}
}
