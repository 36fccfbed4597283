package main

import (
	"os"

	"github.com/rs/zerolog/log"

	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/trailendpoint"
)

func main() {
	if err := trailendpoint.Run(); err != nil {
		log.Error().Err(err).Msg("trail-endpoint exited with error")
		os.Exit(1)
	}
}
