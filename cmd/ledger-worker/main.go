package main

import (
	"os"

	"github.com/rs/zerolog/log"

	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/ledgerworker"
)

func main() {
	if err := ledgerworker.Run(); err != nil {
		log.Error().Err(err).Msg("ledger-worker exited with error")
		os.Exit(1)
	}
}
