package lib

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
)

func HandleInterrupt() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	sig := <-c
	log.Fatal().Str("signal", sig.String()).Msg("process interrupted")
}
