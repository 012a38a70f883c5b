package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/wlattner/gbt/internal/killchip"
)

// armInterrupt trips kill on the first SIGINT/SIGTERM and exits the process
// immediately on the second, matching §6's double-Ctrl-C contract.
func armInterrupt(kill *killchip.Chip) {
	c := make(chan os.Signal, 2)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		kill.Trip()
		logger.Info().Msg("stopping: finishing in-flight work")
		<-c
		logger.Warn().Msg("forced exit")
		os.Exit(130)
	}()
}
