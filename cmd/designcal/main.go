package main

import (
	"os"

	appLog "designcal/internal/log"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		appLog.Error("designcal failed", err)
		os.Exit(1)
	}
}
