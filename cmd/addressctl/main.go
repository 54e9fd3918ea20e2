// Command addressctl manages the address store from the command line.
package main

import (
	"fmt"
	"os"

	domainerrors "addrstore/internal/domain/errors"
)

// Exit codes returned by addressctl.
const (
	exitOK = iota
	exitFailure
	exitInvalidInput
	exitNotFound
	exitDuplicate
	exitInvalidFormat
	exitUnavailable
)

func main() {
	if err := newRootCmd(&rootOptions{}).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps an error to the process exit status by its domain kind.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}

	switch domainerrors.KindOf(err) {
	case domainerrors.KindInvalidArgument, domainerrors.KindMissingIdentifier:
		return exitInvalidInput
	case domainerrors.KindNotFound:
		return exitNotFound
	case domainerrors.KindDuplicateKey:
		return exitDuplicate
	case domainerrors.KindInvalidFormat:
		return exitInvalidFormat
	case domainerrors.KindUnavailable:
		return exitUnavailable
	default:
		return exitFailure
	}
}
