package testhelper

import (
	"os"
	"testing"

	"github.com/rs/zerolog"
)

// init silences the global logger under test unless MINDCARE_TEST_LOG is set.
func init() {
	if isTesting() && os.Getenv("MINDCARE_TEST_LOG") == "" {
		zerolog.SetGlobalLevel(zerolog.Disabled)
	}
}

// isTesting returns true if we're currently running tests
func isTesting() bool {
	return testing.Testing() ||
		os.Getenv("GO_TEST") != "" ||
		(len(os.Args) > 1 && os.Args[1] == "test")
}
