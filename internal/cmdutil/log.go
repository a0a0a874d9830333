// Package cmdutil holds the small pieces of setup shared by cmd/aptaplex
// and cmd/capr: constructing the process-wide logger once at startup for
// explicit injection into constructors, per spec.md §9.
package cmdutil

import (
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogger builds the *logrus.Logger a CLI entry point logs through and
// injects into the AptaPlex driver (the only constructor that takes one).
// verbose selects debug level; otherwise info level is used.
func NewLogger(verbose bool) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.InfoLevel)
	}
	return log
}
