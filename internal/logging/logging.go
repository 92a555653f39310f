// Package logging sets up the process-wide structured logger every
// component threads through as a *logrus.Entry, keyed by component name
// per SPEC_FULL.md's AMBIENT STACK.
//
// Grounded on juliankoehn-goplugins/core/framework's logrus.WithError
// idiom, generalized from ad-hoc call-site loggers into one configured
// base entry components derive their own WithField("component", ...)
// child from.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New configures the base logger. debug switches to text-formatter
// debug-level output for local development; production defaults to
// JSON at info level, matching the env-driven App.Debug flag pattern
// of the pack's config struct.
func New(debug bool) *logrus.Entry {
	l := logrus.New()
	l.SetOutput(os.Stderr)

	if debug {
		l.SetLevel(logrus.DebugLevel)
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		l.SetLevel(logrus.InfoLevel)
		l.SetFormatter(&logrus.JSONFormatter{})
	}

	return logrus.NewEntry(l)
}
