package logging

import (
	"io"
	"strings"

	"github.com/inconshreveable/log15"
)

// New returns a logfmt logger writing to w that drops records below level
// (debug, info, warn, error, crit). An empty level means info.
func New(level string, w io.Writer) (log15.Logger, error) {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "" {
		level = "info"
	}
	lvl, err := log15.LvlFromString(level)
	if err != nil {
		return nil, err
	}
	l := log15.New()
	l.SetHandler(log15.LvlFilterHandler(lvl, log15.StreamHandler(w, log15.LogfmtFormat())))
	return l, nil
}

// Discard returns a logger that drops everything.
func Discard() log15.Logger {
	l := log15.New()
	l.SetHandler(log15.DiscardHandler())
	return l
}
