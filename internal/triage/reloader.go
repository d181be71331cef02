package triage

import (
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// Reloader serves a rule table that can be replaced at runtime. Each reload
// swaps in a complete table, so concurrent Triage calls see either the old
// table or the new one.
type Reloader struct {
	path    string
	current atomic.Pointer[RuleTable]
	logger  *logrus.Logger
}

// NewReloader loads the table at path, or the built-in table when path is
// empty.
func NewReloader(path string, logger *logrus.Logger) (*Reloader, error) {
	r := &Reloader{path: path, logger: logger}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Reloader) Rules() *RuleTable {
	return r.current.Load()
}

// Reload re-reads the rule file. On error the current table stays in place.
func (r *Reloader) Reload() error {
	var (
		t   *RuleTable
		err error
	)
	if r.path == "" {
		t = DefaultRules()
	} else {
		t, err = LoadRulesFile(r.path)
	}
	if err != nil {
		r.logger.WithError(err).WithField("path", r.path).Error("Rule table reload failed, keeping current table")
		return err
	}

	r.current.Store(t)
	r.logger.WithFields(logrus.Fields{
		"path":  r.source(),
		"rules": t.Len(),
	}).Info("Loaded rule table")
	return nil
}

func (r *Reloader) source() string {
	if r.path == "" {
		return "embedded"
	}
	return r.path
}
