// Package reattach implements Restart Reattachment (component C11): on
// host startup, re-binding previously open tabs to their identities from
// the persisted snapshot, then a delayed validator with full cleanup
// authority.
//
// No teacher precedent in ble-cookiejar (a leaf library is never
// restarted mid-browsing-session); grounded on navindex-colly's
// collector retry/backoff idiom (visit.go's bounded re-queue) for the
// "query tab list, retry up to N times" shape, and on
// internal/identity.Registry.FindByPersistedURL for the match itself.
package reattach

import (
	"context"
	"net/url"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/meraf-solutions/Sessner-Multi-Session-Manager-sub000/internal/hostapi"
	"github.com/meraf-solutions/Sessner-Multi-Session-Manager-sub000/internal/identity"
	"github.com/meraf-solutions/Sessner-Multi-Session-Manager-sub000/internal/tabbind"
)

// initialWait is the pause before the first tab-list query, spec.md
// §4.11 step 2.
const initialWait = 2 * time.Second

// retryWait and maxRetries bound the empty-tab-list retry, spec.md §4.11
// step 3.
const (
	retryWait  = 1 * time.Second
	maxRetries = 3
)

// validatorDelay is how long after startup begins the delayed validator
// runs, spec.md §4.11 step 6.
const validatorDelay = 10 * time.Second

// Reattacher drives the restart reattachment sequence against a loaded
// snapshot.
type Reattacher struct {
	registry *identity.Registry
	binding  *tabbind.Map
	tabs     hostapi.TabStore
	logger   *log.Entry
	sleep    func(time.Duration)
}

// New returns a Reattacher wired to its collaborators. sleep defaults to
// time.Sleep and exists so tests can skip the real waits.
func New(registry *identity.Registry, binding *tabbind.Map, tabs hostapi.TabStore, logger *log.Entry, sleep func(time.Duration)) *Reattacher {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	if sleep == nil {
		sleep = time.Sleep
	}
	return &Reattacher{
		registry: registry,
		binding:  binding,
		tabs:     tabs,
		logger:   logger.WithField("component", "reattach"),
		sleep:    sleep,
	}
}

// internalURLPrefixes are host-chrome URLs that never carry persisted
// state and must be skipped by the matcher (spec.md §4.11 step 4 "non-
// internal URL").
var internalURLPrefixes = []string{"about:", "chrome:", "chrome-extension:", "moz-extension:", "edge:"}

func isInternalURL(raw string) bool {
	for _, p := range internalURLPrefixes {
		if strings.HasPrefix(raw, p) {
			return true
		}
	}
	return false
}

// Run executes steps 1-5 of spec.md §4.11 (the snapshot is assumed
// already loaded into registry/binding by the caller's persistence.Load
// call before Run is invoked). It returns the number of tabs it matched
// and bound.
func (r *Reattacher) Run(ctx context.Context) (bound int) {
	r.sleep(initialWait)

	var tabs []identity.TabHandle
	for attempt := 0; attempt < maxRetries; attempt++ {
		list, err := r.tabs.ListTabs()
		if err != nil {
			r.logger.WithError(err).Warn("list tabs failed during reattachment")
		}
		if len(list) > 0 {
			tabs = list
			break
		}
		if attempt < maxRetries-1 {
			r.sleep(retryWait)
		}
	}

	for _, tab := range tabs {
		select {
		case <-ctx.Done():
			return bound
		default:
		}

		rawURL, err := r.tabs.TabURL(tab)
		if err != nil || isInternalURL(rawURL) {
			continue
		}
		u, err := url.Parse(rawURL)
		if err != nil {
			continue
		}
		domain := strings.ToLower(u.Host)
		path := u.Path
		if path == "" {
			path = "/"
		}

		id, ok := r.registry.FindByPersistedURL(domain, path)
		if !ok {
			continue
		}
		if r.binding.Bind(tab, id) {
			bound++
			r.logger.WithFields(log.Fields{"tab": tab, "identity": id}).Info("reattached tab from snapshot")
		}
	}
	return bound
}

// RunValidatorAfterDelay schedules the delayed validator, spec.md §4.11
// step 6, returning a channel that receives the deletion report once it
// fires. The caller is responsible for not invoking this before the
// Orchestrator allows cleanup authority (it is itself what grants that
// authority at t=startup+10s, independent of Orchestrator state).
func (r *Reattacher) RunValidatorAfterDelay(ctx context.Context) <-chan ValidatorReport {
	out := make(chan ValidatorReport, 1)
	go func() {
		r.sleep(validatorDelay)
		select {
		case <-ctx.Done():
			close(out)
			return
		default:
		}
		out <- r.validate()
		close(out)
	}()
	return out
}

// ValidatorReport summarizes the delayed validator's cleanup pass.
type ValidatorReport struct {
	Deleted []identity.ID
}

// validate deletes every still-dormant identity whose last_accessed_at
// exceeds its tier's dormant TTL — the "full cleanup authority" pass of
// spec.md §4.11 step 6. "Policy permits dormant retention" (step 5) is
// policy.DormantTTL's ok==false case (Plus/Pro: unlimited); a tier with
// a finite TTL (Basic) is still allowed to sit dormant, just not past
// its TTL, so this reuses the same sweep the periodic expiration check
// runs rather than an immediate zero-tabs delete.
func (r *Reattacher) validate() ValidatorReport {
	return ValidatorReport{Deleted: r.registry.ExpireDormant(time.Now())}
}
