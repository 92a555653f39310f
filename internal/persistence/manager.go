package persistence

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// debounceQuiescence is the coalescing window of spec.md §4.10's default
// write policy.
const debounceQuiescence = 1 * time.Second

// immediateWriteSleep is the post-commit sleep an immediate write
// performs, per spec.md §4.10 ("protect against processes that may be
// killed mid-flush").
const immediateWriteSleep = 100 * time.Millisecond

// Source reports the current snapshot to persist. The Manager calls it
// at the moment a flush actually happens, so a snapshot taken "late"
// inside a debounce window always reflects the latest state.
type Source func() Snapshot

// Manager fans out every persist call across the primary, secondary, and
// tertiary layers, and owns the debounce timer for non-immediate writes.
type Manager struct {
	mu        sync.Mutex
	primary   Layer
	secondary Layer
	tertiary  Layer
	source    Source
	logger    *log.Entry

	timer       *time.Timer
	debounceSet bool
}

// NewManager wires a Manager to its three layers and the snapshot
// source. Any layer may be nil if that tier is unavailable; writes to a
// nil layer are skipped.
func NewManager(primary, secondary, tertiary Layer, source Source, logger *log.Entry) *Manager {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &Manager{
		primary:   primary,
		secondary: secondary,
		tertiary:  tertiary,
		source:    source,
		logger:    logger.WithField("component", "persistence"),
	}
}

// RequestDebounced schedules a coalesced write after debounceQuiescence
// of inactivity. Repeated calls within the window reset the timer.
func (m *Manager) RequestDebounced() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.timer != nil {
		m.timer.Stop()
	}
	m.debounceSet = true
	m.timer = time.AfterFunc(debounceQuiescence, func() {
		m.mu.Lock()
		m.debounceSet = false
		m.mu.Unlock()
		m.flush(false)
	})
}

// WriteImmediate performs a synchronous, non-debounced write, required
// on identity create/delete/dormant-transition/bulk ops (spec.md §4.10).
// It cancels any pending debounced write since this flush supersedes it.
func (m *Manager) WriteImmediate() error {
	m.mu.Lock()
	if m.timer != nil {
		m.timer.Stop()
		m.debounceSet = false
	}
	m.mu.Unlock()
	return m.flush(true)
}

func (m *Manager) flush(immediate bool) error {
	snap := m.source()
	now := snap.SavedAt
	if now.IsZero() {
		now = time.Now()
	}
	data, err := Encode(snap)
	if err != nil {
		m.logger.WithError(err).Error("snapshot encode failed, aborting flush")
		return err
	}

	var firstErr error
	for _, layer := range []Layer{m.primary, m.secondary, m.tertiary} {
		if layer == nil {
			continue
		}
		if err := layer.Write(data, now); err != nil {
			m.logger.WithError(err).Warn("layer write failed")
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	if immediate {
		time.Sleep(immediateWriteSleep)
	}
	return firstErr
}

// Load implements the startup read policy of spec.md §4.10: try fast
// cache (secondary) -> primary -> tertiary, in that order, adopting the
// newest by timestamp, then asynchronously re-populates the older
// layers in a goroutine started before Load returns.
func (m *Manager) Load() (Snapshot, error) {
	type candidate struct {
		layer Layer
		data  []byte
		at    time.Time
	}
	var candidates []candidate
	for _, layer := range []Layer{m.secondary, m.primary, m.tertiary} {
		if layer == nil {
			continue
		}
		data, at, ok, err := layer.Read()
		if err != nil {
			m.logger.WithError(err).Warn("layer read failed")
			continue
		}
		if !ok {
			continue
		}
		candidates = append(candidates, candidate{layer: layer, data: data, at: at})
	}
	if len(candidates) == 0 {
		return Snapshot{}, ErrEmptySnapshot
	}

	newest := candidates[0]
	for _, c := range candidates[1:] {
		if c.at.After(newest.at) {
			newest = c
		}
	}

	snap, err := Decode(newest.data)
	if err != nil {
		return Snapshot{}, err
	}

	go m.repopulateOlderLayers(newest.layer, newest.data, newest.at)
	return snap, nil
}

// repopulateOlderLayers writes the winning snapshot back into every
// layer that didn't hold it or held a stale copy (spec.md §7
// "Cross-layer persistence divergence").
func (m *Manager) repopulateOlderLayers(winner Layer, data []byte, at time.Time) {
	for _, layer := range []Layer{m.primary, m.secondary, m.tertiary} {
		if layer == nil || layer == winner {
			continue
		}
		if err := layer.Write(data, at); err != nil {
			m.logger.WithError(err).Warn("layer repopulation failed")
		}
	}
}

// PendingDebounce reports whether a debounced write is currently
// scheduled, for tests and diagnostics.
func (m *Manager) PendingDebounce() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.debounceSet
}
