package httpclient

import (
	"sync"
	"time"
)

// DebounceConfig configures trailing-edge debouncing: when several calls
// share a key within Wait of each other, only the last one actually fires,
// after the quiet period elapses. Earlier callers waiting on the same key
// receive an AbortError with Reason "debounced" once a later call supersedes
// them.
type DebounceConfig struct {
	// Wait is the quiet period after the most recent call before it fires.
	// Zero disables debouncing.
	Wait time.Duration

	// MaxWait caps the total time a call may be deferred, regardless of how
	// often it keeps getting superseded. Zero means no cap.
	MaxWait time.Duration
}

// Enabled reports whether this config describes active debouncing.
func (c DebounceConfig) Enabled() bool {
	return c.Wait > 0
}

type debounceEntry struct {
	timer     *time.Timer
	waiters   []chan debounceResult
	firstCall time.Time
}

type debounceResult struct {
	res *Response
	err error
}

// Debouncer coalesces bursts of calls under the same key into a single
// trailing-edge execution, in the idiom of hedge_transport.go's timer and
// channel handling: each call registers a waiter channel, and the timer
// goroutine fires the winning call and fans its result out to every waiter
// queued behind it.
type Debouncer struct {
	mu      sync.Mutex
	entries map[string]*debounceEntry
}

// NewDebouncer returns an empty Debouncer. One instance belongs to exactly
// one *Client.
func NewDebouncer() *Debouncer {
	return &Debouncer{entries: make(map[string]*debounceEntry)}
}

// Do defers fn until Wait has elapsed since the last call sharing key. If
// another call supersedes this one before the timer fires, Do returns an
// AbortError with Reason "debounced" instead of fn's result.
func (d *Debouncer) Do(key string, cfg DebounceConfig, fn func() (*Response, error)) (*Response, error) {
	result := make(chan debounceResult, 1)

	d.mu.Lock()
	entry, exists := d.entries[key]
	// entry.timer.Stop returning false means its callback has already fired
	// or is already running fn() for its own batch of waiters — that call is
	// no longer cancelable, so this one isn't superseding it in time. Start
	// an independent entry instead of folding into it, so this call still
	// gets its own full quiet period and its own fn() call, rather than
	// inheriting whatever the in-flight call happens to return.
	reusable := exists && (entry.timer == nil || entry.timer.Stop())
	if reusable {
		for _, w := range entry.waiters {
			w <- debounceResult{err: newAbortError("debounced", nil, 0, nil)}
		}
		entry.waiters = nil
	} else {
		entry = &debounceEntry{firstCall: time.Now()}
		d.entries[key] = entry
	}
	entry.waiters = append(entry.waiters, result)

	wait := cfg.Wait
	if cfg.MaxWait > 0 {
		if elapsed := time.Since(entry.firstCall); elapsed+wait > cfg.MaxWait {
			wait = cfg.MaxWait - elapsed
			if wait < 0 {
				wait = 0
			}
		}
	}

	// entry is captured by identity, not re-looked-up by key: a later call
	// may have already installed a new entry under key by the time this
	// fires, but this entry's own waiters still get this entry's own
	// result — only the map cleanup is conditional, so it never deletes a
	// newer entry's registration.
	entry.timer = time.AfterFunc(wait, func() {
		res, err := fn()

		d.mu.Lock()
		if d.entries[key] == entry {
			delete(d.entries, key)
		}
		waiters := entry.waiters
		d.mu.Unlock()

		for _, w := range waiters {
			w <- debounceResult{res: res, err: err}
		}
	})
	d.mu.Unlock()

	r := <-result
	return r.res, r.err
}
