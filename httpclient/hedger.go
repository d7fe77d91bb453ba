package httpclient

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// hedgeAttemptResult carries one racing attempt's outcome back to the
// Hedger, tagged with which attempt produced it ("primary" or "hedge-N").
type hedgeAttemptResult struct {
	res   *Response
	err   error
	label string
}

// Hedger races a primary attempt against staggered duplicate attempts and
// keeps whichever finishes first, canceling the rest. The goroutine/timer/
// channel shape follows hedge_transport.go's RoundTrip, adapted from
// cloning *http.Request to re-invoking fn against a per-attempt
// requestContext, since hedging now sits above the Driver rather than
// wrapping a transport.
//
// One Hedger belongs to exactly one *Client; its tracker is never a
// package-level singleton.
type Hedger struct {
	tracker *LatencyTracker
}

// NewHedger builds a Hedger that records winning-attempt latency into
// tracker. tracker may be nil, in which case adaptive delay calculation
// falls back to AdaptiveHedgeConfig.FallbackDelay.
func NewHedger(tracker *LatencyTracker) *Hedger {
	return &Hedger{tracker: tracker}
}

// Do races up to cfg.MaxHedges+1 attempts of fn for the given endpoint,
// staggered by cfg.Delay (or an adaptive delay when adaptive is non-nil and
// enabled), and returns the first attempt to finish. Losing attempts keep
// running against a canceled child of parent.Ctx until they return, so fn
// must respect context cancellation.
func (h *Hedger) Do(parent *requestContext, endpoint string, cfg HedgeConfig, adaptive *AdaptiveHedgeConfig, fn func(ctx *requestContext) (*Response, error)) (*Response, error) {
	if !cfg.Enabled() && (adaptive == nil || !adaptive.Enabled()) {
		return fn(parent)
	}

	delay := cfg.Delay
	maxHedges := cfg.MaxHedges
	if adaptive != nil && adaptive.Enabled() {
		delay = adaptive.GetDelay(h.tracker, endpoint)
		maxHedges = adaptive.MaxHedges
	}
	if maxHedges <= 0 {
		return fn(parent)
	}

	raceCtx, cancel := context.WithCancel(parent.Ctx)
	defer cancel()

	results := make(chan hedgeAttemptResult, maxHedges+1)
	var wg sync.WaitGroup

	start := time.Now()
	launch := func(label string) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sub := &requestContext{
				Req:          parent.Req,
				Ctx:          raceCtx,
				Attempt:      parent.Attempt,
				Meta:         parent.Meta,
				RequestID:    parent.RequestID,
				RequestStart: parent.RequestStart,
				Driver:       parent.Driver,
			}
			res, err := fn(sub)
			select {
			case <-raceCtx.Done():
			case results <- hedgeAttemptResult{res: res, err: err, label: label}:
			}
		}()
	}

	launch("primary")

	timers := make([]*time.Timer, maxHedges)
	for i := 0; i < maxHedges; i++ {
		idx := i
		timers[i] = time.AfterFunc(delay*time.Duration(idx+1), func() {
			launch("hedge-" + strconv.Itoa(idx+1))
		})
	}

	first := <-results
	cancel()
	for _, t := range timers {
		t.Stop()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	if h.tracker != nil && first.err == nil {
		h.tracker.Record(endpoint, time.Since(start))
	}

	if first.err != nil {
		return nil, first.err
	}

	if first.res != nil {
		attempts := 1
		if first.label != "primary" {
			attempts = 2
		}
		first.res.HedgeMeta = &HedgeMeta{
			Winner:       first.label,
			Attempts:     attempts,
			LatencySaved: hedgeLatencySaved(delay, first.label),
		}
	}
	return first.res, nil
}

// hedgeLatencySaved estimates how much tail latency the hedge avoided: zero
// when the primary attempt won outright (nothing was saved), otherwise the
// configured delay the winning hedge skipped past. Clamped to >= 0.
func hedgeLatencySaved(delay time.Duration, winner string) time.Duration {
	if winner == "primary" || delay < 0 {
		return 0
	}
	return delay
}
