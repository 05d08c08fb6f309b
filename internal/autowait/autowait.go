// Package autowait implements the pre-action polling loop that waits for an
// interactableText or ref selector to resolve before a step dispatches to
// the driver.
package autowait

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/enbu-dev/enbu/internal/driver"
	"github.com/enbu-dev/enbu/internal/value"
)

const (
	DefaultInterval = 100 * time.Millisecond
	DefaultTimeout  = 30000 * time.Millisecond
)

// Options configures the poll cadence. Zero values fall back to the
// defaults above.
type Options struct {
	Interval time.Duration
	Timeout  time.Duration
}

func (o Options) withDefaults() Options {
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	return o
}

// TimeoutError is returned when a selector doesn't resolve before the
// configured timeout elapses.
type TimeoutError struct {
	TimeoutMs int
	Selector  value.Selector
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("auto-wait timed out after %dms waiting for %q", e.TimeoutMs, e.Selector.String())
}

// Resolve runs the auto-wait loop for sel. css and xpath selectors are
// already directly addressable by the driver and pass through unchanged;
// interactableText and ref selectors are polled via repeated snapshots
// until a match appears or the timeout elapses. On a successful
// interactableText match, Resolve returns the concrete Ref the command
// should use in place of the original text selector.
func Resolve(ctx context.Context, drv *driver.Adapter, sel value.Selector, opts Options) (value.Selector, error) {
	kind := value.SelectorKind(sel)
	if kind != "interactableText" && kind != "ref" {
		return sel, nil
	}
	opts = opts.withDefaults()

	deadline := time.Now().Add(opts.Timeout)
	ticker := time.NewTicker(opts.Interval)
	defer ticker.Stop()

	for {
		resolved, ok, err := tryResolve(ctx, drv, sel, kind)
		if err != nil {
			return nil, err
		}
		if ok {
			return resolved, nil
		}
		if !time.Now().Before(deadline) {
			return nil, &TimeoutError{TimeoutMs: int(opts.Timeout.Milliseconds()), Selector: sel}
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func tryResolve(ctx context.Context, drv *driver.Adapter, sel value.Selector, kind string) (value.Selector, bool, error) {
	snap, err := drv.Snapshot(ctx)
	if err != nil {
		return nil, false, err
	}
	switch kind {
	case "interactableText":
		target := sel.String()
		for id, info := range snap.Refs {
			if info.Name == target {
				ref, err := value.NewRef("@" + id)
				if err != nil {
					return nil, false, err
				}
				return ref, true, nil
			}
		}
		return nil, false, nil
	case "ref":
		id := strings.TrimPrefix(sel.String(), "@")
		if _, ok := snap.Refs[id]; ok {
			return sel, true, nil
		}
		return nil, false, nil
	default:
		return sel, true, nil
	}
}
