package logfeed

import "context"

// AnchorWindow is how far before/after an explicit anchor block the range
// extends when the caller supplies one (spec.md §4.4.1).
const AnchorWindow = 3

// CurrentLookback is how far behind the chain head the range starts when
// no anchor block is supplied.
const CurrentLookback = 5

// Range resolves the [from, to] block window a handler fetches over. When
// anchor is non-nil, the window is anchor-AnchorWindow..anchor+AnchorWindow.
// Otherwise it is currentHead-CurrentLookback..currentHead. Both windows
// are applied exactly as configured — no internal widening — per
// DESIGN.md's Open Question 1 decision.
func (f *Fetcher) Range(ctx context.Context, anchor *uint64) (from, to uint64, err error) {
	head, err := f.client.BlockNumber(ctx)
	if err != nil {
		return 0, 0, err
	}

	if anchor != nil {
		a := *anchor
		to := a + AnchorWindow
		if to > head {
			to = head
		}
		if a < AnchorWindow {
			return 0, to, nil
		}
		return a - AnchorWindow, to, nil
	}

	if head < CurrentLookback {
		return 0, head, nil
	}
	return head - CurrentLookback, head, nil
}
