// SPDX-License-Identifier: MIT

// Package recap builds bounded-duration highlight reels from clip metadata.
package recap

import (
	"sort"

	"github.com/rewindtv/rewind/internal/helix"
	"github.com/rewindtv/rewind/internal/metrics"
)

// DefaultBudgetSeconds is the default total duration allowed for a highlight
// reel.
const DefaultBudgetSeconds = 600

// SelectHighlights picks a bounded-duration subset of clips favoring the
// most-viewed ones, then orders the selection for natural playback.
//
// Selection is greedy by popularity, not optimal packing: candidates are
// walked in descending view-count order (ties keep input order) and a clip is
// admitted only when it fits the remaining budget exactly or with room to
// spare. A clip that would overflow is skipped permanently and the walk moves
// on to the next-most-viewed candidate.
//
// The admitted clips are returned sorted by their offset into the parent VOD;
// clips without a known offset come after all offset-bearing clips, ordered by
// view count descending among themselves.
func SelectHighlights(clips []helix.Clip, budgetSeconds float64) []helix.Clip {
	metrics.RecapSelectionsTotal.Inc()

	candidates := make([]helix.Clip, len(clips))
	copy(candidates, clips)
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].ViewCount > candidates[j].ViewCount
	})

	var selected []helix.Clip
	var total float64
	for _, clip := range candidates {
		if total+clip.Duration > budgetSeconds {
			continue
		}
		selected = append(selected, clip)
		total += clip.Duration
	}

	SortForPlayback(selected)
	metrics.RecapSelectedClips.Observe(float64(len(selected)))
	return selected
}

// SortForPlayback orders clips chronologically by VOD offset; clips lacking
// an offset sort after all offset-bearing clips, most-viewed first.
func SortForPlayback(clips []helix.Clip) {
	sort.SliceStable(clips, func(i, j int) bool {
		a, b := clips[i], clips[j]
		switch {
		case a.VodOffset != nil && b.VodOffset != nil:
			return *a.VodOffset < *b.VodOffset
		case a.VodOffset != nil:
			return true
		case b.VodOffset != nil:
			return false
		default:
			return a.ViewCount > b.ViewCount
		}
	})
}
