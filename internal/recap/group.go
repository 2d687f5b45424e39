// SPDX-License-Identifier: MIT

package recap

import (
	"sort"

	"github.com/rewindtv/rewind/internal/helix"
)

// DayRecap pairs a VOD with the clips recorded from it, most-viewed first.
type DayRecap struct {
	VOD   helix.Video  `json:"vod"`
	Clips []helix.Clip `json:"clips"`
}

// GroupClipsByVOD maps clips onto their parent VODs by clip VideoID. Clips
// without a resolvable parent are dropped, as are VODs that attracted no
// clips. Each group's clips are sorted by view count descending.
func GroupClipsByVOD(vods []helix.Video, clips []helix.Clip) map[string]DayRecap {
	groups := make(map[string]DayRecap, len(vods))
	byVOD := make(map[string][]helix.Clip)

	known := make(map[string]helix.Video, len(vods))
	for _, v := range vods {
		known[v.ID] = v
	}

	for _, clip := range clips {
		if clip.VideoID == "" {
			continue
		}
		if _, ok := known[clip.VideoID]; !ok {
			continue
		}
		byVOD[clip.VideoID] = append(byVOD[clip.VideoID], clip)
	}

	for id, group := range byVOD {
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].ViewCount > group[j].ViewCount
		})
		groups[id] = DayRecap{VOD: known[id], Clips: group}
	}
	return groups
}
