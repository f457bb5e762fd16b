package music

import "math/rand"

// rotation tracks which entries of a mood's catalog have played in the
// current cycle. Selection is uniform over the unplayed remainder; when
// every track has played, the cycle resets and all tracks become
// eligible again. With a single-track catalog the same track repeats.
type rotation struct {
	tracks   []string
	played   map[string]bool
	excluded map[string]bool
	rng      *rand.Rand
	cycle    int
	index    int
}

func newRotation(tracks []string, rng *rand.Rand) *rotation {
	return &rotation{
		tracks:   tracks,
		played:   make(map[string]bool, len(tracks)),
		excluded: make(map[string]bool),
		rng:      rng,
	}
}

// next returns the next track to play and its position within the
// current cycle. It returns false for an empty catalog and when every
// track has been excluded this cycle.
func (r *rotation) next() (string, int, bool) {
	if len(r.tracks) == 0 || len(r.excluded) == len(r.tracks) {
		return "", 0, false
	}

	remaining := make([]string, 0, len(r.tracks))
	for _, t := range r.tracks {
		if !r.played[t] && !r.excluded[t] {
			remaining = append(remaining, t)
		}
	}
	if len(remaining) == 0 {
		r.played = make(map[string]bool, len(r.tracks))
		r.excluded = make(map[string]bool)
		r.cycle++
		r.index = 0
		remaining = append(remaining, r.tracks...)
	}

	track := remaining[r.rng.Intn(len(remaining))]
	r.played[track] = true
	idx := r.index
	r.index++
	return track, idx, true
}

// exclude sidelines a track for the rest of the current cycle, used when
// its asset fails to load. The track is re-admitted when the cycle
// resets, so a transient failure does not shrink the catalog for the
// whole session.
func (r *rotation) exclude(track string) {
	delete(r.played, track)
	r.excluded[track] = true
}

// size returns the number of tracks eligible in the current cycle.
func (r *rotation) size() int {
	return len(r.tracks) - len(r.excluded)
}
