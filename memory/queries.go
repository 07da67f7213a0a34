package memory

import (
	"math"
	"strings"

	"github.com/LdDl/scene-graph-go/scene"

	"github.com/pkg/errors"
)

func labelMatches(label, lowered string) bool {
	return strings.Contains(strings.ToLower(label), lowered)
}

// QueryLabel returns entries having a detection whose label contains text (case-insensitive)
func (store *Store) QueryLabel(text string) ([]Entry, error) {
	lowered := strings.ToLower(text)
	out := make([]Entry, 0)
	err := store.scan(func(entry *Entry) bool {
		for _, det := range entry.Detections {
			if labelMatches(det.Label, lowered) {
				out = append(out, *entry)
				break
			}
		}
		return true
	})
	return out, err
}

// QueryDepthRange returns entries having a (label-filtered, when label is not empty) detection with depth in [minDepth, maxDepth].
// Unknown depths never match.
func (store *Store) QueryDepthRange(minDepth, maxDepth float64, label string) ([]Entry, error) {
	lowered := strings.ToLower(label)
	out := make([]Entry, 0)
	err := store.scan(func(entry *Entry) bool {
		for _, det := range entry.Detections {
			if label != "" && !labelMatches(det.Label, lowered) {
				continue
			}
			if det.DepthM <= 0 {
				continue
			}
			if det.DepthM >= minDepth && det.DepthM <= maxDepth {
				out = append(out, *entry)
				break
			}
		}
		return true
	})
	return out, err
}

// QueryProximity returns entries where a detection matching labelA and a different detection matching labelB
// are at most maxDistance apart. Each row carries the smallest such distance, so the query is symmetric in its labels.
func (store *Store) QueryProximity(labelA, labelB string, maxDistance float64) ([]ProximityMatch, error) {
	loweredA, loweredB := strings.ToLower(labelA), strings.ToLower(labelB)
	out := make([]ProximityMatch, 0)
	err := store.scan(func(entry *Entry) bool {
		best := math.Inf(1)
		for i, a := range entry.Detections {
			if !labelMatches(a.Label, loweredA) || a.Position.IsZero() {
				continue
			}
			for j, b := range entry.Detections {
				if i == j || !labelMatches(b.Label, loweredB) || b.Position.IsZero() {
					continue
				}
				dist := a.Position.DistanceTo(b.Position)
				if dist <= maxDistance && dist < best {
					best = dist
				}
			}
		}
		if !math.IsInf(best, 1) {
			out = append(out, ProximityMatch{
				Entry:     *entry,
				DistanceM: math.Round(best*1000) / 1000,
			})
		}
		return true
	})
	return out, err
}

// Similar returns up to k entries closest to vector in embedding space
func (store *Store) Similar(vector []float64, k int) ([]SimilarMatch, error) {
	matches, err := store.index.Search(vector, k)
	if err != nil {
		return nil, errors.Wrap(err, "Can't search index")
	}
	if len(matches) == 0 {
		return []SimilarMatch{}, nil
	}
	wanted := make(map[int]int, len(matches))
	for i, match := range matches {
		wanted[match.Position] = i
	}
	found := make([]*Entry, len(matches))
	position := 0
	err = store.scan(func(entry *Entry) bool {
		if i, ok := wanted[position]; ok {
			found[i] = entry
		}
		position++
		return true
	})
	if err != nil {
		return nil, err
	}
	out := make([]SimilarMatch, 0, len(matches))
	for i, match := range matches {
		if found[i] == nil {
			continue
		}
		out = append(out, SimilarMatch{Entry: *found[i], Distance: match.Distance})
	}
	return out, nil
}

// SimilarToFrame returns up to k entries whose objects look like frame's objects
func (store *Store) SimilarToFrame(frame scene.Frame, k int) ([]SimilarMatch, error) {
	return store.Similar(Embed(frame.Objects), k)
}
