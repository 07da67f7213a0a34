package events

import (
	"fmt"
	"math"
	"sort"

	"github.com/LdDl/scene-graph-go/scene"
)

// buildTimeline groups consecutive frames with the same activity into segments
func (engine *Engine) buildTimeline(activities []FrameActivity) []TimelineSegment {
	segments := make([]TimelineSegment, 0)
	n := len(activities)
	for start := 0; start < n; {
		end := start
		for end+1 < n && activities[end+1].Activity == activities[start].Activity {
			end++
		}
		seg := TimelineSegment{
			Start:      activities[start].TimestampStr,
			StartSec:   activities[start].Timestamp,
			StartFrame: activities[start].FrameIndex,
			EndFrame:   activities[end].FrameIndex,
			Activity:   activities[start].Activity,
			NumFrames:  end - start + 1,
		}
		if end+1 < n {
			seg.End = activities[end+1].TimestampStr
			seg.EndSec = activities[end+1].Timestamp
		} else {
			seg.End = activities[end].TimestampStr
			seg.EndSec = activities[end].Timestamp
		}
		seg.DurationSec = scene.Round2(seg.EndSec - seg.StartSec)
		segments = append(segments, seg)
		start = end + 1
	}
	return mergeShortSegments(segments, engine.cfg.MinSegmentFrames)
}

// mergeShortSegments folds segments shorter than minFrames into a preceding segment of the same activity
func mergeShortSegments(segments []TimelineSegment, minFrames int) []TimelineSegment {
	if len(segments) == 0 {
		return segments
	}
	merged := make([]TimelineSegment, 0, len(segments))
	for _, seg := range segments {
		last := len(merged) - 1
		if last >= 0 && seg.NumFrames < minFrames && merged[last].Activity == seg.Activity {
			merged[last].End = seg.End
			merged[last].EndSec = seg.EndSec
			merged[last].EndFrame = seg.EndFrame
			merged[last].NumFrames += seg.NumFrames
			merged[last].DurationSec = scene.Round2(merged[last].EndSec - merged[last].StartSec)
			continue
		}
		merged = append(merged, seg)
	}
	return merged
}

// detectIdlePeriods reports runs of standby/downtime frames of at least IdleMinFrames
func (engine *Engine) detectIdlePeriods(activities []FrameActivity, frameDt float64) []Event {
	periods := make([]Event, 0)
	runStart := -1
	flush := func(runEnd int) {
		if runStart < 0 {
			return
		}
		count := runEnd - runStart + 1
		if count >= engine.cfg.IdleMinFrames {
			first, last := activities[runStart], activities[runEnd]
			periods = append(periods, Event{
				Type:           EventIdlePeriod,
				FrameIndex:     first.FrameIndex,
				Timestamp:      first.Timestamp,
				TimestampStr:   first.TimestampStr,
				Description:    fmt.Sprintf("Idle for %d frames (~%.0fs)", count, float64(count)*frameDt),
				EndFrame:       last.FrameIndex,
				EndTimestamp:   last.Timestamp,
				DurationFrames: count,
			})
		}
		runStart = -1
	}
	for i, act := range activities {
		if act.Activity.IsIdle() {
			if runStart < 0 {
				runStart = i
			}
			continue
		}
		flush(i - 1)
	}
	flush(len(activities) - 1)
	return periods
}

// detectRelocations slides a window over the trail (stride is half a window) and reports large displacements
func (engine *Engine) detectRelocations(trail []TrailPoint) []Event {
	relocations := make([]Event, 0)
	window := engine.cfg.RelocationWindow
	if window < 1 || len(trail) < 2 {
		return relocations
	}
	stride := max(1, window/2)
	for i := 0; i < len(trail)-window; i += stride {
		j := min(i+window, len(trail)-1)
		from, to := trail[i], trail[j]
		dist := from.Position.DistanceTo(to.Position)
		if dist <= engine.cfg.RelocationMinDistance {
			continue
		}
		fromPos, toPos := from.Position.Round(2), to.Position.Round(2)
		relocations = append(relocations, Event{
			Type:           EventRelocation,
			FrameIndex:     from.FrameIndex,
			Timestamp:      from.Timestamp,
			TimestampStr:   from.TimestampStr,
			Description:    fmt.Sprintf("Moved %.1fm", dist),
			DistanceM:      scene.Round2(dist),
			EndFrame:       to.FrameIndex,
			EndTimestamp:   to.Timestamp,
			DurationFrames: j - i,
			FromPosition:   &fromPos,
			ToPosition:     &toPos,
		})
	}
	return relocations
}

func computeStats(frames []scene.Frame, activities []FrameActivity, events []Event, trail []TrailPoint) Stats {
	stats := Stats{
		TotalFrames: len(frames),
	}
	if len(frames) > 1 {
		stats.TotalTimeSec = round1(frames[len(frames)-1].Timestamp - frames[0].Timestamp)
	}
	counts := make(map[Activity]int)
	for _, act := range activities {
		counts[act.Activity]++
	}
	stats.ProductionPct = percent(counts[ActivityProduction], len(activities))
	stats.PrepPct = percent(counts[ActivityPrep], len(activities))
	stats.DowntimePct = percent(counts[ActivityDowntime], len(activities))
	stats.StandbyPct = percent(counts[ActivityStandby], len(activities))
	stats.DistanceTraveledM = scene.Round2(trailDistance(trail))

	interacted := make(map[scene.ObjectID]struct{})
	for _, evt := range events {
		switch evt.Type {
		case EventToolPickup:
			stats.ToolPickups++
			interacted[evt.Object] = struct{}{}
		case EventToolPutdown:
			stats.ToolPutdowns++
		case EventBlockInteraction:
			stats.BlockInteractions++
			interacted[evt.Block] = struct{}{}
		case EventToolProximity:
			interacted[evt.Tool] = struct{}{}
		case EventRelocation:
			stats.Relocations++
		}
	}
	stats.UniqueObjectsInteracted = len(interacted)

	if len(frames) > 0 {
		totalObjects := 0
		for i := range frames {
			totalObjects += frames[i].NumObjects
		}
		stats.AvgObjectsPerFrame = round1(float64(totalObjects) / float64(len(frames)))
	}
	return stats
}

func (engine *Engine) summarizePPE(frames []PPEFrame) PPEReport {
	report := PPEReport{
		TotalFrames: len(frames),
		AllItems:    make([]string, 0),
		Concerns:    make([]string, 0),
		Frames:      frames,
	}
	if len(frames) == 0 {
		return report
	}
	vest, helmet, gloves := 0, 0, 0
	items := make(map[string]struct{})
	for _, ppe := range frames {
		if ppe.Vest {
			vest++
		}
		if ppe.Helmet {
			helmet++
		}
		if ppe.Gloves {
			gloves++
		}
		for _, item := range ppe.Items {
			items[item] = struct{}{}
		}
	}
	for item := range items {
		report.AllItems = append(report.AllItems, item)
	}
	sort.Strings(report.AllItems)
	report.VestVisiblePct = percent(vest, len(frames))
	report.HelmetVisiblePct = percent(helmet, len(frames))
	report.GlovesVisiblePct = percent(gloves, len(frames))

	total := float64(len(frames))
	if float64(vest)/total < engine.cfg.PPE.VestConcernRatio {
		report.Concerns = append(report.Concerns, fmt.Sprintf("Safety vest visible in only %.0f%% of frames", report.VestVisiblePct))
	}
	if float64(helmet)/total < engine.cfg.PPE.HelmetConcernRatio {
		report.Concerns = append(report.Concerns, fmt.Sprintf("Head protection visible in only %.0f%% of frames", report.HelmetVisiblePct))
	}
	return report
}

func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return round1(100.0 * float64(part) / float64(total))
}

func round1(value float64) float64 {
	return math.Round(value*10) / 10
}
