package events

import (
	"fmt"
	"strings"
)

// Digest renders result as plain text context for a language model narrator.
// At most maxEvents key events are listed (all of them if maxEvents <= 0).
func (result *Result) Digest(maxEvents int) string {
	var sb strings.Builder
	stats := result.Stats

	sb.WriteString("=== PRODUCTIVITY ===\n")
	fmt.Fprintf(&sb, "Total time: %.1fs (%d frames)\n", stats.TotalTimeSec, stats.TotalFrames)
	fmt.Fprintf(&sb, "Production: %.1f%%, Prep: %.1f%%, Downtime: %.1f%%, Standby: %.1f%%\n", stats.ProductionPct, stats.PrepPct, stats.DowntimePct, stats.StandbyPct)
	fmt.Fprintf(&sb, "Tool pickups: %d, Block interactions: %d, Relocations: %d\n", stats.ToolPickups, stats.BlockInteractions, stats.Relocations)
	fmt.Fprintf(&sb, "Distance traveled: %.2fm\n", stats.DistanceTraveledM)
	fmt.Fprintf(&sb, "Efficiency score: %.1f/100\n", result.Performance.Efficiency.OverallScore)

	sb.WriteString("\n=== PPE ===\n")
	fmt.Fprintf(&sb, "Vest: %.0f%%, Helmet: %.0f%%, Gloves: %.0f%%\n", result.PPE.VestVisiblePct, result.PPE.HelmetVisiblePct, result.PPE.GlovesVisiblePct)
	if len(result.PPE.AllItems) > 0 {
		fmt.Fprintf(&sb, "Items seen: %s\n", strings.Join(result.PPE.AllItems, ", "))
	}
	for _, concern := range result.PPE.Concerns {
		fmt.Fprintf(&sb, "Concern: %s\n", concern)
	}

	sb.WriteString("\n=== TIMELINE ===\n")
	for _, seg := range result.Timeline {
		fmt.Fprintf(&sb, "%s - %s: %s (%.1fs)\n", seg.Start, seg.End, seg.Activity, seg.DurationSec)
	}

	keyEvents := make([]Event, 0)
	for _, evt := range result.Events {
		if evt.Type == EventToolProximity {
			continue
		}
		keyEvents = append(keyEvents, evt)
	}
	listed := keyEvents
	if maxEvents > 0 && len(listed) > maxEvents {
		listed = listed[:maxEvents]
	}
	fmt.Fprintf(&sb, "\n=== KEY EVENTS (%d) ===\n", len(keyEvents))
	for _, evt := range listed {
		fmt.Fprintf(&sb, "[%s] %s: %s\n", evt.TimestampStr, evt.Type, evt.Description)
	}
	return sb.String()
}
