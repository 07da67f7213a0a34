package events

import (
	"fmt"

	"github.com/LdDl/scene-graph-go/scene"
)

// Severity of an improvement suggestion
type Severity string

const (
	SeverityHigh   = Severity("high")
	SeverityMedium = Severity("medium")
	SeverityLow    = Severity("low")
)

// Suggestion is a rule-based improvement hint
type Suggestion struct {
	Category string   `json:"category"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// EfficiencyScores are 0..100 scores; overall is the mean of the other three
type EfficiencyScores struct {
	OverallScore    float64 `json:"overall_score"`
	ProductionScore float64 `json:"production_score"`
	MovementScore   float64 `json:"movement_score"`
	ContinuityScore float64 `json:"continuity_score"`
}

// QuantityMetrics are counts and per-minute rates
type QuantityMetrics struct {
	BlockInteractions      int     `json:"block_interactions"`
	BlocksPerMin           float64 `json:"blocks_per_min"`
	BlocksPerMinProduction float64 `json:"blocks_per_min_production"`
	ToolPickups            int     `json:"tool_pickups"`
	ToolChangesPerMin      float64 `json:"tool_changes_per_min"`
	ProductionMinutes      float64 `json:"production_minutes"`
	TotalMinutes           float64 `json:"total_minutes"`
}

// SpatialMetrics describe worker movement
type SpatialMetrics struct {
	DistanceTraveledM float64 `json:"distance_traveled_m"`
	WorkAreaM2        float64 `json:"work_area_m2"`
	BlocksPerMeter    float64 `json:"blocks_per_meter"`
}

// ContinuityMetrics describe production runs and idle stretches
type ContinuityMetrics struct {
	ProductionRuns   int     `json:"production_runs"`
	MeanRunFrames    float64 `json:"mean_run_frames"`
	LongestRunFrames int     `json:"longest_run_frames"`
	LongestIdleSec   float64 `json:"longest_idle_sec"`
}

// Performance is efficiency analysis of a run
type Performance struct {
	Efficiency  EfficiencyScores  `json:"efficiency"`
	Quantity    QuantityMetrics   `json:"quantity"`
	Spatial     SpatialMetrics    `json:"spatial"`
	Continuity  ContinuityMetrics `json:"continuity"`
	Suggestions []Suggestion      `json:"suggestions"`
}

func (engine *Engine) analyzePerformance(result *Result, trail []TrailPoint) Performance {
	cfg := engine.cfg.Performance
	stats := result.Stats
	perf := Performance{
		Suggestions: make([]Suggestion, 0),
	}

	// quantity
	totalMinutes := stats.TotalTimeSec / 60.0
	productionMinutes := totalMinutes * stats.ProductionPct / 100.0
	perf.Quantity = QuantityMetrics{
		BlockInteractions: stats.BlockInteractions,
		ToolPickups:       stats.ToolPickups,
		ProductionMinutes: scene.Round2(productionMinutes),
		TotalMinutes:      scene.Round2(totalMinutes),
	}
	if totalMinutes > 0 {
		perf.Quantity.BlocksPerMin = scene.Round2(float64(stats.BlockInteractions) / totalMinutes)
		perf.Quantity.ToolChangesPerMin = scene.Round2(float64(stats.ToolPickups) / totalMinutes)
	}
	if productionMinutes > 0 {
		perf.Quantity.BlocksPerMinProduction = scene.Round2(float64(stats.BlockInteractions) / productionMinutes)
	}

	// spatial
	perf.Spatial.DistanceTraveledM = stats.DistanceTraveledM
	perf.Spatial.WorkAreaM2 = scene.Round2(groundArea(trail))
	if stats.BlockInteractions > 0 {
		perf.Spatial.BlocksPerMeter = scene.Round2(float64(stats.BlockInteractions) / max(stats.DistanceTraveledM, cfg.MinDistanceM))
	}

	// continuity
	perf.Continuity = productionContinuity(result.Timeline)

	perf.Efficiency.ProductionScore = round1(min(100.0, stats.ProductionPct*cfg.ProductionScale))
	perf.Efficiency.MovementScore = round1(min(100.0, perf.Spatial.BlocksPerMeter*cfg.MovementScale))
	perf.Efficiency.ContinuityScore = round1(min(100.0, perf.Continuity.MeanRunFrames*cfg.ContinuityScale))
	perf.Efficiency.OverallScore = round1((perf.Efficiency.ProductionScore + perf.Efficiency.MovementScore + perf.Efficiency.ContinuityScore) / 3.0)

	perf.Suggestions = engine.suggest(stats, perf)
	return perf
}

func productionContinuity(timeline []TimelineSegment) ContinuityMetrics {
	metrics := ContinuityMetrics{}
	totalRunFrames := 0
	for _, seg := range timeline {
		if seg.Activity == ActivityProduction {
			metrics.ProductionRuns++
			totalRunFrames += seg.NumFrames
			metrics.LongestRunFrames = max(metrics.LongestRunFrames, seg.NumFrames)
		}
		if seg.Activity.IsIdle() {
			metrics.LongestIdleSec = max(metrics.LongestIdleSec, seg.DurationSec)
		}
	}
	if metrics.ProductionRuns > 0 {
		metrics.MeanRunFrames = round1(float64(totalRunFrames) / float64(metrics.ProductionRuns))
	}
	return metrics
}

func (engine *Engine) suggest(stats Stats, perf Performance) []Suggestion {
	cfg := engine.cfg.Performance
	suggestions := make([]Suggestion, 0)
	if stats.PrepPct > cfg.PrepHighPct {
		suggestions = append(suggestions, Suggestion{
			Category: "preparation",
			Severity: SeverityMedium,
			Message:  fmt.Sprintf("Preparation takes %.0f%% of the time. Stage blocks and mortar closer to the work face", stats.PrepPct),
		})
	}
	if stats.DowntimePct > cfg.DowntimeHighPct {
		suggestions = append(suggestions, Suggestion{
			Category: "downtime",
			Severity: SeverityHigh,
			Message:  fmt.Sprintf("Downtime is %.0f%% of the time. Check for material or instruction delays", stats.DowntimePct),
		})
	}
	if perf.Quantity.ToolChangesPerMin > cfg.ToolChangesHighPerMin {
		suggestions = append(suggestions, Suggestion{
			Category: "tools",
			Severity: SeverityMedium,
			Message:  fmt.Sprintf("%.1f tool changes per minute. Keep frequently used tools within reach", perf.Quantity.ToolChangesPerMin),
		})
	}
	if stats.DistanceTraveledM > cfg.MovementRuleMinDistance && perf.Spatial.BlocksPerMeter < cfg.LowBlocksPerMeter {
		suggestions = append(suggestions, Suggestion{
			Category: "movement",
			Severity: SeverityMedium,
			Message:  fmt.Sprintf("Travelled %.1fm with %d block interactions. Reorganize the work area to reduce walking", stats.DistanceTraveledM, stats.BlockInteractions),
		})
	}
	if perf.Continuity.LongestIdleSec > cfg.LongIdleSec {
		suggestions = append(suggestions, Suggestion{
			Category: "downtime",
			Severity: SeverityHigh,
			Message:  fmt.Sprintf("Longest idle stretch lasted %.0fs", perf.Continuity.LongestIdleSec),
		})
	}
	if perf.Continuity.ProductionRuns > cfg.FragmentedMinRuns && perf.Continuity.MeanRunFrames < cfg.FragmentedMaxMeanFrames {
		suggestions = append(suggestions, Suggestion{
			Category: "continuity",
			Severity: SeverityLow,
			Message:  fmt.Sprintf("Production is fragmented into %d short runs", perf.Continuity.ProductionRuns),
		})
	}
	if len(suggestions) == 0 {
		suggestions = append(suggestions, Suggestion{
			Category: "general",
			Severity: SeverityLow,
			Message:  "Worker is performing efficiently",
		})
	}
	return suggestions
}
