package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/khanhnv2901/gh-recon/internal/application/recon"
	consts "github.com/khanhnv2901/gh-recon/internal/shared/constants"
)

type telemetryRecord struct {
	Timestamp        time.Time `json:"timestamp"`
	Command          string    `json:"command"`
	RunID            string    `json:"run_id"`
	Target           string    `json:"target"`
	Repositories     int       `json:"repositories"`
	Merged           int       `json:"merged"`
	Skipped          int       `json:"skipped"`
	URLCount         int       `json:"url_count"`
	PackageCount     int       `json:"package_count"`
	LiveCount        int       `json:"live_count"`
	DeadCount        int       `json:"dead_count"`
	HijackableCount  int       `json:"hijackable_count"`
	Partial          bool      `json:"partial"`
	DurationSeconds  float64   `json:"duration_seconds"`
	AvgSecondsPerRep float64   `json:"avg_seconds_per_repository"`
}

func recordTelemetry(resultsDir, command, target string, summary recon.Summary, duration time.Duration) error {
	avg := 0.0
	if summary.Merged > 0 {
		avg = duration.Seconds() / float64(summary.Merged)
	}

	record := telemetryRecord{
		Timestamp:        time.Now().UTC(),
		Command:          command,
		RunID:            summary.RunID,
		Target:           target,
		Repositories:     summary.Repositories,
		Merged:           summary.Merged,
		Skipped:          summary.Skipped,
		URLCount:         summary.URLs,
		PackageCount:     summary.Packages,
		LiveCount:        summary.Live,
		DeadCount:        summary.Dead,
		HijackableCount:  len(summary.Hijackable),
		Partial:          summary.Partial,
		DurationSeconds:  duration.Seconds(),
		AvgSecondsPerRep: avg,
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal telemetry: %w", err)
	}

	telemetryPath := filepath.Join(resultsDir, "telemetry.jsonl")
	f, err := os.OpenFile(telemetryPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, consts.DefaultFilePerm)
	if err != nil {
		return fmt.Errorf("open telemetry file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write telemetry: %w", err)
	}
	return nil
}
