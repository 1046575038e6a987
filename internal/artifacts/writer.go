// Package artifacts persists scan batches to disk as timestamped JSON and
// CSV files, one pair per run.
package artifacts

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/breakoutlab/superstock/internal/application/pipeline"
)

// Writer drops scan artifacts into a fixed directory.
type Writer struct {
	dir string
	log zerolog.Logger
}

// NewWriter creates the artifact directory if needed.
func NewWriter(dir string, log zerolog.Logger) (*Writer, error) {
	if dir == "" {
		return nil, fmt.Errorf("artifact dir is required")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create artifact dir %s: %w", dir, err)
	}
	return &Writer{dir: dir, log: log}, nil
}

// Run is the artifact record for one scan: the full ranked batch plus
// identifying metadata.
type Run struct {
	ID        string            `json:"id"`
	ScannedAt time.Time         `json:"scanned_at"`
	Symbols   int               `json:"symbols"`
	Results   []pipeline.Result `json:"results"`
}

// WriteScan stores the batch and returns the run ID. The JSON file carries
// the complete results; the CSV is a flat summary for spreadsheets.
func (w *Writer) WriteScan(results []pipeline.Result, scanned time.Time) (string, error) {
	run := Run{
		ID:        uuid.NewString(),
		ScannedAt: scanned,
		Symbols:   len(results),
		Results:   results,
	}

	stem := fmt.Sprintf("%s-%s-scan", scanned.UTC().Format("20060102-150405"), run.ID[:8])

	jsonPath := filepath.Join(w.dir, stem+".json")
	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal run: %w", err)
	}
	if err := os.WriteFile(jsonPath, data, 0644); err != nil {
		return "", fmt.Errorf("write %s: %w", jsonPath, err)
	}

	csvPath := filepath.Join(w.dir, stem+".csv")
	if err := w.writeSummary(csvPath, results); err != nil {
		return "", err
	}

	w.log.Info().
		Str("run_id", run.ID).
		Str("json", jsonPath).
		Str("csv", csvPath).
		Int("results", len(results)).
		Msg("scan artifacts written")
	return run.ID, nil
}

func (w *Writer) writeSummary(path string, results []pipeline.Result) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{
		"rank", "symbol", "total_score", "fundamental", "technical",
		"qualitative", "adjustment", "passed", "base_valid", "ideal_base",
		"breakout_potential", "error",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, res := range results {
		row := []string{
			strconv.Itoa(res.Rank),
			res.Symbol,
			formatScore(res.Score.TotalScore),
			formatScore(res.Score.FundamentalScore),
			formatScore(res.Score.TechnicalScore),
			formatScore(res.Score.QualitativeScore),
			formatScore(res.Score.BonusPoints),
			strconv.FormatBool(res.Score.PassedThreshold),
			strconv.FormatBool(res.Pattern.IsValid),
			strconv.FormatBool(res.Pattern.IsIdealBase),
			formatScore(res.Pattern.BreakoutPotential),
			res.Err,
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write csv row %s: %w", res.Symbol, err)
		}
	}
	return writer.Error()
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
