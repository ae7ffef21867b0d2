package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"

	"picking-dash/cmd/mockgen/engine"
)

func main() {
	scenario := flag.String("scenario", engine.ScenarioSteady, "Scenario to generate: "+strings.Join(engine.Scenarios, ", "))
	outDir := flag.String("out", "./.cache", "Output directory for mock files")
	users := flag.Int("users", 8, "Number of pickers")
	workstations := flag.Int("workstations", 4, "Number of workstations")
	days := flag.Int("days", 30, "Number of days ending today")
	perDay := flag.Int("rows-per-day", 120, "Picking events per day")
	seed := flag.Int64("seed", time.Now().UnixNano(), "Random seed")
	flag.Parse()

	cfg := engine.GeneratorConfig{
		Scenario:     *scenario,
		Users:        *users,
		Workstations: *workstations,
		Days:         *days,
		RowsPerDay:   *perDay,
		Seed:         *seed,
		Now:          time.Now(),
	}

	fmt.Printf("Generating scenario '%s' (%d users, %d workstations, %d days x %d rows) to %s...\n",
		cfg.Scenario, cfg.Users, cfg.Workstations, cfg.Days, cfg.RowsPerDay, *outDir)

	rows, err := engine.Generate(cfg)
	if err != nil {
		fmt.Printf("Failed to generate mock data: %v\n", err)
		os.Exit(1)
	}

	path := filepath.Join(*outDir, fmt.Sprintf("picking_%s.csv", cfg.Scenario))
	if err := save(path, cfg.Header(), rows); err != nil {
		fmt.Printf("Failed to save mock data: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Done. Wrote %d rows to %s\n", len(rows), path)
}

func save(path string, header []string, rows []engine.Row) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	bar := progressbar.Default(int64(len(rows)))
	if err := engine.Write(f, header, rows, func() { _ = bar.Add(1) }); err != nil {
		return err
	}
	_ = bar.Finish()
	return f.Close()
}
