package main

import (
	"fmt"
	"log"
	"os"
	"sort"

	"github.com/spf13/pflag"

	"jordanella.com/tower-pilot/internal/config"
	"jordanella.com/tower-pilot/internal/database"
)

func main() {
	driver := pflag.String("driver", database.DriverSQLite, "journal driver (sqlite3 or mysql)")
	dsn := pflag.String("dsn", config.DefaultJournalPath, "journal database path or DSN")
	runs := pflag.Int("runs", 5, "number of recent runs to show")
	cycles := pflag.Int("cycles", 10, "number of recent cycles to show for the latest run")
	pflag.Parse()

	db, err := database.Open(*driver, *dsn)
	if err != nil {
		log.Fatalf("Failed to open journal: %v", err)
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	recent, err := db.ListRuns(*runs)
	if err != nil {
		log.Fatalf("Failed to list runs: %v", err)
	}
	if len(recent) == 0 {
		fmt.Println("No runs recorded")
		return
	}

	for _, run := range recent {
		stopped := "running"
		if run.StoppedAt.Valid {
			stopped = run.StoppedAt.Time.Local().Format("2006-01-02 15:04:05")
		}
		fmt.Printf("%s  %-20s %-12s %s -> %s  (%d cycles)\n",
			run.ID, run.Window, run.Symbol,
			run.StartedAt.Local().Format("2006-01-02 15:04:05"), stopped, run.Cycles)

		counts, err := db.OutcomeCounts(run.ID)
		if err != nil {
			log.Printf("Failed to count outcomes for %s: %v", run.ID, err)
			continue
		}
		outcomes := make([]string, 0, len(counts))
		for outcome := range counts {
			outcomes = append(outcomes, outcome)
		}
		sort.Strings(outcomes)
		for _, outcome := range outcomes {
			fmt.Printf("    %-16s %d\n", outcome, counts[outcome])
		}
	}

	latest := recent[0]
	records, err := db.RecentCycles(latest.ID, *cycles)
	if err != nil {
		log.Fatalf("Failed to load cycles: %v", err)
	}

	fmt.Printf("\nLast %d cycles of %s:\n", len(records), latest.ID)
	w := os.Stdout
	for _, rec := range records {
		fmt.Fprintf(w, "  #%-5d %-15s %5dms", rec.Cycle, rec.Outcome, rec.DurationMs)
		if rec.X.Valid {
			fmt.Fprintf(w, "  (%d,%d)", rec.X.Int64, rec.Y.Int64)
		}
		if rec.Confidence.Valid {
			fmt.Fprintf(w, "  conf %.3f", rec.Confidence.Float64)
		}
		if rec.ErrorMessage.Valid {
			fmt.Fprintf(w, "  %s", rec.ErrorMessage.String)
		}
		fmt.Fprintln(w)
	}
}
