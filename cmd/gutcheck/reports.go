package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/achalasani15/gut-check-app/internal/compose"
	"github.com/achalasani15/gut-check-app/internal/database"
	"github.com/achalasani15/gut-check-app/internal/export"
	"github.com/achalasani15/gut-check-app/internal/llm"
	"github.com/achalasani15/gut-check-app/internal/recall"
)

// --- report command ---

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Compose and read journal reports",
}

var reportComposeCmd = &cobra.Command{
	Use:   "compose",
	Short: "Compose the report for the window ending today (skips the recall scan)",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		pet, err := requirePet(db)
		if err != nil {
			return err
		}
		opts, err := analysisOptions()
		if err != nil {
			return err
		}

		summ := cfg.Summarization
		provider := llm.CreateProvider(summ.Provider, summ.Model, summ.OllamaURL, summ.OpenAIModel, summ.APIKeyEnv, log)

		ctx, stop := signalContext()
		defer stop()

		report, err := compose.NewComposer(db, provider, opts, log).ComposeReport(ctx, pet, time.Now())
		if err != nil {
			return err
		}
		printReport(report)
		return nil
	},
}

var reportShowCmd = &cobra.Command{
	Use:   "show [period]",
	Short: "Print a stored report (latest by default)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		pet, err := requirePet(db)
		if err != nil {
			return err
		}

		var report *database.Report
		if len(args) == 1 {
			report, err = db.GetReport(pet.ID, args[0])
		} else {
			var all []database.Report
			all, err = db.GetAllReports(pet.ID)
			if len(all) > 0 {
				report = &all[0]
			}
		}
		if err != nil {
			return err
		}
		if report == nil {
			return fmt.Errorf("no report found; run 'gutcheck run' or 'gutcheck report compose'")
		}
		printReport(report)
		return nil
	},
}

var reportListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored reports",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		pet, err := requirePet(db)
		if err != nil {
			return err
		}
		reports, err := db.GetAllReports(pet.ID)
		if err != nil {
			return err
		}
		if len(reports) == 0 {
			fmt.Println("No reports yet. Compose one with: gutcheck run")
			return nil
		}
		for _, r := range reports {
			fmt.Printf("  %-26s %-24s average %d, %d logs\n", r.PeriodID,
				database.FormatPeriodDisplay(r.PeriodID), r.AverageScore, r.LogCount)
		}
		return nil
	},
}

func init() {
	reportCmd.AddCommand(reportComposeCmd)
	reportCmd.AddCommand(reportShowCmd)
	reportCmd.AddCommand(reportListCmd)
}

func printReport(r *database.Report) {
	fmt.Printf("# Gut Report: %s\n\n", database.FormatPeriodDisplay(r.PeriodID))
	fmt.Printf("## TL;DR\n\n%s\n\n", r.TLDR)
	fmt.Println(r.BodyMarkdown)
}

// --- recalls command ---

var (
	recallsScan  bool
	recallsLimit int
)

var recallsCmd = &cobra.Command{
	Use:   "recalls",
	Short: "List recall notices that mention foods in the journal",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		if recallsScan {
			pet, err := requirePet(db)
			if err != nil {
				return err
			}
			ctx, stop := signalContext()
			defer stop()

			fmt.Println("Scanning recall feeds...")
			result, err := recall.NewCollector(cfg, db, log).Collect(ctx, pet.ID)
			if err != nil {
				return err
			}
			fmt.Printf("  Entries scanned: %d\n", result.TotalFound)
			fmt.Printf("  New matches: %d\n", result.NewNotices)
			fmt.Printf("  Already known: %d\n", result.Duplicates)

			sources := make([]string, 0, len(result.Sources))
			for s := range result.Sources {
				sources = append(sources, s)
			}
			sort.Slice(sources, func(i, j int) bool { return result.Sources[sources[i]] > result.Sources[sources[j]] })
			for _, s := range sources {
				fmt.Printf("    %s: %d\n", s, result.Sources[s])
			}
			fmt.Println()
		}

		notices, err := db.GetRecallNotices(recallsLimit)
		if err != nil {
			return err
		}
		if len(notices) == 0 {
			fmt.Println("No recall notices match the journal.")
			return nil
		}
		for _, n := range notices {
			date := "unknown date"
			if n.PublishedDate != nil {
				date = *n.PublishedDate
			}
			fmt.Printf("[%s] %s\n", date, n.Title)
			fmt.Printf("  Matched: %s\n", strings.Join(n.MatchedTerms, ", "))
			fmt.Printf("  %s\n", n.URL)
		}
		return nil
	},
}

func init() {
	recallsCmd.Flags().BoolVar(&recallsScan, "scan", false, "Scan the configured feeds before listing")
	recallsCmd.Flags().IntVarP(&recallsLimit, "limit", "n", 20, "Maximum notices to list (0 for all)")
}

// --- export command ---

var exportCmd = &cobra.Command{
	Use:   "export [file.xlsx]",
	Short: "Export the journal, food stats and gut score to a spreadsheet",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		pet, err := requirePet(db)
		if err != nil {
			return err
		}
		snap, opts, dash, err := loadDashboard(db, pet)
		if err != nil {
			return err
		}

		path := "gutcheck.xlsx"
		if len(args) == 1 {
			path = args[0]
		}
		if err := export.Workbook(path, pet, snap.Logs, dash, opts.Location); err != nil {
			return fmt.Errorf("exporting: %w", err)
		}
		fmt.Printf("Exported %d logs to %s\n", len(snap.Logs), path)
		return nil
	},
}
