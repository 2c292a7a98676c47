package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/achalasani15/gut-check-app/internal/analysis"
	"github.com/achalasani15/gut-check-app/internal/journal"
)

// --- stats command ---

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Rank foods by suspect score",
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
		_, _, dash, err := loadDashboard(db, pet)
		if err != nil {
			return err
		}
		if len(dash.Ranking) == 0 {
			fmt.Println("No foods logged yet.")
			return nil
		}

		fmt.Printf("%-28s %8s %9s %6s  %s\n", "Food", "Servings", "Weighted", "Score", "Band")
		for _, f := range dash.Ranking {
			s := dash.Stats[f.Name]
			fmt.Printf("%-28s %8d %9.0f %6.2f  %s\n", f.Name, s.TotalCount, s.WeightedBadOutcomeCount, f.Score, f.Band)
		}
		return nil
	},
}

// --- triggers command ---

var triggersCmd = &cobra.Command{
	Use:   "triggers [stool-id]",
	Short: "Show likely trigger foods for problematic stools",
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

		stools := journal.FilterLogs(snap.Logs, journal.KindStool, "")
		if len(args) == 1 {
			r, err := db.GetLog(args[0])
			if err != nil {
				return err
			}
			if r == nil || r.PetID != pet.ID {
				return fmt.Errorf("log %s not found", args[0])
			}
			stools = []journal.LogRecord{*r}
		}

		shown := 0
		for _, r := range stools {
			info := analysis.ClassifyLog(r)
			if len(args) == 0 && !info.IsProblem {
				continue
			}
			shown++
			fmt.Printf("\n%s  Stool type %d: %s (%s)\n",
				r.Timestamp.In(opts.Location).Format("Mon Jan 2 15:04"), info.Code, info.Label, info.Sublabel)
			if !info.IsProblem {
				fmt.Println("  Not a problem stool; nothing to attribute.")
				continue
			}
			printTriggers(dash.Triggers[r.ID], "  ")
		}
		if shown == 0 {
			fmt.Println("No problematic stools logged.")
		}
		return nil
	},
}

// --- score command ---

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Show the daily gut score for the analysis window",
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
		_, _, dash, err := loadDashboard(db, pet)
		if err != nil {
			return err
		}

		fmt.Printf("%s's %d-day gut score\n\n", pet.Name, len(dash.Scores))
		for _, d := range dash.Scores {
			fmt.Printf("  %s  %3d  %-20s %s\n", d.Date.Format("Mon Jan 02"), d.Score,
				strings.Repeat("#", d.Score/5), analysis.ScoreBand(d.Score))
		}
		fmt.Printf("\nAverage: %d (%s)\n", dash.Rounded, analysis.ScoreBand(dash.Rounded))
		return nil
	},
}

// --- insights command ---

var insightsCmd = &cobra.Command{
	Use:   "insights",
	Short: "Show top trigger, top safe food and last scavenging incident",
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
		_, opts, dash, err := loadDashboard(db, pet)
		if err != nil {
			return err
		}
		printInsights(dash.Insights, opts.Location)
		return nil
	},
}

func printInsights(in analysis.Insights, loc *time.Location) {
	if in.Empty() {
		fmt.Println("Keep logging to see insights here!")
		return
	}
	if in.TopTrigger != nil {
		fmt.Printf("Top Trigger:    %s (score %.2f)\n", in.TopTrigger.Name, in.TopTrigger.Score)
	}
	if in.TopSafeFood != "" {
		fmt.Printf("Top Safe Food:  %s\n", in.TopSafeFood)
	}
	if in.LastScavenged != nil {
		fmt.Printf("Last Scavenged: %s on %s\n", in.LastScavenged.Food.Name,
			in.LastScavenged.Timestamp.In(loc).Format("Mon Jan 2"))
	}
}

// --- watch command ---

var watchInterval time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print the gut score and insights whenever the journal changes",
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

		ctx, stop := signalContext()
		defer stop()

		fmt.Printf("Watching %s's journal (Ctrl+C to stop)\n", pet.Name)
		w := analysis.NewWatcher(db, pet.ID, watchInterval, opts)
		return w.Run(ctx, func(d *analysis.Dashboard) {
			top := "-"
			if d.Insights.TopTrigger != nil {
				top = d.Insights.TopTrigger.Name
			}
			fmt.Printf("[%s] v%d  today %d  average %d (%s)  top trigger %s\n",
				time.Now().Format("15:04:05"), d.Version, d.Today().Score, d.Rounded,
				analysis.ScoreBand(d.Rounded), top)
		})
	},
}

func init() {
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 2*time.Second, "How often to check for changes")
}
