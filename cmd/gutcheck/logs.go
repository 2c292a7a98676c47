package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/achalasani15/gut-check-app/internal/analysis"
	"github.com/achalasani15/gut-check-app/internal/journal"
)

// --- log command ---

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Add, list, edit and delete journal entries",
}

var logAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a journal entry",
}

var (
	logAt        string
	foodQuantity string
	foodScav     bool
	foodSafe     bool
)

var logAddFoodCmd = &cobra.Command{
	Use:   "food [name]",
	Short: "Log a meal, treat or scavenged item",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := strings.Join(args, " ")
		return addLog(func(logs []journal.LogRecord, at time.Time) journal.LogRecord {
			food := journal.Food{Name: name, Quantity: foodQuantity, IsScavenged: foodScav, IsSafe: foodSafe}
			// Reuse the flags from the last time this food was logged unless
			// they were given explicitly.
			if last, ok := journal.LastFlagsFor(logs, name); ok {
				if !cmd.Flags().Changed("scavenged") {
					food.IsScavenged = last.IsScavenged
				}
				if !cmd.Flags().Changed("safe") {
					food.IsSafe = last.IsSafe
				}
			}
			return journal.NewFoodLog(at, food)
		})
	},
}

var logAddStoolCmd = &cobra.Command{
	Use:   "stool [1-5]",
	Short: "Log a stool (1 very hard, 3 ideal, 5 liquid)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		code, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid stool code: %s", args[0])
		}
		return addLog(func(_ []journal.LogRecord, at time.Time) journal.LogRecord {
			return journal.NewStoolLog(at, code)
		})
	},
}

var logAddSymptomCmd = &cobra.Command{
	Use:   "symptom [description...]",
	Short: "Log one or more symptoms (comma separated)",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		descriptions := journal.SplitList(strings.Join(args, " "))
		return addLog(func(_ []journal.LogRecord, at time.Time) journal.LogRecord {
			return journal.NewSymptomLog(at, descriptions...)
		})
	},
}

var logAddNoteCmd = &cobra.Command{
	Use:   "note [text...]",
	Short: "Log a free-text note",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args, " ")
		return addLog(func(_ []journal.LogRecord, at time.Time) journal.LogRecord {
			return journal.NewNoteLog(at, text)
		})
	},
}

// addLog stores the record built by build and prints what it means.
func addLog(build func(logs []journal.LogRecord, at time.Time) journal.LogRecord) error {
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
	at, err := parseAt(logAt, time.Now(), opts.Location)
	if err != nil {
		return err
	}
	logs, err := db.ListLogs(pet.ID)
	if err != nil {
		return err
	}

	stored, err := db.InsertLog(pet.ID, build(logs, at))
	if err != nil {
		return err
	}
	fmt.Printf("Logged %s at %s: %s\n", stored.Kind, stored.Timestamp.In(opts.Location).Format("Mon Jan 2 15:04"), stored.Summary())

	if analysis.IsBadStool(*stored) {
		snap, _, dash, err := loadDashboard(db, pet)
		if err != nil {
			return err
		}
		info := analysis.ClassifyLog(*stored)
		fmt.Printf("%s (%s).\n", info.Label, info.Sublabel)
		printTriggers(analysis.FindTriggers(*stored, snap.Logs, dash.Stats), "  ")
	}
	return nil
}

func init() {
	logAddCmd.PersistentFlags().StringVar(&logAt, "at", "", "When it happened: \"2006-01-02 15:04\", a date, or a time today (default now)")
	logAddFoodCmd.Flags().StringVarP(&foodQuantity, "quantity", "q", "", "Quantity, e.g. \"1 cup\"")
	logAddFoodCmd.Flags().BoolVar(&foodScav, "scavenged", false, "Eaten without permission")
	logAddFoodCmd.Flags().BoolVar(&foodSafe, "safe", false, "A known safe food")

	logAddCmd.AddCommand(logAddFoodCmd)
	logAddCmd.AddCommand(logAddStoolCmd)
	logAddCmd.AddCommand(logAddSymptomCmd)
	logAddCmd.AddCommand(logAddNoteCmd)
}

var (
	listKind   string
	listSearch string
)

var logListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the journal timeline, grouped by day",
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

		var kind journal.Kind
		if listKind != "" && listKind != "all" {
			if kind, err = journal.ParseKind(listKind); err != nil {
				return err
			}
		}

		snap, opts, dash, err := loadDashboard(db, pet)
		if err != nil {
			return err
		}
		logs := journal.FilterLogs(snap.Logs, kind, listSearch)
		if len(logs) == 0 {
			if len(snap.Logs) == 0 {
				fmt.Println("No logs yet. Add one with: gutcheck log add food <name>")
			} else {
				fmt.Println("No logs match your filters.")
			}
			return nil
		}

		for _, day := range journal.GroupByDay(logs, opts.Location) {
			fmt.Printf("\n%s\n", day.Label())
			for _, r := range day.Logs {
				fmt.Printf("  %s  %-7s %s  (%s)\n", r.Timestamp.In(opts.Location).Format("15:04"), r.Kind, r.Summary(), r.ID)
				if analysis.IsBadStool(r) {
					printTriggers(dash.Triggers[r.ID], "      ")
				}
			}
		}
		return nil
	},
}

func init() {
	logListCmd.Flags().StringVarP(&listKind, "kind", "k", "", "Only show food, stool, symptom or note logs")
	logListCmd.Flags().StringVarP(&listSearch, "search", "s", "", "Search food names, symptoms, notes, or \"type N\"")
}

var (
	editAt       string
	editName     string
	editQuantity string
	editScav     bool
	editSafe     bool
	editCode     int
	editText     string
)

var logEditCmd = &cobra.Command{
	Use:   "edit [id]",
	Short: "Change fields of an existing entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		r, err := db.GetLog(args[0])
		if err != nil {
			return err
		}
		if r == nil {
			return fmt.Errorf("log %s not found", args[0])
		}
		opts, err := analysisOptions()
		if err != nil {
			return err
		}

		flags := cmd.Flags()
		if flags.Changed("at") {
			if r.Timestamp, err = parseAt(editAt, r.Timestamp, opts.Location); err != nil {
				return err
			}
		}
		switch r.Kind {
		case journal.KindFood:
			if flags.Changed("name") {
				r.Food.Name = editName
			}
			if flags.Changed("quantity") {
				r.Food.Quantity = editQuantity
			}
			if flags.Changed("scavenged") {
				r.Food.IsScavenged = editScav
			}
			if flags.Changed("safe") {
				r.Food.IsSafe = editSafe
			}
		case journal.KindStool:
			if flags.Changed("code") {
				r.Stool.QualityCode = editCode
			}
		case journal.KindSymptom:
			if flags.Changed("text") {
				r.Symptom.Descriptions = journal.SplitList(editText)
			}
		case journal.KindNote:
			if flags.Changed("text") {
				r.Note.Text = editText
			}
		}

		if err := db.UpdateLog(*r); err != nil {
			return err
		}
		fmt.Printf("Updated %s: %s\n", r.ID, r.Summary())
		return nil
	},
}

func init() {
	f := logEditCmd.Flags()
	f.StringVar(&editAt, "at", "", "New time (date, time, or both)")
	f.StringVar(&editName, "name", "", "Food name")
	f.StringVarP(&editQuantity, "quantity", "q", "", "Food quantity")
	f.BoolVar(&editScav, "scavenged", false, "Food was scavenged")
	f.BoolVar(&editSafe, "safe", false, "Food is a known safe food")
	f.IntVar(&editCode, "code", 3, "Stool quality code 1-5")
	f.StringVar(&editText, "text", "", "Note text, or comma separated symptoms")
}

var logDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete an entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		r, err := db.GetLog(args[0])
		if err != nil {
			return err
		}
		if r == nil {
			return fmt.Errorf("log %s not found", args[0])
		}
		if err := db.DeleteLog(r.ID); err != nil {
			return err
		}
		fmt.Printf("Deleted %s: %s\n", r.ID, r.Summary())
		return nil
	},
}

var logFoodsCmd = &cobra.Command{
	Use:   "foods [term]",
	Short: "Suggest previously logged food names",
	Args:  cobra.ExactArgs(1),
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
		logs, err := db.ListLogs(pet.ID)
		if err != nil {
			return err
		}
		names := journal.SuggestFoodNames(logs, args[0])
		if len(names) == 0 {
			fmt.Println("No matching foods.")
			return nil
		}
		for _, name := range names {
			flags, _ := journal.LastFlagsFor(logs, name)
			var tags []string
			if flags.IsScavenged {
				tags = append(tags, "scavenged")
			}
			if flags.IsSafe {
				tags = append(tags, "safe")
			}
			if len(tags) > 0 {
				fmt.Printf("  %s [%s]\n", name, strings.Join(tags, ", "))
			} else {
				fmt.Printf("  %s\n", name)
			}
		}
		return nil
	},
}

func init() {
	logCmd.AddCommand(logAddCmd)
	logCmd.AddCommand(logListCmd)
	logCmd.AddCommand(logEditCmd)
	logCmd.AddCommand(logDeleteCmd)
	logCmd.AddCommand(logFoodsCmd)
}

// parseAt reads a user supplied time in loc. A bare clock time keeps ref's
// date and a bare date keeps ref's clock time. Empty means ref.
func parseAt(s string, ref time.Time, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ref, nil
	}
	ref = ref.In(loc)
	for _, layout := range []string{"2006-01-02 15:04", "2006-01-02T15:04", time.RFC3339} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	if t, err := time.ParseInLocation("2006-01-02", s, loc); err == nil {
		return time.Date(t.Year(), t.Month(), t.Day(), ref.Hour(), ref.Minute(), 0, 0, loc), nil
	}
	if t, err := time.ParseInLocation("15:04", s, loc); err == nil {
		return time.Date(ref.Year(), ref.Month(), ref.Day(), t.Hour(), t.Minute(), 0, 0, loc), nil
	}
	return time.Time{}, fmt.Errorf("cannot parse time %q; use \"2006-01-02 15:04\", a date, or a time", s)
}

// printTriggers lists the candidate causes of a bad stool.
func printTriggers(t analysis.TriggerResult, indent string) {
	ranked := t.Ranked()
	if len(ranked) == 0 {
		fmt.Printf("%sNo suspect foods in the previous 24 hours.\n", indent)
		return
	}
	fmt.Printf("%sPossible triggers:\n", indent)
	for _, c := range ranked {
		if c.Band == analysis.BandHighRisk {
			fmt.Printf("%s  - %s [%s, scavenged]\n", indent, c.Food.Food.Name, c.Band)
			continue
		}
		fmt.Printf("%s  - %s [%s, score %.2f]\n", indent, c.Food.Food.Name, c.Band, c.SuspectScore)
	}
}
