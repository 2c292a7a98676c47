package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/achalasani15/gut-check-app/internal/analysis"
	"github.com/achalasani15/gut-check-app/internal/config"
	"github.com/achalasani15/gut-check-app/internal/database"
	"github.com/achalasani15/gut-check-app/internal/journal"
	"github.com/achalasani15/gut-check-app/internal/logger"
	"github.com/achalasani15/gut-check-app/internal/pipeline"
	"github.com/achalasani15/gut-check-app/internal/server"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
	log        = logger.Discard()
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "gutcheck",
	Short:   "Digestive health journal for your pet",
	Long:    "gutcheck logs what your pet eats and how its stools look, then scores gut health and points at likely trigger foods.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// .env is optional; it only supplies API keys.
		_ = godotenv.Load()

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		level := cfg.Logging.Level
		if verbose {
			level = "debug"
		}
		log = logger.New(level, cfg.Logging.Format)
		log.WithField("config", path).Debug("config loaded")
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(petCmd)
	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(restartCmd)
	rootCmd.AddCommand(demoCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(triggersCmd)
	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(insightsCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(recallsCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(serveCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("gutcheck", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/gutcheck/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to set your timezone, recall feeds, and LLM provider.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show journal and database status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}
		loc, err := cfg.Location()
		if err != nil {
			return err
		}

		fmt.Printf("Today: %s\n", database.GetToday(loc))
		fmt.Printf("Database: %s\n\n", db.Path())

		pet, err := db.GetActivePet()
		if err != nil {
			return err
		}
		if pet == nil {
			fmt.Println("No pet profile yet. Run 'gutcheck pet setup <name>' or 'gutcheck demo'.")
			return nil
		}

		fmt.Printf("Pet: %s\n", pet.Name)
		fmt.Println("\nLogs:")
		fmt.Printf("  Total: %d\n", stats.TotalLogs)
		fmt.Printf("  Food: %d\n", stats.FoodLogs)
		fmt.Printf("  Stool: %d\n", stats.StoolLogs)
		fmt.Printf("  Symptom: %d\n", stats.SymptomLogs)
		fmt.Printf("  Note: %d\n", stats.NoteLogs)
		fmt.Printf("  Journal version: %d\n", stats.JournalVersion)

		_, _, dash, err := loadDashboard(db, pet)
		if err != nil {
			return err
		}
		today := dash.Today()
		fmt.Println("\nGut health:")
		fmt.Printf("  Today's score: %d (%s)\n", today.Score, analysis.ScoreBand(today.Score))
		fmt.Printf("  %d-day average: %d\n", len(dash.Scores), dash.Rounded)

		lastReport, err := db.GetLastReportDate(pet.ID)
		if err != nil {
			return err
		}
		fmt.Println("\nOutput:")
		fmt.Printf("  Reports: %d\n", stats.Reports)
		if lastReport != "" {
			fmt.Printf("  Last report ends: %s\n", lastReport)
		}
		fmt.Printf("  Recall matches: %d\n", stats.RecallNotices)
		return nil
	},
}

// --- run command ---

var dryRun bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the refresh pipeline: recalls -> fetch -> report",
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

		pipe, err := pipeline.New(cfg, db, log)
		if err != nil {
			return err
		}
		ctx, stop := signalContext()
		defer stop()

		var result *pipeline.Result
		if dryRun {
			result = pipe.DryRun(pet, time.Now())
		} else {
			result = pipe.Run(ctx, pet, time.Now())
		}

		fmt.Printf("Period: %s\n", database.FormatPeriodDisplay(result.PeriodID))
		for i, step := range result.Steps {
			fmt.Printf("\nStep %d/%d: %s\n", i+1, len(result.Steps), step.Name)
			if step.Err != nil {
				fmt.Printf("  Error: %v\n", step.Err)
			} else {
				fmt.Printf("  %s\n", step.Summary)
			}
		}

		if result.Failed() {
			return fmt.Errorf("pipeline finished with errors")
		}
		if !dryRun {
			fmt.Println("\nPipeline complete! Run 'gutcheck serve' to view the report.")
		}
		return nil
	},
}

func init() {
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would be done without executing")
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		opts, err := analysisOptions()
		if err != nil {
			return err
		}

		port := cfg.Server.Port
		if cmd.Flags().Changed("port") {
			port = servePort
		}

		ctx, stop := signalContext()
		defer stop()

		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(ctx, db, port, opts, log)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8000, "Port to run server on")
}

func openDB() (*database.DB, error) {
	if err := os.MkdirAll(cfg.GetDataDir(), 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return database.Open(cfg.DBPath(), log)
}

// requirePet returns the active pet or an error telling the user how to
// create one.
func requirePet(db *database.DB) (*journal.Pet, error) {
	pet, err := db.GetActivePet()
	if err != nil {
		return nil, err
	}
	if pet == nil {
		return nil, fmt.Errorf("no pet profile; run 'gutcheck pet setup <name>' or 'gutcheck demo'")
	}
	return pet, nil
}

func analysisOptions() (analysis.Options, error) {
	loc, err := cfg.Location()
	if err != nil {
		return analysis.Options{}, err
	}
	return analysis.Options{WindowDays: cfg.Analysis.WindowDays, Location: loc}, nil
}

// loadDashboard snapshots the pet's journal and computes every derived view.
func loadDashboard(db *database.DB, pet *journal.Pet) (*journal.Snapshot, analysis.Options, *analysis.Dashboard, error) {
	opts, err := analysisOptions()
	if err != nil {
		return nil, opts, nil, err
	}
	snap, err := db.Snapshot(pet.ID)
	if err != nil {
		return nil, opts, nil, fmt.Errorf("loading journal: %w", err)
	}
	return snap, opts, analysis.Build(*snap, time.Now(), opts), nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// confirm asks a yes/no question on stdin unless skip is set.
func confirm(prompt string, skip bool) bool {
	if skip {
		return true
	}
	fmt.Printf("%s [y/N]: ", prompt)
	reader := bufio.NewReader(os.Stdin)
	answer, _ := reader.ReadString('\n')
	answer = strings.TrimSpace(strings.ToLower(answer))
	return answer == "y" || answer == "yes"
}
