package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/achalasani15/gut-check-app/internal/journal"
)

// --- pet command ---

var petCmd = &cobra.Command{
	Use:   "pet",
	Short: "Manage the pet profile",
}

var petSetupCmd = &cobra.Command{
	Use:   "setup [name]",
	Short: "Create the pet profile (defaults to pet.name from config)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		existing, err := db.GetActivePet()
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("journal already belongs to %s; use 'gutcheck pet rename' or 'gutcheck pet delete'", existing.Name)
		}

		name := cfg.Pet.Name
		if len(args) > 0 {
			name = args[0]
		}
		pet, err := db.CreatePet(name)
		if err != nil {
			return err
		}
		fmt.Printf("Created profile for %s\n", pet.Name)
		fmt.Println("Start logging with: gutcheck log add food <name>")
		return nil
	},
}

var petShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the pet profile",
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
		counts, err := db.CountLogsByKind(pet.ID)
		if err != nil {
			return err
		}

		fmt.Printf("Name:    %s\n", pet.Name)
		fmt.Printf("ID:      %s\n", pet.ID)
		fmt.Printf("Created: %s\n", pet.CreatedAt.Local().Format(time.RFC1123))
		fmt.Println("Logs:")
		for _, k := range journal.Kinds {
			fmt.Printf("  %-8s %d\n", k, counts[k])
		}
		return nil
	},
}

var petRenameCmd = &cobra.Command{
	Use:   "rename [name]",
	Short: "Rename the pet",
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
		if err := db.RenamePet(pet.ID, args[0]); err != nil {
			return err
		}
		fmt.Printf("Renamed %s to %s\n", pet.Name, strings.TrimSpace(args[0]))
		return nil
	},
}

var petDeleteYes bool

var petDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete the pet profile and its whole journal",
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
		if !confirm(fmt.Sprintf("Delete %s and all logs and reports?", pet.Name), petDeleteYes) {
			return fmt.Errorf("aborted")
		}
		if err := db.DeletePet(pet.ID); err != nil {
			return err
		}
		fmt.Printf("Deleted %s\n", pet.Name)
		return nil
	},
}

func init() {
	petDeleteCmd.Flags().BoolVarP(&petDeleteYes, "yes", "y", false, "Do not ask for confirmation")

	petCmd.AddCommand(petSetupCmd)
	petCmd.AddCommand(petShowCmd)
	petCmd.AddCommand(petRenameCmd)
	petCmd.AddCommand(petDeleteCmd)
}

// --- restart command ---

var restartYes bool

var restartCmd = &cobra.Command{
	Use:   "restart",
	Short: "Delete every log but keep the pet profile",
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
		if !confirm(fmt.Sprintf("Start %s's journal over? All logs will be deleted.", pet.Name), restartYes) {
			return fmt.Errorf("aborted")
		}
		n, err := db.DeleteAllLogs(pet.ID)
		if err != nil {
			return err
		}
		fmt.Printf("Deleted %d logs. %s's journal is empty.\n", n, pet.Name)
		return nil
	},
}

func init() {
	restartCmd.Flags().BoolVarP(&restartYes, "yes", "y", false, "Do not ask for confirmation")
}

// --- demo command ---

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Create a sample pet with four days of logs",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		existing, err := db.GetActivePet()
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("journal already belongs to %s; run 'gutcheck pet delete' first", existing.Name)
		}
		opts, err := analysisOptions()
		if err != nil {
			return err
		}

		pet, err := db.CreatePet(journal.DemoPetName)
		if err != nil {
			return err
		}
		logs := journal.DemoLogs(time.Now(), opts.Location)
		for _, r := range logs {
			if _, err := db.InsertLog(pet.ID, r); err != nil {
				return fmt.Errorf("seeding demo journal: %w", err)
			}
		}
		fmt.Printf("Created %s with %d logs.\n", pet.Name, len(logs))
		fmt.Println("Try: gutcheck log list, gutcheck insights, gutcheck serve")
		return nil
	},
}
