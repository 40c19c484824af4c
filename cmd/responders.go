package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/telecare/oncall/config"
	coredirectory "github.com/telecare/oncall/core/directory"
	"github.com/telecare/oncall/core/model"
	infradirectory "github.com/telecare/oncall/infra/directory"
)

var respondersCmd = &cobra.Command{
	Use:   "responders",
	Short: "Responder directory commands",
}

var respondersLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List registered responders",
	RunE:  runRespondersLs,
}

var (
	addID       string
	addName     string
	addLanguage string
	addAddress  string
)

var respondersAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register or update a responder",
	RunE:  runRespondersAdd,
}

func init() {
	respondersAddCmd.Flags().StringVar(&addID, "id", "", "responder id")
	respondersAddCmd.Flags().StringVar(&addName, "name", "", "display name")
	respondersAddCmd.Flags().StringVar(&addLanguage, "language", "", "consultation language")
	respondersAddCmd.Flags().StringVar(&addAddress, "address", "", "push delivery token")
	respondersCmd.AddCommand(respondersLsCmd)
	respondersCmd.AddCommand(respondersAddCmd)
	rootCmd.AddCommand(respondersCmd)
}

func openDirectory() (*infradirectory.SQLiteDirectory, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.Directory.Backend != "sqlite" {
		return nil, fmt.Errorf("responder management requires the sqlite directory backend")
	}
	return infradirectory.NewSQLiteDirectory(cfg.Directory.Path)
}

func runRespondersLs(cmd *cobra.Command, args []string) error {
	dir, err := openDirectory()
	if err != nil {
		return err
	}
	defer func() { _ = dir.Close() }()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	entries, err := dir.List(ctx)
	if err != nil {
		return err
	}
	for _, e := range entries {
		state := "available"
		if !e.Available {
			state = "unavailable"
		}
		if e.Address == "" {
			state += ", unreachable"
		}
		fmt.Printf("%s\t%s\t%s\t(%s)\n", e.ID, e.Name, e.Language, state)
	}
	return nil
}

func runRespondersAdd(cmd *cobra.Command, args []string) error {
	if addID == "" || addName == "" || addLanguage == "" {
		return fmt.Errorf("--id, --name and --language are required")
	}
	dir, err := openDirectory()
	if err != nil {
		return err
	}
	defer func() { _ = dir.Close() }()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	entry := coredirectory.Entry{
		Responder: model.Responder{
			ID:       addID,
			Name:     addName,
			Language: addLanguage,
			Address:  addAddress,
		},
		Available: true,
	}
	if err := dir.Upsert(ctx, entry); err != nil {
		return err
	}
	fmt.Printf("registered %s\n", addID)
	return nil
}
