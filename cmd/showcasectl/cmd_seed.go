package main

import (
	"encoding/json"
	"fmt"

	"showcase/api/internal/project"
	"showcase/api/internal/remote"
	"showcase/api/internal/store"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	seedOffline bool
	seedRecords bool
)

var seedCmd = &cobra.Command{
	Use:   "seed [file]",
	Short: "Validate a seed file and show it merged with the live store",
	Long: `Validate a seed file and show it merged with the live store.

Without a file the SEED_PATH (or bundled) seed is checked. --offline skips
the database and only validates the file.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().BoolVar(&seedOffline, "offline", false, "validate without reading the store")
	seedCmd.Flags().BoolVar(&seedRecords, "records", false, "print the merged records")
}

type seedReport struct {
	Collection string           `json:"collection,omitempty"`
	Static     int              `json:"static"`
	Remote     int              `json:"remote"`
	Overridden []string         `json:"overridden"`
	Added      []string         `json:"added"`
	Merged     int              `json:"merged"`
	Records    []project.Record `json:"records,omitempty"`
}

func runSeed(cmd *cobra.Command, args []string) error {
	path := cfg.SeedPath
	if len(args) == 1 {
		path = args[0]
	}
	static, err := project.LoadSeed(path)
	if err != nil {
		return err
	}
	logger.Debug("seed loaded", zap.String("path", path), zap.Int("records", len(static)))

	remoteSnap := project.NewSnapshot()
	collection := ""
	if !seedOffline {
		db, err := store.Open(cmd.Context(), cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		client := remote.NewClient(store.NewPostgresStore(db), nil, logger)
		remoteSnap, err = client.Snapshot(cmd.Context(), cfg.Collection)
		if err != nil {
			return err
		}
		collection = cfg.Collection
		logger.Debug("remote snapshot read", zap.String("collection", collection), zap.Int("records", remoteSnap.Len()))
	}

	report := buildSeedReport(static, remoteSnap)
	report.Collection = collection
	if !seedRecords {
		report.Records = nil
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(report); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

func buildSeedReport(static []project.Record, snap *project.Snapshot) seedReport {
	staticIDs := make(map[string]bool, len(static))
	for _, rec := range static {
		staticIDs[rec.ID()] = true
	}
	report := seedReport{
		Static:     len(static),
		Remote:     snap.Len(),
		Overridden: []string{},
		Added:      []string{},
	}
	for _, rec := range snap.Records() {
		if staticIDs[rec.ID()] {
			report.Overridden = append(report.Overridden, rec.ID())
		} else {
			report.Added = append(report.Added, rec.ID())
		}
	}
	report.Records = project.Merge(static, snap)
	report.Merged = len(report.Records)
	return report
}
