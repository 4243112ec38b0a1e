package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"storepilot/internal/mirror"
	"storepilot/internal/model"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the mirror database",
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := mirror.Migrate(db); err != nil {
			return fmt.Errorf("migrating: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "List migrations and whether they are applied",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		rows, err := mirror.Status(db)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "MIGRATION\tAPPLIED\tAT")
		for _, r := range rows {
			at := "-"
			if r.AppliedAt != nil {
				at = r.AppliedAt.UTC().Format(time.RFC3339)
			}
			fmt.Fprintf(tw, "%s\t%v\t%s\n", r.ID, r.Applied, at)
		}
		return tw.Flush()
	},
}

var (
	accessToken string
	storeLang   string
	seedFile    string
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Manage installed stores",
}

var storePutCmd = &cobra.Command{
	Use:   "put",
	Short: "Register or update a store's access token",
	RunE: func(cmd *cobra.Command, args []string) error {
		if storeID == "" || accessToken == "" {
			return fmt.Errorf("--store and --token are required")
		}
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		repo, err := mirror.NewRepository(db)
		if err != nil {
			return err
		}
		if err := repo.PutStore(cmd.Context(), model.Store{StoreID: storeID, AccessToken: accessToken, Language: storeLang}); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "store %s saved\n", storeID)
		return nil
	},
}

var storeSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load mirror rows for a store from a JSON export",
	Long: `Reads a JSON array of mirror rows and upserts them under --store,
keyed by external_id. Rows keep their own fields; store_id is overwritten.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if storeID == "" {
			return fmt.Errorf("--store is required")
		}
		products, err := readProducts(cmd.InOrStdin(), seedFile)
		if err != nil {
			return err
		}
		for i := range products {
			products[i].StoreID = storeID
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		repo, err := mirror.NewRepository(db)
		if err != nil {
			return err
		}
		if err := repo.PutProducts(cmd.Context(), products); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d products seeded for store %s\n", len(products), storeID)
		return nil
	},
}

func readProducts(stdin io.Reader, path string) ([]model.Product, error) {
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening products file: %w", err)
		}
		defer f.Close()
		r = f
	}

	var products []model.Product
	if err := json.NewDecoder(r).Decode(&products); err != nil {
		return nil, fmt.Errorf("parsing products: %w", err)
	}
	for _, p := range products {
		if p.ExternalID <= 0 {
			return nil, fmt.Errorf("product %q: external_id is required", p.Name)
		}
	}
	return products, nil
}

func init() {
	dbCmd.AddCommand(migrateCmd, statusCmd)
	storePutCmd.Flags().StringVar(&accessToken, "token", "", "Nuvemshop access token")
	storePutCmd.Flags().StringVar(&storeLang, "language", "pt", "language key for localized fields")
	storeSeedCmd.Flags().StringVarP(&seedFile, "file", "f", "-", "products JSON file (- for stdin)")
	storeCmd.AddCommand(storePutCmd, storeSeedCmd)
	rootCmd.AddCommand(dbCmd, storeCmd)
}

func openDB() (*sqlx.DB, error) {
	if dbURL == "" {
		return nil, fmt.Errorf("--db-url required")
	}
	db, err := mirror.Open(dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}
