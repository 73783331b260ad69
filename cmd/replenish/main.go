package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/fba-replenish/internal/config"
	"github.com/andresuchdata/fba-replenish/internal/drive"
	"github.com/andresuchdata/fba-replenish/internal/pipeline/replenishment"
	"github.com/andresuchdata/fba-replenish/internal/repository"
	"github.com/andresuchdata/fba-replenish/internal/repository/postgres"
	"github.com/andresuchdata/fba-replenish/internal/source"
	"github.com/andresuchdata/fba-replenish/internal/storage"
	"github.com/andresuchdata/fba-replenish/pkg/logger"
)

type dbKey struct{}

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "db-url",
		Usage:   "Postgres URL serving db:// mapping locations",
		EnvVars: []string{"DATABASE_URL"},
	}
}

func sourceFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "sale", Usage: "Sales report location (path, s3://, drive://)", Required: true},
		&cli.StringFlag{Name: "fba", Usage: "FBA inventory ledger location", Required: true},
		&cli.StringFlag{Name: "uniware", Usage: "Uniware stock extract location", Required: true},
		&cli.StringFlag{Name: "mapping", Usage: "SKU mapping location (path, s3://, drive://, db://table)", EnvVars: []string{"SKU_MAPPING_LOCATION"}},
		newDBURLFlag(),
	}
}

func initDB(c *cli.Context) error {
	if c.String("db-url") == "" {
		return nil
	}
	db, err := postgres.Connect("pgx", c.String("db-url"))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	c.Context = context.WithValue(c.Context, dbKey{}, db)
	return nil
}

func closeDB(c *cli.Context) error {
	if db, ok := c.Context.Value(dbKey{}).(*postgres.DB); ok && db != nil {
		return db.Close()
	}
	return nil
}

func dbFrom(c *cli.Context) *postgres.DB {
	db, _ := c.Context.Value(dbKey{}).(*postgres.DB)
	return db
}

func main() {
	_ = godotenv.Load(".env")

	if err := newApp().Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("replenish failed")
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "replenish",
		Usage: "Reconcile Amazon FBA stock against warehouse stock and plan shipments",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "log-level", Value: "info", EnvVars: []string{"LOG_LEVEL"}},
		},
		Before: func(c *cli.Context) error {
			logger.SetLevel(c.String("log-level"))
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "report",
				Usage: "Generate the replenishment report and write exports",
				Flags: append(sourceFlags(),
					&cli.StringFlag{Name: "out-dir", Usage: "Directory for CSV exports", EnvVars: []string{"APP_DATA_DIR"}},
					&cli.StringSliceFlag{Name: "view", Usage: "Views to export: shipment, recall, full", Value: cli.NewStringSlice("shipment", "recall", "full")},
					&cli.StringFlag{Name: "upload-prefix", Usage: "Also upload exports to object storage under this prefix"},
				),
				Before: initDB,
				After:  closeDB,
				Action: runReport,
			},
			{
				Name:   "validate",
				Usage:  "Load and validate the sources without computing",
				Flags:  sourceFlags(),
				Before: initDB,
				After:  closeDB,
				Action: runValidate,
			},
			{
				Name:  "mapping",
				Usage: "Manage the SKU mapping table",
				Subcommands: []*cli.Command{
					{
						Name:  "import",
						Usage: "Replace the database mapping table with a mapping file",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "from", Usage: "Mapping file location", Required: true},
							&cli.StringFlag{Name: "table", Usage: "Target table", EnvVars: []string{"SKU_MAPPING_TABLE"}, Value: "sku_mappings"},
							&cli.StringFlag{Name: "db-url", Usage: "Postgres URL", EnvVars: []string{"DATABASE_URL"}, Required: true},
						},
						Before: initDB,
						After:  closeDB,
						Action: runMappingImport,
					},
				},
			},
			{
				Name:  "cache",
				Usage: "Manage the report cache",
				Subcommands: []*cli.Command{
					{
						Name:   "clear",
						Usage:  "Drop every cached report",
						Action: runCacheClear,
					},
				},
			},
		},
	}
}

// env bundles what every command builds from configuration and flags.
type env struct {
	cfg      *config.Config
	pipeline replenishment.Config
	router   *source.Router
	loader   *source.Loader
	objects  storage.ObjectStorage
}

func newEnv(c *cli.Context) (*env, error) {
	cfg := config.Load()
	pcfg := replenishment.ConfigFromApp(cfg.Replenishment, cfg.Schema)
	router := source.NewRouter()
	e := &env{cfg: cfg, pipeline: pcfg, router: router}

	if cfg.Storage.Endpoint != "" {
		client, err := storage.NewS3Client(cfg.Storage)
		if err != nil {
			return nil, err
		}
		e.objects = client
		router.Handle("s3", storage.NewFetcher(client))
	}
	if cfg.Drive.CredentialsJSON != "" {
		svc, err := drive.NewService(c.Context, cfg.Drive.CredentialsJSON)
		if err != nil {
			return nil, err
		}
		router.Handle("drive", drive.NewFetcher(svc))
	}
	if db := dbFrom(c); db != nil {
		repo := postgres.NewMappingRepository(db)
		router.HandleTable("db", repository.NewMappingFetcher(repo, pcfg.Columns.MappingSeller, pcfg.Columns.MappingWarehouse))
	}

	e.loader = source.NewLoader(router, source.SchemaFromConfig(cfg.Schema, pcfg.KeyByChannel))
	return e, nil
}

// locations reads the source flags, falling back to the configured mapping.
func (e *env) locations(c *cli.Context) map[source.Kind]string {
	mapping := c.String("mapping")
	if mapping == "" {
		mapping = e.cfg.Replenishment.MappingLocation
	}
	if mapping == "db://" {
		mapping += e.cfg.Replenishment.MappingTable
	}
	return map[source.Kind]string{
		source.KindSale:    c.String("sale"),
		source.KindFBA:     c.String("fba"),
		source.KindUniware: c.String("uniware"),
		source.KindMapping: mapping,
	}
}

// load fetches every source into a fresh gate.
func (e *env) load(c *cli.Context) *source.Gate {
	gate := source.NewGate()
	for _, out := range e.loader.LoadAll(c.Context, e.locations(c)) {
		gate.Accept(out)
	}
	return gate
}

func printStatuses(c *cli.Context, statuses []source.SourceStatus) {
	w := c.App.Writer
	for _, st := range statuses {
		fmt.Fprintf(w, "%-8s %-8s %s\n", st.Kind, strings.ToUpper(string(st.Status)), st.Message)
	}
}
