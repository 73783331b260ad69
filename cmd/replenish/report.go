package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/fba-replenish/internal/cache"
	"github.com/andresuchdata/fba-replenish/internal/config"
	"github.com/andresuchdata/fba-replenish/internal/domain"
	"github.com/andresuchdata/fba-replenish/internal/export"
	"github.com/andresuchdata/fba-replenish/internal/pipeline/replenishment"
	"github.com/andresuchdata/fba-replenish/internal/repository"
	"github.com/andresuchdata/fba-replenish/internal/repository/postgres"
	"github.com/andresuchdata/fba-replenish/internal/source"
)

func runValidate(c *cli.Context) error {
	e, err := newEnv(c)
	if err != nil {
		return err
	}
	gate := e.load(c)
	printStatuses(c, gate.Statuses())
	if !gate.Ready() {
		return cli.Exit("sources not ready", 1)
	}
	return nil
}

func runReport(c *cli.Context) error {
	e, err := newEnv(c)
	if err != nil {
		return err
	}

	views, err := parseViews(c.StringSlice("view"))
	if err != nil {
		return err
	}

	gate := e.load(c)
	inputs, err := gate.Snapshot()
	if err != nil {
		printStatuses(c, gate.Statuses())
		return cli.Exit(err.Error(), 1)
	}

	rs := replenishment.NewPipeline(e.pipeline).Run(inputs)
	printSummary(c, rs.Summary)

	outDir := c.String("out-dir")
	if outDir == "" {
		outDir = e.cfg.App.DataDir
	}
	prefix := c.String("upload-prefix")
	if prefix != "" && e.objects == nil {
		return fmt.Errorf("--upload-prefix needs S3_ENDPOINT and credentials")
	}

	for _, v := range views {
		path, err := export.WriteFile(outDir, rs, v)
		if errors.Is(err, export.ErrNoRows) {
			log.Warn().Str("view", string(v)).Msg(err.Error())
			continue
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "wrote %s\n", path)

		if prefix == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed reading %s: %w", path, err)
		}
		key := resolveObjectKey(prefix, filepath.Base(path))
		if err := e.objects.UploadObject(c.Context, key, data, "text/csv"); err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "uploaded %s\n", key)
	}
	return nil
}

func runMappingImport(c *cli.Context) error {
	e, err := newEnv(c)
	if err != nil {
		return err
	}
	db := dbFrom(c)
	if db == nil {
		return fmt.Errorf("--db-url is required")
	}

	out := e.loader.Load(c.Context, source.KindMapping, c.String("from"))
	if !out.Ok() {
		return fmt.Errorf("mapping %s: %w", c.String("from"), out.Err)
	}

	cols := e.pipeline.Columns
	mappings := repository.MappingsFromTable(out.Table, cols.MappingSeller, cols.MappingWarehouse)
	table := c.String("table")
	if err := postgres.NewMappingRepository(db).ReplaceMappings(c.Context, table, mappings); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "imported %d mappings into %s\n", len(mappings), table)
	return nil
}

func parseViews(labels []string) ([]domain.View, error) {
	views := make([]domain.View, 0, len(labels))
	seen := make(map[domain.View]bool)
	for _, raw := range labels {
		for _, label := range strings.Split(raw, ",") {
			if strings.TrimSpace(label) == "" {
				continue
			}
			v, ok := domain.ParseView(label)
			if !ok {
				return nil, fmt.Errorf("unknown view %q", label)
			}
			if !seen[v] {
				seen[v] = true
				views = append(views, v)
			}
		}
	}
	if len(views) == 0 {
		return nil, fmt.Errorf("no views selected")
	}
	return views, nil
}

func printSummary(c *cli.Context, s domain.Summary) {
	w := c.App.Writer
	fmt.Fprintf(w, "records: %d  send: %d lines / %d units  recall: %d lines / %d units\n",
		s.Records, s.SendLines, s.SendUnits, s.RecallLines, s.RecallUnits)
	if s.EmptySnapshot {
		fmt.Fprintln(w, "inventory snapshot: none (no dated rows)")
	} else if s.SnapshotDate != nil {
		fmt.Fprintf(w, "inventory snapshot: %s\n", s.SnapshotDate.Format("02-01-2006"))
	}
	for src, n := range s.Warnings {
		fmt.Fprintf(w, "warning: %d %s fields coerced to zero or skipped\n", n, src)
	}
}

// resolveObjectKey joins an upload prefix and a file name, leaving names that
// already carry the prefix alone.
func resolveObjectKey(prefix, name string) string {
	if prefix == "" {
		return strings.TrimPrefix(name, "/")
	}

	prefixTrimmed := strings.Trim(strings.TrimSpace(prefix), "/")
	nameTrimmed := strings.TrimPrefix(strings.TrimSpace(name), "/")

	if strings.HasPrefix(nameTrimmed, prefixTrimmed+"/") {
		return nameTrimmed
	}
	return fmt.Sprintf("%s/%s", prefixTrimmed, nameTrimmed)
}

func runCacheClear(c *cli.Context) error {
	cfg := config.Load()
	rc, err := cache.NewReportCache(cfg.Cache)
	if err != nil {
		return err
	}
	if err := rc.InvalidateAll(c.Context); err != nil {
		return err
	}
	if !cfg.Cache.Enabled {
		fmt.Fprintln(c.App.Writer, "report cache disabled; nothing to clear")
		return nil
	}
	fmt.Fprintln(c.App.Writer, "report cache cleared")
	return nil
}
