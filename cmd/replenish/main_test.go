package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/fba-replenish/internal/domain"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "replenish-cli")
	if err != nil {
		panic(err)
	}
	os.Setenv("APP_UPLOAD_DIR", filepath.Join(dir, "uploads"))
	os.Setenv("APP_DATA_DIR", filepath.Join(dir, "output"))
	os.Setenv("S3_ENDPOINT", "")
	os.Setenv("GOOGLE_DRIVE_CREDENTIALS_JSON", "")
	os.Setenv("CACHE_ENABLED", "false")
	code := m.Run()
	os.RemoveAll(dir)
	os.Exit(code)
}

func writeSources(t *testing.T, dir string, fbaBody string) map[string]string {
	t.Helper()
	files := map[string]string{
		"sale":    "Transaction Type,Sku,Quantity,Warehouse Id\nShipment,SKU1,300,FC1\nShipment,SKU2,300,FC1\n",
		"fba":     fbaBody,
		"uniware": "Sku Code,Total Inventory\nUW1,60\nUW2,50\n",
		"mapping": "Amazon Seller SKU,Uniware SKU\nSKU1,UW1\nSKU2,UW2\n",
	}
	paths := make(map[string]string, len(files))
	for name, body := range files {
		p := filepath.Join(dir, name+".csv")
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
		paths[name] = p
	}
	return paths
}

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &out
	app.ExitErrHandler = func(*cli.Context, error) {}
	err := app.Run(append([]string{"replenish"}, args...))
	return out.String(), err
}

func TestReportCommand(t *testing.T) {
	dir := t.TempDir()
	paths := writeSources(t, dir, "Date,MSKU,Disposition,Ending Warehouse Balance,Location\n01-03-2024,SKU1,SELLABLE,100,FC1\n01-03-2024,SKU2,SELLABLE,9000,FC1\n")
	outDir := filepath.Join(dir, "out")

	out, err := runApp(t, "report",
		"--sale", paths["sale"], "--fba", paths["fba"], "--uniware", paths["uniware"], "--mapping", paths["mapping"],
		"--out-dir", outDir)
	if err != nil {
		t.Fatalf("report: %v\n%s", err, out)
	}
	if !strings.Contains(out, "records: 2") || !strings.Contains(out, "inventory snapshot: 01-03-2024") {
		t.Errorf("output = %s", out)
	}

	for _, name := range []string{"amazon_shipment_export.csv", "amazon_recall_export.csv", "amazon_full_export.csv"} {
		data, err := os.ReadFile(filepath.Join(outDir, name))
		if err != nil {
			t.Fatalf("missing %s: %v", name, err)
		}
		if !strings.HasPrefix(string(data), "Amazon Seller SKU,FC,") {
			t.Errorf("%s = %s", name, data)
		}
	}
}

func TestReportCommand_SkipsEmptyView(t *testing.T) {
	dir := t.TempDir()
	paths := writeSources(t, dir, "Date,MSKU,Disposition,Ending Warehouse Balance,Location\n01-03-2024,SKU1,SELLABLE,100,FC1\n")
	outDir := filepath.Join(dir, "out")

	out, err := runApp(t, "report",
		"--sale", paths["sale"], "--fba", paths["fba"], "--uniware", paths["uniware"], "--mapping", paths["mapping"],
		"--out-dir", outDir, "--view", "recall,shipment")
	if err != nil {
		t.Fatalf("report: %v\n%s", err, out)
	}
	if _, err := os.Stat(filepath.Join(outDir, "amazon_recall_export.csv")); !os.IsNotExist(err) {
		t.Errorf("empty recall view should not be written, stat err = %v", err)
	}
	if _, err := os.Stat(filepath.Join(outDir, "amazon_shipment_export.csv")); err != nil {
		t.Errorf("shipment export missing: %v", err)
	}
}

func TestValidateCommand(t *testing.T) {
	dir := t.TempDir()
	paths := writeSources(t, dir, "Date,MSKU,Disposition,Location\n01-03-2024,SKU1,SELLABLE,FC1\n")

	out, err := runApp(t, "validate",
		"--sale", paths["sale"], "--fba", paths["fba"], "--uniware", paths["uniware"], "--mapping", paths["mapping"])
	if err == nil {
		t.Fatal("validate should fail with a rejected source")
	}
	if !strings.Contains(out, "missing column: Ending Warehouse Balance") {
		t.Errorf("output = %s", out)
	}
	if !strings.Contains(out, "VALID") {
		t.Errorf("other sources should stay valid: %s", out)
	}
}

func TestParseViews(t *testing.T) {
	views, err := parseViews([]string{"shipment,recall", "send", "all"})
	if err != nil {
		t.Fatalf("parseViews: %v", err)
	}
	want := []domain.View{domain.ViewShipment, domain.ViewRecall, domain.ViewFull}
	if len(views) != len(want) {
		t.Fatalf("views = %v", views)
	}
	for i := range want {
		if views[i] != want[i] {
			t.Errorf("views[%d] = %s", i, views[i])
		}
	}
	if _, err := parseViews([]string{"weekly"}); err == nil {
		t.Error("expected error for unknown view")
	}
	if _, err := parseViews([]string{" , "}); err == nil {
		t.Error("expected error for empty selection")
	}
}

func TestResolveObjectKey(t *testing.T) {
	tests := []struct{ prefix, name, want string }{
		{"", "amazon_full_export.csv", "amazon_full_export.csv"},
		{"exports/", "amazon_full_export.csv", "exports/amazon_full_export.csv"},
		{"/exports", "/exports/amazon_full_export.csv", "exports/amazon_full_export.csv"},
	}
	for _, tt := range tests {
		if got := resolveObjectKey(tt.prefix, tt.name); got != tt.want {
			t.Errorf("resolveObjectKey(%q, %q) = %q, want %q", tt.prefix, tt.name, got, tt.want)
		}
	}
}

func TestCacheClearCommand(t *testing.T) {
	out, err := runApp(t, "cache", "clear")
	if err != nil {
		t.Fatalf("cache clear: %v\n%s", err, out)
	}
	if !strings.Contains(out, "nothing to clear") {
		t.Errorf("output = %s", out)
	}
}
