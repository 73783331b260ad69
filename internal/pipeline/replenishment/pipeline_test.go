package replenishment

import (
	"math"
	"math/rand"
	"reflect"
	"strings"
	"testing"

	"github.com/andresuchdata/fba-replenish/internal/config"
	"github.com/andresuchdata/fba-replenish/internal/domain"
	"github.com/andresuchdata/fba-replenish/internal/source"
	"github.com/andresuchdata/fba-replenish/internal/table"
)

const (
	saleHeader    = "Transaction Type,Sku,Quantity,Warehouse Id,Fulfillment Channel"
	fbaHeader     = "Date,MSKU,Disposition,Ending Warehouse Balance,Location"
	uniwareHeader = "Sku Code,Total Inventory"
	mappingHeader = "Amazon Seller SKU,Uniware SKU"
)

func csv(header string, rows ...string) *table.Table {
	return table.Parse(header + "\n" + strings.Join(rows, "\n"))
}

func inputs(sale, fba, uniware, mapping []string) source.Inputs {
	return source.Inputs{
		Sale:    csv(saleHeader, sale...),
		FBA:     csv(fbaHeader, fba...),
		Uniware: csv(uniwareHeader, uniware...),
		Mapping: csv(mappingHeader, mapping...),
	}
}

func findRecord(t *testing.T, recs []domain.Record, sku, fc string) domain.Record {
	t.Helper()
	for _, r := range recs {
		if r.SKU == sku && r.FC == fc {
			return r
		}
	}
	t.Fatalf("no record for %s/%s in %+v", sku, fc, recs)
	return domain.Record{}
}

func TestRun_OverstockRecall(t *testing.T) {
	in := inputs(
		[]string{"Shipment,SKU1,100,FC1,AFN", "Shipment,SKU1,150,FC1,AFN", "FreeReplacement,SKU1,50,FC1,AFN"},
		[]string{"01-03-2024,SKU1,SELLABLE,9000,FC1"},
		[]string{"UW1,50"},
		[]string{"SKU1,UW1"},
	)
	rs := NewPipeline(DefaultConfig()).Run(in)

	r := findRecord(t, rs.Records, "SKU1", "FC1")
	if r.Sale30D != 300 || r.DRR != 10 || r.StockCover != 900 || r.FCStock != 9000 || r.UniwareStock != 50 {
		t.Fatalf("unexpected metrics: %+v", r)
	}
	if r.Decision != domain.DecisionDoNotSend || r.RecallQty != 8550 || r.SendQty != 0 {
		t.Errorf("decision = %s recall=%d send=%d", r.Decision, r.RecallQty, r.SendQty)
	}
	if r.Remarks != domain.RemarkOverstock {
		t.Errorf("remarks = %q", r.Remarks)
	}
}

func TestRun_LowCoverSend(t *testing.T) {
	in := inputs(
		[]string{"Shipment,SKU1,300,FC1,AFN"},
		[]string{"01-03-2024,SKU1,SELLABLE,100,FC1"},
		[]string{"UW1,60"},
		[]string{"SKU1,UW1"},
	)
	rs := NewPipeline(DefaultConfig()).Run(in)

	r := findRecord(t, rs.Records, "SKU1", "FC1")
	if r.DRR != 10 || r.StockCover != 10 || r.ReturnPct != 0 {
		t.Fatalf("unexpected metrics: %+v", r)
	}
	if r.Decision != domain.DecisionSend || r.SendQty != 350 || r.RecallQty != 0 {
		t.Errorf("decision = %s send=%d recall=%d", r.Decision, r.SendQty, r.RecallQty)
	}
	if r.Remarks != domain.RemarkLowCover {
		t.Errorf("remarks = %q", r.Remarks)
	}
	if rs.Summary.SendLines != 1 || rs.Summary.SendUnits != 350 {
		t.Errorf("summary = %+v", rs.Summary)
	}
}

func TestRun_ReturnsOnlyKeyDropped(t *testing.T) {
	in := inputs(
		[]string{"Refund,SKU9,4,FC1,AFN", "Shipment,SKU1,30,FC1,AFN"},
		nil,
		nil,
		nil,
	)
	rs := NewPipeline(DefaultConfig()).Run(in)
	for _, r := range rs.Records {
		if r.SKU == "SKU9" {
			t.Fatalf("returns-only key should be dropped: %+v", r)
		}
	}
	if len(rs.Records) != 1 {
		t.Fatalf("expected only SKU1, got %+v", rs.Records)
	}
}

func TestRun_ZeroActivityDropped(t *testing.T) {
	in := inputs(
		[]string{"Shipment,SKU1,0,FC1,AFN", "Cancel,SKU2,5,FC1,AFN"},
		[]string{"01-03-2024,SKU1,SELLABLE,0,FC1", "01-03-2024,SKU3,SELLABLE,abc,FC1"},
		nil,
		nil,
	)
	rs := NewPipeline(DefaultConfig()).Run(in)
	if len(rs.Records) != 0 {
		t.Fatalf("expected no records, got %+v", rs.Records)
	}
	for _, r := range rs.Records {
		if r.Sale30D == 0 && r.FCStock == 0 {
			t.Fatalf("zero activity record produced: %+v", r)
		}
	}
}

func TestRun_NoDemandHasZeroCover(t *testing.T) {
	in := inputs(
		nil,
		[]string{"01-03-2024,SKU1,SELLABLE,100,FC1"},
		[]string{"UW1,100"},
		[]string{"SKU1,UW1"},
	)
	rs := NewPipeline(DefaultConfig()).Run(in)
	r := findRecord(t, rs.Records, "SKU1", "FC1")
	if r.DRR != 0 || r.StockCover != 0 {
		t.Fatalf("drr=%v cover=%v", r.DRR, r.StockCover)
	}
	if math.IsNaN(r.StockCover) || math.IsInf(r.StockCover, 0) {
		t.Fatalf("cover must be finite")
	}
	if r.Decision != domain.DecisionSend || r.SendQty != 0 {
		t.Errorf("decision = %s send=%d", r.Decision, r.SendQty)
	}
}

func TestRun_CoverBoundary(t *testing.T) {
	in := inputs(
		[]string{"Shipment,SKU1,300,FC1,AFN"},
		[]string{"01-03-2024,SKU1,SELLABLE,450,FC1"},
		[]string{"UW1,500"},
		[]string{"SKU1,UW1"},
	)
	rs := NewPipeline(DefaultConfig()).Run(in)
	r := findRecord(t, rs.Records, "SKU1", "FC1")
	if r.StockCover != 45 {
		t.Fatalf("cover = %v", r.StockCover)
	}
	if r.Decision != domain.DecisionDoNotSend || r.RecallQty != 0 || r.Remarks != domain.RemarkUniwareConstraint {
		t.Errorf("boundary record = %+v", r)
	}
}

func TestRun_UnroundedComparison(t *testing.T) {
	// cover 44.96 displays as 45.0 but still sends
	in := inputs(
		[]string{"Shipment,SKU1,100,FC1,AFN"},
		[]string{"01-03-2024,SKU1,SELLABLE,149.87,FC1"},
		[]string{"UW1,500"},
		[]string{"SKU1,UW1"},
	)
	r := findRecord(t, NewPipeline(DefaultConfig()).Run(in).Records, "SKU1", "FC1")
	if r.StockCover != 45 || r.DRR != 3.33 {
		t.Fatalf("rounded cover=%v drr=%v", r.StockCover, r.DRR)
	}
	if r.Decision != domain.DecisionSend || r.SendQty != 1 {
		t.Errorf("decision = %s send=%d", r.Decision, r.SendQty)
	}
}

func TestRun_HighReturns(t *testing.T) {
	in := inputs(
		[]string{"Shipment,SKU1,60,FC1,AFN", "Refund,SKU1,40,FC1,AFN", "Shipment,SKU2,70,FC1,AFN", "Refund - Partial,SKU2,30,FC1,AFN"},
		[]string{"01-03-2024,SKU1,SELLABLE,50,FC1", "01-03-2024,SKU2,SELLABLE,10,FC1"},
		[]string{"UW1,500", "UW2,500"},
		[]string{"SKU1,UW1", "SKU2,UW2"},
	)
	rs := NewPipeline(DefaultConfig()).Run(in)

	r1 := findRecord(t, rs.Records, "SKU1", "FC1")
	if r1.ReturnPct != 40 || r1.Decision != domain.DecisionDoNotSend || r1.Remarks != domain.RemarkOverstock {
		t.Errorf("SKU1 = %+v", r1)
	}
	if r1.RecallQty != 0 {
		t.Errorf("recall should clamp to zero, got %d", r1.RecallQty)
	}

	r2 := findRecord(t, rs.Records, "SKU2", "FC1")
	if r2.ReturnPct != 30 || r2.Decision != domain.DecisionSend {
		t.Errorf("a 30%% return share still sends: %+v", r2)
	}
}

func TestRun_MappingFallback(t *testing.T) {
	in := inputs(
		[]string{"Shipment,SKU1,300,FC1,AFN", "Shipment,SKU2,300,FC1,AFN"},
		[]string{"01-03-2024,SKU1,SELLABLE,100,FC1", "01-03-2024,SKU2,SELLABLE,100,FC1"},
		[]string{"UW2-OTHER,100"},
		[]string{"SKU2,UW2"},
	)
	rs := NewPipeline(DefaultConfig()).Run(in)
	for _, sku := range []string{"SKU1", "SKU2"} {
		r := findRecord(t, rs.Records, sku, "FC1")
		if r.UniwareStock != 0 {
			t.Errorf("%s uniware = %v", sku, r.UniwareStock)
		}
		if r.Decision != domain.DecisionDoNotSend || r.Remarks != domain.RemarkUniwareConstraint {
			t.Errorf("%s = %+v", sku, r)
		}
	}
}

func TestRun_LastWriteWins(t *testing.T) {
	in := inputs(
		[]string{"Shipment,SKU1,300,FC1,AFN"},
		[]string{"01-03-2024,SKU1,SELLABLE,100,FC1"},
		[]string{"UW1,10", "UW1,60"},
		[]string{"SKU1,UW-OLD", "SKU1,UW1"},
	)
	r := findRecord(t, NewPipeline(DefaultConfig()).Run(in).Records, "SKU1", "FC1")
	if r.UniwareStock != 60 {
		t.Fatalf("uniware = %v, want last row", r.UniwareStock)
	}
}

func TestRun_TransactionTypes(t *testing.T) {
	in := inputs(
		[]string{
			"Shipment,SKU1,10,FC1,AFN",
			"FreeReplacement,SKU1,5,FC1,AFN",
			"Cancel,SKU1,100,FC1,AFN",
			"Cancellation,SKU1,100,FC1,AFN",
			"Refund,SKU1,3,FC1,AFN",
			"shipment,SKU1,100,FC1,AFN",
			"Adjustment,SKU1,100,FC1,AFN",
		},
		nil, nil, nil,
	)
	r := findRecord(t, NewPipeline(DefaultConfig()).Run(in).Records, "SKU1", "FC1")
	if r.Sale30D != 15 || r.Returns != 3 {
		t.Fatalf("sale=%v returns=%v", r.Sale30D, r.Returns)
	}
}

func TestRun_Commutativity(t *testing.T) {
	sale := []string{
		"Shipment,SKU1,10,FC1,AFN", "Shipment,SKU1,20,FC2,AFN", "Refund,SKU1,2,FC1,AFN",
		"Shipment,SKU2,7,FC1,AFN", "FreeReplacement,SKU2,1,FC1,AFN", "Cancel,SKU3,4,FC1,AFN",
		"Shipment,SKU3,90,FC2,AFN", "Refund,SKU3,60,FC2,AFN",
	}
	fba := []string{
		"01-03-2024,SKU1,SELLABLE,100,FC1", "01-03-2024,SKU1,SELLABLE,5,FC1", "28-02-2024,SKU1,SELLABLE,900,FC1",
		"01-03-2024,SKU2,SELLABLE,3,FC1", "01-03-2024,SKU2,DEFECTIVE,30,FC1", "01-03-2024,SKU4,SELLABLE,70,FC3",
	}
	uw := []string{"UW1,100", "UW2,20", "UW3,80"}
	mapping := []string{"SKU1,UW1", "SKU2,UW2", "SKU3,UW3"}

	p := NewPipeline(DefaultConfig())
	want := p.Run(inputs(sale, fba, uw, mapping))

	rng := rand.New(rand.NewSource(7))
	shuffle := func(rows []string) []string {
		out := append([]string(nil), rows...)
		rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
		return out
	}
	for i := 0; i < 20; i++ {
		got := p.Run(inputs(shuffle(sale), shuffle(fba), uw, mapping))
		if !reflect.DeepEqual(got.Records, want.Records) {
			t.Fatalf("permutation %d changed records:\n got %+v\nwant %+v", i, got.Records, want.Records)
		}
	}
}

func TestSelectSnapshot(t *testing.T) {
	fba := csv(fbaHeader,
		"10-01-2024,SKU1,SELLABLE,999,FC1",
		"15-02-2024,SKU1,SELLABLE,100,FC1",
		"15-02-2024,SKU1,CUSTOMER_DAMAGED,50,FC1",
		"15-02-2024,SKU1,SELLABLE,20,FC1",
		"15-02-2024,SKU2,sellable,7,FC1",
		"01-01-2024,SKU2,SELLABLE,500,FC1",
	)
	n := NewNormalizer(DefaultConfig())
	snap := n.SelectSnapshot(fba)
	if snap.Empty {
		t.Fatalf("snapshot should not be empty")
	}
	if got := snap.Date.Format("2006-01-02"); got != "2024-02-15" {
		t.Fatalf("date = %s", got)
	}
	if got := snap.Stock[domain.Key{SKU: "SKU1", FC: "FC1"}]; got != 120 {
		t.Errorf("SKU1 stock = %v, want 120", got)
	}
	if _, ok := snap.Stock[domain.Key{SKU: "SKU2", FC: "FC1"}]; ok {
		t.Errorf("lowercase disposition and older rows must not count")
	}
}

func TestSelectSnapshot_YearBoundaryAndPadding(t *testing.T) {
	fba := csv(fbaHeader,
		"31-12-2023,SKU1,SELLABLE,1,FC1",
		"2-1-2024,SKU1,SELLABLE,2,FC1",
	)
	snap := NewNormalizer(DefaultConfig()).SelectSnapshot(fba)
	if got := snap.Date.Format("2006-01-02"); got != "2024-01-02" {
		t.Fatalf("date = %s", got)
	}
	if snap.Stock[domain.Key{SKU: "SKU1", FC: "FC1"}] != 2 {
		t.Errorf("unexpected stock %+v", snap.Stock)
	}
}

func TestSelectSnapshot_Empty(t *testing.T) {
	n := NewNormalizer(DefaultConfig())
	for _, tbl := range []*table.Table{
		csv(fbaHeader),
		csv(fbaHeader, "2024-03-01,SKU1,SELLABLE,5,FC1", "not a date,SKU1,SELLABLE,5,FC1"),
		nil,
	} {
		snap := n.SelectSnapshot(tbl)
		if !snap.Empty || len(snap.Stock) != 0 {
			t.Errorf("expected empty snapshot, got %+v", snap)
		}
	}

	rs := NewPipeline(DefaultConfig()).Run(inputs([]string{"Shipment,SKU1,30,FC1,AFN"}, nil, nil, nil))
	if !rs.Summary.EmptySnapshot || rs.Summary.SnapshotDate != nil {
		t.Errorf("summary = %+v", rs.Summary)
	}
	if len(rs.Records) != 1 || rs.Records[0].FCStock != 0 {
		t.Errorf("records = %+v", rs.Records)
	}
}

func TestRun_Warnings(t *testing.T) {
	in := inputs(
		[]string{"Shipment,SKU1,abc,FC1,AFN", "Shipment,SKU1,1200,FC1,AFN"},
		[]string{"01-03-2024,SKU1,SELLABLE,n/a,FC1"},
		[]string{"UW1,lots"},
		[]string{"SKU1,UW1"},
	)
	rs := NewPipeline(DefaultConfig()).Run(in)
	w := rs.Summary.Warnings
	if w["sale"] != 1 || w["fba"] != 1 || w["uniware"] != 1 {
		t.Fatalf("warnings = %v", w)
	}
}

func TestRun_EmptyFCLabel(t *testing.T) {
	in := inputs([]string{"Shipment,SKU1,30,,MFN"}, nil, nil, nil)

	rs := NewPipeline(DefaultConfig()).Run(in)
	findRecord(t, rs.Records, "SKU1", "")

	cfg := DefaultConfig()
	cfg.EmptyFCLabel = "Seller"
	rs = NewPipeline(cfg).Run(in)
	findRecord(t, rs.Records, "SKU1", "Seller")
}

func TestRun_KeyByChannel(t *testing.T) {
	in := inputs(
		[]string{"Shipment,SKU1,300,FC1,AFN", "Shipment,SKU1,60,FC1,MFN"},
		[]string{"01-03-2024,SKU1,SELLABLE,100,FC1"},
		[]string{"UW1,100"},
		[]string{"SKU1,UW1"},
	)
	cfg := DefaultConfig()
	cfg.KeyByChannel = true
	rs := NewPipeline(cfg).Run(in)
	if len(rs.Records) != 2 {
		t.Fatalf("expected 2 channel records, got %+v", rs.Records)
	}
	afn, mfn := rs.Records[0], rs.Records[1]
	if afn.Channel != "AFN" || afn.FCStock != 100 || afn.Sale30D != 300 {
		t.Errorf("afn = %+v", afn)
	}
	if mfn.Channel != "MFN" || mfn.FCStock != 0 || mfn.Sale30D != 60 {
		t.Errorf("mfn = %+v", mfn)
	}

	merged := NewPipeline(DefaultConfig()).Run(in)
	if len(merged.Records) != 1 || merged.Records[0].Sale30D != 360 {
		t.Errorf("without channel keys = %+v", merged.Records)
	}
}

func TestRun_TunableThresholds(t *testing.T) {
	in := inputs(
		[]string{"Shipment,SKU1,300,FC1,AFN"},
		[]string{"01-03-2024,SKU1,SELLABLE,500,FC1"},
		[]string{"UW1,20"},
		[]string{"SKU1,UW1"},
	)
	cfg := DefaultConfig()
	cfg.TargetCoverDays = 60
	cfg.MinWarehouseStock = 10
	r := NewPipeline(cfg).Run(in).Records[0]
	if r.Decision != domain.DecisionSend || r.SendQty != 100 {
		t.Fatalf("record = %+v", r)
	}
}

func TestFingerprint(t *testing.T) {
	p := NewPipeline(DefaultConfig())
	a := inputs([]string{"Shipment,SKU1,300,FC1,AFN"}, nil, nil, nil)
	b := inputs([]string{"Shipment,SKU1,301,FC1,AFN"}, nil, nil, nil)
	if p.Fingerprint(a) != p.Fingerprint(inputs([]string{"Shipment,SKU1,300,FC1,AFN"}, nil, nil, nil)) {
		t.Fatalf("fingerprint must be stable")
	}
	if p.Fingerprint(a) == p.Fingerprint(b) {
		t.Fatalf("fingerprint must change with content")
	}
	cfg := DefaultConfig()
	cfg.TargetCoverDays = 30
	if NewPipeline(cfg).Fingerprint(a) == p.Fingerprint(a) {
		t.Fatalf("fingerprint must change with thresholds")
	}
}

func TestColumnsFromSchema(t *testing.T) {
	c := ColumnsFromSchema(config.SchemaConfig{
		Sale:    []string{"type", "seller-sku", "qty", "fc"},
		Mapping: []string{"Amazon Seller SKU"},
	})
	if c.SaleSKU != "seller-sku" || c.SaleFC != "fc" || c.SaleChannel != "Fulfillment Channel" {
		t.Fatalf("columns = %+v", c)
	}
	if c.SaleType != "type" || c.SaleQty != "qty" || c.MappingWarehouse != "Uniware SKU" {
		t.Fatalf("short list keeps defaults: %+v", c)
	}
}

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"", 0, true},
		{" 42 ", 42, true},
		{"1,234", 1234, true},
		{"12,345.5", 12345.5, true},
		{"-1,000", -1000, true},
		{"12,5", 0, false},
		{"1,5", 0, false},
		{"1,23,456", 0, false},
		{"abc", 0, false},
		{"NaN", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseQuantity(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("parseQuantity(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestRun_DecimalCommaInSemicolonFile(t *testing.T) {
	in := source.Inputs{
		Sale: table.Parse("Transaction Type;Sku;Quantity;Warehouse Id\n" +
			"Shipment;SKU1;12,5;FC1\nShipment;SKU1;1,234;FC1"),
		FBA: table.Parse("Date;MSKU;Disposition;Ending Warehouse Balance;Location\n" +
			"01-03-2024;SKU1;SELLABLE;1,5;FC1"),
		Uniware: csv(uniwareHeader, "UW1,100"),
		Mapping: csv(mappingHeader, "SKU1,UW1"),
	}
	rs := NewPipeline(DefaultConfig()).Run(in)

	rec := findRecord(t, rs.Records, "SKU1", "FC1")
	if rec.Sale30D != 1234 || rec.FCStock != 0 {
		t.Errorf("record = %+v", rec)
	}
	if w := rs.Summary.Warnings; w["sale"] != 1 || w["fba"] != 1 {
		t.Errorf("warnings = %v", w)
	}
}

func TestRun_BlankUniwareCodeIgnored(t *testing.T) {
	in := inputs(
		[]string{"Shipment,SKU1,300,FC1,AFN"},
		[]string{"01-03-2024,SKU1,SELLABLE,100,FC1"},
		[]string{",500"},
		[]string{"SKU1,"},
	)
	rs := NewPipeline(DefaultConfig()).Run(in)

	rec := findRecord(t, rs.Records, "SKU1", "FC1")
	if rec.UniwareStock != 0 || rec.Decision != domain.DecisionDoNotSend {
		t.Errorf("record = %+v", rec)
	}
}
