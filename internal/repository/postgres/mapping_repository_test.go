package postgres

import (
	"testing"

	"github.com/andresuchdata/fba-replenish/internal/config"
)

func TestQuoteTable(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "sku_mappings", want: `"sku_mappings"`},
		{in: "ops.sku_mappings", want: `"ops"."sku_mappings"`},
		{in: "sku; DROP TABLE x", wantErr: true},
		{in: "1abc", wantErr: true},
		{in: "", wantErr: true},
		{in: "a.b.c", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := quoteTable(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestDSN(t *testing.T) {
	got := DSN(&config.DatabaseConfig{Host: "db", Port: "5432", User: "u", Password: "p", DBName: "replenish", SSLMode: "disable"})
	want := "host=db port=5432 user=u password=p dbname=replenish sslmode=disable"
	if got != want {
		t.Errorf("DSN = %q", got)
	}
}
