// Package export renders result set views as CSV files.
package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/andresuchdata/fba-replenish/internal/domain"
)

// ErrNoRows is returned when the requested view selects no records.
var ErrNoRows = errors.New("No data to export")

// Headers is the fixed column order of every export.
var Headers = []string{
	"Amazon Seller SKU",
	"FC",
	"Current FC Stock",
	"Uniware Stock",
	"30D Sale",
	"DRR",
	"Stock Cover",
	"Decision",
	"Send Qty",
	"Recall Qty",
	"Remarks",
}

const channelHeader = "Channel"

// FileName returns the download name for a view.
func FileName(v domain.View) string {
	return fmt.Sprintf("amazon_%s_export.csv", v)
}

// WriteCSV writes records with the fixed headers. A Channel column follows
// FC when any record is keyed by channel.
func WriteCSV(w io.Writer, records []domain.Record) error {
	if len(records) == 0 {
		return ErrNoRows
	}

	withChannel := false
	for _, r := range records {
		if r.Channel != "" {
			withChannel = true
			break
		}
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header(withChannel)); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range records {
		if err := cw.Write(row(r, withChannel)); err != nil {
			return fmt.Errorf("write row %s/%s: %w", r.SKU, r.FC, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Render filters rs by view and returns the CSV bytes.
func Render(rs domain.ResultSet, v domain.View) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, rs.Filter(v)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile renders the view into dir and returns the written path.
func WriteFile(dir string, rs domain.ResultSet, v domain.View) (string, error) {
	data, err := Render(rs, v)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed creating directory %s: %w", dir, err)
	}
	path := filepath.Join(dir, FileName(v))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed writing %s: %w", path, err)
	}
	return path, nil
}

func header(withChannel bool) []string {
	if !withChannel {
		return Headers
	}
	out := make([]string, 0, len(Headers)+1)
	out = append(out, Headers[:2]...)
	out = append(out, channelHeader)
	return append(out, Headers[2:]...)
}

func row(r domain.Record, withChannel bool) []string {
	out := make([]string, 0, len(Headers)+1)
	out = append(out, r.SKU, r.FC)
	if withChannel {
		out = append(out, r.Channel)
	}
	return append(out,
		quantity(r.FCStock),
		quantity(r.UniwareStock),
		quantity(r.Sale30D),
		decimal.NewFromFloat(r.DRR).StringFixed(2),
		decimal.NewFromFloat(r.StockCover).StringFixed(1),
		string(r.Decision),
		strconv.Itoa(r.SendQty),
		strconv.Itoa(r.RecallQty),
		r.Remarks,
	)
}

// quantity prints whole numbers without a fraction.
func quantity(v float64) string {
	return decimal.NewFromFloat(v).String()
}
