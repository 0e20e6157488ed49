package orders

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Processed-orders export column headers, exact spelling.
const (
	colOrderID            = "Order Id"
	colReferenceNumber    = "Reference number"
	colExternalReference  = "External reference"
	colCountryCode        = "Shipping country code"
	colReceivedDate       = "Received date"
	colProcessedDate      = "Processed date"
	colShippingCost       = "Shipping cost"
	colOrderTax           = "Order tax"
	colOrderTotal         = "Order total"
	colCurrency           = "Currency"
	colSource             = "Source"
	colSubSource          = "SubSource"
	colShippingService    = "Shipping service name"
	colTrackingNumber     = "Tracking number"
	colSKU                = "SKU"
	colItemTitle          = "Item title"
	colQuantity           = "Quantity"
	colUnitCost           = "Unit cost"
	colLineDiscount       = "Line discount"
	colTaxRate            = "Tax rate"
	colLineTax            = "Line tax"
	colLineTotalExTax     = "Line total excluding tax"
	colLineTotal          = "Line total"
	colCompositeParentSKU = "Composite parent SKU"
)

// MergedReference marks roll-up rows already accounted for elsewhere.
const MergedReference = "MERGED"

const timestampLayout = "2006-01-02 15:04:05"

// ProcessedOrderRow is one parsed line of a processed-orders export. Money is
// pence.
type ProcessedOrderRow struct {
	OrderID             string
	ReferenceNumber     string
	ExternalReference   string
	CountryCode         string
	ReceivedAt          time.Time
	ProcessedAt         time.Time
	ShippingCost        int64
	OrderTax            int64
	OrderTotal          int64
	Currency            string
	Source              string
	SubSource           string
	ShippingServiceName string
	TrackingNumber      string
	SKU                 string
	ItemTitle           string
	Quantity            int
	UnitCost            int64
	LineDiscount        int64
	TaxRate             decimal.Decimal
	LineTax             int64
	LineTotalExTax      int64
	LineTotal           int64
	CompositeParentSKU  string
}

var requiredColumns = []string{
	colOrderID, colReferenceNumber, colExternalReference, colCountryCode,
	colReceivedDate, colProcessedDate, colShippingCost, colOrderTax,
	colOrderTotal, colCurrency, colSource, colSubSource, colShippingService,
	colTrackingNumber, colSKU, colItemTitle, colQuantity, colUnitCost,
	colLineDiscount, colTaxRate, colLineTax, colLineTotalExTax, colLineTotal,
	colCompositeParentSKU,
}

// ParseProcessedOrders reads a processed-orders export keyed by its header
// row. Timestamps are parsed in loc.
func ParseProcessedOrders(r io.Reader, loc *time.Location) ([]ProcessedOrderRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}
	for _, name := range requiredColumns {
		if _, ok := index[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}

	var rows []ProcessedOrderRow
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		field := func(name string) string {
			i := index[name]
			if i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		row := ProcessedOrderRow{
			OrderID:             field(colOrderID),
			ReferenceNumber:     field(colReferenceNumber),
			ExternalReference:   field(colExternalReference),
			CountryCode:         field(colCountryCode),
			Currency:            field(colCurrency),
			Source:              field(colSource),
			SubSource:           field(colSubSource),
			ShippingServiceName: field(colShippingService),
			TrackingNumber:      field(colTrackingNumber),
			SKU:                 field(colSKU),
			ItemTitle:           field(colItemTitle),
			CompositeParentSKU:  field(colCompositeParentSKU),
		}
		if row.ReceivedAt, err = parseTimestamp(field(colReceivedDate), loc); err != nil {
			return nil, fmt.Errorf("order %s: %w", row.OrderID, err)
		}
		if row.ProcessedAt, err = parseTimestamp(field(colProcessedDate), loc); err != nil {
			return nil, fmt.Errorf("order %s: %w", row.OrderID, err)
		}
		if row.ShippingCost, err = parsePence(field(colShippingCost)); err != nil {
			return nil, fmt.Errorf("order %s shipping cost: %w", row.OrderID, err)
		}
		if row.OrderTax, err = parsePence(field(colOrderTax)); err != nil {
			return nil, fmt.Errorf("order %s tax: %w", row.OrderID, err)
		}
		if row.OrderTotal, err = parsePence(field(colOrderTotal)); err != nil {
			return nil, fmt.Errorf("order %s total: %w", row.OrderID, err)
		}
		if row.Quantity, err = strconv.Atoi(zeroWhenEmpty(field(colQuantity))); err != nil {
			return nil, fmt.Errorf("order %s quantity: %w", row.OrderID, err)
		}
		if row.UnitCost, err = parsePence(field(colUnitCost)); err != nil {
			return nil, fmt.Errorf("order %s unit cost: %w", row.OrderID, err)
		}
		if row.LineDiscount, err = parsePence(field(colLineDiscount)); err != nil {
			return nil, fmt.Errorf("order %s line discount: %w", row.OrderID, err)
		}
		if row.TaxRate, err = decimal.NewFromString(zeroWhenEmpty(field(colTaxRate))); err != nil {
			return nil, fmt.Errorf("order %s tax rate: %w", row.OrderID, err)
		}
		if row.LineTax, err = parsePence(field(colLineTax)); err != nil {
			return nil, fmt.Errorf("order %s line tax: %w", row.OrderID, err)
		}
		if row.LineTotalExTax, err = parsePence(field(colLineTotalExTax)); err != nil {
			return nil, fmt.Errorf("order %s line total ex tax: %w", row.OrderID, err)
		}
		if row.LineTotal, err = parsePence(field(colLineTotal)); err != nil {
			return nil, fmt.Errorf("order %s line total: %w", row.OrderID, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseTimestamp(s string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(timestampLayout, s, loc)
}

// parsePence converts a decimal money string to integer pence.
func parsePence(s string) (int64, error) {
	d, err := decimal.NewFromString(zeroWhenEmpty(s))
	if err != nil {
		return 0, err
	}
	return d.Mul(decimal.NewFromInt(100)).Round(0).IntPart(), nil
}

func zeroWhenEmpty(s string) string {
	if s == "" {
		return "0"
	}
	return s
}

// Export filenames end with a 14-digit UTC timestamp; the filename date is
// authoritative.
var fileTimestampPattern = regexp.MustCompile(`_(\d{14})(?:\.[A-Za-z]+)?$`)

// NewestProcessedOrdersFile finds the file in dir with the latest filename
// timestamp. Returns an empty path when no candidate exists.
func NewestProcessedOrdersFile(dir string) (string, time.Time, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", time.Time{}, err
	}

	var newest string
	var newestTime time.Time
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := fileTimestampPattern.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		t, err := time.ParseInLocation("20060102150405", m[1], time.UTC)
		if err != nil {
			continue
		}
		if newest == "" || t.After(newestTime) {
			newest = filepath.Join(dir, entry.Name())
			newestTime = t
		}
	}
	return newest, newestTime, nil
}
