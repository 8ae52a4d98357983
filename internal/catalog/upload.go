package catalog

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xelth-com/eckclaims/internal/models"
	"github.com/xuri/excelize/v2"
)

// Headers is the exact header row an upload must carry
var Headers = []string{"oid", "product_code", "brand_name", "product_name"}

var (
	// ErrUnsupportedFile rejects uploads that are neither CSV nor XLSX
	ErrUnsupportedFile = errors.New("unsupported file type")
	// ErrInvalidHeaders rejects uploads whose header row differs from Headers
	ErrInvalidHeaders = errors.New("invalid file headers")
	// ErrInvalidRow rejects a data row that cannot be converted
	ErrInvalidRow = errors.New("invalid row")
)

// ParseUpload reads a catalog file chosen by its extension
func ParseUpload(filename string, r io.Reader) ([]models.ProductMaster, error) {
	records, err := ReadRows(filename, r)
	if err != nil {
		return nil, err
	}
	return toProducts(records)
}

// ReadRows returns the raw cells of a CSV file or of the first XLSX sheet
func ReadRows(filename string, r io.Reader) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return readCSV(r)
	case ".xlsx":
		return readXLSX(r)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, filename)
}

func readCSV(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) > 0 && len(records[0]) > 0 {
		records[0][0] = strings.TrimPrefix(records[0][0], "\ufeff")
	}
	return records, nil
}

func readXLSX(r io.Reader) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("read xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read xlsx sheet %s: %w", sheets[0], err)
	}
	return rows, nil
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func toProducts(records [][]string) ([]models.ProductMaster, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: expected %s, received nothing", ErrInvalidHeaders, strings.Join(Headers, ", "))
	}
	header := records[0]
	if len(header) != len(Headers) {
		return nil, headerError(header)
	}
	for i, h := range Headers {
		if header[i] != h {
			return nil, headerError(header)
		}
	}

	products := make([]models.ProductMaster, 0, len(records)-1)
	for i, row := range records[1:] {
		if blankRow(row) {
			continue
		}
		cell := func(n int) string {
			if n < len(row) {
				return strings.TrimSpace(row[n])
			}
			return ""
		}
		line := i + 2
		oid, err := strconv.ParseInt(cell(0), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w %d: oid %q is not a number", ErrInvalidRow, line, cell(0))
		}
		code := cell(1)
		if code == "" {
			return nil, fmt.Errorf("%w %d: product_code is empty", ErrInvalidRow, line)
		}
		products = append(products, models.ProductMaster{
			OID:         oid,
			ProductCode: code,
			BrandName:   cell(2),
			ProductName: cell(3),
		})
	}
	return products, nil
}

func headerError(got []string) error {
	return fmt.Errorf("%w. Expected: %s. Received: %s",
		ErrInvalidHeaders, strings.Join(Headers, ", "), strings.Join(got, ", "))
}
