package jobs

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/xelth-com/eckclaims/internal/database"
	"github.com/xelth-com/eckclaims/internal/models"
	"gorm.io/gorm"
)

// Filter is a sparse set of job criteria; zero values impose no constraint
// and every set value is ANDed.
type Filter struct {
	// case-insensitive substring matches
	SerialNumber  string
	Supplier      string
	ProductCode   string
	BrandName     string
	JobNo         string
	ProductName   string
	ReplaceSerial string
	RowKey        string

	// exact matches
	IdentityKey string
	RoundNumber *int
	DateReceipt *time.Time

	// ReceivedDate is an exact day and only applies when no range bound is set
	ReceivedDate *time.Time
	ReceivedFrom *time.Time
	ReceivedTo   *time.Time

	OrderByRound bool
	Limit        int
}

// query parameter names, the second entry is the legacy report form name
var stringParams = []struct {
	names []string
	field func(*Filter) *string
}{
	{[]string{"serial_number", "serial_no"}, func(f *Filter) *string { return &f.SerialNumber }},
	{[]string{"supplier", "supplier_name"}, func(f *Filter) *string { return &f.Supplier }},
	{[]string{"product_code"}, func(f *Filter) *string { return &f.ProductCode }},
	{[]string{"brand", "brand_name"}, func(f *Filter) *string { return &f.BrandName }},
	{[]string{"job_no"}, func(f *Filter) *string { return &f.JobNo }},
	{[]string{"product_name"}, func(f *Filter) *string { return &f.ProductName }},
	{[]string{"replacement_of_serial", "replace_serial"}, func(f *Filter) *string { return &f.ReplaceSerial }},
	{[]string{"row_key", "rowuid"}, func(f *Filter) *string { return &f.RowKey }},
	{[]string{"identity_key", "u_id"}, func(f *Filter) *string { return &f.IdentityKey }},
}

func firstParam(v url.Values, names ...string) string {
	for _, name := range names {
		if value := strings.TrimSpace(v.Get(name)); value != "" {
			return value
		}
	}
	return ""
}

// ParseFilter builds a Filter from report query parameters
func ParseFilter(v url.Values) (Filter, error) {
	var f Filter
	for _, p := range stringParams {
		*p.field(&f) = firstParam(v, p.names...)
	}

	if round := firstParam(v, "round_number", "count_round", "round"); round != "" {
		n, err := strconv.Atoi(round)
		if err != nil {
			return Filter{}, fmt.Errorf("%w: round must be a number", ErrInvalidInput)
		}
		f.RoundNumber = &n
	}

	var err error
	if f.DateReceipt, err = parseOptionalDay(firstParam(v, "receipt_date", "date_receipt")); err != nil {
		return Filter{}, err
	}
	if f.ReceivedFrom, err = parseOptionalDay(v.Get("received_date_from")); err != nil {
		return Filter{}, err
	}
	if f.ReceivedTo, err = parseOptionalDay(v.Get("received_date_to")); err != nil {
		return Filter{}, err
	}
	if f.ReceivedDate, err = parseOptionalDay(v.Get("received_date")); err != nil {
		return Filter{}, err
	}

	if limit := v.Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			return Filter{}, fmt.Errorf("%w: limit must be a positive number", ErrInvalidInput)
		}
		f.Limit = n
	}
	f.OrderByRound = v.Get("order") == "round"

	return f, nil
}

func (f Filter) hasReceivedRange() bool {
	return f.ReceivedFrom != nil || f.ReceivedTo != nil
}

func (f Filter) substringClauses() []struct{ column, value string } {
	return []struct{ column, value string }{
		{"serial_number", f.SerialNumber},
		{"supplier", f.Supplier},
		{"product_code", f.ProductCode},
		{"brand_name", f.BrandName},
		{"job_no", f.JobNo},
		{"product_name", f.ProductName},
		{"replace_serial", f.ReplaceSerial},
		{"row_key", f.RowKey},
	}
}

// Apply adds the filter's predicates and ordering to a query on serial_jobs
func (f Filter) Apply(db *gorm.DB) *gorm.DB {
	for _, c := range f.substringClauses() {
		if c.value == "" {
			continue
		}
		db = db.Where(fmt.Sprintf("LOWER(%s) LIKE ? ESCAPE '!'", c.column), database.ContainsPattern(c.value))
	}

	if f.IdentityKey != "" {
		db = db.Where("identity_key = ?", f.IdentityKey)
	}
	if f.RoundNumber != nil {
		db = db.Where("round_number = ?", *f.RoundNumber)
	}
	if f.DateReceipt != nil {
		db = db.Where("date_receipt BETWEEN ? AND ?", StartOfDay(*f.DateReceipt), EndOfDay(*f.DateReceipt))
	}

	if f.hasReceivedRange() {
		if f.ReceivedFrom != nil {
			db = db.Where("received_date >= ?", StartOfDay(*f.ReceivedFrom))
		}
		if f.ReceivedTo != nil {
			db = db.Where("received_date <= ?", EndOfDay(*f.ReceivedTo))
		}
	} else if f.ReceivedDate != nil {
		db = db.Where("received_date BETWEEN ? AND ?", StartOfDay(*f.ReceivedDate), EndOfDay(*f.ReceivedDate))
	}

	if f.OrderByRound {
		db = db.Order("round_number ASC").Order("created_at ASC")
	} else {
		db = db.Order("created_at DESC").Order("id DESC")
	}
	if f.Limit > 0 {
		db = db.Limit(f.Limit)
	}
	return db
}

func containsFold(field *string, want string) bool {
	if want == "" {
		return true
	}
	if field == nil {
		return false
	}
	return strings.Contains(strings.ToLower(*field), strings.ToLower(want))
}

func withinDay(t *time.Time, day time.Time) bool {
	return t != nil && !t.Before(StartOfDay(day)) && !t.After(EndOfDay(day))
}

// Match evaluates the filter predicates against one job in memory
func (f Filter) Match(j models.SerialJob) bool {
	serial, rowKey := j.SerialNumber, j.RowKey
	switch {
	case !containsFold(&serial, f.SerialNumber),
		!containsFold(j.Supplier, f.Supplier),
		!containsFold(j.ProductCode, f.ProductCode),
		!containsFold(j.BrandName, f.BrandName),
		!containsFold(j.JobNo, f.JobNo),
		!containsFold(j.ProductName, f.ProductName),
		!containsFold(j.ReplaceSerial, f.ReplaceSerial),
		!containsFold(&rowKey, f.RowKey):
		return false
	}

	if f.IdentityKey != "" && j.IdentityKey != f.IdentityKey {
		return false
	}
	if f.RoundNumber != nil && j.RoundNumber != *f.RoundNumber {
		return false
	}
	if f.DateReceipt != nil && !withinDay(j.DateReceipt, *f.DateReceipt) {
		return false
	}

	if f.hasReceivedRange() {
		if j.ReceivedDate == nil {
			return false
		}
		if f.ReceivedFrom != nil && j.ReceivedDate.Before(StartOfDay(*f.ReceivedFrom)) {
			return false
		}
		if f.ReceivedTo != nil && j.ReceivedDate.After(EndOfDay(*f.ReceivedTo)) {
			return false
		}
	} else if f.ReceivedDate != nil && !withinDay(j.ReceivedDate, *f.ReceivedDate) {
		return false
	}
	return true
}
