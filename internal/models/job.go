package models

import (
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SerialJob is one claim round for a physical unit.
// Every round of the same unit across replacements shares IdentityKey.
type SerialJob struct {
	ID          uint   `gorm:"primaryKey" json:"-"`
	RowKey      string `gorm:"size:36;uniqueIndex;not null" json:"row_key"`
	IdentityKey string `gorm:"size:36;index;not null" json:"identity_key"`

	SerialNumber string `gorm:"size:255;not null" json:"serial_number"`
	// SerialKey is the folded serial; its unique index is the authoritative duplicate guard
	SerialKey     string  `gorm:"size:255;uniqueIndex;not null" json:"-"`
	ReplaceSerial *string `gorm:"size:255" json:"replacement_of_serial,omitempty"`
	ReplaceKey    *string `gorm:"size:255;index" json:"-"`
	RoundNumber   int     `gorm:"not null;default:1;index" json:"round_number"`

	JobNo          *string `gorm:"size:100;index" json:"job_no,omitempty"`
	ProductCode    *string `gorm:"size:100;index" json:"product_code,omitempty"`
	ProductName    *string `json:"product_name,omitempty"`
	BrandName      *string `gorm:"size:255" json:"brand,omitempty"`
	Supplier       *string `gorm:"size:255" json:"supplier,omitempty"`
	Condition      *string `gorm:"type:text" json:"condition_notes,omitempty"`
	Remark         *string `gorm:"type:text" json:"remarks,omitempty"`
	ReplaceCode    *string `gorm:"size:100" json:"replace_code,omitempty"`
	ReplaceProduct *string `json:"replace_product,omitempty"`

	ReceivedDate *time.Time `gorm:"index" json:"received_date,omitempty"`
	DateReceipt  *time.Time `json:"receipt_date,omitempty"`

	CreatedBy string    `gorm:"size:100" json:"created_by"`
	UpdatedBy string    `gorm:"size:100" json:"updated_by,omitempty"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for SerialJob model
func (SerialJob) TableName() string {
	return "serial_jobs"
}

// BeforeSave keeps the folded lookup keys in step with the visible serials
func (j *SerialJob) BeforeSave(tx *gorm.DB) error {
	j.SyncKeys()
	return nil
}

// SyncKeys recomputes SerialKey and ReplaceKey
func (j *SerialJob) SyncKeys() {
	j.SerialKey = FoldSerial(j.SerialNumber)
	if j.ReplaceSerial != nil && strings.TrimSpace(*j.ReplaceSerial) != "" {
		key := FoldSerial(*j.ReplaceSerial)
		j.ReplaceKey = &key
	} else {
		j.ReplaceSerial = nil
		j.ReplaceKey = nil
	}
}

// FoldSerial normalizes a serial number for comparison
func FoldSerial(serial string) string {
	return strings.ToLower(strings.TrimSpace(serial))
}

// JobAudit records an update or delete of a serial job
type JobAudit struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	RowKey    string         `gorm:"size:36;index;not null" json:"row_key"`
	Action    string         `gorm:"size:20;not null" json:"action"` // update | delete
	Actor     string         `gorm:"size:100" json:"actor"`
	Changes   datatypes.JSON `json:"changes"`
	CreatedAt time.Time      `json:"created_at"`
}

// TableName specifies the table name for JobAudit model
func (JobAudit) TableName() string {
	return "serial_job_audits"
}
