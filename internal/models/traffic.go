package models

import "time"

// TrafficRecord is a weekly branch traffic count
type TrafficRecord struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	BU        string    `gorm:"column:bu;size:100" json:"bu"`
	Branch    string    `gorm:"size:255;index" json:"branch"`
	Name      string    `gorm:"size:255" json:"name"`
	Quarter   string    `gorm:"size:20" json:"quarter"`
	Week      string    `gorm:"size:20" json:"week"`
	Traffic   int       `json:"traffic"`
	SerialNo  string    `gorm:"size:255;uniqueIndex;not null" json:"serial_no"`
	CreatedBy string    `gorm:"size:100" json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

func (TrafficRecord) TableName() string { return "branch_traffic" }
