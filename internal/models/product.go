package models

// ProductMaster is one catalog row; the table is replaced wholesale on upload
type ProductMaster struct {
	OID         int64  `gorm:"column:oid;primaryKey;autoIncrement:false" json:"oid"`
	ProductCode string `gorm:"size:100;uniqueIndex;not null" json:"product_code"`
	BrandName   string `gorm:"size:255" json:"brand_name"`
	ProductName string `json:"product_name"`
}

func (ProductMaster) TableName() string { return "product_masters" }
