package model

type FundingSource struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Source      string `gorm:"type:varchar(255);not null" json:"source"`
	GrantNumber string `gorm:"type:varchar(255);not null" json:"grant_number"`
}

func (FundingSource) TableName() string { return "funding_sources" }

// Display is the form label of a funding source.
func (f FundingSource) Display() string {
	return f.Source + " (" + f.GrantNumber + ")"
}

type ScienceField struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"type:varchar(50);not null;uniqueIndex" json:"name"`
}

func (ScienceField) TableName() string { return "science_fields" }
