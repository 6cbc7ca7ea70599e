package models

// Section is the top-level grouping of a survey version, ordered by SortOrder.
// Deactivating a section hides every group and question below it.
type Section struct {
	ID        uint   `gorm:"primarykey" json:"id"`
	VersionID uint   `gorm:"not null;index" json:"version_id"`
	Name      string `gorm:"not null" json:"name"`
	SortOrder int    `gorm:"not null;default:1" json:"sort_order"`
	IsActive  bool   `gorm:"not null;default:true" json:"is_active"`
}

// TableName specifies the table name for Section model
func (Section) TableName() string {
	return "sections"
}
