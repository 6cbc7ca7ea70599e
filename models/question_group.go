package models

// QuestionGroup is the mid-level grouping inside a section (one big theme or
// activity with its questions).
type QuestionGroup struct {
	ID        uint   `gorm:"primarykey" json:"id"`
	VersionID uint   `gorm:"not null;index" json:"version_id"`
	SectionID uint   `gorm:"not null;index" json:"section_id"`
	Title     string `gorm:"not null" json:"title"`
	SortOrder int    `gorm:"not null;default:1" json:"sort_order"`
	IsActive  bool   `gorm:"not null;default:true" json:"is_active"`
}

// TableName specifies the table name for QuestionGroup model
func (QuestionGroup) TableName() string {
	return "question_groups"
}
