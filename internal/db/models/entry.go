package models

import "time"

// Classifications is the fixed Robson classification code list. Category 5
// is split into 5.1 and 5.2, giving eleven codes in total.
var Classifications = []string{"1", "2", "3", "4", "5.1", "5.2", "6", "7", "8", "9", "10"}

// ValidClassification reports whether code is one of the fixed Robson codes.
func ValidClassification(code string) bool {
	for _, c := range Classifications {
		if c == code {
			return true
		}
	}

	return false
}

// Entry represents a single classified delivery record.
// Entries are write-once: created by direct submission or bulk upload and
// never updated afterwards. The creator reference is nullable so entries
// survive user deletion.
type Entry struct {
	// ID is the unique identifier for the entry.
	ID uint `gorm:"primaryKey"`
	// Classification is one of the fixed Robson codes ("1".."10", "5.1", "5.2").
	Classification string `gorm:"size:100;not null"`
	// CSection is true for an operative (caesarean) delivery, false for vaginal.
	CSection bool `gorm:"default:false"`
	// Date is the delivery date. Defaults to creation time; bulk uploads
	// backdate it to the quarter start.
	Date time.Time `gorm:"not null"`
	// UserID is the submitting user, nil once that user is deleted.
	UserID *uint64
	// User is the associated creator (loaded via foreign key, SET NULL on delete).
	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:SET NULL"`
	// Groups is the set of groups the entry is visible through. An entry may
	// be tagged with several groups at once.
	Groups []Group `gorm:"many2many:entry_groups;constraint:OnDelete:CASCADE"`
	// CreatedAt is the timestamp when the entry was recorded (managed by GORM).
	CreatedAt time.Time
}

// TableName specifies the database table name for the Entry model.
// This overrides GORM's default pluralized table naming.
func (Entry) TableName() string {
	return "entries"
}
