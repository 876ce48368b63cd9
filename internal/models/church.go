package models

// Church is a local congregation reporting to the national treasury.
type Church struct {
	Base
	Name       string `gorm:"not null;uniqueIndex" json:"name"`
	City       string `gorm:"not null" json:"city"`
	PastorName string `json:"pastor_name"`
	Phone      string `json:"phone,omitempty"`
	IsActive   bool   `gorm:"default:true" json:"is_active"`
}

// Profile is an authenticated person and the role they act under.
type Profile struct {
	Base
	Email    string  `gorm:"not null;uniqueIndex" json:"email"`
	FullName string  `json:"full_name"`
	Role     Role    `gorm:"not null" json:"role"`
	ChurchID *string `gorm:"type:uuid;index" json:"church_id,omitempty"`
	IsActive bool    `gorm:"default:true" json:"is_active"`

	Church *Church `gorm:"foreignKey:ChurchID" json:"church,omitempty"`
}
