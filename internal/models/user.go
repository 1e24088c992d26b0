package models

// User represents an internal user record. Subject is the stable identifier
// issued by the external identity provider; the record is created lazily on
// the first verified request.
type User struct {
	Base
	Subject     string `gorm:"uniqueIndex;not null" json:"subject"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	IsActive    bool   `gorm:"default:true" json:"is_active"`
}
