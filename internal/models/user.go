package models

// User owns credentials and exactly one budget configuration.
type User struct {
	Base
	Username     string              `gorm:"size:64;uniqueIndex;not null" json:"username"`
	PasswordHash string              `gorm:"not null" json:"-"`
	Config       BudgetConfiguration `gorm:"embedded;embeddedPrefix:config_" json:"config"`
}

// Session is the per-request identity returned by authentication: the
// username and a snapshot of the configuration at login time.
type Session struct {
	Username string              `json:"username"`
	Config   BudgetConfiguration `json:"config"`
}
