package models

// User is a labeling account. Accounts are provisioned out of band; this
// service only reads them for login.
type User struct {
	ID           int64  `gorm:"primaryKey;autoIncrement;column:id"`
	Username     string `gorm:"type:varchar(64);not null;uniqueIndex;column:username"`
	PasswordHash string `gorm:"type:varchar(128);not null;column:password_hash"`
}

// TableName specifies the table name for User
func (User) TableName() string {
	return "users"
}
