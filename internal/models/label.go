package models

import (
	"time"
)

// PostLabel is one user's classification of one post along the two label
// dimensions. All rows from a single submission share one timestamp. The
// (post_hash, username) pair is unique; re-submissions are dropped on
// conflict rather than duplicated.
type PostLabel struct {
	ID        int64     `gorm:"primaryKey;autoIncrement;column:id" json:"-"`
	PostHash  string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_post_labels_post_user;column:post_hash" json:"post_hash"`
	Box1      string    `gorm:"type:varchar(32);not null;column:box1" json:"box1"`
	Box2      string    `gorm:"type:varchar(32);not null;column:box2" json:"box2"`
	Username  string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_post_labels_post_user;column:username" json:"username"`
	Timestamp time.Time `gorm:"column:timestamp" json:"timestamp"`
}

// TableName specifies the table name for PostLabel
func (PostLabel) TableName() string {
	return "post_labels"
}

// Box1Values are the accepted concern-type categories.
var Box1Values = []string{
	"Ideation",
	"Behavior",
	"Attempt",
	"Indicator",
	"Supportive",
	"Unsure",
	"Not Related",
}

// Box2Values are the accepted risk-scale categories.
var Box2Values = []string{
	"No Risk",
	"Minor Risk",
	"Moderate Risk",
	"Severe Risk",
	"Unsure",
	"Not Related",
}

// ValidBox1 reports whether v is an accepted concern-type category.
func ValidBox1(v string) bool {
	return contains(Box1Values, v)
}

// ValidBox2 reports whether v is an accepted risk-scale category.
func ValidBox2(v string) bool {
	return contains(Box2Values, v)
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
