package models

import (
	"time"
)

// Post is a collected text post selected for labeling. Posts are written by
// the external ingestion pipeline and never mutated here; the content hash is
// the stable identity used by labels.
type Post struct {
	ID       int64     `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	Title    string    `gorm:"type:text;not null;column:title" json:"title"`
	Body     string    `gorm:"type:text;column:body" json:"body"`
	Created  time.Time `gorm:"not null;column:created" json:"created"`
	PostHash string    `gorm:"type:varchar(64);not null;uniqueIndex;column:post_hash" json:"post_hash"`
}

// TableName specifies the table name for Post
func (Post) TableName() string {
	return "posts"
}

// HourlyBucket is one row of a precomputed per-hour aggregate
// (posts_per_hour / comments_per_hour). Maintained by the ingestion
// pipeline, read-only here.
type HourlyBucket struct {
	Hour  time.Time `gorm:"primaryKey;column:hour" json:"hour"`
	Count int64     `gorm:"not null;default:0;column:count" json:"count"`
}

// PostsPerHour is the posts_per_hour aggregate table.
type PostsPerHour struct {
	HourlyBucket
}

// TableName specifies the table name for PostsPerHour
func (PostsPerHour) TableName() string {
	return "posts_per_hour"
}

// CommentsPerHour is the comments_per_hour aggregate table.
type CommentsPerHour struct {
	HourlyBucket
}

// TableName specifies the table name for CommentsPerHour
func (CommentsPerHour) TableName() string {
	return "comments_per_hour"
}
