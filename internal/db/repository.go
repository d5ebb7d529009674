package db

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/socialshields/mhdash/internal/models"
)

// Repository provides database access methods
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// PostRepository provides post-related database operations
type PostRepository struct {
	*Repository
}

// NewPostRepository creates a new post repository
func NewPostRepository(repo *Repository) *PostRepository {
	return &PostRepository{Repository: repo}
}

// UnlabelledForUser returns up to limit posts that the given user has not yet
// labeled, in random order. The exclusion is per user: a post labeled by
// someone else still qualifies. An empty result means the user has no work
// left, not an error.
func (r *PostRepository) UnlabelledForUser(ctx context.Context, username string, limit int) ([]*models.Post, error) {
	var posts []*models.Post
	err := r.db.WithContext(ctx).
		Where("NOT EXISTS (SELECT 1 FROM post_labels pl WHERE pl.post_hash = posts.post_hash AND pl.username = ?)", username).
		Order("RANDOM()").
		Limit(limit).
		Find(&posts).Error
	if err != nil {
		return nil, err
	}
	return posts, nil
}

// RandomSample returns up to limit posts chosen uniformly at random, with no
// per-user exclusion.
func (r *PostRepository) RandomSample(ctx context.Context, limit int) ([]*models.Post, error) {
	var posts []*models.Post
	err := r.db.WithContext(ctx).
		Order("RANDOM()").
		Limit(limit).
		Find(&posts).Error
	if err != nil {
		return nil, err
	}
	return posts, nil
}

// CountTotal returns the total number of collected posts.
func (r *PostRepository) CountTotal(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Post{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// LabelRepository provides label-related database operations
type LabelRepository struct {
	*Repository
}

// NewLabelRepository creates a new label repository
func NewLabelRepository(repo *Repository) *LabelRepository {
	return &LabelRepository{Repository: repo}
}

// CreateBatch persists a submission batch atomically. Every row carries the
// same timestamp, set by the caller. Rows that collide with an existing
// (post_hash, username) pair are dropped on conflict instead of duplicated.
func (r *LabelRepository) CreateBatch(ctx context.Context, labels []*models.PostLabel) error {
	if len(labels) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "post_hash"}, {Name: "username"}},
			DoNothing: true,
		}).Create(&labels).Error
	})
}

// CountDistinctLabeled returns the number of distinct posts that have at
// least one label.
func (r *LabelRepository) CountDistinctLabeled(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.PostLabel{}).
		Distinct("post_hash").
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// DatasetStats summarizes the label dataset.
type DatasetStats struct {
	TotalLabeled       int64
	UniqueContributors int64
	LastUpdated        *time.Time
}

// Stats returns dataset-level label statistics.
func (r *LabelRepository) Stats(ctx context.Context) (*DatasetStats, error) {
	var stats DatasetStats
	err := r.db.WithContext(ctx).
		Model(&models.PostLabel{}).
		Select("COUNT(*) AS total_labeled, COUNT(DISTINCT username) AS unique_contributors, MAX(timestamp) AS last_updated").
		Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// LabelCount is one bucket of a per-category distribution.
type LabelCount struct {
	Value string `gorm:"column:value"`
	Count int64  `gorm:"column:count"`
}

// Distribution returns how many labels carry each value of the given
// dimension column ("box1" or "box2"), most frequent first.
func (r *LabelRepository) Distribution(ctx context.Context, column string) ([]LabelCount, error) {
	if column != "box1" && column != "box2" {
		return nil, errors.New("unknown label dimension: " + column)
	}
	var counts []LabelCount
	err := r.db.WithContext(ctx).
		Model(&models.PostLabel{}).
		Select(column + " AS value, COUNT(*) AS count").
		Group(column).
		Order("count DESC").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}
	return counts, nil
}

// ExportRow is one record of the downloadable dataset.
type ExportRow struct {
	PostHash string `gorm:"column:post_hash" json:"post_hash"`
	Box1     string `gorm:"column:box1" json:"box1"`
	Box2     string `gorm:"column:box2" json:"box2"`
}

// Export returns the full label dataset, newest submissions first.
func (r *LabelRepository) Export(ctx context.Context) ([]ExportRow, error) {
	var rows []ExportRow
	err := r.db.WithContext(ctx).
		Model(&models.PostLabel{}).
		Select("post_hash, box1, box2").
		Order("timestamp DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// UserRepository provides user-related database operations
type UserRepository struct {
	*Repository
}

// NewUserRepository creates a new user repository
func NewUserRepository(repo *Repository) *UserRepository {
	return &UserRepository{Repository: repo}
}

// GetByUsername retrieves a user by username (case-sensitive)
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// StatsRepository provides aggregate read queries backing the stats cache
type StatsRepository struct {
	*Repository
}

// NewStatsRepository creates a new stats repository
func NewStatsRepository(repo *Repository) *StatsRepository {
	return &StatsRepository{Repository: repo}
}

// PostsPerHour returns the posts_per_hour series in ascending hour order.
func (r *StatsRepository) PostsPerHour(ctx context.Context) ([]models.HourlyBucket, error) {
	var buckets []models.HourlyBucket
	err := r.db.WithContext(ctx).
		Model(&models.PostsPerHour{}).
		Order("hour ASC").
		Find(&buckets).Error
	if err != nil {
		return nil, err
	}
	return buckets, nil
}

// CommentsPerHour returns the comments_per_hour series in ascending hour order.
func (r *StatsRepository) CommentsPerHour(ctx context.Context) ([]models.HourlyBucket, error) {
	var buckets []models.HourlyBucket
	err := r.db.WithContext(ctx).
		Model(&models.CommentsPerHour{}).
		Order("hour ASC").
		Find(&buckets).Error
	if err != nil {
		return nil, err
	}
	return buckets, nil
}
