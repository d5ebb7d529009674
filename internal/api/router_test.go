package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/socialshields/mhdash/internal/db"
	"github.com/socialshields/mhdash/internal/models"
	"github.com/socialshields/mhdash/internal/stats"
	"github.com/socialshields/mhdash/pkg/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{WriteRPS: 100, WriteBurst: 100},
		Cache: config.CacheConfig{
			HourlyTTL:   20 * time.Minute,
			ProgressTTL: 12 * time.Hour,
			DatasetTTL:  time.Hour,
		},
		Labeling: config.LabelingConfig{PageSize: 30, SampleSize: 3},
		Auth:     config.AuthConfig{TokenSecret: "test-secret", TokenTTL: time.Hour},
	}
}

func newTestServer(t *testing.T, cfg *config.Config) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))

	database := &db.DB{DB: gdb}
	repo := db.NewRepository(gdb)
	statsService := stats.NewService(
		db.NewStatsRepository(repo),
		db.NewLabelRepository(repo),
		db.NewPostRepository(repo),
		&cfg.Cache,
		nil,
	)

	engine := gin.New()
	router := NewRouter(database, nil, statsService, cfg)
	router.SetupRoutes(engine)
	return engine, gdb
}

func doRequest(engine *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func seedPosts(t *testing.T, gdb *gorm.DB, hashes ...string) {
	t.Helper()
	for i, h := range hashes {
		require.NoError(t, gdb.Create(&models.Post{
			Title:    fmt.Sprintf("post %s", h),
			Body:     "body",
			Created:  time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Hour),
			PostHash: h,
		}).Error)
	}
}

func TestUnlabelledPosts_RequiresUsername(t *testing.T) {
	engine, _ := newTestServer(t, testConfig())

	w := doRequest(engine, http.MethodGet, "/api/unlabelled_posts", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLabelingRoundTrip(t *testing.T) {
	engine, gdb := newTestServer(t, testConfig())
	seedPosts(t, gdb, "a", "b", "c")

	// Alice fetches her batch: all three posts, page size permitting.
	w := doRequest(engine, http.MethodGet, "/api/unlabelled_posts?username=alice", "")
	require.Equal(t, http.StatusOK, w.Code)
	var fetched struct {
		Posts []models.Post `json:"posts"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fetched))
	require.Len(t, fetched.Posts, 3)

	// She submits labels for the whole batch.
	items := make([]string, len(fetched.Posts))
	for i, p := range fetched.Posts {
		items[i] = fmt.Sprintf(`{"hash":%q,"box1":"Ideation","box2":"No Risk"}`, p.PostHash)
	}
	body := fmt.Sprintf(`{"username":"alice","labels":[%s]}`, strings.Join(items, ","))
	w = doRequest(engine, http.MethodPost, "/api/submit_labels", body)
	require.Equal(t, http.StatusOK, w.Code)

	var submitted struct {
		Success   bool   `json:"success"`
		Timestamp string `json:"timestamp"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &submitted))
	assert.True(t, submitted.Success)
	_, err := time.Parse(time.RFC3339Nano, submitted.Timestamp)
	assert.NoError(t, err)

	// Every row of the batch shares one timestamp.
	var rows []models.PostLabel
	require.NoError(t, gdb.Find(&rows).Error)
	require.Len(t, rows, 3)
	for _, row := range rows[1:] {
		assert.Equal(t, rows[0].Timestamp, row.Timestamp)
	}

	// A subsequent fetch for alice comes back empty: end of work, not an
	// error.
	w = doRequest(engine, http.MethodGet, "/api/unlabelled_posts?username=alice", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fetched))
	assert.Empty(t, fetched.Posts)

	// Bob still sees the full corpus.
	w = doRequest(engine, http.MethodGet, "/api/unlabelled_posts?username=bob", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fetched))
	assert.Len(t, fetched.Posts, 3)
}

func TestSubmitLabels_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "empty labels list", body: `{"username":"alice","labels":[]}`},
		{name: "labels not a list", body: `{"username":"alice","labels":"nope"}`},
		{name: "missing username", body: `{"labels":[{"hash":"a","box1":"Ideation","box2":"No Risk"}]}`},
		{name: "missing box1", body: `{"username":"alice","labels":[{"hash":"a","box2":"No Risk"}]}`},
		{name: "unknown box1 value", body: `{"username":"alice","labels":[{"hash":"a","box1":"Bogus","box2":"No Risk"}]}`},
		{name: "unknown box2 value", body: `{"username":"alice","labels":[{"hash":"a","box1":"Ideation","box2":"Bogus"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, gdb := newTestServer(t, testConfig())
			seedPosts(t, gdb, "a")

			w := doRequest(engine, http.MethodPost, "/api/submit_labels", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)

			// Rejected requests must not touch the store.
			var count int64
			require.NoError(t, gdb.Model(&models.PostLabel{}).Count(&count).Error)
			assert.Zero(t, count)
		})
	}
}

func TestRandomPosts_SampleSize(t *testing.T) {
	engine, gdb := newTestServer(t, testConfig())
	seedPosts(t, gdb, "a", "b", "c", "d", "e")

	w := doRequest(engine, http.MethodGet, "/api/random_posts", "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Posts []models.Post `json:"posts"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Posts, 3)
}

func TestLogin(t *testing.T) {
	engine, gdb := newTestServer(t, testConfig())

	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, gdb.Create(&models.User{Username: "alice", PasswordHash: string(hash)}).Error)

	// Wrong password and unknown user both read as invalid credentials.
	w := doRequest(engine, http.MethodPost, "/api/login", `{"username":"alice","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(engine, http.MethodPost, "/api/login", `{"username":"mallory","password":"hunter2"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(engine, http.MethodPost, "/api/login", `{"username":"alice"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(engine, http.MethodPost, "/api/login", `{"username":"alice","password":"hunter2"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Success bool   `json:"success"`
		Token   string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.Token)
}

func TestStatsEndpoint(t *testing.T) {
	engine, gdb := newTestServer(t, testConfig())
	seedPosts(t, gdb, "a", "b")

	hour := time.Date(2025, 7, 7, 10, 0, 0, 0, time.UTC)
	require.NoError(t, gdb.Create(&models.PostsPerHour{
		HourlyBucket: models.HourlyBucket{Hour: hour, Count: 7},
	}).Error)
	require.NoError(t, gdb.Create(&models.CommentsPerHour{
		HourlyBucket: models.HourlyBucket{Hour: hour, Count: 12},
	}).Error)
	require.NoError(t, gdb.Create(&models.PostLabel{
		PostHash: "a", Box1: "Ideation", Box2: "No Risk",
		Username: "alice", Timestamp: time.Now().UTC(),
	}).Error)

	w := doRequest(engine, http.MethodGet, "/api/stats", "")
	require.Equal(t, http.StatusOK, w.Code)

	var snap stats.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	require.Len(t, snap.PostsPerHour, 1)
	assert.Equal(t, int64(7), snap.PostsPerHour[0].Count)
	require.Len(t, snap.CommentsPerHour, 1)
	assert.Equal(t, int64(12), snap.CommentsPerHour[0].Count)
	assert.Equal(t, int64(1), snap.LabelingProgress.Labeled)
	assert.Equal(t, int64(2), snap.LabelingProgress.Total)
	assert.False(t, snap.FromStaleCache)
	assert.False(t, snap.Now.IsZero())
}

func TestDatasetSummary(t *testing.T) {
	engine, gdb := newTestServer(t, testConfig())
	seedPosts(t, gdb, "a", "b")

	now := time.Now().UTC()
	require.NoError(t, gdb.Create(&models.PostLabel{
		PostHash: "a", Box1: "Ideation", Box2: "No Risk", Username: "alice", Timestamp: now,
	}).Error)
	require.NoError(t, gdb.Create(&models.PostLabel{
		PostHash: "b", Box1: "Ideation", Box2: "Severe Risk", Username: "bob", Timestamp: now,
	}).Error)

	w := doRequest(engine, http.MethodGet, "/api/dataset?download=false", "")
	require.Equal(t, http.StatusOK, w.Code)

	var summary struct {
		TotalLabeled       int64                       `json:"totalLabeled"`
		UniqueContributors int64                       `json:"uniqueContributors"`
		LabelDistribution  map[string]map[string]int64 `json:"labelDistribution"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.Equal(t, int64(2), summary.TotalLabeled)
	assert.Equal(t, int64(2), summary.UniqueContributors)
	assert.Equal(t, int64(2), summary.LabelDistribution["box1"]["Ideation"])
	assert.Equal(t, int64(1), summary.LabelDistribution["box2"]["Severe Risk"])
}

func TestDatasetDownloadCSV(t *testing.T) {
	engine, gdb := newTestServer(t, testConfig())
	seedPosts(t, gdb, "a")
	require.NoError(t, gdb.Create(&models.PostLabel{
		PostHash: "a", Box1: "Ideation", Box2: "No Risk",
		Username: "alice", Timestamp: time.Now().UTC(),
	}).Error)

	req := httptest.NewRequest(http.MethodGet, "/api/dataset?format=csv&download=true", nil)
	req.Header.Set("Accept-Encoding", "identity")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "mental_health_dataset.csv")

	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "post_hash,box1,box2", strings.TrimSpace(lines[0]))
	assert.Equal(t, "a,Ideation,No Risk", strings.TrimSpace(lines[1]))
}

func TestWriteRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Server.WriteRPS = 0.001
	cfg.Server.WriteBurst = 1
	engine, gdb := newTestServer(t, cfg)
	seedPosts(t, gdb, "a")

	body := `{"username":"alice","labels":[{"hash":"a","box1":"Ideation","box2":"No Risk"}]}`
	w := doRequest(engine, http.MethodPost, "/api/submit_labels", body)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(engine, http.MethodPost, "/api/submit_labels", body)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}
