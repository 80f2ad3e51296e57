// Package testutil provides shared test doubles and fixtures for backend tests.
package testutil

import (
	"fmt"
	"testing"

	"tagboard/internal/database"
	"tagboard/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenSQLite returns a migrated in-memory database private to t.
func OpenSQLite(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// Each new connection would get its own empty in-memory database.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))
	return db
}

// CreateUser inserts a user named name.
func CreateUser(t testing.TB, db *gorm.DB, name string, admin bool) *models.User {
	t.Helper()
	user := &models.User{
		Username: name,
		Email:    fmt.Sprintf("%s@example.com", name),
		Password: "x",
		IsAdmin:  admin,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreatePost inserts a post carrying tags.
func CreatePost(t testing.TB, db *gorm.DB, uploaderID uint, tags ...string) *models.Post {
	t.Helper()
	post := &models.Post{UploaderID: uploaderID}
	post.SetTags(tags)
	require.NoError(t, db.Create(post).Error)
	return post
}

// CreateTopic inserts a forum topic with no posts.
func CreateTopic(t testing.TB, db *gorm.DB, creatorID uint, title string) *models.ForumTopic {
	t.Helper()
	topic := &models.ForumTopic{CreatorID: creatorID, Title: title, CategoryID: models.DefaultForumCategoryID}
	require.NoError(t, db.Create(topic).Error)
	return topic
}
