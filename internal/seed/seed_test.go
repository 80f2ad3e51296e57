package seed

import (
	"context"
	"testing"

	"tagboard/internal/models"
	"tagboard/internal/testutil"
	"tagboard/internal/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeed_CreatesLinkedRequests(t *testing.T) {
	db := testutil.OpenSQLite(t)

	res, err := Seed(context.Background(), db, Options{
		NumUsers:    4,
		NumPosts:    25,
		NumRequests: 3,
		SkipBcrypt:  true,
		RandomSeed:  42,
	})
	require.NoError(t, err)
	require.Len(t, res.Users, 4)
	assert.True(t, res.Users[0].IsAdmin)
	assert.True(t, res.Users[1].IsBuilder)

	var posts int64
	require.NoError(t, db.Model(&models.Post{}).Count(&posts).Error)
	assert.EqualValues(t, 25, posts)

	require.Len(t, res.Requests, 3)
	for _, req := range res.Requests {
		assert.Equal(t, models.BulkUpdateRequestStatusPending, req.Status)
		require.NotNil(t, req.ForumTopicID, "request #%d has no forum topic", req.ID)
	}

	var topics int64
	require.NoError(t, db.Model(&models.ForumTopic{}).Count(&topics).Error)
	assert.EqualValues(t, 3, topics)
}

func TestSeed_DryRunWritesNothing(t *testing.T) {
	db := testutil.OpenSQLite(t)

	res, err := Seed(context.Background(), db, Options{NumUsers: 2, NumPosts: 5, NumRequests: 2, DryRun: true, SkipBcrypt: true})
	require.NoError(t, err)
	assert.Len(t, res.Users, 2)
	assert.Equal(t, 5, res.Posts)
	assert.Empty(t, res.Requests)

	var users int64
	require.NoError(t, db.Model(&models.User{}).Count(&users).Error)
	assert.Zero(t, users)
}

func TestSeed_Clean(t *testing.T) {
	db := testutil.OpenSQLite(t)
	testutil.CreateUser(t, db, "leftover", false)

	_, err := Seed(context.Background(), db, Options{NumUsers: 1, ShouldClean: true, SkipBcrypt: true})
	require.NoError(t, err)

	var users int64
	require.NoError(t, db.Model(&models.User{}).Count(&users).Error)
	assert.EqualValues(t, 1, users)
}

func TestDefaultPasswordPassesPolicy(t *testing.T) {
	assert.NoError(t, validation.ValidatePassword(DefaultPassword))
}
