package service

import (
	"context"
	"testing"

	"tagboard/internal/models"
	"tagboard/internal/notifications"
	"tagboard/internal/repository"
	"tagboard/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserService_NotificationAdmins(t *testing.T) {
	t.Parallel()
	db := testutil.OpenSQLite(t)
	first := testutil.CreateUser(t, db, "first_admin", true)
	testutil.CreateUser(t, db, "member", false)
	testutil.CreateUser(t, db, "second_admin", true)
	repo := repository.NewUserRepository(db)

	single, err := NewUserService(repo, false).NotificationAdmins(context.Background())
	require.NoError(t, err)
	require.Len(t, single, 1)
	assert.Equal(t, first.ID, single[0].ID)

	all, err := NewUserService(repo, true).NotificationAdmins(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestUserService_ChangeRole(t *testing.T) {
	t.Parallel()
	db := testutil.OpenSQLite(t)
	ctx := context.Background()
	root := testutil.CreateUser(t, db, "root", true)
	user := testutil.CreateUser(t, db, "member", false)
	svc := NewUserService(repository.NewUserRepository(db), false)

	updated, err := svc.ChangeRole(ctx, root.ID, user.ID, models.RoleBuilder)
	require.NoError(t, err)
	assert.Equal(t, models.RoleBuilder, updated.Role())

	_, err = svc.ChangeRole(ctx, root.ID, root.ID, models.RoleMember)
	assert.Equal(t, "VALIDATION_ERROR", models.ErrorCode(err), "admins cannot step down themselves")

	_, err = svc.ChangeRole(ctx, 0, root.ID, models.RoleMember)
	assert.Equal(t, "CONFLICT", models.ErrorCode(err), "the last admin stays")

	updated, err = svc.ChangeRole(ctx, root.ID, user.ID, models.RoleAdmin)
	require.NoError(t, err)
	assert.True(t, updated.IsAdmin)
	assert.True(t, updated.IsBuilder)

	updated, err = svc.ChangeRole(ctx, user.ID, root.ID, models.RoleMember)
	require.NoError(t, err)
	assert.Equal(t, models.RoleMember, updated.Role())

	_, err = svc.ChangeRole(ctx, 0, 999, models.RoleAdmin)
	assert.Equal(t, "NOT_FOUND", models.ErrorCode(err))
}

func TestForumService(t *testing.T) {
	t.Parallel()
	db := testutil.OpenSQLite(t)
	user := testutil.CreateUser(t, db, "poster", false)
	svc := NewForumService(repository.NewForumRepository(db), 0)
	ctx := context.Background()

	id, err := svc.CreateTopic(ctx, user.ID, "[bulk] cats", "opening")
	require.NoError(t, err)

	topic, err := svc.GetTopic(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultForumCategoryID, topic.CategoryID)
	require.Len(t, topic.Posts, 1)
	assert.Equal(t, "opening", topic.Posts[0].Body)

	require.NoError(t, svc.CreatePost(ctx, id, user.ID, "reply"))
	assertValidationError(t, svc.CreatePost(ctx, id, user.ID, "  "))

	_, err = svc.CreateTopic(ctx, user.ID, " ", "body")
	assertValidationError(t, err)

	ok, err := svc.TopicExists(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDmailService_Send(t *testing.T) {
	t.Parallel()
	db := testutil.OpenSQLite(t)
	events := &eventsStub{}
	svc := NewDmailService(repository.NewDmailRepository(db), events)
	ctx := context.Background()

	require.NoError(t, svc.Send(ctx, 1, 1, ApprovalFailedTitle, "body"))
	self, err := svc.ListForOwner(ctx, 1, 10, 0)
	require.NoError(t, err)
	require.Len(t, self, 1, "a message to oneself is stored once")

	require.NoError(t, svc.Send(ctx, 1, 2, "hello", "hi"))
	inbox, err := svc.ListForOwner(ctx, 2, 10, 0)
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.False(t, inbox[0].IsRead)

	outbox, err := svc.ListForOwner(ctx, 1, 10, 0)
	require.NoError(t, err)
	assert.Len(t, outbox, 2)

	assert.Equal(t, []string{notifications.EventDmailReceived, notifications.EventDmailReceived}, events.events)
	assertValidationError(t, svc.Send(ctx, 1, 2, "", "x"))
}
