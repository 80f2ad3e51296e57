package validation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tagboard/internal/models"
)

type stubTopics struct {
	existing map[uint]bool
	err      error
	calls    int
}

func (s *stubTopics) TopicExists(_ context.Context, id uint) (bool, error) {
	s.calls++
	if s.err != nil {
		return false, s.err
	}
	return s.existing[id], nil
}

func validRequest() *models.BulkUpdateRequest {
	return &models.BulkUpdateRequest{
		UserID: 7,
		Script: "create alias [[foo]] -> [[bar]]",
		Status: models.BulkUpdateRequestStatusPending,
		Title:  "foo is bar",
	}
}

func TestValidateBulkUpdateRequestValid(t *testing.T) {
	t.Parallel()
	errs, err := ValidateBulkUpdateRequest(context.Background(), validRequest(), &stubTopics{})
	require.NoError(t, err)
	assert.Empty(t, errs)
}

func TestValidateBulkUpdateRequestAccumulates(t *testing.T) {
	t.Parallel()
	req := &models.BulkUpdateRequest{Status: "archived"}

	errs, err := ValidateBulkUpdateRequest(context.Background(), req, &stubTopics{})
	require.NoError(t, err)

	assert.Equal(t, []string{MsgUserBlank}, errs.On(FieldUser))
	assert.Equal(t, []string{MsgScriptBlank}, errs.On(FieldScript))
	assert.Equal(t, []string{MsgTitleBlank}, errs.On(FieldTitle))
	assert.Equal(t, []string{MsgStatusInvalid}, errs.On(FieldStatus))
	assert.False(t, errs.Has(FieldBase), "blank script is not parsed")
}

func TestValidateBulkUpdateRequestTitle(t *testing.T) {
	t.Parallel()
	req := validRequest()
	req.Title = "  "

	errs, err := ValidateBulkUpdateRequest(context.Background(), req, &stubTopics{})
	require.NoError(t, err)
	assert.Equal(t, []string{MsgTitleBlank}, errs.On(FieldTitle))

	req.Title = "alias foo"
	errs, err = ValidateBulkUpdateRequest(context.Background(), req, &stubTopics{})
	require.NoError(t, err)
	assert.False(t, errs.Has(FieldTitle))
}

func TestValidateBulkUpdateRequestTitleOptionalWithTopic(t *testing.T) {
	t.Parallel()
	topicID := uint(3)
	req := validRequest()
	req.Title = ""
	req.ForumTopicID = &topicID

	errs, err := ValidateBulkUpdateRequest(context.Background(), req, &stubTopics{existing: map[uint]bool{3: true}})
	require.NoError(t, err)
	assert.Empty(t, errs)
}

func TestValidateBulkUpdateRequestSyntaxError(t *testing.T) {
	t.Parallel()
	req := validRequest()
	req.Script = "not a valid line"

	errs, err := ValidateBulkUpdateRequest(context.Background(), req, &stubTopics{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Unparseable line: not a valid line"}, errs.On(FieldBase))
}

func TestValidateBulkUpdateRequestMissingTopic(t *testing.T) {
	t.Parallel()
	topicID := uint(99)
	req := validRequest()
	req.ForumTopicID = &topicID
	topics := &stubTopics{existing: map[uint]bool{}}

	errs, err := ValidateBulkUpdateRequest(context.Background(), req, topics)
	require.NoError(t, err)
	assert.Equal(t, []string{MsgForumTopicInvalid}, errs.On(FieldBase))
	assert.Equal(t, 1, topics.calls)
}

func TestValidateBulkUpdateRequestLookupFailure(t *testing.T) {
	t.Parallel()
	topicID := uint(1)
	req := validRequest()
	req.ForumTopicID = &topicID

	_, err := ValidateBulkUpdateRequest(context.Background(), req, &stubTopics{err: errors.New("db down")})
	assert.EqualError(t, err, "db down")
}
