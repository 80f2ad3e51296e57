package validation

import (
	"context"
	"errors"
	"strings"

	"tagboard/internal/models"
	"tagboard/internal/script"
)

// Field error messages reported for bulk update requests.
const (
	MsgUserBlank         = "User can't be blank"
	MsgScriptBlank       = "Script can't be blank"
	MsgTitleBlank        = "Title can't be blank"
	MsgStatusInvalid     = "Status is not included in the list"
	MsgForumTopicInvalid = "Forum topic ID is invalid"
	FieldBase            = "base"
	FieldUser            = "user"
	FieldScript          = "script"
	FieldTitle           = "title"
	FieldStatus          = "status"
)

// TopicLookup resolves whether a forum topic exists.
type TopicLookup interface {
	TopicExists(ctx context.Context, id uint) (bool, error)
}

// ValidateBulkUpdateRequest runs every rule and accumulates field errors. A
// non-nil error means a rule could not be evaluated (for example the topic
// lookup failed), not that the request is invalid.
func ValidateBulkUpdateRequest(ctx context.Context, req *models.BulkUpdateRequest, topics TopicLookup) (models.FieldErrors, error) {
	var errs models.FieldErrors

	if req.UserID == 0 {
		errs.Add(FieldUser, MsgUserBlank)
	}

	scriptBlank := strings.TrimSpace(req.Script) == ""
	if scriptBlank {
		errs.Add(FieldScript, MsgScriptBlank)
	}

	if req.ForumTopicID == nil && strings.TrimSpace(req.Title) == "" {
		errs.Add(FieldTitle, MsgTitleBlank)
	}

	if !req.Status.Valid() {
		errs.Add(FieldStatus, MsgStatusInvalid)
	}

	if !scriptBlank {
		if _, err := script.Tokenize(req.Script); err != nil {
			var syntaxErr *script.SyntaxError
			if !errors.As(err, &syntaxErr) {
				return nil, err
			}
			errs.Add(FieldBase, syntaxErr.Error())
		}
	}

	if req.ForumTopicID != nil {
		exists, err := topics.TopicExists(ctx, *req.ForumTopicID)
		if err != nil {
			return nil, err
		}
		if !exists {
			errs.Add(FieldBase, MsgForumTopicInvalid)
		}
	}

	return errs, nil
}
