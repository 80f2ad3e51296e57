// Package importer applies parsed bulk update scripts to the tag database.
package importer

import (
	"context"
	"fmt"
	"strings"

	"tagboard/internal/models"
	"tagboard/internal/observability"
	"tagboard/internal/repository"
	"tagboard/internal/script"
	"tagboard/internal/validation"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// Importer executes alias, implication and mass update directives. All
// directives of one request run in a single transaction.
type Importer struct {
	db    *gorm.DB
	tags  repository.TagRepository
	posts repository.PostRepository
}

// New returns an Importer backed by db.
func New(db *gorm.DB) *Importer {
	return &Importer{
		db:    db,
		tags:  repository.NewTagRepository(db),
		posts: repository.NewPostRepository(db),
	}
}

// Apply runs tokens on behalf of req. Any failure rolls back every directive.
func (i *Importer) Apply(ctx context.Context, req *models.BulkUpdateRequest, tokens []script.Token) (err error) {
	ctx, span := observability.GetTraceLayer().TraceApply(ctx, req.ID, len(tokens))
	done := observability.TrackApply()
	defer func() {
		done()
		if err != nil {
			span.RecordError(err)
		}
		span.End()
	}()

	return i.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		run := &run{
			req:   req,
			tags:  i.tags.WithTx(tx),
			posts: i.posts.WithTx(tx),
		}
		for n, token := range tokens {
			if err := run.apply(ctx, token); err != nil {
				return &DirectiveError{Index: n + 1, Directive: token, Err: err}
			}
			observability.RecordDirective(string(token.Kind))
		}
		return nil
	})
}

// DirectiveError reports the directive that stopped an Apply. Index is
// 1-based.
type DirectiveError struct {
	Index     int
	Directive script.Token
	Err       error
}

func (e *DirectiveError) Error() string {
	return fmt.Sprintf("directive %d (%s): %v", e.Index, script.RenderToken(e.Directive), e.Err)
}

func (e *DirectiveError) Unwrap() error {
	return e.Err
}

type run struct {
	req   *models.BulkUpdateRequest
	tags  repository.TagRepository
	posts repository.PostRepository
}

func (r *run) apply(ctx context.Context, token script.Token) error {
	switch token.Kind {
	case script.CreateAlias:
		return r.createAlias(ctx, token.A, token.B)
	case script.RemoveAlias:
		return r.removeAlias(ctx, token.A, token.B)
	case script.CreateImplication:
		return r.createImplication(ctx, token.A, token.B)
	case script.RemoveImplication:
		return r.removeImplication(ctx, token.A, token.B)
	case script.MassUpdate:
		return r.massUpdate(ctx, token.A, token.B)
	default:
		return errors.WithStack(&script.InvariantError{Kind: token.Kind})
	}
}

func validatePair(antecedent, consequent string) error {
	if err := validation.ValidateTagName(antecedent); err != nil {
		return errors.WithStack(err)
	}
	if err := validation.ValidateTagName(consequent); err != nil {
		return errors.WithStack(err)
	}
	if antecedent == consequent {
		return errors.Errorf("%s cannot be related to itself", antecedent)
	}
	return nil
}

func (r *run) createAlias(ctx context.Context, antecedent, consequent string) error {
	if err := validatePair(antecedent, consequent); err != nil {
		return err
	}

	existing, err := r.tags.FindAlias(ctx, antecedent)
	if err != nil {
		return errors.WithStack(err)
	}
	if existing != nil {
		if existing.ConsequentName == consequent {
			return nil
		}
		return errors.Errorf("%s is already aliased to %s", antecedent, existing.ConsequentName)
	}

	chained, err := r.tags.FindAlias(ctx, consequent)
	if err != nil {
		return errors.WithStack(err)
	}
	if chained != nil {
		return errors.Errorf("%s is itself aliased to %s", consequent, chained.ConsequentName)
	}

	if err := r.tags.CreateAlias(ctx, &models.TagAlias{
		AntecedentName: antecedent,
		ConsequentName: consequent,
		CreatorID:      r.req.UserID,
		ForumTopicID:   r.req.ForumTopicID,
		Status:         models.TagRelationshipStatusActive,
	}); err != nil {
		return errors.WithStack(err)
	}

	// Posts already carrying the antecedent move to the consequent.
	return r.retag(ctx, []string{antecedent}, nil, []string{consequent}, nil)
}

// removeAlias retires the pair. A pair this request already retired counts
// as removed, so a retried approval gets past it.
func (r *run) removeAlias(ctx context.Context, antecedent, consequent string) error {
	removed, err := r.tags.DeleteAlias(ctx, antecedent, consequent, r.req.ID)
	if err != nil {
		return errors.WithStack(err)
	}
	if removed {
		return nil
	}
	mine, err := r.tags.AliasRemovedBy(ctx, antecedent, consequent, r.req.ID)
	if err != nil {
		return errors.WithStack(err)
	}
	if !mine {
		return errors.Errorf("tag alias %s -> %s not found", antecedent, consequent)
	}
	return nil
}

func (r *run) createImplication(ctx context.Context, antecedent, consequent string) error {
	if err := validatePair(antecedent, consequent); err != nil {
		return err
	}

	existing, err := r.tags.FindImplication(ctx, antecedent, consequent)
	if err != nil {
		return errors.WithStack(err)
	}
	if existing != nil {
		return nil
	}

	reverse, err := r.tags.FindImplication(ctx, consequent, antecedent)
	if err != nil {
		return errors.WithStack(err)
	}
	if reverse != nil {
		return errors.Errorf("implication %s -> %s would be circular", antecedent, consequent)
	}

	if err := r.tags.CreateImplication(ctx, &models.TagImplication{
		AntecedentName: antecedent,
		ConsequentName: consequent,
		CreatorID:      r.req.UserID,
		ForumTopicID:   r.req.ForumTopicID,
		Status:         models.TagRelationshipStatusActive,
	}); err != nil {
		return errors.WithStack(err)
	}

	return r.retag(ctx, []string{antecedent}, nil, []string{antecedent, consequent}, nil)
}

func (r *run) removeImplication(ctx context.Context, antecedent, consequent string) error {
	removed, err := r.tags.DeleteImplication(ctx, antecedent, consequent, r.req.ID)
	if err != nil {
		return errors.WithStack(err)
	}
	if removed {
		return nil
	}
	mine, err := r.tags.ImplicationRemovedBy(ctx, antecedent, consequent, r.req.ID)
	if err != nil {
		return errors.WithStack(err)
	}
	if !mine {
		return errors.Errorf("tag implication %s -> %s not found", antecedent, consequent)
	}
	return nil
}

// massUpdate rewrites posts matching query. Query terms prefixed with "-"
// exclude posts; replacement terms prefixed with "-" remove tags.
func (r *run) massUpdate(ctx context.Context, query, replacement string) error {
	include, exclude := splitTerms(query)
	if len(include) == 0 {
		return errors.Errorf("mass update query %q has no tags to match", query)
	}
	add, remove := splitTerms(replacement)
	for _, name := range add {
		if err := validation.ValidateTagName(name); err != nil {
			return errors.WithStack(err)
		}
	}
	return r.retag(ctx, include, exclude, add, remove)
}

// retag finds posts carrying every include tag and none of exclude, drops
// the include tags, then applies add and remove.
func (r *run) retag(ctx context.Context, include, exclude, add, remove []string) error {
	err := r.posts.FindTagged(ctx, include, func(posts []models.Post) error {
		for n := range posts {
			post := &posts[n]
			if hasAny(post, exclude) {
				continue
			}
			next := rewriteTags(post.Tags(), include, add, remove)
			post.SetTags(next)
			if err := r.posts.UpdateTagString(ctx, post.ID, post.TagString); err != nil {
				return err
			}
		}
		return nil
	})
	return errors.WithStack(err)
}

func rewriteTags(current, include, add, remove []string) []string {
	drop := make(map[string]struct{}, len(include)+len(remove))
	for _, t := range include {
		drop[t] = struct{}{}
	}
	for _, t := range remove {
		drop[t] = struct{}{}
	}
	next := make([]string, 0, len(current)+len(add))
	for _, t := range current {
		if _, ok := drop[t]; !ok {
			next = append(next, t)
		}
	}
	for _, t := range add {
		if !containsString(remove, t) {
			next = append(next, t)
		}
	}
	return next
}

func splitTerms(text string) (plain, negated []string) {
	for _, term := range strings.Fields(text) {
		if name, ok := strings.CutPrefix(term, "-"); ok {
			if name != "" {
				negated = append(negated, name)
			}
			continue
		}
		plain = append(plain, term)
	}
	return plain, negated
}

func hasAny(post *models.Post, tags []string) bool {
	for _, t := range tags {
		if post.HasTag(t) {
			return true
		}
	}
	return false
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
