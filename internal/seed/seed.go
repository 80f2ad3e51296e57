package seed

import (
	"context"
	"fmt"
	"log/slog"

	"tagboard/internal/importer"
	"tagboard/internal/middleware"
	"tagboard/internal/models"
	"tagboard/internal/repository"
	"tagboard/internal/service"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumUsers    int
	NumPosts    int
	NumRequests int
	ShouldClean bool
	SkipBcrypt  bool
	DryRun      bool
	BatchSize   int
	MaxDays     int
	// RandomSeed makes runs reproducible when non-zero.
	RandomSeed int64
}

// Result reports what Seed created.
type Result struct {
	Users    []*models.User
	Posts    int
	Requests []*models.BulkUpdateRequest
}

var tagVocabulary = []string{
	"1girl", "1boy", "solo", "smile", "long_hair", "short_hair", "blue_eyes",
	"red_eyes", "green_eyes", "blonde_hair", "brown_hair", "black_hair",
	"auburn_hair", "cat", "kitty", "dog", "puppy", "outdoors", "indoors", "sky",
	"cloud", "tree", "flower", "hat", "glasses", "scarf", "sitting", "standing",
	"night", "day", "landscape", "portrait", "monochrome", "sketch",
}

// Seed populates the database with users, tagged posts and pending bulk
// update requests. The first user is an admin so failed approvals have
// someone to report to.
func Seed(ctx context.Context, db *gorm.DB, opts Options) (*Result, error) {
	middleware.Logger.Info("seeding", slog.Int("users", opts.NumUsers), slog.Int("posts", opts.NumPosts), slog.Int("requests", opts.NumRequests))

	if opts.ShouldClean && !opts.DryRun {
		if err := clearData(db); err != nil {
			middleware.Logger.Warn("could not clear existing data", slog.String("error", err.Error()))
		}
	}

	f := NewFactory(db, opts)
	res := &Result{}

	for i := 0; i < opts.NumUsers; i++ {
		user, err := f.CreateUser(func(u *models.User) {
			switch i {
			case 0:
				u.SetRole(models.RoleAdmin)
			case 1:
				u.SetRole(models.RoleBuilder)
			}
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		res.Users = append(res.Users, user)
	}
	if len(res.Users) == 0 {
		middleware.Logger.Info("no users requested, nothing else to seed")
		return res, nil
	}

	posts := make([]*models.Post, 0, opts.NumPosts)
	for i := 0; i < opts.NumPosts; i++ {
		uploader := res.Users[f.rng.Intn(len(res.Users))]
		posts = append(posts, f.BuildPost(uploader))
	}
	if err := f.CreatePostsBatch(posts); err != nil {
		return nil, fmt.Errorf("failed to create posts: %w", err)
	}
	res.Posts = len(posts)

	if opts.DryRun || opts.NumRequests == 0 {
		return res, nil
	}

	users := service.NewUserService(repository.NewUserRepository(db), false)
	svc := service.NewBulkUpdateRequestService(service.BulkUpdateRequestDeps{
		Repo:    repository.NewBulkUpdateRequestRepository(db),
		Applier: importer.New(db),
		Users:   users,
		Forum:   service.NewForumService(repository.NewForumRepository(db), models.DefaultForumCategoryID),
		Mail:    service.NewDmailService(repository.NewDmailRepository(db), nil),
	})

	for i := 0; i < opts.NumRequests; i++ {
		owner := res.Users[f.rng.Intn(len(res.Users))]
		var tags []string
		if len(posts) > 0 {
			tags = posts[f.rng.Intn(len(posts))].Tags()
		}
		req, err := svc.Create(ctx, service.CreateBulkUpdateRequestInput{
			Script: f.SampleScript(tags),
			Title:  gofakeit.Sentence(4),
			Reason: gofakeit.Sentence(12),
		}, owner.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to create bulk update request: %w", err)
		}
		res.Requests = append(res.Requests, req)
	}

	middleware.Logger.Info("seeded", slog.Int("users", len(res.Users)), slog.Int("posts", res.Posts), slog.Int("requests", len(res.Requests)))
	return res, nil
}

func clearData(db *gorm.DB) error {
	middleware.Logger.Info("clearing existing data")
	if db.Dialector.Name() != "postgres" {
		for _, table := range []string{"bulk_update_requests", "tag_implications", "tag_aliases", "dmails", "forum_posts", "forum_topics", "posts", "users"} {
			if err := db.Exec("DELETE FROM " + table).Error; err != nil {
				return err
			}
		}
		return nil
	}
	sql := `TRUNCATE TABLE bulk_update_requests, tag_implications, tag_aliases, dmails, forum_posts, forum_topics, posts, users RESTART IDENTITY CASCADE;`
	return db.Exec(sql).Error
}
