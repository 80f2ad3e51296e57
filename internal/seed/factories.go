// Package seed provides helpers to create test and demo data for the
// application database. These helpers are intended for development and
// testing only.
package seed

import (
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"tagboard/internal/middleware"
	"tagboard/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword is the password of every seeded account. It satisfies
// the signup password policy so it can be typed into the login form.
const DefaultPassword = "Seeded-Password-1"

// Factory builds domain entities and persists them to the database.
// It is a thin helper used by Seed and tests.
type Factory struct {
	db   *gorm.DB
	opts Options
	rng  *rand.Rand
	// synthetic ID counter when running in DryRun mode
	nextID uint
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	seed := opts.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	gofakeit.Seed(seed)
	//nolint:gosec // Weak random number generator is fine for seeding
	return &Factory{db: db, opts: opts, rng: rand.New(rand.NewSource(seed)), nextID: 1000}
}

// tagify turns a fake word or phrase into a valid tag name.
func tagify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Join(strings.Fields(s), "_")
	return strings.Trim(s, "_-~")
}

// RandomTag returns a tag from the fixed vocabulary or, now and then, a fake
// one so that aliases have something new to point at.
func (f *Factory) RandomTag() string {
	if f.rng.Intn(4) == 0 {
		if tag := tagify(gofakeit.Color() + " " + gofakeit.Animal()); tag != "" {
			return tag
		}
	}
	return tagVocabulary[f.rng.Intn(len(tagVocabulary))]
}

// BuildPost constructs a post with a handful of tags but does not persist it.
func (f *Factory) BuildPost(uploader *models.User, overrides ...func(*models.Post)) *models.Post {
	count := f.rng.Intn(6) + 2
	tags := make([]string, 0, count)
	for i := 0; i < count; i++ {
		tags = append(tags, f.RandomTag())
	}

	post := &models.Post{UploaderID: uploader.ID}
	post.SetTags(tags)

	// realistic created_at spread
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	daysBack := f.rng.Intn(maxDays)
	hoursBack := f.rng.Intn(24)
	post.CreatedAt = time.Now().Add(-time.Duration(daysBack)*24*time.Hour - time.Duration(hoursBack)*time.Hour)

	for _, override := range overrides {
		override(post)
	}
	return post
}

// CreatePostsBatch persists multiple posts in a single DB call when possible.
func (f *Factory) CreatePostsBatch(posts []*models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	if f.opts.DryRun {
		for _, p := range posts {
			f.nextID++
			p.ID = f.nextID
		}
		middleware.Logger.Debug("dry run: posts not written", slog.Int("posts", len(posts)))
		return nil
	}
	batch := f.opts.BatchSize
	if batch <= 0 {
		batch = 100
	}
	return f.db.CreateInBatches(posts, batch).Error
}

// CreateUser constructs and persists a sample `models.User`.
// Optional override functions may modify the generated user before saving.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	username := tagify(gofakeit.Username()) + fmt.Sprintf("%d", gofakeit.Number(100, 999))
	user := &models.User{
		Username: username,
		Email:    fmt.Sprintf("%s@example.com", username),
	}

	// Password handling: allow skipping bcrypt in dev fast mode
	if f.opts.SkipBcrypt {
		user.Password = DefaultPassword
	} else {
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash seed password: %w", err)
		}
		user.Password = string(hashedPassword)
	}

	for _, override := range overrides {
		override(user)
	}

	if f.opts.DryRun {
		f.nextID++
		user.ID = f.nextID
		middleware.Logger.Debug("dry run: user not written", slog.String("username", user.Username))
		return user, nil
	}

	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// SampleScript builds a small, valid bulk update script from tags.
func (f *Factory) SampleScript(tags []string) string {
	pick := func() string {
		if len(tags) > 0 && f.rng.Intn(3) > 0 {
			return tags[f.rng.Intn(len(tags))]
		}
		return f.RandomTag()
	}
	pair := func() (string, string) {
		a := pick()
		b := pick()
		for i := 0; a == b && i < 5; i++ {
			b = f.RandomTag()
		}
		if a == b {
			b = a + "_alt"
		}
		return a, b
	}

	lines := make([]string, 0, 3)
	for i := f.rng.Intn(3) + 1; i > 0; i-- {
		a, b := pair()
		switch f.rng.Intn(3) {
		case 0:
			lines = append(lines, fmt.Sprintf("create alias [[%s]] -> [[%s]]", a, b))
		case 1:
			lines = append(lines, fmt.Sprintf("create implication [[%s]] -> [[%s]]", a, b))
		default:
			lines = append(lines, fmt.Sprintf("mass update {{%s}} -> %s", a, b))
		}
	}
	return strings.Join(lines, "\n")
}
