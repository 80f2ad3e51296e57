package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"tagboard/internal/models"
	"tagboard/internal/repository"
	"tagboard/internal/script"
)

// memRequestRepo is an in-memory BulkUpdateRequestRepository.
type memRequestRepo struct {
	mu     sync.Mutex
	rows   map[uint]models.BulkUpdateRequest
	nextID uint

	transitionErr error
	// afterGet runs once GetByID has copied a row, outside the lock.
	afterGet func(id uint)
}

func newMemRequestRepo() *memRequestRepo {
	return &memRequestRepo{rows: make(map[uint]models.BulkUpdateRequest)}
}

func (r *memRequestRepo) Create(_ context.Context, req *models.BulkUpdateRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	req.ID = r.nextID
	row := *req
	row.Title, row.Reason = "", ""
	r.rows[req.ID] = row
	return nil
}

func (r *memRequestRepo) GetByID(_ context.Context, id uint) (*models.BulkUpdateRequest, error) {
	r.mu.Lock()
	row, ok := r.rows[id]
	hook := r.afterGet
	r.mu.Unlock()
	if !ok {
		return nil, models.NewNotFoundError("BulkUpdateRequest", id)
	}
	if hook != nil {
		hook(id)
	}
	return &row, nil
}

func (r *memRequestRepo) Update(_ context.Context, req *models.BulkUpdateRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[req.ID]
	if !ok {
		return models.NewNotFoundError("BulkUpdateRequest", req.ID)
	}
	if row.Status != models.BulkUpdateRequestStatusPending {
		return models.NewConflictError(fmt.Sprintf("Bulk update request #%d is %s and can no longer be edited", req.ID, row.Status))
	}
	row.Script = req.Script
	row.ForumTopicID = req.ForumTopicID
	r.rows[req.ID] = row
	return nil
}

func (r *memRequestRepo) SetForumTopic(_ context.Context, id, topicID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row := r.rows[id]
	row.ForumTopicID = &topicID
	r.rows[id] = row
	return nil
}

func (r *memRequestRepo) TransitionStatus(_ context.Context, id uint, from, to models.BulkUpdateRequestStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.transitionErr != nil {
		return false, r.transitionErr
	}
	row, ok := r.rows[id]
	if !ok || row.Status != from {
		return false, nil
	}
	row.Status = to
	r.rows[id] = row
	return true, nil
}

func (r *memRequestRepo) Search(_ context.Context, params repository.BulkUpdateRequestSearchParams, _, _ int) ([]models.BulkUpdateRequest, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.BulkUpdateRequest
	for _, row := range r.rows {
		if params.Status != "" && row.Status != params.Status {
			continue
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, int64(len(out)), nil
}

func (r *memRequestRepo) setStatus(id uint, status models.BulkUpdateRequestStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row := r.rows[id]
	row.Status = status
	r.rows[id] = row
}

func (r *memRequestRepo) scriptOf(id uint) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rows[id].Script
}

func (r *memRequestRepo) status(id uint) models.BulkUpdateRequestStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rows[id].Status
}

// insert stores a pending request directly, bypassing the service.
func (r *memRequestRepo) insert(scriptText string, topicID *uint) *models.BulkUpdateRequest {
	req := &models.BulkUpdateRequest{
		UserID:       2,
		Script:       scriptText,
		ForumTopicID: topicID,
		Status:       models.BulkUpdateRequestStatusPending,
	}
	_ = r.Create(context.Background(), req)
	return req
}

type applierStub struct {
	mu    sync.Mutex
	calls int
	fn    func(ctx context.Context, req *models.BulkUpdateRequest, tokens []script.Token) error
}

func (a *applierStub) Apply(ctx context.Context, req *models.BulkUpdateRequest, tokens []script.Token) error {
	a.mu.Lock()
	a.calls++
	a.mu.Unlock()
	if a.fn != nil {
		return a.fn(ctx, req, tokens)
	}
	return nil
}

func (a *applierStub) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

type forumPost struct {
	TopicID   uint
	CreatorID uint
	Body      string
}

type forumStub struct {
	mu       sync.Mutex
	topics   map[uint]string
	posts    []forumPost
	nextID   uint
	createFn func(title, body string) error
	postFn   func(topicID uint, body string) error
}

func newForumStub() *forumStub {
	return &forumStub{topics: make(map[uint]string), nextID: 100}
}

func (f *forumStub) addTopic(title string) uint {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.topics[f.nextID] = title
	return f.nextID
}

func (f *forumStub) TopicExists(_ context.Context, id uint) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.topics[id]
	return ok, nil
}

func (f *forumStub) CreateTopic(_ context.Context, creatorID uint, title, body string) (uint, error) {
	if f.createFn != nil {
		if err := f.createFn(title, body); err != nil {
			return 0, err
		}
	}
	id := f.addTopic(title)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posts = append(f.posts, forumPost{TopicID: id, CreatorID: creatorID, Body: body})
	return id, nil
}

func (f *forumStub) CreatePost(_ context.Context, topicID, creatorID uint, body string) error {
	if f.postFn != nil {
		if err := f.postFn(topicID, body); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.topics[topicID]; !ok {
		return fmt.Errorf("topic %d not found", topicID)
	}
	f.posts = append(f.posts, forumPost{TopicID: topicID, CreatorID: creatorID, Body: body})
	return nil
}

func (f *forumStub) postsOn(topicID uint) []forumPost {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []forumPost
	for _, p := range f.posts {
		if p.TopicID == topicID {
			out = append(out, p)
		}
	}
	return out
}

type sentMail struct {
	FromID, ToID uint
	Title, Body  string
}

type mailStub struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *mailStub) Send(_ context.Context, fromID, toID uint, title, body string) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{FromID: fromID, ToID: toID, Title: title, Body: body})
	return nil
}

func (m *mailStub) messages() []sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMail(nil), m.sent...)
}

type usersStub struct {
	admins []models.User
	err    error
}

func (u *usersStub) NotificationAdmins(context.Context) ([]models.User, error) {
	return u.admins, u.err
}

type eventsStub struct {
	mu     sync.Mutex
	events []string
}

func (e *eventsStub) PublishBroadcast(_ context.Context, eventType string, _ interface{}) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, eventType)
	return nil
}

func (e *eventsStub) PublishUser(_ context.Context, _ uint, eventType string, _ interface{}) error {
	return e.PublishBroadcast(context.Background(), eventType, nil)
}

type fixture struct {
	repo    *memRequestRepo
	applier *applierStub
	forum   *forumStub
	mail    *mailStub
	users   *usersStub
	events  *eventsStub
	svc     *BulkUpdateRequestService
}

func newFixture() *fixture {
	f := &fixture{
		repo:    newMemRequestRepo(),
		applier: &applierStub{},
		forum:   newForumStub(),
		mail:    &mailStub{},
		users:   &usersStub{admins: []models.User{{ID: 1, Username: "admin", IsAdmin: true}}},
		events:  &eventsStub{},
	}
	f.svc = NewBulkUpdateRequestService(BulkUpdateRequestDeps{
		Repo:    f.repo,
		Applier: f.applier,
		Users:   f.users,
		Forum:   f.forum,
		Mail:    f.mail,
		Events:  f.events,
	})
	return f
}
