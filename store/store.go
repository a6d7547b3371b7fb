// Package store owns the persisted collection of blog posts.
//
// The whole collection lives as one JSON array in a single slot. Every
// mutation reads the array, changes it in memory and writes it back in full,
// so a write either replaces the blob entirely or leaves the previous blob
// in place. Writers in other processes are not coordinated: the last full
// write wins.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"

	"quill/db"
	"quill/models"
)

// DefaultKey is the slot holding the posts blob
const DefaultKey = "blogPosts"

var (
	// ErrPersist wraps failures to write the posts blob
	ErrPersist = errors.New("posts could not be persisted")
	// ErrUnavailable is returned by mutations when the current blob cannot be read
	ErrUnavailable = errors.New("post storage is unavailable")
	// ErrInvalidImport is returned by Import for blobs that would break the collection invariants
	ErrInvalidImport = errors.New("invalid posts import")
)

// Publisher receives an event after every successful mutation
type Publisher interface {
	Publish(event interface{})
}

type Store struct {
	mu        sync.Mutex
	slots     db.SlotStore
	key       string
	now       func() time.Time
	newID     func() string
	publisher Publisher
}

type Option func(*Store)

func WithKey(key string) Option {
	return func(s *Store) { s.key = key }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

func WithPublisher(p Publisher) Option {
	return func(s *Store) { s.publisher = p }
}

func New(slots db.SlotStore, opts ...Option) *Store {
	s := &Store{
		slots: slots,
		key:   DefaultKey,
		now:   time.Now,
		newID: func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns a snapshot of every stored post in insertion order. A missing,
// corrupt or unreadable blob yields an empty slice.
func (s *Store) List(ctx context.Context) []models.Post {
	s.mu.Lock()
	defer s.mu.Unlock()

	posts, err := s.load(ctx)
	if err != nil {
		observe("list", err)
		return []models.Post{}
	}
	observe("list", nil)
	return posts
}

// Get returns the post with the given id. The boolean is false when no such
// post exists or the blob cannot be read.
func (s *Store) Get(ctx context.Context, id string) (models.Post, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	posts, err := s.load(ctx)
	if err != nil {
		observe("get", err)
		return models.Post{}, false
	}
	observe("get", nil)
	return lo.Find(posts, func(p models.Post) bool { return p.Id == id })
}

// Create stores a new post with a fresh id. The date defaults to the current time.
func (s *Store) Create(ctx context.Context, in models.PostInput) (models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	posts, err := s.load(ctx)
	if err != nil {
		observe("create", err)
		return models.Post{}, err
	}

	id := s.newID()
	for lo.ContainsBy(posts, func(p models.Post) bool { return p.Id == id }) {
		log.WithField("id", id).Warn("Generated post id already in use, drawing another")
		id = s.newID()
	}

	post := models.Post{
		Id:      id,
		Title:   in.Title,
		Content: in.Content,
		Date:    s.dateOrNow(in.Date),
	}

	if err := s.save(ctx, append(posts, post)); err != nil {
		observe("create", err)
		return models.Post{}, err
	}

	log.WithFields(log.Fields{
		"id":    post.Id,
		"title": post.Title,
		"date":  post.Date,
	}).Info("Created post")

	observe("create", nil)
	s.publish(models.CreatePostEvent{Post: post})
	return post, nil
}

// Update replaces title, content and date of an existing post. The boolean is
// false, and nothing is written, when the id is unknown.
func (s *Store) Update(ctx context.Context, id string, in models.PostInput) (models.Post, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	posts, err := s.load(ctx)
	if err != nil {
		observe("update", err)
		return models.Post{}, false, err
	}

	_, idx, ok := lo.FindIndexOf(posts, func(p models.Post) bool { return p.Id == id })
	if !ok {
		log.WithField("id", id).Warn("Post not found for update")
		observe("update", nil)
		return models.Post{}, false, nil
	}

	updated := posts[idx]
	updated.Title = in.Title
	updated.Content = in.Content
	updated.Date = s.dateOrNow(in.Date)

	next := append([]models.Post(nil), posts...)
	next[idx] = updated
	if err := s.save(ctx, next); err != nil {
		observe("update", err)
		return models.Post{}, false, err
	}

	log.WithFields(log.Fields{
		"id":    updated.Id,
		"title": updated.Title,
	}).Info("Updated post")

	observe("update", nil)
	s.publish(models.UpdatePostEvent{Post: updated})
	return updated, true, nil
}

// Delete removes the post with the given id. It reports false, without
// writing, when there was nothing to remove.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	posts, err := s.load(ctx)
	if err != nil {
		observe("delete", err)
		return false, err
	}

	removed, ok := lo.Find(posts, func(p models.Post) bool { return p.Id == id })
	if !ok {
		log.WithField("id", id).Warn("Post not found for deletion")
		observe("delete", nil)
		return false, nil
	}

	remaining := lo.Reject(posts, func(p models.Post, _ int) bool { return p.Id == id })
	if err := s.save(ctx, remaining); err != nil {
		observe("delete", err)
		return false, err
	}

	log.WithField("id", id).Info("Deleted post")
	observe("delete", nil)
	s.publish(models.DeletePostEvent{Post: removed})
	return true, nil
}

// Prune deletes every post dated before cutoff and returns how many were
// removed. Posts whose date cannot be parsed are kept.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	posts, err := s.load(ctx)
	if err != nil {
		observe("prune", err)
		return 0, err
	}

	isStale := func(p models.Post, _ int) bool {
		t, err := models.ParseDate(p.Date)
		return err == nil && t.Before(cutoff)
	}
	stale := lo.Filter(posts, isStale)
	if len(stale) == 0 {
		observe("prune", nil)
		return 0, nil
	}

	if err := s.save(ctx, lo.Reject(posts, isStale)); err != nil {
		observe("prune", err)
		return 0, err
	}

	log.WithFields(log.Fields{
		"removed": len(stale),
		"cutoff":  models.FormatDate(cutoff),
	}).Info("Pruned posts")

	observe("prune", nil)
	for _, p := range stale {
		s.publish(models.DeletePostEvent{Post: p})
	}
	return len(stale), nil
}

// Export returns the collection serialized exactly as it is persisted. An
// unreadable slot is an error rather than an empty export.
func (s *Store) Export(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	posts, err := s.load(ctx)
	observe("export", err)
	if err != nil {
		return nil, err
	}
	return json.Marshal(posts)
}

// Import replaces the whole collection with the posts in raw. Every post needs
// a non-empty unique id and a title. Subscribers see a delete event for every
// previous post followed by a create event for every imported one.
func (s *Store) Import(ctx context.Context, raw []byte) (int, error) {
	var posts []models.Post
	if err := json.Unmarshal(raw, &posts); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidImport, err)
	}
	if posts == nil {
		posts = []models.Post{}
	}

	seen := make(map[string]bool, len(posts))
	for i, p := range posts {
		switch {
		case p.Id == "":
			return 0, fmt.Errorf("%w: post %d has no id", ErrInvalidImport, i)
		case seen[p.Id]:
			return 0, fmt.Errorf("%w: duplicate id %s", ErrInvalidImport, p.Id)
		case p.Title == "":
			return 0, fmt.Errorf("%w: post %s has no title", ErrInvalidImport, p.Id)
		}
		seen[p.Id] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// The import does not depend on what is stored, only the events do
	previous, err := s.load(ctx)
	if err != nil {
		previous = nil
	}

	if err := s.save(ctx, posts); err != nil {
		observe("import", err)
		return 0, err
	}
	observe("import", nil)
	log.WithFields(log.Fields{
		"count":    len(posts),
		"replaced": len(previous),
	}).Info("Imported posts")

	for _, p := range previous {
		s.publish(models.DeletePostEvent{Post: p})
	}
	for _, p := range posts {
		s.publish(models.CreatePostEvent{Post: p})
	}
	return len(posts), nil
}

// CountPerTime buckets posts by hour, day or week of their date
func (s *Store) CountPerTime(ctx context.Context, timeAgg string) []models.PostsAggregatedByTime {
	var bucket func(time.Time) time.Time
	switch timeAgg {
	case "day":
		bucket = startOfDay
	case "week":
		bucket = func(t time.Time) time.Time {
			t = t.UTC()
			offset := (int(t.Weekday()) + 6) % 7 // weeks start on Monday
			return startOfDay(t).AddDate(0, 0, -offset)
		}
	default:
		bucket = func(t time.Time) time.Time { return t.UTC().Truncate(time.Hour) }
	}

	counts := make(map[time.Time]int64)
	for _, p := range s.List(ctx) {
		t, err := models.ParseDate(p.Date)
		if err != nil {
			continue
		}
		counts[bucket(t)]++
	}

	result := lo.MapToSlice(counts, func(t time.Time, n int64) models.PostsAggregatedByTime {
		return models.PostsAggregatedByTime{Time: t, Count: n}
	})
	sort.Slice(result, func(i, j int) bool { return result[i].Time.Before(result[j].Time) })
	return result
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (s *Store) dateOrNow(date string) string {
	if date != "" {
		return date
	}
	return models.FormatDate(s.now())
}

// load reads the current collection. Only an unreadable slot is an error;
// a missing or undecodable blob is an empty collection.
func (s *Store) load(ctx context.Context) ([]models.Post, error) {
	raw, err := s.slots.Get(ctx, s.key)
	if errors.Is(err, db.ErrSlotNotFound) {
		return []models.Post{}, nil
	}
	if err != nil {
		log.WithFields(log.Fields{
			"slot":  s.key,
			"error": err,
		}).Error("Error reading posts")
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	var posts []models.Post
	if err := json.Unmarshal(raw, &posts); err != nil {
		log.WithFields(log.Fields{
			"slot":  s.key,
			"error": err,
		}).Error("Stored posts are corrupt, treating as empty")
		return []models.Post{}, nil
	}
	if posts == nil {
		posts = []models.Post{}
	}
	return posts, nil
}

func (s *Store) save(ctx context.Context, posts []models.Post) error {
	raw, err := json.Marshal(posts)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	if err := s.slots.Put(ctx, s.key, raw); err != nil {
		writeErrors.Inc()
		log.WithFields(log.Fields{
			"slot":  s.key,
			"error": err,
		}).Error("Error saving posts")
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	storedPosts.Set(float64(len(posts)))
	return nil
}

func (s *Store) publish(event interface{}) {
	if s.publisher != nil {
		s.publisher.Publish(event)
	}
}
