package models

import (
	"sort"
	"time"
)

// DateLayout matches the ISO strings produced by JavaScript's toISOString
const DateLayout = "2006-01-02T15:04:05.000Z07:00"

// Post is a single blog entry as stored in the posts blob
type Post struct {
	Id      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Date    string `json:"date"`
}

// PostInput carries the writable fields of a post. Date is optional.
type PostInput struct {
	Title   string `json:"title" form:"title" validate:"required,min=3"`
	Content string `json:"content" form:"content" validate:"required,min=10"`
	Date    string `json:"date,omitempty" form:"date" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

// FormatDate renders t the way dates are persisted
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// ParseDate accepts any RFC 3339 timestamp, with or without fractional seconds
func ParseDate(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// SortByRecency orders posts newest first. Posts with unparseable dates sink to the end.
func SortByRecency(posts []Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		a, errA := ParseDate(posts[i].Date)
		b, errB := ParseDate(posts[j].Date)
		switch {
		case errA != nil:
			return false
		case errB != nil:
			return true
		}
		return a.After(b)
	})
}

// CreatePostEvent fired when a new post is created
type CreatePostEvent struct {
	Post Post
}

// UpdatePostEvent fired when a post is updated
type UpdatePostEvent struct {
	Post Post
}

// DeletePostEvent fired when a post is deleted
type DeletePostEvent struct {
	Post Post
}

type PostsAggregatedByTime struct {
	Time  time.Time `json:"time"`
	Count int64     `json:"count"`
}
