package models_test

import (
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quill/models"
)

func TestFormatDate(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	ts := time.Date(2024, 5, 17, 9, 4, 5, 123_456_789, loc)
	assert.Equal(t, "2024-05-17T08:04:05.123Z", models.FormatDate(ts))
}

func TestParseDate(t *testing.T) {
	for _, s := range []string{
		"2024-05-17T08:04:05.123Z",
		"2024-05-17T08:04:05Z",
		"2024-05-17T10:04:05+02:00",
	} {
		t.Run(s, func(t *testing.T) {
			got, err := models.ParseDate(s)
			assert.NoError(t, err)
			assert.Equal(t, 2024, got.Year())
		})
	}

	_, err := models.ParseDate("17/05/2024")
	assert.Error(t, err)
}

func TestSortByRecency(t *testing.T) {
	posts := []models.Post{
		{Id: "old", Date: "2023-01-01T00:00:00.000Z"},
		{Id: "broken", Date: "not a date"},
		{Id: "new", Date: "2024-06-01T00:00:00.000Z"},
		{Id: "mid", Date: "2024-01-01T10:00:00+02:00"},
	}

	models.SortByRecency(posts)

	got := make([]string, len(posts))
	for i, p := range posts {
		got[i] = p.Id
	}
	assert.Equal(t, []string{"new", "mid", "old", "broken"}, got)
}

func TestValidateInput(t *testing.T) {
	v := validator.New()

	tests := []struct {
		name    string
		in      models.PostInput
		message string
	}{
		{name: "valid", in: models.PostInput{Title: "Hey", Content: "0123456789"}},
		{name: "valid with date", in: models.PostInput{Title: "Hey", Content: "0123456789", Date: "2024-01-01T00:00:00Z"}},
		{name: "fractional date", in: models.PostInput{Title: "Hey", Content: "0123456789", Date: "2024-01-01T00:00:00.000Z"}},
		{name: "empty", in: models.PostInput{}, message: "Title is required. Content is required."},
		{name: "short", in: models.PostInput{Title: "Hi", Content: "short"}, message: "Title must be at least 3 characters long. Content must be at least 10 characters long."},
		{name: "bad date", in: models.PostInput{Title: "Hey", Content: "0123456789", Date: "yesterday"}, message: "Date must be an ISO-8601 timestamp."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := models.ValidateInput(v, tt.in)
			if tt.message == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.message, err.Error())
		})
	}
}
