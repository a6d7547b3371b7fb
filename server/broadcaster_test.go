package server

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"quill/models"
)

func TestBroadcasterFanOut(t *testing.T) {
	bc := NewBroadcaster()
	a := make(chan interface{}, 1)
	b := make(chan interface{}, 1)
	bc.AddClient("a", a)
	bc.AddClient("b", b)

	evt := models.CreatePostEvent{Post: models.Post{Id: "1"}}
	bc.Publish(evt)
	assert.Equal(t, evt, <-a)
	assert.Equal(t, evt, <-b)

	// a full client is skipped instead of blocking
	bc.Publish(evt)
	bc.Publish(models.DeletePostEvent{Post: models.Post{Id: "1"}})
	assert.Len(t, a, 1)

	bc.Publish("not an event")
	assert.Equal(t, evt, <-a)
	assert.Empty(t, a)

	bc.RemoveClient("a")
	_, open := <-a
	assert.False(t, open)
	assert.Equal(t, 1, bc.Clients())

	bc.RemoveClient("missing")
	bc.Shutdown()
	assert.Equal(t, 0, bc.Clients())
	_, open = <-b
	assert.True(t, open, "buffered event is still delivered")
	_, open = <-b
	assert.False(t, open)
}

func TestEventName(t *testing.T) {
	post := models.Post{Id: "1"}
	tests := []struct {
		event interface{}
		name  string
		known bool
	}{
		{models.CreatePostEvent{Post: post}, "create-post", true},
		{models.UpdatePostEvent{Post: post}, "update-post", true},
		{models.DeletePostEvent{Post: post}, "delete-post", true},
		{42, "", false},
	}
	for _, tt := range tests {
		name, got, known := eventName(tt.event)
		assert.Equal(t, tt.name, name)
		assert.Equal(t, tt.known, known)
		if known {
			assert.Equal(t, post, got)
		}
	}
}
