package sse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_PublishByTopic(t *testing.T) {
	h := NewHub()

	employee, cleanupEmployee := h.Subscribe(UserTopic("u1"))
	manager, cleanupManager := h.Subscribe(UserTopic("m1"), CompanyTopic("c1"))
	defer cleanupManager()

	h.Publish(CompanyTopic("c1"), Event{Event: EventPunchRecorded, Data: "p1"})
	h.Publish(UserTopic("u1"), Event{Event: EventPunchRecorded, Data: "p1"})

	got := <-manager
	assert.Equal(t, EventPunchRecorded, got.Event)
	assert.Equal(t, CompanyTopic("c1"), got.Topic)

	got = <-employee
	assert.Equal(t, UserTopic("u1"), got.Topic)
	assert.Len(t, manager, 0)

	cleanupEmployee()
	cleanupEmployee()
	_, open := <-employee
	assert.False(t, open)
	assert.Zero(t, h.SubscriberCount(UserTopic("u1")))
	assert.Equal(t, 1, h.SubscriberCount(CompanyTopic("c1")))
}

func TestHub_PublishDoesNotBlock(t *testing.T) {
	h := NewHub()
	ch, cleanup := h.Subscribe(UserTopic("u1"))
	defer cleanup()

	for i := 0; i < 100; i++ {
		h.Publish(UserTopic("u1"), Event{Event: EventPunchRecorded, Data: i})
	}
	require.Len(t, ch, cap(ch))
}
