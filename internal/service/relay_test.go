package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/blogapi/internal/model"
	"github.com/d60-Lab/blogapi/pkg/eventbus"
)

type recordingPublisher struct {
	sent []eventbus.Message
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, msgs []eventbus.Message) error {
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, msgs...)
	return nil
}

func TestOutboxRelay_DeliversAndReleases(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.user(t, "alice", model.RoleAuthor)
	b := e.user(t, "bob", model.RoleGuest)
	post := e.post(t, a, "Hello")
	_, err := e.engagement.ToggleLike(ctx, b, post.ID)
	require.NoError(t, err)
	_, err = e.content.CreateComment(ctx, b, post.ID, CommentInput{Content: "hi"})
	require.NoError(t, err)

	pub := &recordingPublisher{err: errors.New("broker down")}
	relay := NewOutboxRelay(e.outbox, pub, RelayOptions{Workers: 1, BatchSize: 10, PollInterval: time.Millisecond})

	n, err := relay.ProcessOnce(ctx)
	assert.Error(t, err)
	assert.Zero(t, n)
	pending, err := e.outbox.CountByStatus(ctx, model.OutboxPending)
	require.NoError(t, err)
	assert.Equal(t, int64(2), pending)
	var attempts []int
	require.NoError(t, e.db.Model(&model.Outbox{}).Pluck("attempts", &attempts).Error)
	assert.Equal(t, []int{1, 1}, attempts)

	pub.err = nil
	n, err = relay.ProcessOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, pub.sent, 2)
	assert.Equal(t, EventNotificationCreated, pub.sent[0].Type)
	assert.Equal(t, "1", pub.sent[0].Key)

	done, err := e.outbox.CountByStatus(ctx, model.OutboxDone)
	require.NoError(t, err)
	assert.Equal(t, int64(2), done)

	n, err = relay.ProcessOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestOutboxRelay_StartStop(t *testing.T) {
	e := newEnv(t)
	pub := &recordingPublisher{}
	stop := NewOutboxRelay(e.outbox, pub, RelayOptions{Workers: 2, BatchSize: 10, PollInterval: 5 * time.Millisecond}).Start()
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, stop(ctx))
}

func TestOutboxRelay_RedeliversAbandonedClaims(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.user(t, "alice", model.RoleAuthor)
	b := e.user(t, "bob", model.RoleGuest)
	post := e.post(t, a, "Hello")
	_, err := e.engagement.ToggleLike(ctx, b, post.ID)
	require.NoError(t, err)

	// 一个 worker 领取后崩溃，既没有 MarkDone 也没有 Release
	claimed, err := e.outbox.ClaimPending(ctx, 10, time.Now().Add(-time.Minute))
	require.NoError(t, err)
	require.Len(t, claimed, 1)

	pub := &recordingPublisher{}
	relay := NewOutboxRelay(e.outbox, pub, RelayOptions{BatchSize: 10, ClaimLease: time.Hour})
	n, err := relay.ProcessOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "claim still within its lease")

	relay = NewOutboxRelay(e.outbox, pub, RelayOptions{BatchSize: 10, ClaimLease: time.Nanosecond})
	time.Sleep(5 * time.Millisecond)
	n, err = relay.ProcessOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, pub.sent, 1)

	processing, err := e.outbox.CountByStatus(ctx, model.OutboxProcessing)
	require.NoError(t, err)
	assert.Zero(t, processing)
	done, err := e.outbox.CountByStatus(ctx, model.OutboxDone)
	require.NoError(t, err)
	assert.Equal(t, int64(1), done)
}

func TestNotify_SkipsOutboxWithoutRelay(t *testing.T) {
	e := newEnv(t, withoutOutbox())
	ctx := context.Background()
	a := e.user(t, "alice", model.RoleAuthor)
	b := e.user(t, "bob", model.RoleGuest)
	post := e.post(t, a, "Hello")
	_, err := e.engagement.ToggleLike(ctx, b, post.ID)
	require.NoError(t, err)
	_, err = e.content.CreateComment(ctx, b, post.ID, CommentInput{Content: "hi"})
	require.NoError(t, err)

	assert.Equal(t, int64(2), e.countNotifications(t, a))
	var rows int64
	require.NoError(t, e.db.Model(&model.Outbox{}).Count(&rows).Error)
	assert.Zero(t, rows)
}
