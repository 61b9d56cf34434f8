package mention

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/blues/tracker/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingCreator struct {
	mu      sync.Mutex
	created []*model.NotificationModel
	failFor map[string]bool
}

func (r *recordingCreator) CreateNotification(_ context.Context, n *model.NotificationModel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failFor[n.RecipientId] {
		return errors.New("write failed")
	}
	r.created = append(r.created, n)
	return nil
}

func (r *recordingCreator) recipients() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.created))
	for _, n := range r.created {
		out = append(out, n.RecipientId)
	}
	return out
}

func testContext() MentionContext {
	return MentionContext{
		IssueId:   "issue_1",
		CommentId: "comment_1",
		TeamId:    "team_1",
		Author:    model.UserRef{Uid: "u1", DisplayName: "Alice"},
		Content:   "@[u2:Bob] @[u3:Carol] 確認お願いします",
	}
}

func testUsers() []model.UserRef {
	return []model.UserRef{
		{Uid: "u2", DisplayName: "Bob"},
		{Uid: "u3", DisplayName: "Carol"},
		{Uid: "u2", DisplayName: "Bob"},
		{Uid: "u4", DisplayName: "Dan"},
	}
}

func TestDispatch_Sequential(t *testing.T) {
	creator := &recordingCreator{}
	d := NewDispatcher(creator, ModeSequential, 0)

	report := d.Dispatch(context.Background(), testUsers(), testContext())

	assert.Equal(t, []string{"u2", "u3", "u4"}, report.Sent)
	assert.Empty(t, report.Failed)
	require.Len(t, creator.created, 3)

	n := creator.created[0]
	assert.Equal(t, model.NotificationTypeMention, n.Type)
	assert.Equal(t, "issue_1", n.IssueId)
	assert.Equal(t, "comment_1", n.CommentId)
	assert.Equal(t, "team_1", n.TeamId)
	assert.Equal(t, "u1", n.SenderId)
	assert.Equal(t, "Alice", n.SenderName)
	assert.Contains(t, n.Content, "Alice")
	assert.Contains(t, n.Content, testContext().Content)
	assert.False(t, n.Read)
	assert.NotEmpty(t, n.Id)
}

func TestDispatch_BestEffort(t *testing.T) {
	creator := &recordingCreator{failFor: map[string]bool{"u3": true}}
	d := NewDispatcher(creator, ModeSequential, 0)

	report := d.Dispatch(context.Background(), testUsers(), testContext())

	assert.Equal(t, []string{"u2", "u4"}, report.Sent)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, "u3", report.Failed[0].RecipientId)
	assert.Error(t, report.Failed[0].Err)
}

func TestDispatch_ConcurrentMatchesSequential(t *testing.T) {
	creator := &recordingCreator{failFor: map[string]bool{"u4": true}}
	d := NewDispatcher(creator, ModeConcurrent, 2)

	report := d.Dispatch(context.Background(), testUsers(), testContext())

	assert.Equal(t, []string{"u2", "u3"}, report.Sent)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, "u4", report.Failed[0].RecipientId)

	got := creator.recipients()
	sort.Strings(got)
	assert.Equal(t, []string{"u2", "u3"}, got)
}

func TestDispatch_SelfMentionIsKept(t *testing.T) {
	creator := &recordingCreator{}
	d := NewDispatcher(creator, ModeSequential, 0)

	report := d.Dispatch(context.Background(), []model.UserRef{{Uid: "u1", DisplayName: "Alice"}}, testContext())
	assert.Equal(t, []string{"u1"}, report.Sent)
}

func TestDispatch_CancelledContext(t *testing.T) {
	creator := &recordingCreator{}
	d := NewDispatcher(creator, ModeSequential, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := d.Dispatch(ctx, testUsers(), testContext())
	assert.Empty(t, report.Sent)
	assert.Len(t, report.Failed, 3)
	assert.Empty(t, creator.created)
}

func TestDispatch_Empty(t *testing.T) {
	d := NewDispatcher(&recordingCreator{}, ModeConcurrent, 4)
	report := d.Dispatch(context.Background(), nil, testContext())
	assert.Empty(t, report.Sent)
	assert.Empty(t, report.Failed)
}
