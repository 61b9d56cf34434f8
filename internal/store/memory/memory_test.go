package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/blues/tracker/internal/apperr"
	"github.com/blues/tracker/internal/model"
	"github.com/blues/tracker/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func createTestIssue(id string, seconds int) *model.IssueModel {
	return &model.IssueModel{
		Id:        id,
		Title:     "issue " + id,
		CreatedAt: time.Date(2026, 1, 1, 0, 0, seconds, 0, time.UTC),
		CreatedBy: model.UserRef{Uid: "u1", DisplayName: "Alice"},
		Status:    model.IssueStatusNotStarted,
		Priority:  model.IssuePriorityMedium,
	}
}

func TestIssueCRUD(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.CreateIssue(ctx, createTestIssue("a", 1)))
	assert.ErrorIs(t, s.CreateIssue(ctx, createTestIssue("a", 1)), apperr.ErrValidation)

	due := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.UpdateIssue(ctx, "a", map[string]interface{}{
		"progress":     40,
		"status":       model.IssueStatusInProgress,
		"due_date":     &due,
		"assignee_uid": "u2",
		"watchers":     datatypes.NewJSONSlice([]string{"u1", "u2"}),
	}))

	got, err := s.GetIssue(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 40, got.Progress)
	assert.Equal(t, model.IssueStatusInProgress, got.Status)
	assert.Equal(t, due, *got.DueDate)
	assert.Equal(t, "u2", got.Assignee.Uid)
	assert.Equal(t, []string{"u1", "u2"}, []string(got.Watchers))

	require.NoError(t, s.UpdateIssue(ctx, "a", map[string]interface{}{"due_date": nil}))
	got, err = s.GetIssue(ctx, "a")
	require.NoError(t, err)
	assert.Nil(t, got.DueDate)

	assert.ErrorIs(t, s.UpdateIssue(ctx, "a", map[string]interface{}{"progress": "50"}), apperr.ErrValidation)
	assert.ErrorIs(t, s.UpdateIssue(ctx, "a", map[string]interface{}{"bogus": 1}), apperr.ErrValidation)
	assert.ErrorIs(t, s.UpdateIssue(ctx, "missing", map[string]interface{}{}), apperr.ErrNotFound)

	require.NoError(t, s.DeleteIssue(ctx, "a"))
	_, err = s.GetIssue(ctx, "a")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.ErrorIs(t, s.DeleteIssue(ctx, "a"), apperr.ErrNotFound)
}

func TestUpdateIssueIfProgress(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.CreateIssue(ctx, createTestIssue("a", 1)))

	written, err := s.UpdateIssueIfProgress(ctx, "a", 50, map[string]interface{}{"status": model.IssueStatusDone})
	require.NoError(t, err)
	assert.False(t, written)
	got, err := s.GetIssue(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, model.IssueStatusNotStarted, got.Status)

	written, err = s.UpdateIssueIfProgress(ctx, "a", 0, map[string]interface{}{"status": model.IssueStatusInProgress})
	require.NoError(t, err)
	assert.True(t, written)
	got, err = s.GetIssue(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, model.IssueStatusInProgress, got.Status)

	_, err = s.UpdateIssueIfProgress(ctx, "missing", 0, map[string]interface{}{})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestGetIssue_ReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := New()
	issue := createTestIssue("a", 1)
	issue.Watchers = []string{"u1"}
	require.NoError(t, s.CreateIssue(ctx, issue))

	got, err := s.GetIssue(ctx, "a")
	require.NoError(t, err)
	got.Title = "changed"
	got.Watchers[0] = "zzz"

	again, err := s.GetIssue(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "issue a", again.Title)
	assert.Equal(t, "u1", again.Watchers[0])
}

func TestListIssues_Scope(t *testing.T) {
	ctx := context.Background()
	s := New()
	teamId := "team_1"

	personal := createTestIssue("p", 2)
	other := createTestIssue("o", 3)
	other.CreatedBy.Uid = "u9"
	team := createTestIssue("t", 1)
	team.TeamId = &teamId
	for _, i := range []*model.IssueModel{personal, other, team} {
		require.NoError(t, s.CreateIssue(ctx, i))
	}

	mine, err := s.ListIssues(ctx, store.Personal("u1"))
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "p", mine[0].Id)

	teamIssues, err := s.ListIssues(ctx, store.Team("team_1"))
	require.NoError(t, err)
	require.Len(t, teamIssues, 1)
	assert.Equal(t, "t", teamIssues[0].Id)

	all, err := s.ListAllIssues(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, "t", all[0].Id)
}

func TestNextIssueNumber_ConcurrentUnique(t *testing.T) {
	ctx := context.Background()
	s := New()

	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := make(map[int64]bool)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := s.NextIssueNumber(ctx)
			assert.NoError(t, err)
			mu.Lock()
			seen[n] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, 50)
	for i := int64(1); i <= 50; i++ {
		assert.True(t, seen[i])
	}
}

func TestSubscribeIssues(t *testing.T) {
	ctx := context.Background()
	s := New()

	ch, cancel, err := s.SubscribeIssues(ctx, store.Personal("u1"))
	require.NoError(t, err)

	initial := <-ch
	assert.Empty(t, initial)

	require.NoError(t, s.CreateIssue(ctx, createTestIssue("a", 1)))
	snapshot := <-ch
	require.Len(t, snapshot, 1)
	assert.Equal(t, "a", snapshot[0].Id)

	cancel()
	cancel()
	_, open := <-ch
	assert.False(t, open)

	// writes after cancel must not panic on the closed channel
	require.NoError(t, s.CreateIssue(ctx, createTestIssue("b", 2)))
}

func TestSubscribeIssues_ContextCancel(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())

	ch, _, err := s.SubscribeIssues(ctx, store.Personal("u1"))
	require.NoError(t, err)
	<-ch

	cancel()
	require.Eventually(t, func() bool {
		_, open := <-ch
		return !open
	}, time.Second, time.Millisecond)
}

func TestTeams(t *testing.T) {
	ctx := context.Background()
	s := New()

	team := &model.TeamModel{
		Id:      "team_1",
		Name:    "開発",
		AdminId: "u1",
		Members: []model.TeamMember{{Uid: "u1", Role: model.TeamRoleAdmin}, {Uid: "u2", Role: model.TeamRoleViewer}},
	}
	require.NoError(t, s.CreateTeam(ctx, team))

	teams, err := s.ListTeamsForUser(ctx, "u2")
	require.NoError(t, err)
	assert.Len(t, teams, 1)

	teams, err = s.ListTeamsForUser(ctx, "u3")
	require.NoError(t, err)
	assert.Empty(t, teams)

	members := datatypes.NewJSONSlice([]model.TeamMember{{Uid: "u1", Role: model.TeamRoleAdmin}})
	require.NoError(t, s.UpdateTeam(ctx, "team_1", map[string]interface{}{"name": "新名前", "members": members}))

	got, err := s.GetTeam(ctx, "team_1")
	require.NoError(t, err)
	assert.Equal(t, "新名前", got.Name)
	assert.Len(t, got.Members, 1)

	require.NoError(t, s.DeleteTeam(ctx, "team_1"))
	_, err = s.GetTeam(ctx, "team_1")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestNotifications(t *testing.T) {
	ctx := context.Background()
	s := New()

	for i, id := range []string{"n1", "n2", "n3"} {
		require.NoError(t, s.CreateNotification(ctx, &model.NotificationModel{
			Id:          id,
			RecipientId: "u1",
			Type:        model.NotificationTypeMention,
			CreatedAt:   time.Date(2026, 1, 1, 0, 0, i, 0, time.UTC),
		}))
	}
	require.NoError(t, s.CreateNotification(ctx, &model.NotificationModel{Id: "other", RecipientId: "u2"}))

	list, err := s.ListNotifications(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "n3", list[0].Id)

	assert.ErrorIs(t, s.MarkNotificationRead(ctx, "other", "u1"), apperr.ErrNotFound)
	require.NoError(t, s.MarkNotificationRead(ctx, "n1", "u1"))

	unread, err := s.CountUnreadNotifications(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), unread)

	updated, err := s.MarkAllNotificationsRead(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated)

	unread, err = s.CountUnreadNotifications(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, unread)
}

func TestChat(t *testing.T) {
	ctx := context.Background()
	s := New()

	ch, cancel, err := s.SubscribeChat(ctx, "issue_1")
	require.NoError(t, err)
	defer cancel()
	assert.Empty(t, <-ch)

	require.NoError(t, s.CreateChatMessage(ctx, &model.ChatMessageModel{Id: "m1", IssueId: "issue_1", Content: "hello"}))
	require.NoError(t, s.CreateChatMessage(ctx, &model.ChatMessageModel{Id: "m2", IssueId: "issue_2", Content: "elsewhere"}))

	snapshot := <-ch
	require.Len(t, snapshot, 1)
	assert.Equal(t, "hello", snapshot[0].Content)

	msgs, err := s.ListChatMessages(ctx, "issue_2")
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}
