package logic

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/blues/tracker/internal/auth"
	"github.com/blues/tracker/internal/logger"
	"github.com/blues/tracker/internal/mention"
	"github.com/blues/tracker/internal/model"
	"github.com/blues/tracker/internal/store/memory"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestMain(m *testing.M) {
	logger.SetDefaultLogger(logger.NewNop())
	os.Exit(m.Run())
}

var testNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func session(uid, name string) *auth.Session {
	return &auth.Session{User: model.UserRef{Uid: uid, DisplayName: name}}
}

var (
	alice = session("alice", "Alice")
	bob   = session("bob", "Bob")
	carol = session("carol", "Carol")
	dave  = session("dave", "Dave")
)

type fixture struct {
	store         *memory.Store
	issues        *IssueLogic
	teams         *TeamLogic
	comments      *CommentLogic
	notifications *NotificationLogic
	chat          *ChatLogic
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := memory.New()
	f := &fixture{
		store:         st,
		issues:        NewIssueLogic(st),
		teams:         NewTeamLogic(st),
		comments:      NewCommentLogic(st, mention.NewDispatcher(st, mention.ModeSequential, 0)),
		notifications: NewNotificationLogic(st),
		chat:          NewChatLogic(st),
	}
	f.issues.now = fixedClock
	f.teams.now = fixedClock
	f.comments.now = fixedClock
	f.chat.now = fixedClock
	return f
}

// newTeam alice 为管理员，bob 为 editor，carol 为 viewer
func (f *fixture) newTeam(t *testing.T) *model.TeamModel {
	t.Helper()
	ctx := context.Background()
	team, err := f.teams.CreateTeam(ctx, alice, TeamInput{Name: "開発チーム"})
	require.NoError(t, err)
	_, err = f.teams.AddMember(ctx, alice, team.Id, model.TeamMember{Uid: "bob", DisplayName: "Bob", Role: model.TeamRoleEditor})
	require.NoError(t, err)
	team, err = f.teams.AddMember(ctx, alice, team.Id, model.TeamMember{Uid: "carol", DisplayName: "Carol", Role: model.TeamRoleViewer})
	require.NoError(t, err)
	return team
}

// failingCreator 对指定用户写入通知失败
type failingCreator struct {
	*memory.Store
	failFor string
}

func (c failingCreator) CreateNotification(ctx context.Context, n *model.NotificationModel) error {
	if n.RecipientId == c.failFor {
		return errors.New("write refused")
	}
	return c.Store.CreateNotification(ctx, n)
}

func watchers(ids ...string) datatypes.JSONSlice[string] {
	return datatypes.JSONSlice[string](ids)
}
