package logic

import (
	"context"
	"testing"
	"time"

	"github.com/blues/tracker/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChat(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	team := f.newTeam(t)

	item, err := f.issues.CreateIssue(ctx, alice, IssueInput{Title: "t", TeamId: team.Id, IsPrivate: true})
	require.NoError(t, err)

	ch, stop, err := f.chat.Subscribe(ctx, bob, item.Id)
	require.NoError(t, err)
	defer stop()

	msg, err := f.chat.PostMessage(ctx, alice, item.Id, "進捗どうですか")
	require.NoError(t, err)
	assert.Equal(t, "Alice", msg.SenderName)

	deadline := time.After(2 * time.Second)
	for received := false; !received; {
		select {
		case msgs := <-ch:
			received = len(msgs) == 1
		case <-deadline:
			t.Fatal("chat update not delivered")
		}
	}

	msgs, err := f.chat.ListMessages(ctx, carol, item.Id)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)

	_, err = f.chat.PostMessage(ctx, alice, item.Id, "")
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = f.chat.ListMessages(ctx, dave, item.Id)
	assert.ErrorIs(t, err, apperr.ErrPermissionDenied)
}
