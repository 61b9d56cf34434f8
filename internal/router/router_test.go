package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/blues/tracker/internal/auth"
	"github.com/blues/tracker/internal/config"
	"github.com/blues/tracker/internal/logger"
	"github.com/blues/tracker/internal/store/memory"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	logger.SetDefaultLogger(logger.NewNop())
	os.Exit(m.Run())
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type client struct {
	t      *testing.T
	engine *gin.Engine
}

func newClient(t *testing.T) *client {
	t.Helper()
	cfg := &config.Config{
		Server:       config.ServerConfig{Mode: gin.TestMode},
		Notification: config.NotificationConfig{Mode: "sequential"},
	}
	return &client{t: t, engine: Setup(memory.New(), auth.NewHeaderProvider(), cfg)}
}

func (c *client) do(method, path, uid string, body interface{}) (int, envelope) {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if uid != "" {
		req.Header.Set(auth.HeaderUserId, uid)
		req.Header.Set(auth.HeaderUserName, uid+"-name")
	}
	w := httptest.NewRecorder()
	c.engine.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 && w.Header().Get("Content-Type") != "" {
		_ = json.Unmarshal(w.Body.Bytes(), &env)
	}
	return w.Code, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func TestHealth(t *testing.T) {
	c := newClient(t)
	code, _ := c.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestUnauthenticated(t *testing.T) {
	c := newClient(t)
	code, env := c.do(http.MethodGet, "/api/v1/issues", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.False(t, env.Success)
}

func TestIssueLifecycle(t *testing.T) {
	c := newClient(t)

	code, env := c.do(http.MethodPost, "/api/v1/issues", "alice", map[string]interface{}{
		"title":    "サーバー停止",
		"priority": "高",
	})
	require.Equal(t, http.StatusCreated, code)
	created := decode[map[string]interface{}](t, env.Data)
	id := created["id"].(string)
	assert.Equal(t, "ISSUE-00001", created["issueNumber"])
	assert.Equal(t, "未着手", created["status"])

	code, env = c.do(http.MethodPut, "/api/v1/issues/"+id, "alice", map[string]interface{}{"progress": 50})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "進行中", decode[map[string]interface{}](t, env.Data)["status"])

	code, _ = c.do(http.MethodPut, "/api/v1/issues/"+id, "alice", map[string]interface{}{"progress": 120})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = c.do(http.MethodPut, "/api/v1/issues/"+id, "bob", map[string]interface{}{"title": "x"})
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = c.do(http.MethodGet, "/api/v1/issues/missing", "alice", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, env = c.do(http.MethodGet, "/api/v1/issues?sortBy=priority", "alice", nil)
	require.Equal(t, http.StatusOK, code)
	list := decode[struct {
		All     []map[string]interface{} `json:"all"`
		Summary struct {
			TotalIssues int `json:"totalIssues"`
		} `json:"summary"`
	}](t, env.Data)
	assert.Len(t, list.All, 1)
	assert.Equal(t, 1, list.Summary.TotalIssues)

	code, _ = c.do(http.MethodGet, "/api/v1/issues?startDate=2026-13-40", "alice", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = c.do(http.MethodPost, "/api/v1/issues/"+id+"/archive", "alice", nil)
	assert.Equal(t, http.StatusOK, code)
	code, env = c.do(http.MethodGet, "/api/v1/issues/summary", "alice", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(0), decode[map[string]interface{}](t, env.Data)["totalIssues"])

	code, _ = c.do(http.MethodDelete, "/api/v1/issues/"+id, "alice", nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestTeamCommentAndNotificationFlow(t *testing.T) {
	c := newClient(t)

	code, env := c.do(http.MethodPost, "/api/v1/teams", "alice", map[string]string{"name": "Ops"})
	require.Equal(t, http.StatusCreated, code)
	teamId := decode[map[string]interface{}](t, env.Data)["id"].(string)

	code, env = c.do(http.MethodPost, "/api/v1/teams/"+teamId+"/invitations", "alice", map[string]string{
		"inviteeId": "bob", "inviteeName": "Bob", "role": "editor",
	})
	require.Equal(t, http.StatusCreated, code)
	invId := decode[map[string]interface{}](t, env.Data)["id"].(string)

	code, env = c.do(http.MethodGet, "/api/v1/notifications/unread-count", "bob", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), decode[map[string]interface{}](t, env.Data)["count"])

	code, _ = c.do(http.MethodPost, "/api/v1/invitations/"+invId+"/respond", "bob", map[string]bool{"accept": true})
	require.Equal(t, http.StatusOK, code)

	code, env = c.do(http.MethodPost, "/api/v1/issues", "bob", map[string]interface{}{"title": "deploy", "teamId": teamId})
	require.Equal(t, http.StatusCreated, code)
	issueId := decode[map[string]interface{}](t, env.Data)["id"].(string)

	// editor 不能删除团队课题
	code, _ = c.do(http.MethodDelete, "/api/v1/issues/"+issueId, "bob", nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, env = c.do(http.MethodPost, "/api/v1/issues/"+issueId+"/comments", "bob", map[string]string{
		"content": "@[alice:Alice] レビューお願いします",
	})
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, []interface{}{"alice"}, decode[map[string]interface{}](t, env.Data)["notified"])

	code, env = c.do(http.MethodGet, "/api/v1/notifications", "alice", nil)
	require.Equal(t, http.StatusOK, code)
	inbox := decode[[]map[string]interface{}](t, env.Data)
	require.Len(t, inbox, 1)
	assert.Equal(t, "mention", inbox[0]["type"])

	code, _ = c.do(http.MethodPost, "/api/v1/notifications/read-all", "alice", nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = c.do(http.MethodPost, "/api/v1/issues/"+issueId+"/chat", "alice", map[string]string{"content": "了解"})
	assert.Equal(t, http.StatusCreated, code)
	code, env = c.do(http.MethodGet, "/api/v1/issues/"+issueId+"/chat", "bob", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]map[string]interface{}](t, env.Data), 1)
}
