package auth

import (
	"context"
	"sync"

	"github.com/blues/tracker/internal/apperr"
	"github.com/blues/tracker/internal/model"
	"github.com/gin-gonic/gin"
)

// HeaderProvider 从请求头解析用户，身份由上游网关负责认证
type HeaderProvider struct {
	mu        sync.Mutex
	lastUid   string
	listeners listeners
}

// NewHeaderProvider 创建 HeaderProvider
func NewHeaderProvider() *HeaderProvider {
	return &HeaderProvider{}
}

// CurrentUser 读取中间件放入 context 的用户
func (p *HeaderProvider) CurrentUser(ctx context.Context) (*model.UserRef, error) {
	user, ok := UserFromContext(ctx)
	if !ok {
		return nil, apperr.ErrUnauthenticated
	}
	return user, nil
}

// OnChange 相邻请求的用户不同时回调
func (p *HeaderProvider) OnChange(fn func(*model.UserRef)) func() {
	return p.listeners.add(fn)
}

// Middleware 解析 X-User-* 头并写入请求 context，缺少头时不拦截
func (p *HeaderProvider) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := c.GetHeader(HeaderUserId)
		if uid == "" {
			c.Next()
			return
		}

		user := &model.UserRef{
			Uid:         uid,
			DisplayName: c.GetHeader(HeaderUserName),
			PhotoURL:    c.GetHeader(HeaderUserPhoto),
		}
		if user.DisplayName == "" {
			user.DisplayName = uid
		}
		c.Request = c.Request.WithContext(WithUser(c.Request.Context(), user))
		p.observe(user)

		c.Next()
	}
}

func (p *HeaderProvider) observe(user *model.UserRef) {
	p.mu.Lock()
	changed := p.lastUid != user.Uid
	p.lastUid = user.Uid
	p.mu.Unlock()

	if changed {
		p.listeners.notify(user)
	}
}
