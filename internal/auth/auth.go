// Package auth 解析当前用户并构造显式的 Session
package auth

import (
	"context"
	"sync"

	"github.com/blues/tracker/internal/apperr"
	"github.com/blues/tracker/internal/model"
)

// 请求头
const (
	HeaderUserId    = "X-User-Id"
	HeaderUserName  = "X-User-Name"
	HeaderUserPhoto = "X-User-Photo"
)

// Provider 当前用户来源
type Provider interface {
	CurrentUser(ctx context.Context) (*model.UserRef, error)
	// OnChange 注册身份变化回调，返回取消函数
	OnChange(fn func(*model.UserRef)) func()
}

// Session 单次调用的当前用户
type Session struct {
	User model.UserRef
}

// NewSession 从用户构造 Session，uid 为空视为未登录
func NewSession(user *model.UserRef) (*Session, error) {
	if user == nil || user.IsZero() {
		return nil, apperr.ErrUnauthenticated
	}
	return &Session{User: *user}, nil
}

// Uid 当前用户 id
func (s *Session) Uid() string {
	return s.User.Uid
}

// SessionFrom 通过 Provider 解析 Session
func SessionFrom(ctx context.Context, p Provider) (*Session, error) {
	user, err := p.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	return NewSession(user)
}

type userKey struct{}

// WithUser 把用户放入 context
func WithUser(ctx context.Context, user *model.UserRef) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// UserFromContext 从 context 取出用户
func UserFromContext(ctx context.Context) (*model.UserRef, bool) {
	user, ok := ctx.Value(userKey{}).(*model.UserRef)
	return user, ok && user != nil
}

// listeners 回调注册表
type listeners struct {
	mu   sync.Mutex
	next int
	fns  map[int]func(*model.UserRef)
}

func (l *listeners) add(fn func(*model.UserRef)) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fns == nil {
		l.fns = make(map[int]func(*model.UserRef))
	}
	id := l.next
	l.next++
	l.fns[id] = fn
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.fns, id)
	}
}

func (l *listeners) notify(user *model.UserRef) {
	l.mu.Lock()
	fns := make([]func(*model.UserRef), 0, len(l.fns))
	for _, fn := range l.fns {
		fns = append(fns, fn)
	}
	l.mu.Unlock()

	for _, fn := range fns {
		fn(user)
	}
}

// StaticProvider 固定用户，CLI 与测试使用
type StaticProvider struct {
	mu        sync.RWMutex
	user      *model.UserRef
	listeners listeners
}

// NewStaticProvider 创建固定用户 Provider，user 可为 nil
func NewStaticProvider(user *model.UserRef) *StaticProvider {
	return &StaticProvider{user: user}
}

// CurrentUser 返回当前用户
func (p *StaticProvider) CurrentUser(ctx context.Context) (*model.UserRef, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.user == nil {
		return nil, apperr.ErrUnauthenticated
	}
	u := *p.user
	return &u, nil
}

// SetUser 切换用户并通知监听者，nil 表示登出
func (p *StaticProvider) SetUser(user *model.UserRef) {
	p.mu.Lock()
	p.user = user
	p.mu.Unlock()
	p.listeners.notify(user)
}

// OnChange 注册回调
func (p *StaticProvider) OnChange(fn func(*model.UserRef)) func() {
	return p.listeners.add(fn)
}
