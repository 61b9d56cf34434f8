package handler

import (
	"github.com/blues/tracker/internal/auth"
	"github.com/gin-gonic/gin"
)

// currentSession 解析当前用户，未登录时直接写 401
func currentSession(c *gin.Context, provider auth.Provider) (*auth.Session, bool) {
	s, err := auth.SessionFrom(c.Request.Context(), provider)
	if err != nil {
		HandleError(c, err)
		return nil, false
	}
	return s, true
}
