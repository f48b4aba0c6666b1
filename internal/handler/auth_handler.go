package handler

import (
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/souschef/internal/db"
)

const (
	sessionUserID   = "user_id"
	sessionUsername = "username"
)

type loginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

// Login 校验用户名密码并写入会话
func (a *API) Login(c *gin.Context) {
	var payload loginRequest
	if err := c.ShouldBind(&payload); err != nil {
		respondError(c, http.StatusBadRequest, "请输入用户名和密码")
		return
	}

	var user db.User
	if err := a.db.Where("username = ?", strings.TrimSpace(payload.Username)).First(&user).Error; err != nil {
		respondError(c, http.StatusUnauthorized, "用户名或密码错误")
		return
	}
	if !user.CheckPassword(payload.Password) {
		respondError(c, http.StatusUnauthorized, "用户名或密码错误")
		return
	}

	session := sessions.Default(c)
	session.Set(sessionUserID, user.ID)
	session.Set(sessionUsername, user.Username)
	if err := session.Save(); err != nil {
		respondError(c, http.StatusInternalServerError, "会话保存失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": gin.H{"id": user.ID, "username": user.Username}})
}

// Logout 清空会话
func (a *API) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	_ = session.Save()
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// CurrentUser 返回当前登录用户
func (a *API) CurrentUser(c *gin.Context) {
	session := sessions.Default(c)
	c.JSON(http.StatusOK, gin.H{"user": gin.H{
		"id":       session.Get(sessionUserID),
		"username": session.Get(sessionUsername),
	}})
}

// AuthRequired 是一个简单的认证中间件
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		if session.Get(sessionUserID) == nil {
			respondError(c, http.StatusUnauthorized, "请先登录")
			c.Abort()
			return
		}
		c.Next()
	}
}

// sessionUser 当前用户 ID，未登录时为 nil
func sessionUser(c *gin.Context) *uint {
	switch id := sessions.Default(c).Get(sessionUserID).(type) {
	case uint:
		return &id
	case int:
		v := uint(id)
		return &v
	default:
		return nil
	}
}
