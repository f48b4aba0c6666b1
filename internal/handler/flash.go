package handler

import (
	"net/http"
	"net/url"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// addFlash 在会话中留下一条提示，下一次请求时读取
func addFlash(c *gin.Context, message string) {
	session := sessions.Default(c)
	session.AddFlash(message)
	_ = session.Save()
}

// redirectWithFlash 前置步骤未完成时带提示跳转到该步骤
func redirectWithFlash(c *gin.Context, message, path string, query url.Values) {
	addFlash(c, message)
	target := path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	c.Redirect(http.StatusFound, target)
}

// Flashes 读取并清空会话中的提示
func (a *API) Flashes(c *gin.Context) {
	session := sessions.Default(c)
	raw := session.Flashes()
	_ = session.Save()

	messages := make([]string, 0, len(raw))
	for _, item := range raw {
		if msg, ok := item.(string); ok {
			messages = append(messages, msg)
		}
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}
