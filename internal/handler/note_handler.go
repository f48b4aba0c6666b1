package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/souschef/internal/db"
	"github.com/souschef/internal/service"
)

type noteRequest struct {
	ClientID uint   `json:"clientId" binding:"required"`
	Note     string `json:"note" binding:"required"`
	Priority string `json:"priority"`
	Category string `json:"category"`
}

type noteReadRequest struct {
	Read bool `json:"read"`
}

func notePayload(note db.Note) gin.H {
	payload := gin.H{
		"id":        note.ID,
		"clientId":  note.ClientID,
		"authorId":  note.AuthorID,
		"note":      note.Note,
		"priority":  note.Priority,
		"category":  note.Category,
		"isRead":    note.IsRead,
		"createdAt": note.CreatedAt,
	}
	if html, err := service.RenderNote(note.Note); err == nil {
		payload["html"] = string(html)
	}
	if note.Client.ID != 0 {
		payload["client"] = note.Client.FirstName + " " + note.Client.LastName
	}
	return payload
}

// ListNotes 列出备注，可按客户、未读与优先级过滤
func (a *API) ListNotes(c *gin.Context) {
	filter := service.NoteFilter{
		Unread:   c.Query("unread") == "true" || c.Query("unread") == "1",
		Priority: c.Query("priority"),
	}
	if raw := c.Query("clientId"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			respondError(c, http.StatusBadRequest, "无效的客户ID")
			return
		}
		filter.ClientID = uint(id)
	}

	notes, err := a.notes.List(filter)
	if err != nil {
		a.respondServiceError(c, err, "获取备注失败")
		return
	}
	response := make([]gin.H, 0, len(notes))
	for _, note := range notes {
		response = append(response, notePayload(note))
	}
	c.JSON(http.StatusOK, gin.H{"notes": response})
}

// CreateNote 新建备注，作者为当前登录用户
func (a *API) CreateNote(c *gin.Context) {
	var req noteRequest
	if !bindJSON(c, &req, "备注内容不能为空") {
		return
	}
	note, err := a.notes.Create(service.NoteInput{
		ClientID: req.ClientID,
		AuthorID: sessionUser(c),
		Note:     req.Note,
		Priority: req.Priority,
		Category: req.Category,
	})
	if err != nil {
		a.respondServiceError(c, err, "创建备注失败")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "备注创建成功", "note": notePayload(*note)})
}

// SetNoteRead 标记备注已读或未读
func (a *API) SetNoteRead(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req noteReadRequest
	if !bindJSON(c, &req, "请求格式错误") {
		return
	}
	if err := a.notes.SetRead(id, req.Read); err != nil {
		a.respondServiceError(c, err, "更新备注失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "备注已更新"})
}
