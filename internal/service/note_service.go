package service

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/souschef/internal/db"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
	"gorm.io/gorm"
)

var (
	// ErrNoteNotFound 备注不存在
	ErrNoteNotFound = errors.New("note not found")
	// ErrInvalidNote 备注内容为空或优先级未知
	ErrInvalidNote = errors.New("invalid note")
)

var (
	noteMarkdown = goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Linkify),
		goldmark.WithRendererOptions(html.WithHardWraps(), html.WithXHTML()),
	)
	noteSanitizer = bluemonday.UGCPolicy()
)

// RenderNote 把 Markdown 备注转换为经过清洗的 HTML
func RenderNote(content string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := noteMarkdown.Convert([]byte(content), &buf); err != nil {
		return "", fmt.Errorf("render note: %w", err)
	}
	return template.HTML(noteSanitizer.SanitizeBytes(buf.Bytes())), nil
}

// NoteInput 新建备注
type NoteInput struct {
	ClientID uint
	AuthorID *uint
	Note     string
	Priority string
	Category string
}

// NoteFilter 备注列表过滤条件
type NoteFilter struct {
	ClientID uint
	Unread   bool
	Priority string
}

// NoteService 管理客户备注
type NoteService struct {
	db *gorm.DB
}

// NewNoteService 构造 NoteService
func NewNoteService(gdb *gorm.DB) *NoteService {
	return &NoteService{db: gdb}
}

func validPriority(p string) bool {
	return p == db.NotePriorityNormal || p == db.NotePriorityUrgent
}

// Create 新建备注，优先级缺省为 normal
func (s *NoteService) Create(input NoteInput) (*db.Note, error) {
	return createNote(s.db, input)
}

func createNote(tx *gorm.DB, input NoteInput) (*db.Note, error) {
	content := strings.TrimSpace(input.Note)
	if content == "" {
		return nil, fmt.Errorf("%w: empty note", ErrInvalidNote)
	}
	priority := strings.TrimSpace(input.Priority)
	if priority == "" {
		priority = db.NotePriorityNormal
	}
	if !validPriority(priority) {
		return nil, fmt.Errorf("%w: unknown priority %q", ErrInvalidNote, priority)
	}
	note := db.Note{
		ClientID: input.ClientID,
		AuthorID: input.AuthorID,
		Note:     content,
		Priority: priority,
		Category: strings.TrimSpace(input.Category),
	}
	if err := tx.Create(&note).Error; err != nil {
		return nil, fmt.Errorf("create note: %w", err)
	}
	return &note, nil
}

// List 按更新时间倒序列出备注
func (s *NoteService) List(filter NoteFilter) ([]db.Note, error) {
	query := s.db.Model(&db.Note{}).Preload("Client")
	if filter.ClientID != 0 {
		query = query.Where("client_id = ?", filter.ClientID)
	}
	if filter.Unread {
		query = query.Where("is_read = ?", false)
	}
	if filter.Priority != "" {
		query = query.Where("priority = ?", filter.Priority)
	}
	var notes []db.Note
	if err := query.Order("updated_at DESC, id DESC").Find(&notes).Error; err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	return notes, nil
}

// SetRead 标记已读或未读
func (s *NoteService) SetRead(id uint, read bool) error {
	res := s.db.Model(&db.Note{}).Where("id = ?", id).Update("is_read", read)
	if res.Error != nil {
		return fmt.Errorf("update note: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNoteNotFound
	}
	return nil
}
