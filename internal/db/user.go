package db

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// ErrDatabaseNotInitialized 在 Init 之前调用时返回
var ErrDatabaseNotInitialized = errors.New("database not initialized")

// User 后台员工账号（厨房、配送调度、账单），通过会话登录。
// 首个账号来自 SUPER_ROOT_USER_NAME / SUPER_ROOT_PASSWORD，其余用 souschefctl createuser 添加。
type User struct {
	gorm.Model
	Username string `gorm:"unique;not null"`
	Password string `gorm:"not null"` // bcrypt
}

// CheckPassword 校验明文密码是否与存储的哈希一致
func (u User) CheckPassword(plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(plain)) == nil
}

// EnsureUser 确保员工账号存在。用户名或密码为空时跳过（未配置 SUPER_ROOT_*），
// 已存在的账号保持原密码不变。
func EnsureUser(username, password string) error {
	name := strings.TrimSpace(username)
	secret := strings.TrimSpace(password)
	if name == "" || secret == "" {
		return nil
	}
	if DB == nil {
		return ErrDatabaseNotInitialized
	}

	var staff User
	err := DB.Where("username = ?", name).First(&staff).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("lookup staff user %s: %w", name, err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash staff password: %w", err)
	}
	if err := DB.Create(&User{Username: name, Password: string(hashed)}).Error; err != nil {
		return fmt.Errorf("create staff user %s: %w", name, err)
	}
	return nil
}
