// Package utils 提供通用工具函数
package utils

import (
	"crypto/rand"
	"math/big"
	"regexp"
	"strconv"
	"strings"
)

// SlugLength 预订短码长度
const SlugLength = 12

const slugCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

var (
	emailPattern      = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	personNamePattern = regexp.MustCompile(`^[0-9a-zA-Zа-яА-ЯёЁ ,.'_-]+$`)
)

// GenerateSlug 生成由大写字母和数字组成的随机短码
func GenerateSlug(length int) string {
	var result strings.Builder
	result.Grow(length)
	for i := 0; i < length; i++ {
		n, _ := rand.Int(rand.Reader, big.NewInt(int64(len(slugCharset))))
		result.WriteByte(slugCharset[n.Int64()])
	}
	return result.String()
}

// IsSlug 判断字符串是否符合短码格式
func IsSlug(s string) bool {
	if len(s) != SlugLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !strings.ContainsRune(slugCharset, rune(s[i])) {
			return false
		}
	}
	return true
}

// ValidateEmail 验证邮箱
func ValidateEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// ValidatePersonName 验证姓名：去除首尾空白后非空且只含允许字符
func ValidatePersonName(name string) bool {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return false
	}
	return personNamePattern.MatchString(trimmed)
}

// ParseIDList 解析逗号分隔的 ID 列表，忽略空项
func ParseIDList(s string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return Unique(ids), nil
}

// Int64Ptr 返回 int64 指针
func Int64Ptr(i int64) *int64 {
	return &i
}

// Contains 检查切片是否包含元素
func Contains[T comparable](slice []T, item T) bool {
	for _, v := range slice {
		if v == item {
			return true
		}
	}
	return false
}

// Unique 去重并保持原有顺序
func Unique[T comparable](slice []T) []T {
	seen := make(map[T]struct{}, len(slice))
	result := make([]T, 0, len(slice))
	for _, v := range slice {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			result = append(result, v)
		}
	}
	return result
}

// Pagination 分页参数
type Pagination struct {
	Page     int   `json:"page" form:"page"`
	PageSize int   `json:"page_size" form:"page_size"`
	Total    int64 `json:"total"`
}

// GetOffset 获取偏移量
func (p *Pagination) GetOffset() int {
	return (p.Page - 1) * p.PageSize
}

// GetLimit 获取限制数
func (p *Pagination) GetLimit() int {
	return p.PageSize
}

// Normalize 规范化分页参数
func (p *Pagination) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 10
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
}
