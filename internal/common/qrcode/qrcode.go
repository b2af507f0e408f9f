// Package qrcode 生成预订查询地址的二维码
package qrcode

import (
	"fmt"
	"io"
	"strings"

	"github.com/skip2/go-qrcode"
)

// RecoveryLevel 纠错级别
type RecoveryLevel int

const (
	Low     RecoveryLevel = iota // 7%
	Medium                       // 15%
	High                         // 25%
	Highest                      // 30%
)

// ParseRecoveryLevel 解析配置中的纠错级别，未知值返回 Medium
func ParseRecoveryLevel(s string) RecoveryLevel {
	switch strings.ToLower(s) {
	case "low":
		return Low
	case "high":
		return High
	case "highest":
		return Highest
	default:
		return Medium
	}
}

// Generator 二维码生成器
type Generator struct {
	size          int
	recoveryLevel RecoveryLevel
}

// Option 生成器选项
type Option func(*Generator)

// WithSize 设置二维码边长（像素）
func WithSize(size int) Option {
	return func(g *Generator) {
		if size > 0 {
			g.size = size
		}
	}
}

// WithRecoveryLevel 设置纠错级别
func WithRecoveryLevel(level RecoveryLevel) Option {
	return func(g *Generator) {
		g.recoveryLevel = level
	}
}

// NewGenerator 创建二维码生成器，默认 256 像素、Medium 纠错
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{size: 256, recoveryLevel: Medium}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Generator) level() qrcode.RecoveryLevel {
	switch g.recoveryLevel {
	case Low:
		return qrcode.Low
	case High:
		return qrcode.High
	case Highest:
		return qrcode.Highest
	default:
		return qrcode.Medium
	}
}

// GeneratePNG 生成 PNG 格式二维码
func (g *Generator) GeneratePNG(content string) ([]byte, error) {
	if content == "" {
		return nil, fmt.Errorf("二维码内容为空")
	}
	data, err := qrcode.Encode(content, g.level(), g.size)
	if err != nil {
		return nil, fmt.Errorf("生成二维码失败: %w", err)
	}
	return data, nil
}

// WritePNG 将 PNG 二维码写入 w
func (g *Generator) WritePNG(w io.Writer, content string) error {
	data, err := g.GeneratePNG(content)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
