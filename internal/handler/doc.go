// Package handler 按业务拆分的 HTTP 处理器：reservation、calendar、admin。
//
// 本文件让 `swag init --dir ./cmd/api-gateway,./internal/handler` 能把该目录识别为 Go 包。
package handler
