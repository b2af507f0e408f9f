// Package kafka Kafka 消息生产者
package kafka

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/IBM/sarama"
)

// Options 生产者配置
type Options struct {
	Brokers      []string
	ClientID     string
	RequiredAcks string // all / local / none
	Retries      int
	Timeout      time.Duration
}

// NewSaramaConfig 根据选项构建 sarama 配置
func NewSaramaConfig(opts *Options) (*sarama.Config, error) {
	cfg := sarama.NewConfig()
	if opts.ClientID != "" {
		cfg.ClientID = opts.ClientID
	}

	switch strings.ToLower(opts.RequiredAcks) {
	case "", "all":
		cfg.Producer.RequiredAcks = sarama.WaitForAll
	case "local":
		cfg.Producer.RequiredAcks = sarama.WaitForLocal
	case "none":
		cfg.Producer.RequiredAcks = sarama.NoResponse
	default:
		return nil, fmt.Errorf("unknown required_acks %q", opts.RequiredAcks)
	}

	if opts.Retries > 0 {
		cfg.Producer.Retry.Max = opts.Retries
	}
	if opts.Timeout > 0 {
		cfg.Producer.Timeout = opts.Timeout
		cfg.Net.DialTimeout = opts.Timeout
	}
	cfg.Producer.Return.Successes = true
	return cfg, nil
}

// Producer 同步生产者
type Producer struct {
	sync sarama.SyncProducer
}

// NewProducer 连接 broker 并创建同步生产者
func NewProducer(opts *Options) (*Producer, error) {
	cfg, err := NewSaramaConfig(opts)
	if err != nil {
		return nil, err
	}
	sync, err := sarama.NewSyncProducer(opts.Brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("创建 Kafka 生产者失败: %w", err)
	}
	return &Producer{sync: sync}, nil
}

// NewProducerWith 包装已有的 sarama 同步生产者
func NewProducerWith(sync sarama.SyncProducer) *Producer {
	return &Producer{sync: sync}
}

// Publish 发送一条消息；ctx 已取消时直接返回
func (p *Producer) Publish(ctx context.Context, topic, key string, payload []byte, headers map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var hs []sarama.RecordHeader
	for k, v := range headers {
		hs = append(hs, sarama.RecordHeader{Key: []byte(k), Value: []byte(v)})
	}
	msg := &sarama.ProducerMessage{
		Topic:   topic,
		Key:     sarama.StringEncoder(key),
		Value:   sarama.ByteEncoder(payload),
		Headers: hs,
	}
	_, _, err := p.sync.SendMessage(msg)
	return err
}

// Close 关闭生产者
func (p *Producer) Close() error {
	if p.sync == nil {
		return nil
	}
	return p.sync.Close()
}
