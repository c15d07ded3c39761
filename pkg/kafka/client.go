// Package kafka 提供了与 Kafka 消息队列交互的功能。
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"org-directory-go/internal/config"
	"org-directory-go/pkg/events"
	"org-directory-go/pkg/log"
)

// EventProcessor 处理一条目录变更事件，把 Kafka 消费者与具体的同步逻辑解耦。
type EventProcessor interface {
	Process(ctx context.Context, evt events.DirectoryEvent) error
}

// AttemptCounter 记录某条消息的失败次数。
type AttemptCounter interface {
	Incr(ctx context.Context, id string) (int64, error)
	Reset(ctx context.Context, id string) error
}

func splitBrokers(brokers string) []string {
	var out []string
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// Producer 把目录事件写入 Kafka，实现 events.Publisher。
type Producer struct {
	writer *kafka.Writer
}

// NewProducer 初始化 Kafka 生产者。
func NewProducer(cfg config.KafkaConfig) *Producer {
	w := &kafka.Writer{
		Addr:         kafka.TCP(splitBrokers(cfg.Brokers)...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}
	log.Infof("Kafka 生产者初始化成功, topic: %s", cfg.Topic)
	return &Producer{writer: w}
}

// Publish 发送事件。同一组织的事件使用相同的 key，保证分区内有序。
func (p *Producer) Publish(ctx context.Context, evts ...events.DirectoryEvent) error {
	msgs, err := encodeEvents(evts)
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		return nil
	}
	return p.writer.WriteMessages(ctx, msgs...)
}

func encodeEvents(evts []events.DirectoryEvent) ([]kafka.Message, error) {
	msgs := make([]kafka.Message, 0, len(evts))
	for _, evt := range evts {
		value, err := json.Marshal(evt)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(strconv.FormatUint(uint64(evt.OrganizationID), 10)),
			Value: value,
		})
	}
	return msgs, nil
}

// Close 刷新并关闭生产者。
func (p *Producer) Close() error {
	return p.writer.Close()
}

// messageReader 是 StartConsumer 用到的 kafka.Reader 子集。
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// StartConsumer 启动消费循环，直到 ctx 被取消。
// 处理失败时原地退避重试同一条消息，失败次数记在 counter 中，达到 MaxAttempts 次后提交并放弃。
func StartConsumer(ctx context.Context, cfg config.KafkaConfig, processor EventProcessor, counter AttemptCounter) {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  splitBrokers(cfg.Brokers),
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
		MaxWait:  time.Second,
	})
	log.Infof("Kafka 消费者已启动，正在监听主题 '%s'", cfg.Topic)
	consume(ctx, r, processor, counter, cfg.MaxAttempts, retryBaseDelay)
}

const (
	retryBaseDelay = 500 * time.Millisecond
	retryMaxDelay  = 30 * time.Second
)

func consume(ctx context.Context, r messageReader, processor EventProcessor, counter AttemptCounter, maxAttempts int, baseDelay time.Duration) {
	defer func() {
		if err := r.Close(); err != nil {
			log.Errorf("关闭 Kafka 消费者失败: %v", err)
		}
	}()

	for {
		m, err := r.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				log.Info("Kafka 消费者已停止")
				return
			}
			log.Error("从 Kafka 读取消息失败", err)
			return
		}

		// 失败的消息原地退避重试，处理完成前不取下一条
		delay := baseDelay
		for !handleMessage(ctx, m, processor, counter, maxAttempts) {
			if !sleepContext(ctx, delay) {
				log.Info("Kafka 消费者已停止")
				return
			}
			if delay *= 2; delay > retryMaxDelay {
				delay = retryMaxDelay
			}
		}
		if err := r.CommitMessages(ctx, m); err != nil {
			log.Errorf("提交 Kafka 消息 offset 失败: %v", err)
		}
	}
}

// sleepContext 等待 d，ctx 先结束时返回 false。
func sleepContext(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// handleMessage 处理单条消息并返回是否应提交 offset。
func handleMessage(ctx context.Context, m kafka.Message, processor EventProcessor, counter AttemptCounter, maxAttempts int) bool {
	var evt events.DirectoryEvent
	if err := json.Unmarshal(m.Value, &evt); err != nil {
		// 消息格式错误，直接提交，避免阻塞队列
		log.Errorf("无法解析 Kafka 消息: %v, value: %s", err, string(m.Value))
		return true
	}

	attemptID := m.Topic + ":" + strconv.Itoa(m.Partition) + ":" + strconv.FormatInt(m.Offset, 10)
	if err := processor.Process(ctx, evt); err != nil {
		log.Errorw("处理目录事件失败", "type", evt.Type, "organization_id", evt.OrganizationID, "error", err)
		attempts, incErr := counter.Incr(ctx, attemptID)
		if incErr != nil {
			// 计数器异常时保守处理：不提交 offset，让 Kafka 重试
			log.Error("记录失败次数出错", incErr)
			return false
		}
		if maxAttempts > 0 && attempts >= int64(maxAttempts) {
			log.Errorw("目录事件多次失败，提交 offset 终止重试", "organization_id", evt.OrganizationID, "attempts", attempts)
			_ = counter.Reset(ctx, attemptID)
			return true
		}
		return false
	}

	_ = counter.Reset(ctx, attemptID)
	return true
}
