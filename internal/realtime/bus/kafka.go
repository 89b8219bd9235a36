package bus

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Nevern1y/Whity-sub000/config"
	"github.com/Nevern1y/Whity-sub000/internal/realtime/event"
	"github.com/Nevern1y/Whity-sub000/pkg/logger"
)

// 投递范围。
const (
	ScopeUser = "user" // 投递到用户个人房间
	ScopeRoom = "room" // 投递到指定房间
)

// FanoutMessage 跨进程扇出消息。
// Origin 携带发布进程的实例 ID，消费端据此跳过自己发布的消息，
// 避免本地已投递的事件被二次投递。
type FanoutMessage struct {
	Scope    string          `json:"scope"`
	Target   string          `json:"target"`
	Origin   string          `json:"origin"`
	Envelope json.RawMessage `json:"envelope"`
}

// Handler 远端事件回调，由实时中枢注入本地投递逻辑。
type Handler func(ctx context.Context, scope, target string, envelope *event.Envelope)

// Bus 基于 Kafka 的跨进程事件总线。
// 每个进程使用独立消费组，保证所有进程都能看到全部扇出事件；
// 单进程部署时 Bus 为 nil，所有方法对 nil 接收者安全。
type Bus struct {
	instanceID string
	writer     *kafka.Writer
	reader     *kafka.Reader
}

// New 创建事件总线。brokers 为空时返回 nil（总线关闭）。
func New(cfg config.KafkaConfig, instanceID string) *Bus {
	if len(cfg.Brokers) == 0 {
		return nil
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{}, // 同一目标路由到同一分区，保序
		BatchTimeout: cfg.BatchTimeout,
		WriteTimeout: cfg.WriteTimeout,
		RequiredAcks: kafka.RequireOne,
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: cfg.Brokers,
		Topic:   cfg.Topic,
		// 每个实例独立消费组，广播语义
		GroupID:        cfg.GroupID + "-" + instanceID,
		MinBytes:       1,
		MaxBytes:       1 << 20,
		CommitInterval: time.Second,
	})

	return &Bus{
		instanceID: instanceID,
		writer:     writer,
		reader:     reader,
	}
}

// Publish 发布一条扇出消息。
// 总线关闭（nil）时为空操作；发布失败只记日志，本地投递不受影响。
func (b *Bus) Publish(ctx context.Context, scope, target string, envelope *event.Envelope) {
	if b == nil {
		return
	}

	payload, err := json.Marshal(FanoutMessage{
		Scope:    scope,
		Target:   target,
		Origin:   b.instanceID,
		Envelope: mustEncode(envelope),
	})
	if err != nil {
		logger.Error(ctx, "扇出消息序列化失败", logger.ErrorField("error", err))
		return
	}

	if err := b.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(target),
		Value: payload,
	}); err != nil {
		logger.Error(ctx, "扇出消息发布失败",
			logger.String("scope", scope),
			logger.String("target", target),
			logger.ErrorField("error", err),
		)
	}
}

// Start 启动消费循环，阻塞直到 ctx 取消或 reader 关闭。
// 自己发布的消息被跳过，其余交给 handler 在本地投递。
func (b *Bus) Start(ctx context.Context, handler Handler) error {
	if b == nil {
		return nil
	}

	for {
		msg, err := b.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		var fanout FanoutMessage
		if err := json.Unmarshal(msg.Value, &fanout); err != nil {
			logger.Warn(ctx, "扇出消息解析失败", logger.ErrorField("error", err))
			continue
		}
		if fanout.Origin == b.instanceID {
			continue
		}

		var envelope event.Envelope
		if err := json.Unmarshal(fanout.Envelope, &envelope); err != nil {
			logger.Warn(ctx, "扇出事件信封解析失败", logger.ErrorField("error", err))
			continue
		}
		if handler != nil {
			handler(ctx, fanout.Scope, fanout.Target, &envelope)
		}
	}
}

// Close 关闭读写两端。
func (b *Bus) Close() error {
	if b == nil {
		return nil
	}
	werr := b.writer.Close()
	rerr := b.reader.Close()
	if werr != nil {
		return werr
	}
	return rerr
}

func mustEncode(envelope *event.Envelope) json.RawMessage {
	raw, err := json.Marshal(envelope)
	if err != nil {
		panic(err)
	}
	return raw
}
