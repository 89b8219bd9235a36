package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Nevern1y/Whity-sub000/config"
	"github.com/Nevern1y/Whity-sub000/internal/dto"
	"github.com/Nevern1y/Whity-sub000/internal/realtime/event"
	"github.com/Nevern1y/Whity-sub000/pkg/async"
	"github.com/Nevern1y/Whity-sub000/pkg/ctxmeta"
	"github.com/Nevern1y/Whity-sub000/pkg/logger"
)

var serviceTestEnvOnce sync.Once

// initServiceTestEnv 初始化测试环境：nop 日志 + 协程池（异步扇出依赖）
func initServiceTestEnv() {
	serviceTestEnvOnce.Do(func() {
		logger.ReplaceGlobal(zap.NewNop())
		async.SetContextPropagator(ctxmeta.Propagate)
		_ = async.Init(config.AsyncConfig{
			PoolSize:       8,
			ExpiryDuration: time.Second,
			ReleaseTimeout: time.Second,
		})
	})
}

// emittedEvent 记录一次扇出
type emittedEvent struct {
	target   string // 用户 uuid 或房间键
	toRoom   bool
	envelope *event.Envelope
}

// fakeEmitter 把扇出写入 channel，供测试同步等待
type fakeEmitter struct {
	events chan emittedEvent
}

func newFakeEmitter() *fakeEmitter {
	return &fakeEmitter{events: make(chan emittedEvent, 16)}
}

func (f *fakeEmitter) EmitToUser(ctx context.Context, userUuid string, ev *event.Envelope) {
	f.events <- emittedEvent{target: userUuid, envelope: ev}
}

func (f *fakeEmitter) EmitToRoom(ctx context.Context, roomKey string, ev *event.Envelope) {
	f.events <- emittedEvent{target: roomKey, toRoom: true, envelope: ev}
}

// waitEvent 等待下一次扇出，超时视为没有发生
func (f *fakeEmitter) waitEvent(t *testing.T) emittedEvent {
	t.Helper()
	select {
	case ev := <-f.events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("等待扇出事件超时")
		return emittedEvent{}
	}
}

// fakeUserResolver 用户存在性桩
type fakeUserResolver struct {
	existsFn func(ctx context.Context, userUuid string) (bool, error)
}

func (f *fakeUserResolver) Exists(ctx context.Context, userUuid string) (bool, error) {
	if f.existsFn == nil {
		return true, nil
	}
	return f.existsFn(ctx, userUuid)
}

// fakeNotificationService 通知服务桩，记录 Notify 调用
type fakeNotificationService struct {
	mu       sync.Mutex
	notified []string // 收到通知的用户 uuid
	notifyFn func(ctx context.Context, userUuid, typ, title, content, link string) (*dto.Notification, error)
}

func (f *fakeNotificationService) Notify(ctx context.Context, userUuid, typ, title, content, link string) (*dto.Notification, error) {
	f.mu.Lock()
	f.notified = append(f.notified, userUuid)
	f.mu.Unlock()
	if f.notifyFn == nil {
		return &dto.Notification{UserUuid: userUuid, Type: typ, Title: title}, nil
	}
	return f.notifyFn(ctx, userUuid, typ, title, content, link)
}

func (f *fakeNotificationService) List(ctx context.Context, userUuid string, onlyUnread bool, page, pageSize int) (*dto.NotificationPage, error) {
	return &dto.NotificationPage{}, nil
}

func (f *fakeNotificationService) MarkRead(ctx context.Context, userUuid string, notificationId int64) error {
	return nil
}

func (f *fakeNotificationService) MarkAllRead(ctx context.Context, userUuid string) error { return nil }

func (f *fakeNotificationService) Delete(ctx context.Context, userUuid string, notificationId int64) error {
	return nil
}

func (f *fakeNotificationService) Clear(ctx context.Context, userUuid string) error { return nil }

func (f *fakeNotificationService) UnreadCount(ctx context.Context, userUuid string) (int64, error) {
	return 0, nil
}

func (f *fakeNotificationService) notifiedUsers() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.notified))
	copy(out, f.notified)
	return out
}
