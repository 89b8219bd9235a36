package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nevern1y/Whity-sub000/config"
	"github.com/Nevern1y/Whity-sub000/consts"
	"github.com/Nevern1y/Whity-sub000/internal/realtime/event"
	"github.com/Nevern1y/Whity-sub000/model"
	"github.com/Nevern1y/Whity-sub000/pkg/errs"
	"github.com/Nevern1y/Whity-sub000/pkg/idgen"
)

type fakeMessageRepository struct {
	mu               sync.Mutex
	stored           []*model.Message
	createFn         func(ctx context.Context, message *model.Message) error
	listByPairBefore func(ctx context.Context, pairKey string, beforeID int64, limit int) ([]*model.Message, error)
}

func (f *fakeMessageRepository) Create(ctx context.Context, message *model.Message) error {
	if f.createFn != nil {
		return f.createFn(ctx, message)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	message.PairKey = model.PairKey(message.SenderUuid, message.ReceiverUuid)
	message.CreatedAt = time.Now()
	f.stored = append(f.stored, message)
	return nil
}

func (f *fakeMessageRepository) ListByPairBefore(ctx context.Context, pairKey string, beforeID int64, limit int) ([]*model.Message, error) {
	if f.listByPairBefore != nil {
		return f.listByPairBefore(ctx, pairKey, beforeID, limit)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	// 按 id 倒序过滤出一页
	var page []*model.Message
	for i := len(f.stored) - 1; i >= 0 && len(page) < limit; i-- {
		m := f.stored[i]
		if m.PairKey != pairKey {
			continue
		}
		if beforeID > 0 && m.Id >= beforeID {
			continue
		}
		page = append(page, m)
	}
	return page, nil
}

// fakeFriendChecker 只实现消息服务关心的 IsAccepted
type fakeFriendChecker struct {
	IFriendshipService
	isAcceptedFn func(ctx context.Context, a, b string) (bool, error)
}

func (f *fakeFriendChecker) IsAccepted(ctx context.Context, a, b string) (bool, error) {
	if f.isAcceptedFn == nil {
		return true, nil
	}
	return f.isAcceptedFn(ctx, a, b)
}

func newMessageServiceForTest(repo *fakeMessageRepository, friend *fakeFriendChecker) (*MessageService, *fakeEmitter) {
	initServiceTestEnv()
	if friend == nil {
		friend = &fakeFriendChecker{}
	}
	emitter := newFakeEmitter()
	svc := NewMessageService(config.DefaultRealtimeConfig(), repo, friend, nil, emitter)
	return svc, emitter
}

func TestMessageServiceSend(t *testing.T) {
	t.Run("发送成功并扇出", func(t *testing.T) {
		repo := &fakeMessageRepository{}
		svc, emitter := newMessageServiceForTest(repo, nil)

		result, err := svc.Send(context.Background(), "alice", "bob", "你好")
		require.NoError(t, err)
		require.NotNil(t, result)
		assert.Equal(t, "alice", result.SenderUuid)
		assert.Equal(t, "bob", result.ReceiverUuid)
		assert.Equal(t, "你好", result.Content)
		assert.NotEmpty(t, result.Id)

		// 先落库
		repo.mu.Lock()
		require.Len(t, repo.stored, 1)
		repo.mu.Unlock()

		// 再扇出：私聊房间一份 + 接收方个人房间一份
		roomEv := emitter.waitEvent(t)
		assert.True(t, roomEv.toRoom)
		assert.Equal(t, model.PairKey("alice", "bob"), roomEv.target)
		assert.Equal(t, event.TypeNewMessage, roomEv.envelope.Type)

		userEv := emitter.waitEvent(t)
		assert.False(t, userEv.toRoom)
		assert.Equal(t, "bob", userEv.target)
	})

	t.Run("空消息", func(t *testing.T) {
		svc, _ := newMessageServiceForTest(&fakeMessageRepository{}, nil)

		_, err := svc.Send(context.Background(), "alice", "bob", "")
		require.Error(t, err)
		assert.True(t, errs.Is(err, consts.CodeMessageEmpty))
	})

	t.Run("纯空白消息", func(t *testing.T) {
		repo := &fakeMessageRepository{}
		svc, _ := newMessageServiceForTest(repo, nil)

		_, err := svc.Send(context.Background(), "alice", "bob", "   \t\n ")
		require.Error(t, err)
		assert.True(t, errs.Is(err, consts.CodeMessageEmpty))

		// 校验失败不落库
		repo.mu.Lock()
		assert.Empty(t, repo.stored)
		repo.mu.Unlock()
	})

	t.Run("接收方不存在", func(t *testing.T) {
		initServiceTestEnv()
		resolver := &fakeUserResolver{
			existsFn: func(ctx context.Context, userUuid string) (bool, error) { return false, nil },
		}
		// 好友桩始终放行，确保报错来自存在性校验而不是好友门槛
		svc := NewMessageService(config.DefaultRealtimeConfig(), &fakeMessageRepository{}, &fakeFriendChecker{}, resolver, newFakeEmitter())

		_, err := svc.Send(context.Background(), "alice", "ghost", "你好")
		require.Error(t, err)
		assert.True(t, errs.Is(err, consts.CodePeerNotFound))
	})

	t.Run("超长消息", func(t *testing.T) {
		svc, _ := newMessageServiceForTest(&fakeMessageRepository{}, nil)

		long := strings.Repeat("字", config.DefaultRealtimeConfig().MessageMaxLength+1)
		_, err := svc.Send(context.Background(), "alice", "bob", long)
		require.Error(t, err)
		assert.True(t, errs.Is(err, consts.CodeMessageTooLong))
	})

	t.Run("非好友不能发消息", func(t *testing.T) {
		friend := &fakeFriendChecker{
			isAcceptedFn: func(ctx context.Context, a, b string) (bool, error) { return false, nil },
		}
		svc, _ := newMessageServiceForTest(&fakeMessageRepository{}, friend)

		_, err := svc.Send(context.Background(), "alice", "bob", "你好")
		require.Error(t, err)
		assert.True(t, errs.Is(err, consts.CodeNotFriend))
	})

	t.Run("不能给自己发消息", func(t *testing.T) {
		svc, _ := newMessageServiceForTest(&fakeMessageRepository{}, nil)

		_, err := svc.Send(context.Background(), "alice", "alice", "你好")
		require.Error(t, err)
		assert.True(t, errs.Is(err, consts.CodeParamError))
	})

	t.Run("存储持续失败触发熔断", func(t *testing.T) {
		repo := &fakeMessageRepository{
			createFn: func(ctx context.Context, message *model.Message) error {
				return fmt.Errorf("mysql gone away")
			},
		}
		svc, _ := newMessageServiceForTest(repo, nil)

		// 连续失败到达阈值前返回发送失败
		for i := 0; i < 5; i++ {
			_, err := svc.Send(context.Background(), "alice", "bob", "你好")
			require.Error(t, err)
			assert.True(t, errs.Is(err, consts.CodeMessageSendFail))
		}

		// 熔断器打开后快速失败
		_, err := svc.Send(context.Background(), "alice", "bob", "你好")
		require.Error(t, err)
		assert.True(t, errs.Is(err, consts.CodeServiceUnavailable))
	})
}

func TestMessageServiceFetchPage(t *testing.T) {
	seedMessages := func(repo *fakeMessageRepository, count int) {
		for i := 0; i < count; i++ {
			_ = repo.Create(context.Background(), &model.Message{
				Id:           idgen.Next(),
				SenderUuid:   "alice",
				ReceiverUuid: "bob",
				Content:      fmt.Sprintf("消息 %d", i+1),
			})
		}
	}

	t.Run("45条消息分三页取完", func(t *testing.T) {
		repo := &fakeMessageRepository{}
		seedMessages(repo, 45)
		svc, _ := newMessageServiceForTest(repo, nil)

		// 第一页：最新 20 条
		page1, err := svc.FetchPage(context.Background(), "alice", "bob", "", 0)
		require.NoError(t, err)
		require.Len(t, page1.Messages, 20)
		assert.Equal(t, "消息 45", page1.Messages[0].Content)
		assert.Equal(t, "消息 26", page1.Messages[19].Content)
		require.NotEmpty(t, page1.NextCursor)

		// 第二页
		page2, err := svc.FetchPage(context.Background(), "alice", "bob", page1.NextCursor, 0)
		require.NoError(t, err)
		require.Len(t, page2.Messages, 20)
		assert.Equal(t, "消息 25", page2.Messages[0].Content)
		assert.Equal(t, "消息 6", page2.Messages[19].Content)
		require.NotEmpty(t, page2.NextCursor)

		// 第三页：剩余 5 条，游标为空表示取完
		page3, err := svc.FetchPage(context.Background(), "alice", "bob", page2.NextCursor, 0)
		require.NoError(t, err)
		require.Len(t, page3.Messages, 5)
		assert.Equal(t, "消息 5", page3.Messages[0].Content)
		assert.Equal(t, "消息 1", page3.Messages[4].Content)
		assert.Empty(t, page3.NextCursor)
	})

	t.Run("两侧视角看到同一会话", func(t *testing.T) {
		repo := &fakeMessageRepository{}
		seedMessages(repo, 3)
		svc, _ := newMessageServiceForTest(repo, nil)

		fromAlice, err := svc.FetchPage(context.Background(), "alice", "bob", "", 0)
		require.NoError(t, err)
		fromBob, err := svc.FetchPage(context.Background(), "bob", "alice", "", 0)
		require.NoError(t, err)
		require.Len(t, fromBob.Messages, 3)
		assert.Equal(t, fromAlice.Messages, fromBob.Messages)
	})

	t.Run("非法游标", func(t *testing.T) {
		svc, _ := newMessageServiceForTest(&fakeMessageRepository{}, nil)

		_, err := svc.FetchPage(context.Background(), "alice", "bob", "not-a-cursor", 0)
		require.Error(t, err)
		assert.True(t, errs.Is(err, consts.CodeBadCursor))
	})

	t.Run("超过上限的页大小被截断", func(t *testing.T) {
		repo := &fakeMessageRepository{
			listByPairBefore: func(ctx context.Context, pairKey string, beforeID int64, limit int) ([]*model.Message, error) {
				assert.Equal(t, config.DefaultRealtimeConfig().MessagePageSizeMax, limit)
				return nil, nil
			},
		}
		svc, _ := newMessageServiceForTest(repo, nil)

		_, err := svc.FetchPage(context.Background(), "alice", "bob", "", 9999)
		require.NoError(t, err)
	})
}
