package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nevern1y/Whity-sub000/config"
	"github.com/Nevern1y/Whity-sub000/consts"
	"github.com/Nevern1y/Whity-sub000/internal/realtime/event"
	"github.com/Nevern1y/Whity-sub000/internal/repository"
	"github.com/Nevern1y/Whity-sub000/model"
	"github.com/Nevern1y/Whity-sub000/pkg/errs"
)

type fakeFriendshipRepository struct {
	getByPairFn       func(ctx context.Context, a, b string) (*model.Friendship, error)
	getByIDFn         func(ctx context.Context, id int64) (*model.Friendship, error)
	upsertPendingFn   func(ctx context.Context, friendship *model.Friendship) (*model.Friendship, error)
	updateStatusCASFn func(ctx context.Context, id int64, fromStatus, toStatus int8) (bool, error)
	softDeleteFn      func(ctx context.Context, id int64, requireStatus int8) error
	listAcceptedOfFn  func(ctx context.Context, userUUID string) ([]*model.Friendship, error)
}

func (f *fakeFriendshipRepository) GetByPair(ctx context.Context, a, b string) (*model.Friendship, error) {
	if f.getByPairFn == nil {
		return nil, repository.ErrRecordNotFound
	}
	return f.getByPairFn(ctx, a, b)
}

func (f *fakeFriendshipRepository) GetByID(ctx context.Context, id int64) (*model.Friendship, error) {
	if f.getByIDFn == nil {
		return nil, repository.ErrRecordNotFound
	}
	return f.getByIDFn(ctx, id)
}

func (f *fakeFriendshipRepository) UpsertPending(ctx context.Context, friendship *model.Friendship) (*model.Friendship, error) {
	if f.upsertPendingFn == nil {
		friendship.Id = 1
		return friendship, nil
	}
	return f.upsertPendingFn(ctx, friendship)
}

func (f *fakeFriendshipRepository) UpdateStatusCAS(ctx context.Context, id int64, fromStatus, toStatus int8) (bool, error) {
	if f.updateStatusCASFn == nil {
		return true, nil
	}
	return f.updateStatusCASFn(ctx, id, fromStatus, toStatus)
}

func (f *fakeFriendshipRepository) SoftDelete(ctx context.Context, id int64, requireStatus int8) error {
	if f.softDeleteFn == nil {
		return nil
	}
	return f.softDeleteFn(ctx, id, requireStatus)
}

func (f *fakeFriendshipRepository) ListAcceptedOf(ctx context.Context, userUUID string) ([]*model.Friendship, error) {
	if f.listAcceptedOfFn == nil {
		return nil, nil
	}
	return f.listAcceptedOfFn(ctx, userUUID)
}

func newFriendshipServiceForTest(repo *fakeFriendshipRepository, cfg config.RealtimeConfig) (*FriendshipService, *fakeEmitter, *fakeNotificationService) {
	initServiceTestEnv()
	emitter := newFakeEmitter()
	notify := &fakeNotificationService{}
	svc := NewFriendshipService(cfg, repo, notify, nil, emitter)
	return svc, emitter, notify
}

func pendingFriendship(id int64, sender, receiver string) *model.Friendship {
	now := time.Now()
	return &model.Friendship{
		Id:           id,
		SenderUuid:   sender,
		ReceiverUuid: receiver,
		PairKey:      model.PairKey(sender, receiver),
		Status:       model.FriendshipPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestFriendshipServiceRequest(t *testing.T) {
	cfg := config.DefaultRealtimeConfig()

	t.Run("申请成功并通知接收方", func(t *testing.T) {
		repo := &fakeFriendshipRepository{}
		svc, emitter, notify := newFriendshipServiceForTest(repo, cfg)

		result, err := svc.Request(context.Background(), "alice", "bob")
		require.NoError(t, err)
		require.NotNil(t, result)
		assert.Equal(t, "alice", result.SenderUuid)
		assert.Equal(t, "bob", result.ReceiverUuid)
		assert.Equal(t, "pending", result.Status)

		// 实时事件只投递到接收方个人房间
		ev := emitter.waitEvent(t)
		assert.Equal(t, "bob", ev.target)
		assert.False(t, ev.toRoom)
		assert.Equal(t, event.TypeFriendRequestReceived, ev.envelope.Type)

		// 站内通知也发给接收方
		assert.Eventually(t, func() bool {
			users := notify.notifiedUsers()
			return len(users) == 1 && users[0] == "bob"
		}, 2*time.Second, 10*time.Millisecond)
	})

	t.Run("不能添加自己", func(t *testing.T) {
		repo := &fakeFriendshipRepository{}
		svc, _, _ := newFriendshipServiceForTest(repo, cfg)

		_, err := svc.Request(context.Background(), "alice", "alice")
		require.Error(t, err)
		assert.True(t, errs.Is(err, consts.CodeCannotAddSelf))
	})

	t.Run("目标用户不存在", func(t *testing.T) {
		initServiceTestEnv()
		repo := &fakeFriendshipRepository{}
		svc := NewFriendshipService(cfg, repo, nil, &fakeUserResolver{
			existsFn: func(ctx context.Context, userUuid string) (bool, error) { return false, nil },
		}, nil)

		_, err := svc.Request(context.Background(), "alice", "ghost")
		require.Error(t, err)
		assert.True(t, errs.Is(err, consts.CodePeerNotFound))
	})

	t.Run("待处理申请视为冲突", func(t *testing.T) {
		repo := &fakeFriendshipRepository{
			getByPairFn: func(ctx context.Context, a, b string) (*model.Friendship, error) {
				return pendingFriendship(1, "bob", "alice"), nil
			},
		}
		svc, _, _ := newFriendshipServiceForTest(repo, cfg)

		_, err := svc.Request(context.Background(), "alice", "bob")
		require.Error(t, err)
		assert.True(t, errs.Is(err, consts.CodeFriendshipConflict))
	})

	t.Run("已是好友视为冲突", func(t *testing.T) {
		repo := &fakeFriendshipRepository{
			getByPairFn: func(ctx context.Context, a, b string) (*model.Friendship, error) {
				f := pendingFriendship(1, "alice", "bob")
				f.Status = model.FriendshipAccepted
				return f, nil
			},
		}
		svc, _, _ := newFriendshipServiceForTest(repo, cfg)

		_, err := svc.Request(context.Background(), "alice", "bob")
		require.Error(t, err)
		assert.True(t, errs.Is(err, consts.CodeFriendshipConflict))
	})

	t.Run("被拒绝后默认不允许重新申请", func(t *testing.T) {
		repo := &fakeFriendshipRepository{
			getByPairFn: func(ctx context.Context, a, b string) (*model.Friendship, error) {
				f := pendingFriendship(1, "alice", "bob")
				f.Status = model.FriendshipRejected
				return f, nil
			},
		}
		svc, _, _ := newFriendshipServiceForTest(repo, cfg)

		_, err := svc.Request(context.Background(), "alice", "bob")
		require.Error(t, err)
		assert.True(t, errs.Is(err, consts.CodeFriendshipRejected))
	})

	t.Run("开关打开时允许拒绝后重新申请", func(t *testing.T) {
		reapplyCfg := config.DefaultRealtimeConfig()
		reapplyCfg.AllowReapplyAfterReject = true
		upserted := false
		repo := &fakeFriendshipRepository{
			getByPairFn: func(ctx context.Context, a, b string) (*model.Friendship, error) {
				f := pendingFriendship(1, "alice", "bob")
				f.Status = model.FriendshipRejected
				return f, nil
			},
			upsertPendingFn: func(ctx context.Context, friendship *model.Friendship) (*model.Friendship, error) {
				upserted = true
				return pendingFriendship(1, friendship.SenderUuid, friendship.ReceiverUuid), nil
			},
		}
		svc, _, _ := newFriendshipServiceForTest(repo, reapplyCfg)

		result, err := svc.Request(context.Background(), "alice", "bob")
		require.NoError(t, err)
		assert.True(t, upserted)
		assert.Equal(t, "pending", result.Status)
	})

	t.Run("并发发起命中唯一索引", func(t *testing.T) {
		repo := &fakeFriendshipRepository{
			upsertPendingFn: func(ctx context.Context, friendship *model.Friendship) (*model.Friendship, error) {
				return nil, repository.ErrDuplicateKey
			},
		}
		svc, _, _ := newFriendshipServiceForTest(repo, cfg)

		_, err := svc.Request(context.Background(), "alice", "bob")
		require.Error(t, err)
		assert.True(t, errs.Is(err, consts.CodeFriendshipConflict))
	})
}

func TestFriendshipServiceRespond(t *testing.T) {
	cfg := config.DefaultRealtimeConfig()

	t.Run("接受申请并通知发起方", func(t *testing.T) {
		repo := &fakeFriendshipRepository{
			getByIDFn: func(ctx context.Context, id int64) (*model.Friendship, error) {
				return pendingFriendship(id, "alice", "bob"), nil
			},
		}
		svc, emitter, notify := newFriendshipServiceForTest(repo, cfg)

		result, err := svc.Respond(context.Background(), "bob", 1, true)
		require.NoError(t, err)
		assert.Equal(t, "accepted", result.Status)

		// 发起方与接收方个人房间各一份，接收方其余设备靠这份同步
		targets := map[string]bool{}
		for i := 0; i < 2; i++ {
			ev := emitter.waitEvent(t)
			assert.Equal(t, event.TypeFriendRequestResponded, ev.envelope.Type)
			assert.False(t, ev.toRoom)
			targets[ev.target] = true
		}
		assert.True(t, targets["alice"], "发起方应收到处理结果")
		assert.True(t, targets["bob"], "接收方自身设备也应收到处理结果")

		assert.Eventually(t, func() bool {
			users := notify.notifiedUsers()
			return len(users) == 1 && users[0] == "alice"
		}, 2*time.Second, 10*time.Millisecond)
	})

	t.Run("拒绝申请不生成站内通知", func(t *testing.T) {
		repo := &fakeFriendshipRepository{
			getByIDFn: func(ctx context.Context, id int64) (*model.Friendship, error) {
				return pendingFriendship(id, "alice", "bob"), nil
			},
		}
		svc, emitter, notify := newFriendshipServiceForTest(repo, cfg)

		result, err := svc.Respond(context.Background(), "bob", 1, false)
		require.NoError(t, err)
		assert.Equal(t, "rejected", result.Status)

		targets := map[string]bool{}
		for i := 0; i < 2; i++ {
			targets[emitter.waitEvent(t).target] = true
		}
		assert.True(t, targets["alice"] && targets["bob"])
		assert.Empty(t, notify.notifiedUsers())
	})

	t.Run("申请不存在", func(t *testing.T) {
		repo := &fakeFriendshipRepository{}
		svc, _, _ := newFriendshipServiceForTest(repo, cfg)

		_, err := svc.Respond(context.Background(), "bob", 404, true)
		require.Error(t, err)
		assert.True(t, errs.Is(err, consts.CodeFriendshipNotFound))
	})

	t.Run("非接收方无权处理", func(t *testing.T) {
		repo := &fakeFriendshipRepository{
			getByIDFn: func(ctx context.Context, id int64) (*model.Friendship, error) {
				return pendingFriendship(id, "alice", "bob"), nil
			},
		}
		svc, _, _ := newFriendshipServiceForTest(repo, cfg)

		// 发起方自己不能通过申请
		_, err := svc.Respond(context.Background(), "alice", 1, true)
		require.Error(t, err)
		assert.True(t, errs.Is(err, consts.CodeNotReceiver))

		// 无关第三方更不行
		_, err = svc.Respond(context.Background(), "carol", 1, true)
		require.Error(t, err)
		assert.True(t, errs.Is(err, consts.CodeNotReceiver))
	})

	t.Run("非待处理状态不可流转", func(t *testing.T) {
		repo := &fakeFriendshipRepository{
			getByIDFn: func(ctx context.Context, id int64) (*model.Friendship, error) {
				f := pendingFriendship(id, "alice", "bob")
				f.Status = model.FriendshipAccepted
				return f, nil
			},
		}
		svc, _, _ := newFriendshipServiceForTest(repo, cfg)

		_, err := svc.Respond(context.Background(), "bob", 1, true)
		require.Error(t, err)
		assert.True(t, errs.Is(err, consts.CodeFriendshipConflict))
	})

	t.Run("并发处理时后到者失败", func(t *testing.T) {
		repo := &fakeFriendshipRepository{
			getByIDFn: func(ctx context.Context, id int64) (*model.Friendship, error) {
				return pendingFriendship(id, "alice", "bob"), nil
			},
			updateStatusCASFn: func(ctx context.Context, id int64, fromStatus, toStatus int8) (bool, error) {
				return false, nil
			},
		}
		svc, _, _ := newFriendshipServiceForTest(repo, cfg)

		_, err := svc.Respond(context.Background(), "bob", 1, true)
		require.Error(t, err)
		assert.True(t, errs.Is(err, consts.CodeFriendshipConflict))
	})
}

func TestFriendshipServiceRemove(t *testing.T) {
	cfg := config.DefaultRealtimeConfig()
	accepted := func(id int64) *model.Friendship {
		f := pendingFriendship(id, "alice", "bob")
		f.Status = model.FriendshipAccepted
		return f
	}

	t.Run("解除成功双方都收到事件", func(t *testing.T) {
		repo := &fakeFriendshipRepository{
			getByIDFn: func(ctx context.Context, id int64) (*model.Friendship, error) {
				return accepted(id), nil
			},
		}
		svc, emitter, _ := newFriendshipServiceForTest(repo, cfg)

		require.NoError(t, svc.Remove(context.Background(), "bob", 1))

		got := map[string]bool{}
		for i := 0; i < 2; i++ {
			ev := emitter.waitEvent(t)
			assert.Equal(t, event.TypeFriendshipRemoved, ev.envelope.Type)
			got[ev.target] = true
		}
		assert.True(t, got["alice"])
		assert.True(t, got["bob"])
	})

	t.Run("非关系双方无权解除", func(t *testing.T) {
		repo := &fakeFriendshipRepository{
			getByIDFn: func(ctx context.Context, id int64) (*model.Friendship, error) {
				return accepted(id), nil
			},
		}
		svc, _, _ := newFriendshipServiceForTest(repo, cfg)

		err := svc.Remove(context.Background(), "carol", 1)
		require.Error(t, err)
		assert.True(t, errs.Is(err, consts.CodePermissionDeny))
	})

	t.Run("待处理状态不能解除", func(t *testing.T) {
		repo := &fakeFriendshipRepository{
			getByIDFn: func(ctx context.Context, id int64) (*model.Friendship, error) {
				return pendingFriendship(id, "alice", "bob"), nil
			},
		}
		svc, _, _ := newFriendshipServiceForTest(repo, cfg)

		err := svc.Remove(context.Background(), "alice", 1)
		require.Error(t, err)
		assert.True(t, errs.Is(err, consts.CodeFriendshipConflict))
	})

	t.Run("关系不存在", func(t *testing.T) {
		repo := &fakeFriendshipRepository{}
		svc, _, _ := newFriendshipServiceForTest(repo, cfg)

		err := svc.Remove(context.Background(), "alice", 404)
		require.Error(t, err)
		assert.True(t, errs.Is(err, consts.CodeFriendshipNotFound))
	})
}

func TestFriendshipServiceQueries(t *testing.T) {
	cfg := config.DefaultRealtimeConfig()

	t.Run("好友列表按对端视角输出", func(t *testing.T) {
		repo := &fakeFriendshipRepository{
			listAcceptedOfFn: func(ctx context.Context, userUUID string) ([]*model.Friendship, error) {
				a := pendingFriendship(1, "alice", "bob")
				a.Status = model.FriendshipAccepted
				b := pendingFriendship(2, "carol", "alice")
				b.Status = model.FriendshipAccepted
				return []*model.Friendship{a, b}, nil
			},
		}
		svc, _, _ := newFriendshipServiceForTest(repo, cfg)

		friends, err := svc.ListFriends(context.Background(), "alice")
		require.NoError(t, err)
		require.Len(t, friends, 2)
		assert.Equal(t, "bob", friends[0].PeerUuid)
		assert.Equal(t, "carol", friends[1].PeerUuid)

		uuids, err := svc.FriendUuids(context.Background(), "alice")
		require.NoError(t, err)
		assert.Equal(t, []string{"bob", "carol"}, uuids)
	})

	t.Run("IsAccepted对称", func(t *testing.T) {
		repo := &fakeFriendshipRepository{
			getByPairFn: func(ctx context.Context, a, b string) (*model.Friendship, error) {
				require.Equal(t, model.PairKey("alice", "bob"), model.PairKey(a, b))
				f := pendingFriendship(1, "alice", "bob")
				f.Status = model.FriendshipAccepted
				return f, nil
			},
		}
		svc, _, _ := newFriendshipServiceForTest(repo, cfg)

		ok, err := svc.IsAccepted(context.Background(), "alice", "bob")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = svc.IsAccepted(context.Background(), "bob", "alice")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("无关系时IsAccepted为假", func(t *testing.T) {
		repo := &fakeFriendshipRepository{}
		svc, _, _ := newFriendshipServiceForTest(repo, cfg)

		ok, err := svc.IsAccepted(context.Background(), "alice", "bob")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
