package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nevern1y/Whity-sub000/consts"
	"github.com/Nevern1y/Whity-sub000/internal/realtime/event"
	"github.com/Nevern1y/Whity-sub000/internal/repository"
	"github.com/Nevern1y/Whity-sub000/model"
	"github.com/Nevern1y/Whity-sub000/pkg/errs"
)

type fakeNotificationRepository struct {
	createFn         func(ctx context.Context, notification *model.Notification) error
	listByUserFn     func(ctx context.Context, userUUID string, onlyUnread bool, page, pageSize int) ([]*model.Notification, int64, error)
	markReadFn       func(ctx context.Context, userUUID string, id int64) error
	markAllReadFn    func(ctx context.Context, userUUID string) (int64, error)
	deleteFn         func(ctx context.Context, userUUID string, id int64) error
	clearFn          func(ctx context.Context, userUUID string) (int64, error)
	getUnreadCountFn func(ctx context.Context, userUUID string) (int64, error)
}

func (f *fakeNotificationRepository) Create(ctx context.Context, notification *model.Notification) error {
	if f.createFn == nil {
		return nil
	}
	return f.createFn(ctx, notification)
}

func (f *fakeNotificationRepository) ListByUser(ctx context.Context, userUUID string, onlyUnread bool, page, pageSize int) ([]*model.Notification, int64, error) {
	if f.listByUserFn == nil {
		return nil, 0, nil
	}
	return f.listByUserFn(ctx, userUUID, onlyUnread, page, pageSize)
}

func (f *fakeNotificationRepository) MarkRead(ctx context.Context, userUUID string, id int64) error {
	if f.markReadFn == nil {
		return nil
	}
	return f.markReadFn(ctx, userUUID, id)
}

func (f *fakeNotificationRepository) MarkAllRead(ctx context.Context, userUUID string) (int64, error) {
	if f.markAllReadFn == nil {
		return 0, nil
	}
	return f.markAllReadFn(ctx, userUUID)
}

func (f *fakeNotificationRepository) Delete(ctx context.Context, userUUID string, id int64) error {
	if f.deleteFn == nil {
		return nil
	}
	return f.deleteFn(ctx, userUUID, id)
}

func (f *fakeNotificationRepository) Clear(ctx context.Context, userUUID string) (int64, error) {
	if f.clearFn == nil {
		return 0, nil
	}
	return f.clearFn(ctx, userUUID)
}

func (f *fakeNotificationRepository) GetUnreadCount(ctx context.Context, userUUID string) (int64, error) {
	if f.getUnreadCountFn == nil {
		return 0, nil
	}
	return f.getUnreadCountFn(ctx, userUUID)
}

func newNotificationServiceForTest(repo *fakeNotificationRepository) (*NotificationService, *fakeEmitter) {
	initServiceTestEnv()
	emitter := newFakeEmitter()
	return NewNotificationService(repo, emitter), emitter
}

func TestNotificationServiceNotify(t *testing.T) {
	t.Run("创建成功并实时推送", func(t *testing.T) {
		var saved *model.Notification
		repo := &fakeNotificationRepository{
			createFn: func(ctx context.Context, notification *model.Notification) error {
				saved = notification
				return nil
			},
		}
		svc, emitter := newNotificationServiceForTest(repo)

		result, err := svc.Notify(context.Background(), "alice", model.NotifyTypeAchievement, "成就达成", "完成了第一门课程", "/achievements/1")
		require.NoError(t, err)
		require.NotNil(t, saved)
		assert.NotZero(t, saved.Id)
		assert.Equal(t, model.NotifyTypeAchievement, result.Type)
		assert.False(t, result.IsRead)

		ev := emitter.waitEvent(t)
		assert.Equal(t, "alice", ev.target)
		assert.Equal(t, event.TypeNotificationCreated, ev.envelope.Type)
	})

	t.Run("缺少必填字段", func(t *testing.T) {
		svc, _ := newNotificationServiceForTest(&fakeNotificationRepository{})

		_, err := svc.Notify(context.Background(), "alice", "", "标题", "", "")
		require.Error(t, err)
		assert.True(t, errs.Is(err, consts.CodeParamError))
	})
}

func TestNotificationServiceRead(t *testing.T) {
	t.Run("列表携带未读数", func(t *testing.T) {
		repo := &fakeNotificationRepository{
			listByUserFn: func(ctx context.Context, userUUID string, onlyUnread bool, page, pageSize int) ([]*model.Notification, int64, error) {
				return []*model.Notification{
					{Id: 1, UserUuid: userUUID, Type: model.NotifyTypeSystem, Title: "维护公告"},
				}, 1, nil
			},
			getUnreadCountFn: func(ctx context.Context, userUUID string) (int64, error) {
				return 7, nil
			},
		}
		svc, _ := newNotificationServiceForTest(repo)

		page, err := svc.List(context.Background(), "alice", false, 1, 20)
		require.NoError(t, err)
		require.Len(t, page.Notifications, 1)
		assert.Equal(t, int64(1), page.Total)
		assert.Equal(t, int64(7), page.UnreadCount)
	})

	t.Run("未读数读失败降级为零", func(t *testing.T) {
		repo := &fakeNotificationRepository{
			getUnreadCountFn: func(ctx context.Context, userUUID string) (int64, error) {
				return 0, repository.ErrRedis
			},
		}
		svc, _ := newNotificationServiceForTest(repo)

		page, err := svc.List(context.Background(), "alice", false, 1, 20)
		require.NoError(t, err)
		assert.Equal(t, int64(0), page.UnreadCount)
	})

	t.Run("标记不存在的通知", func(t *testing.T) {
		repo := &fakeNotificationRepository{
			markReadFn: func(ctx context.Context, userUUID string, id int64) error {
				return repository.ErrRecordNotFound
			},
		}
		svc, _ := newNotificationServiceForTest(repo)

		err := svc.MarkRead(context.Background(), "alice", 404)
		require.Error(t, err)
		assert.True(t, errs.Is(err, consts.CodeNotificationNotFound))
	})

	t.Run("删除不存在的通知", func(t *testing.T) {
		repo := &fakeNotificationRepository{
			deleteFn: func(ctx context.Context, userUUID string, id int64) error {
				return repository.ErrRecordNotFound
			},
		}
		svc, _ := newNotificationServiceForTest(repo)

		err := svc.Delete(context.Background(), "alice", 404)
		require.Error(t, err)
		assert.True(t, errs.Is(err, consts.CodeNotificationNotFound))
	})
}
