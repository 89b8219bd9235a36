package service

import (
	"context"
	"errors"
	"time"

	"github.com/Nevern1y/Whity-sub000/consts"
	"github.com/Nevern1y/Whity-sub000/internal/dto"
	"github.com/Nevern1y/Whity-sub000/internal/realtime/event"
	"github.com/Nevern1y/Whity-sub000/internal/repository"
	"github.com/Nevern1y/Whity-sub000/model"
	"github.com/Nevern1y/Whity-sub000/pkg/async"
	"github.com/Nevern1y/Whity-sub000/pkg/errs"
	"github.com/Nevern1y/Whity-sub000/pkg/idgen"
	"github.com/Nevern1y/Whity-sub000/pkg/logger"
)

// NotificationService 站内通知服务实现。
// 各业务子系统（好友、私信、课程、成就）通过 Notify 统一落库并实时推送。
type NotificationService struct {
	notifyRepo repository.INotificationRepository
	emitter    Emitter
}

// NewNotificationService 创建通知服务实例
func NewNotificationService(notifyRepo repository.INotificationRepository, emitter Emitter) *NotificationService {
	if emitter == nil {
		emitter = NopEmitter{}
	}
	return &NotificationService{
		notifyRepo: notifyRepo,
		emitter:    emitter,
	}
}

// Notify 创建通知并实时推送
func (s *NotificationService) Notify(ctx context.Context, userUuid, typ, title, content, link string) (*dto.Notification, error) {
	if userUuid == "" || typ == "" || title == "" {
		return nil, errs.New(consts.CodeParamError)
	}

	notification := &model.Notification{
		Id:       idgen.Next(),
		UserUuid: userUuid,
		Type:     typ,
		Title:    title,
		Content:  content,
		Link:     link,
	}
	if err := s.notifyRepo.Create(ctx, notification); err != nil {
		return nil, errs.Wrap(consts.CodeInternalError, err)
	}
	notification.CreatedAt = time.Now()

	result := dto.ConvertNotification(notification)

	// 在线用户实时收到通知，离线用户上线后走列表接口拉取
	async.RunSafe(ctx, func(taskCtx context.Context) {
		s.emitter.EmitToUser(taskCtx, userUuid,
			event.MustMarshal(event.TypeNotificationCreated, event.NotificationCreatedPayload{Notification: result}))
	}, 10*time.Second)

	logger.Info(ctx, "通知已创建",
		logger.Int64("notification_id", notification.Id),
		logger.String("user_uuid", userUuid),
		logger.String("type", typ),
	)
	return result, nil
}

// List 分页查询通知
func (s *NotificationService) List(ctx context.Context, userUuid string, onlyUnread bool, page, pageSize int) (*dto.NotificationPage, error) {
	records, total, err := s.notifyRepo.ListByUser(ctx, userUuid, onlyUnread, page, pageSize)
	if err != nil {
		return nil, errs.Wrap(consts.CodeInternalError, err)
	}
	unread, err := s.notifyRepo.GetUnreadCount(ctx, userUuid)
	if err != nil {
		// 未读数非关键信息，读失败降级为 0
		logger.Warn(ctx, "未读数查询失败",
			logger.String("user_uuid", userUuid),
			logger.ErrorField("error", err),
		)
		unread = 0
	}

	result := &dto.NotificationPage{
		Notifications: make([]*dto.Notification, 0, len(records)),
		Total:         total,
		UnreadCount:   unread,
	}
	for _, r := range records {
		result.Notifications = append(result.Notifications, dto.ConvertNotification(r))
	}
	return result, nil
}

// MarkRead 标记单条已读
func (s *NotificationService) MarkRead(ctx context.Context, userUuid string, notificationId int64) error {
	if err := s.notifyRepo.MarkRead(ctx, userUuid, notificationId); err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return errs.New(consts.CodeNotificationNotFound)
		}
		return errs.Wrap(consts.CodeInternalError, err)
	}
	return nil
}

// MarkAllRead 全部标记已读
func (s *NotificationService) MarkAllRead(ctx context.Context, userUuid string) error {
	if _, err := s.notifyRepo.MarkAllRead(ctx, userUuid); err != nil {
		return errs.Wrap(consts.CodeInternalError, err)
	}
	return nil
}

// Delete 删除单条通知
func (s *NotificationService) Delete(ctx context.Context, userUuid string, notificationId int64) error {
	if err := s.notifyRepo.Delete(ctx, userUuid, notificationId); err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return errs.New(consts.CodeNotificationNotFound)
		}
		return errs.Wrap(consts.CodeInternalError, err)
	}
	return nil
}

// Clear 清空全部通知
func (s *NotificationService) Clear(ctx context.Context, userUuid string) error {
	if _, err := s.notifyRepo.Clear(ctx, userUuid); err != nil {
		return errs.Wrap(consts.CodeInternalError, err)
	}
	return nil
}

// UnreadCount 未读数
func (s *NotificationService) UnreadCount(ctx context.Context, userUuid string) (int64, error) {
	count, err := s.notifyRepo.GetUnreadCount(ctx, userUuid)
	if err != nil {
		return 0, errs.Wrap(consts.CodeInternalError, err)
	}
	return count, nil
}
