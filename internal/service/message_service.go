package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sony/gobreaker"

	"github.com/Nevern1y/Whity-sub000/config"
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

// MessageService 私信服务实现。
// 发送前先落库再扇出，保证离线方上线后可通过历史接口补齐；
// 消息表写入经熔断器保护，存储故障时快速失败而不是拖垮连接层。
type MessageService struct {
	cfg          config.RealtimeConfig
	msgRepo      repository.IMessageRepository
	friendSvc    IFriendshipService
	resolver     UserResolver
	emitter      Emitter
	storeBreaker *gobreaker.CircuitBreaker
}

// NewMessageService 创建消息服务实例
func NewMessageService(
	cfg config.RealtimeConfig,
	msgRepo repository.IMessageRepository,
	friendSvc IFriendshipService,
	resolver UserResolver,
	emitter Emitter,
) *MessageService {
	if resolver == nil {
		resolver = AllowAllResolver{}
	}
	if emitter == nil {
		emitter = NopEmitter{}
	}
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "message-store",
		MaxRequests: 3,                // 半开状态下最多允许 3 个请求尝试
		Interval:    15 * time.Second, // 清除计数的时间间隔
		Timeout:     30 * time.Second, // 熔断器开启后多久尝试进入半开状态
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn(context.Background(), "熔断器状态变化",
				logger.String("name", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()),
			)
		},
	})
	return &MessageService{
		cfg:          cfg,
		msgRepo:      msgRepo,
		friendSvc:    friendSvc,
		resolver:     resolver,
		emitter:      emitter,
		storeBreaker: breaker,
	}
}

// Send 发送私信
func (s *MessageService) Send(ctx context.Context, senderUuid, receiverUuid, content string) (*dto.Message, error) {
	// 1. 内容校验
	if senderUuid == "" || receiverUuid == "" || senderUuid == receiverUuid {
		return nil, errs.New(consts.CodeParamError)
	}
	// 全空白内容与空串同等对待
	if strings.TrimSpace(content) == "" {
		return nil, errs.New(consts.CodeMessageEmpty)
	}
	if utf8.RuneCountInString(content) > s.cfg.MessageMaxLength {
		return nil, errs.New(consts.CodeMessageTooLong)
	}

	// 2. 接收方存在性校验，未知用户先于好友关系报错
	exists, err := s.resolver.Exists(ctx, receiverUuid)
	if err != nil {
		return nil, errs.Wrap(consts.CodeInternalError, err)
	}
	if !exists {
		return nil, errs.New(consts.CodePeerNotFound)
	}

	// 3. 好友关系校验：仅已确认好友可互发私信
	accepted, err := s.friendSvc.IsAccepted(ctx, senderUuid, receiverUuid)
	if err != nil {
		return nil, err
	}
	if !accepted {
		return nil, errs.New(consts.CodeNotFriend)
	}

	// 4. 先落库（熔断保护），再扇出
	message := &model.Message{
		Id:           idgen.Next(),
		SenderUuid:   senderUuid,
		ReceiverUuid: receiverUuid,
		Content:      content,
	}
	if _, err := s.storeBreaker.Execute(func() (interface{}, error) {
		return nil, s.msgRepo.Create(ctx, message)
	}); err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, errs.Wrap(consts.CodeServiceUnavailable, err)
		}
		return nil, errs.Wrap(consts.CodeMessageSendFail, err)
	}

	result := dto.ConvertMessage(message)

	// 5. 异步扇出到两人私聊房间；离线方依赖历史拉取补齐，不做离线队列
	roomKey := pairRoomKey(senderUuid, receiverUuid)
	async.RunSafe(ctx, func(taskCtx context.Context) {
		s.emitter.EmitToRoom(taskCtx, roomKey,
			event.MustMarshal(event.TypeNewMessage, event.NewMessagePayload{Message: result}))
		// 接收方个人房间也投递一份，未进入聊天页时也能收到提醒
		s.emitter.EmitToUser(taskCtx, receiverUuid,
			event.MustMarshal(event.TypeNewMessage, event.NewMessagePayload{Message: result}))
	}, 10*time.Second)

	logger.Info(ctx, "私信已发送",
		logger.Int64("message_id", message.Id),
		logger.String("sender_uuid", senderUuid),
		logger.String("receiver_uuid", receiverUuid),
	)
	return result, nil
}

// FetchPage 拉取历史消息
func (s *MessageService) FetchPage(ctx context.Context, requesterUuid, peerUuid, cursor string, pageSize int) (*dto.MessagePage, error) {
	// 1. 参数校验
	if requesterUuid == "" || peerUuid == "" || requesterUuid == peerUuid {
		return nil, errs.New(consts.CodeParamError)
	}
	if pageSize <= 0 {
		pageSize = s.cfg.MessagePageSize
	}
	if pageSize > s.cfg.MessagePageSizeMax {
		pageSize = s.cfg.MessagePageSizeMax
	}

	// 2. 游标解析：空游标表示从最新一条开始
	var beforeID int64
	if cursor != "" {
		id, err := strconv.ParseInt(cursor, 10, 64)
		if err != nil || id <= 0 {
			return nil, errs.New(consts.CodeBadCursor)
		}
		beforeID = id
	}

	// 3. 按 id 倒序取一页，雪花 id 单调保证时间倒序
	pairKey := model.PairKey(requesterUuid, peerUuid)
	messages, err := s.msgRepo.ListByPairBefore(ctx, pairKey, beforeID, pageSize)
	if err != nil {
		return nil, errs.Wrap(consts.CodeInternalError, err)
	}

	page := &dto.MessagePage{
		Messages: make([]*dto.Message, 0, len(messages)),
	}
	for _, m := range messages {
		page.Messages = append(page.Messages, dto.ConvertMessage(m))
	}

	// 4. 取满一页才可能还有更早的消息，游标指向本页最旧一条
	if len(messages) == pageSize {
		page.NextCursor = strconv.FormatInt(messages[len(messages)-1].Id, 10)
	}
	return page, nil
}
