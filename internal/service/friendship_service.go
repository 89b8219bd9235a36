package service

import (
	"context"
	"errors"
	"time"

	"github.com/Nevern1y/Whity-sub000/config"
	"github.com/Nevern1y/Whity-sub000/consts"
	"github.com/Nevern1y/Whity-sub000/internal/dto"
	"github.com/Nevern1y/Whity-sub000/internal/realtime/event"
	"github.com/Nevern1y/Whity-sub000/internal/repository"
	"github.com/Nevern1y/Whity-sub000/model"
	"github.com/Nevern1y/Whity-sub000/pkg/async"
	"github.com/Nevern1y/Whity-sub000/pkg/errs"
	"github.com/Nevern1y/Whity-sub000/pkg/logger"
)

// FriendshipService 好友关系状态机实现。
// 状态流转：NONE -> PENDING -> ACCEPTED / REJECTED，ACCEPTED -> NONE（解除）。
// 同一对用户至多一条存活记录，由 pair_key 唯一索引兜底。
type FriendshipService struct {
	cfg          config.RealtimeConfig
	friendRepo   repository.IFriendshipRepository
	notification INotificationService
	resolver     UserResolver
	emitter      Emitter
}

// NewFriendshipService 创建好友服务实例
func NewFriendshipService(
	cfg config.RealtimeConfig,
	friendRepo repository.IFriendshipRepository,
	notification INotificationService,
	resolver UserResolver,
	emitter Emitter,
) *FriendshipService {
	if resolver == nil {
		resolver = AllowAllResolver{}
	}
	if emitter == nil {
		emitter = NopEmitter{}
	}
	return &FriendshipService{
		cfg:          cfg,
		friendRepo:   friendRepo,
		notification: notification,
		resolver:     resolver,
		emitter:      emitter,
	}
}

// Request 发起好友申请
func (s *FriendshipService) Request(ctx context.Context, senderUuid, targetUuid string) (*dto.Friendship, error) {
	// 1. 参数校验：不允许添加自己
	if senderUuid == "" || targetUuid == "" {
		return nil, errs.New(consts.CodeParamError)
	}
	if senderUuid == targetUuid {
		return nil, errs.New(consts.CodeCannotAddSelf)
	}

	// 2. 目标用户存在性校验
	exists, err := s.resolver.Exists(ctx, targetUuid)
	if err != nil {
		return nil, errs.Wrap(consts.CodeInternalError, err)
	}
	if !exists {
		return nil, errs.New(consts.CodePeerNotFound)
	}

	// 3. 检查当前关系状态
	existing, err := s.friendRepo.GetByPair(ctx, senderUuid, targetUuid)
	if err != nil && !errors.Is(err, repository.ErrRecordNotFound) {
		return nil, errs.Wrap(consts.CodeInternalError, err)
	}
	if existing != nil {
		switch existing.Status {
		case model.FriendshipPending, model.FriendshipAccepted:
			// 已有待处理申请或已是好友，视为冲突
			return nil, errs.New(consts.CodeFriendshipConflict)
		case model.FriendshipRejected:
			if !s.cfg.AllowReapplyAfterReject {
				return nil, errs.New(consts.CodeFriendshipRejected)
			}
			// 允许重新申请时走 upsert 复用同一行
		}
	}

	// 4. 写入待处理申请；软删除或被拒绝的旧行会被复活并重置方向
	created, err := s.friendRepo.UpsertPending(ctx, &model.Friendship{
		SenderUuid:   senderUuid,
		ReceiverUuid: targetUuid,
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			// 并发发起同一对申请，唯一索引兜底
			return nil, errs.New(consts.CodeFriendshipConflict)
		}
		return nil, errs.Wrap(consts.CodeInternalError, err)
	}

	result := dto.ConvertFriendship(created)

	// 5. 异步通知接收方：实时事件 + 站内通知
	async.RunSafe(ctx, func(taskCtx context.Context) {
		s.emitter.EmitToUser(taskCtx, targetUuid,
			event.MustMarshal(event.TypeFriendRequestReceived, event.FriendRequestReceivedPayload{Friendship: result}))
		if s.notification != nil {
			if _, nerr := s.notification.Notify(taskCtx, targetUuid,
				model.NotifyTypeFriendRequest, "新的好友申请",
				"收到一条好友申请", ""); nerr != nil {
				logger.Warn(taskCtx, "好友申请通知写入失败",
					logger.String("receiver_uuid", targetUuid),
					logger.ErrorField("error", nerr),
				)
			}
		}
	}, 10*time.Second)

	logger.Info(ctx, "好友申请已创建",
		logger.String("sender_uuid", senderUuid),
		logger.String("receiver_uuid", targetUuid),
		logger.Int64("friendship_id", created.Id),
	)
	return result, nil
}

// Respond 处理好友申请
func (s *FriendshipService) Respond(ctx context.Context, responderUuid string, friendshipId int64, accept bool) (*dto.Friendship, error) {
	// 1. 加载申请记录
	friendship, err := s.friendRepo.GetByID(ctx, friendshipId)
	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return nil, errs.New(consts.CodeFriendshipNotFound)
		}
		return nil, errs.Wrap(consts.CodeInternalError, err)
	}

	// 2. 只有接收方可以处理申请
	if friendship.ReceiverUuid != responderUuid {
		return nil, errs.New(consts.CodeNotReceiver)
	}

	// 3. 只有 PENDING 状态可以流转
	if friendship.Status != model.FriendshipPending {
		return nil, errs.New(consts.CodeFriendshipConflict)
	}

	toStatus := model.FriendshipRejected
	if accept {
		toStatus = model.FriendshipAccepted
	}

	// 4. CAS 更新，前置状态不匹配说明已被并发处理
	updated, err := s.friendRepo.UpdateStatusCAS(ctx, friendshipId, model.FriendshipPending, toStatus)
	if err != nil {
		return nil, errs.Wrap(consts.CodeInternalError, err)
	}
	if !updated {
		return nil, errs.New(consts.CodeFriendshipConflict)
	}

	friendship.Status = toStatus
	friendship.UpdatedAt = time.Now()
	result := dto.ConvertFriendship(friendship)

	// 5. 异步通知发起方处理结果；接收方个人房间同步一份，保证其余设备状态一致
	senderUuid := friendship.SenderUuid
	receiverUuid := friendship.ReceiverUuid
	async.RunSafe(ctx, func(taskCtx context.Context) {
		responded := event.MustMarshal(event.TypeFriendRequestResponded, event.FriendRequestRespondedPayload{Friendship: result})
		s.emitter.EmitToUser(taskCtx, senderUuid, responded)
		s.emitter.EmitToUser(taskCtx, receiverUuid, responded)
		// 仅接受时生成站内通知，拒绝不打扰发起方
		if accept && s.notification != nil {
			if _, nerr := s.notification.Notify(taskCtx, senderUuid,
				model.NotifyTypeFriendRequest, "好友申请已通过",
				"对方通过了你的好友申请", ""); nerr != nil {
				logger.Warn(taskCtx, "好友申请结果通知写入失败",
					logger.String("sender_uuid", senderUuid),
					logger.ErrorField("error", nerr),
				)
			}
		}
	}, 10*time.Second)

	logger.Info(ctx, "好友申请已处理",
		logger.Int64("friendship_id", friendshipId),
		logger.String("responder_uuid", responderUuid),
		logger.Bool("accept", accept),
	)
	return result, nil
}

// Remove 解除好友关系
func (s *FriendshipService) Remove(ctx context.Context, actorUuid string, friendshipId int64) error {
	// 1. 加载关系记录
	friendship, err := s.friendRepo.GetByID(ctx, friendshipId)
	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return errs.New(consts.CodeFriendshipNotFound)
		}
		return errs.Wrap(consts.CodeInternalError, err)
	}

	// 2. 只有关系双方可解除
	if friendship.SenderUuid != actorUuid && friendship.ReceiverUuid != actorUuid {
		return errs.New(consts.CodePermissionDeny)
	}

	// 3. 只有 ACCEPTED 状态可解除
	if friendship.Status != model.FriendshipAccepted {
		return errs.New(consts.CodeFriendshipConflict)
	}

	// 4. 软删除，带状态前置条件防并发
	if err := s.friendRepo.SoftDelete(ctx, friendshipId, model.FriendshipAccepted); err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return errs.New(consts.CodeFriendshipConflict)
		}
		return errs.Wrap(consts.CodeInternalError, err)
	}

	// 5. 双方都收到解除事件，负载里的 peer 按接收视角各不相同
	result := dto.ConvertFriendship(friendship)
	sender, receiver := friendship.SenderUuid, friendship.ReceiverUuid
	async.RunSafe(ctx, func(taskCtx context.Context) {
		s.emitter.EmitToUser(taskCtx, sender,
			event.MustMarshal(event.TypeFriendshipRemoved, event.FriendshipRemovedPayload{
				FriendshipId: result.Id, PeerUuid: receiver,
			}))
		s.emitter.EmitToUser(taskCtx, receiver,
			event.MustMarshal(event.TypeFriendshipRemoved, event.FriendshipRemovedPayload{
				FriendshipId: result.Id, PeerUuid: sender,
			}))
	}, 10*time.Second)

	logger.Info(ctx, "好友关系已解除",
		logger.Int64("friendship_id", friendshipId),
		logger.String("actor_uuid", actorUuid),
	)
	return nil
}

// ListFriends 查询好友列表
func (s *FriendshipService) ListFriends(ctx context.Context, userUuid string) ([]*dto.Friend, error) {
	records, err := s.friendRepo.ListAcceptedOf(ctx, userUuid)
	if err != nil {
		return nil, errs.Wrap(consts.CodeInternalError, err)
	}
	friends := make([]*dto.Friend, 0, len(records))
	for _, r := range records {
		friends = append(friends, dto.ConvertFriend(r, userUuid))
	}
	return friends, nil
}

// FriendUuids 返回好友 uuid 集合
func (s *FriendshipService) FriendUuids(ctx context.Context, userUuid string) ([]string, error) {
	records, err := s.friendRepo.ListAcceptedOf(ctx, userUuid)
	if err != nil {
		return nil, errs.Wrap(consts.CodeInternalError, err)
	}
	uuids := make([]string, 0, len(records))
	for _, r := range records {
		peer := r.SenderUuid
		if peer == userUuid {
			peer = r.ReceiverUuid
		}
		uuids = append(uuids, peer)
	}
	return uuids, nil
}

// IsAccepted 判断两人是否已确认好友
func (s *FriendshipService) IsAccepted(ctx context.Context, a, b string) (bool, error) {
	friendship, err := s.friendRepo.GetByPair(ctx, a, b)
	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return false, nil
		}
		return false, errs.Wrap(consts.CodeInternalError, err)
	}
	return friendship.Status == model.FriendshipAccepted, nil
}
