package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Nevern1y/Whity-sub000/config"
	"github.com/Nevern1y/Whity-sub000/consts"
	"github.com/Nevern1y/Whity-sub000/internal/dto"
	"github.com/Nevern1y/Whity-sub000/internal/realtime"
	"github.com/Nevern1y/Whity-sub000/internal/realtime/event"
	"github.com/Nevern1y/Whity-sub000/internal/realtime/manager"
	"github.com/Nevern1y/Whity-sub000/internal/realtime/presence"
	"github.com/Nevern1y/Whity-sub000/internal/service"
	"github.com/Nevern1y/Whity-sub000/model"
	"github.com/Nevern1y/Whity-sub000/pkg/async"
	"github.com/Nevern1y/Whity-sub000/pkg/ctxmeta"
	"github.com/Nevern1y/Whity-sub000/pkg/logger"
)

var routerTestOnce sync.Once

func initRouterTestEnv(t *testing.T) {
	t.Helper()
	routerTestOnce.Do(func() {
		logger.ReplaceGlobal(zap.NewNop())
		async.SetContextPropagator(ctxmeta.Propagate)
		cfg := config.DefaultAsyncConfig()
		cfg.PoolSize = 8
		if err := async.Init(cfg); err != nil {
			panic(err)
		}
	})
}

// ==================== 业务服务桩 ====================

// stubFriendSvc 好友服务桩：记录调用方身份并像真实服务一样经 Hub 扇出。
type stubFriendSvc struct {
	service.IFriendshipService
	hub        *realtime.Hub
	mu         sync.Mutex
	lastSender string
}

func (s *stubFriendSvc) Request(ctx context.Context, senderUuid, targetUuid string) (*dto.Friendship, error) {
	s.mu.Lock()
	s.lastSender = senderUuid
	s.mu.Unlock()

	f := &dto.Friendship{Id: "1", SenderUuid: senderUuid, ReceiverUuid: targetUuid, Status: "pending"}
	s.hub.EmitToUser(ctx, targetUuid, event.MustMarshal(event.TypeFriendRequestReceived, event.FriendRequestReceivedPayload{Friendship: f}))
	return f, nil
}

func (s *stubFriendSvc) senderSeen() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSender
}

// stubMessageSvc 消息服务桩：回显消息并向私聊房间扇出。
type stubMessageSvc struct {
	service.IMessageService
	hub *realtime.Hub
}

func (s *stubMessageSvc) Send(ctx context.Context, senderUuid, receiverUuid, content string) (*dto.Message, error) {
	msg := &dto.Message{Id: "1001", SenderUuid: senderUuid, ReceiverUuid: receiverUuid, Content: content, CreatedAt: time.Now().UnixMilli()}
	ev := event.MustMarshal(event.TypeNewMessage, event.NewMessagePayload{Message: msg})
	s.hub.EmitToRoom(ctx, model.PairKey(senderUuid, receiverUuid), ev)
	s.hub.EmitToUser(ctx, receiverUuid, ev)
	return msg, nil
}

func (s *stubMessageSvc) FetchPage(ctx context.Context, requesterUuid, peerUuid, cursor string, pageSize int) (*dto.MessagePage, error) {
	return &dto.MessagePage{Messages: []*dto.Message{}, NextCursor: ""}, nil
}

// stubFriendLister 固定好友表，供在线状态广播使用。
type stubFriendLister struct {
	friends map[string][]string
}

func (s *stubFriendLister) FriendUuids(ctx context.Context, userUuid string) ([]string, error) {
	return s.friends[userUuid], nil
}

// ==================== 测试环境 ====================

type routerTestEnv struct {
	hub       *realtime.Hub
	friendSvc *stubFriendSvc
	server    *httptest.Server
}

// newRouterTestEnv 起一个真实 WebSocket 服务端，身份取自握手 query。
// opts 控制上行限速等连接参数。
func newRouterTestEnv(t *testing.T, opts manager.ClientOptions) *routerTestEnv {
	t.Helper()
	initRouterTestEnv(t)

	hub := realtime.NewHub(manager.NewRegistry(), manager.NewRoomManager(), nil, presence.NewMirror(nil))
	friendSvc := &stubFriendSvc{hub: hub}
	messageSvc := &stubMessageSvc{hub: hub}
	rt := NewRouter(hub, friendSvc, messageSvc)

	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := manager.NewClient(conn, r.URL.Query().Get("user"), r.URL.Query().Get("device"), opts)
		ctx := context.Background()
		hub.OnConnect(ctx, client)
		client.Run(ctx, func(raw []byte) {
			rt.Handle(client, raw)
		}, func() {
			hub.OnDisconnect(ctx, client)
		})
	}))
	t.Cleanup(server.Close)

	return &routerTestEnv{hub: hub, friendSvc: friendSvc, server: server}
}

// dial 以指定身份建立连接。
func (e *routerTestEnv) dial(t *testing.T, userUuid, deviceID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(e.server.URL, "http") + "?user=" + userUuid + "&device=" + deviceID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// awaitOnline 等待连接完成注册。
// OnConnect 在服务端 goroutine 中执行，两条连接间的时序靠它保证。
func (e *routerTestEnv) awaitOnline(t *testing.T, userUuid string) {
	t.Helper()
	require.Eventually(t, func() bool {
		return e.hub.Registry().IsOnline(userUuid)
	}, 2*time.Second, 10*time.Millisecond)
}

// sendEvent 发送一条入站事件帧。
func sendEvent(t *testing.T, conn *websocket.Conn, typ string, seq int64, payload any) {
	t.Helper()
	envelope, err := event.Marshal(typ, seq, payload)
	require.NoError(t, err)
	raw, err := json.Marshal(envelope)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, raw))
}

// waitEvent 读取下一帧指定类型的事件，忽略中途的其他帧。
func waitEvent(t *testing.T, conn *websocket.Conn, typ string) *event.Envelope {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		require.NoError(t, conn.SetReadDeadline(deadline))
		_, raw, err := conn.ReadMessage()
		require.NoError(t, err, "等待 %s 帧超时", typ)
		var envelope event.Envelope
		require.NoError(t, json.Unmarshal(raw, &envelope))
		if envelope.Type == typ {
			return &envelope
		}
	}
}

func decodeErrorPayload(t *testing.T, envelope *event.Envelope) event.ErrorPayload {
	t.Helper()
	var payload event.ErrorPayload
	require.NoError(t, json.Unmarshal(envelope.Data, &payload))
	return payload
}

// ==================== 用例 ====================

func TestRouterHeartbeat(t *testing.T) {
	env := newRouterTestEnv(t, manager.ClientOptions{})
	conn := env.dial(t, "alice", "phone")

	sendEvent(t, conn, event.TypeHeartbeat, 7, nil)
	ack := waitEvent(t, conn, event.TypeHeartbeatAck)
	assert.Equal(t, int64(7), ack.Seq)
}

func TestRouterRoomAuthorization(t *testing.T) {
	env := newRouterTestEnv(t, manager.ClientOptions{})
	conn := env.dial(t, "alice", "phone")

	t.Run("加入个人房间", func(t *testing.T) {
		sendEvent(t, conn, event.TypeJoinRoom, 1, event.JoinRoomPayload{RoomKey: "alice"})
		waitEvent(t, conn, event.TypeAck)
	})

	t.Run("加入己方私聊房间", func(t *testing.T) {
		sendEvent(t, conn, event.TypeJoinRoom, 2, event.JoinRoomPayload{RoomKey: model.PairKey("alice", "bob")})
		waitEvent(t, conn, event.TypeAck)
		assert.Equal(t, 1, env.hub.Rooms().MemberCount(model.PairKey("alice", "bob")))
	})

	t.Run("越权加入他人房间被拒", func(t *testing.T) {
		sendEvent(t, conn, event.TypeJoinRoom, 3, event.JoinRoomPayload{RoomKey: model.PairKey("carol", "dave")})
		errFrame := waitEvent(t, conn, event.TypeError)
		assert.Equal(t, int32(consts.CodePermissionDeny), decodeErrorPayload(t, errFrame).Code)
	})
}

func TestRouterIdentityFromConnection(t *testing.T) {
	env := newRouterTestEnv(t, manager.ClientOptions{})
	conn := env.dial(t, "alice", "phone")

	// 负载里没有发送方字段，身份只能来自握手认证
	sendEvent(t, conn, event.TypeSendFriendRequest, 1, event.SendFriendRequestPayload{TargetUuid: "bob"})
	waitEvent(t, conn, event.TypeAck)
	assert.Equal(t, "alice", env.friendSvc.senderSeen())
}

func TestRouterInboundRateLimit(t *testing.T) {
	env := newRouterTestEnv(t, manager.ClientOptions{InboundRate: 1, InboundBurst: 1})
	conn := env.dial(t, "alice", "phone")

	sendEvent(t, conn, event.TypeHeartbeat, 1, nil)
	sendEvent(t, conn, event.TypeHeartbeat, 2, nil)

	waitEvent(t, conn, event.TypeHeartbeatAck)
	errFrame := waitEvent(t, conn, event.TypeError)
	assert.Equal(t, int32(consts.CodeTooManyRequests), decodeErrorPayload(t, errFrame).Code)
}

func TestRouterMessageScenario(t *testing.T) {
	env := newRouterTestEnv(t, manager.ClientOptions{})
	alice := env.dial(t, "alice", "phone")
	bob := env.dial(t, "bob", "laptop")
	env.awaitOnline(t, "alice")
	env.awaitOnline(t, "bob")

	// alice 发消息，自己收到回执，bob 经个人房间收到 new_message
	sendEvent(t, alice, event.TypeSendMessage, 1, event.SendMessagePayload{ReceiverUuid: "bob", Content: "在吗"})
	ack := waitEvent(t, alice, event.TypeAck)
	assert.Equal(t, int64(1), ack.Seq)

	frame := waitEvent(t, bob, event.TypeNewMessage)
	var payload event.NewMessagePayload
	require.NoError(t, json.Unmarshal(frame.Data, &payload))
	require.NotNil(t, payload.Message)
	assert.Equal(t, "alice", payload.Message.SenderUuid)
	assert.Equal(t, "在吗", payload.Message.Content)
}

func TestRouterFriendRequestScenario(t *testing.T) {
	env := newRouterTestEnv(t, manager.ClientOptions{})
	alice := env.dial(t, "alice", "phone")
	bob := env.dial(t, "bob", "laptop")
	env.awaitOnline(t, "alice")
	env.awaitOnline(t, "bob")

	sendEvent(t, alice, event.TypeSendFriendRequest, 1, event.SendFriendRequestPayload{TargetUuid: "bob"})
	waitEvent(t, alice, event.TypeAck)

	frame := waitEvent(t, bob, event.TypeFriendRequestReceived)
	var payload event.FriendRequestReceivedPayload
	require.NoError(t, json.Unmarshal(frame.Data, &payload))
	require.NotNil(t, payload.Friendship)
	assert.Equal(t, "alice", payload.Friendship.SenderUuid)
}

func TestRouterPresenceBroadcast(t *testing.T) {
	env := newRouterTestEnv(t, manager.ClientOptions{})
	env.hub.SetFriendLister(&stubFriendLister{friends: map[string][]string{
		"bob": {"alice"},
	}})

	alice := env.dial(t, "alice", "phone")
	env.awaitOnline(t, "alice")
	bob := env.dial(t, "bob", "laptop")

	// bob 上线，好友 alice 收到在线通知
	frame := waitEvent(t, alice, event.TypePresenceChanged)
	var payload event.PresenceChangedPayload
	require.NoError(t, json.Unmarshal(frame.Data, &payload))
	assert.Equal(t, "bob", payload.UserUuid)
	assert.True(t, payload.Online)

	// bob 最后一条连接断开，alice 收到下线通知
	bob.Close()
	frame = waitEvent(t, alice, event.TypePresenceChanged)
	require.NoError(t, json.Unmarshal(frame.Data, &payload))
	assert.Equal(t, "bob", payload.UserUuid)
	assert.False(t, payload.Online)
}

func TestRouterUnknownEvent(t *testing.T) {
	env := newRouterTestEnv(t, manager.ClientOptions{})
	conn := env.dial(t, "alice", "phone")

	sendEvent(t, conn, "no_such_type", 9, nil)
	errFrame := waitEvent(t, conn, event.TypeError)
	assert.Equal(t, int32(consts.CodeParamError), decodeErrorPayload(t, errFrame).Code)
	assert.Equal(t, int64(9), errFrame.Seq)
}
