// Package reconcile 提供客户端侧的乐观状态协调层。
// 用户发起发送/处理/删除操作时先本地生效，等服务端事件回流后
// 按业务键合并；请求失败则回滚到操作前的快照。
// 该包不依赖服务端内部类型，Go 客户端与测试可直接复用。
package reconcile

import (
	"sort"
	"strconv"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Message 客户端视角的消息条目。
type Message struct {
	Id           string    `json:"id"`
	SenderUuid   string    `json:"sender_uuid"`
	ReceiverUuid string    `json:"receiver_uuid"`
	Content      string    `json:"content"`
	CreatedAt    time.Time `json:"created_at"`
}

// Entry 本地视图中的一条消息。
// Pending 为 true 表示乐观写入、尚未收到服务端确认，
// Token 用于失败时回滚定位。
type Entry struct {
	Message
	Pending bool
	Token   string
}

// ==================== 会话视图 ====================

// ChatView 单个私聊会话的本地视图。
// 消息按时间倒序维护（下标 0 最新），与服务端历史分页的方向一致。
type ChatView struct {
	mu        sync.Mutex
	selfUuid  string
	peerUuid  string
	window    time.Duration
	tokenSeq  int64
	entries   []*Entry
	cursor    string
	exhausted bool
}

// DefaultMatchWindow 乐观条目与服务端回流事件的匹配时间窗。
// 窗口内内容相同的己方消息视为同一条。
const DefaultMatchWindow = 30 * time.Second

// NewChatView 创建会话视图。
func NewChatView(selfUuid, peerUuid string) *ChatView {
	return &ChatView{
		selfUuid: selfUuid,
		peerUuid: peerUuid,
		window:   DefaultMatchWindow,
	}
}

// ApplySend 乐观写入一条待确认消息，返回回滚用的 token。
func (v *ChatView) ApplySend(content string) string {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.tokenSeq++
	token := "pending-" + strconv.FormatInt(v.tokenSeq, 10)
	entry := &Entry{
		Message: Message{
			SenderUuid:   v.selfUuid,
			ReceiverUuid: v.peerUuid,
			Content:      content,
			CreatedAt:    time.Now(),
		},
		Pending: true,
		Token:   token,
	}
	// 最新的在最前
	v.entries = append([]*Entry{entry}, v.entries...)
	return token
}

// Rollback 撤销一条乐观写入；token 未命中时无副作用。
func (v *ChatView) Rollback(token string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	for i, e := range v.entries {
		if e.Pending && e.Token == token {
			v.entries = append(v.entries[:i], v.entries[i+1:]...)
			return
		}
	}
}

// Reconcile 合并服务端回流的消息事件。
// 1. 按 id 去重：已存在的确认消息直接忽略；
// 2. 己方消息优先匹配时间窗内内容相同的乐观条目，原位确认；
// 3. 其余按时间序插入。
func (v *ChatView) Reconcile(msg Message) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if msg.Id != "" {
		for _, e := range v.entries {
			if !e.Pending && e.Id == msg.Id {
				return
			}
		}
	}

	if msg.SenderUuid == v.selfUuid {
		for _, e := range v.entries {
			if e.Pending && e.Content == msg.Content && absDuration(msg.CreatedAt.Sub(e.CreatedAt)) <= v.window {
				e.Message = msg
				e.Pending = false
				e.Token = ""
				return
			}
		}
	}

	v.entries = append(v.entries, &Entry{Message: msg})
	v.sortLocked()
}

// ApplyPage 把一页历史消息并入视图（向更早方向翻页）。
// nextCursor 为空表示历史已拉完。
func (v *ChatView) ApplyPage(msgs []Message, nextCursor string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	seen := make(map[string]struct{}, len(v.entries))
	for _, e := range v.entries {
		if e.Id != "" {
			seen[e.Id] = struct{}{}
		}
	}
	for _, m := range msgs {
		if _, ok := seen[m.Id]; ok {
			continue
		}
		v.entries = append(v.entries, &Entry{Message: m})
	}
	v.sortLocked()

	v.cursor = nextCursor
	v.exhausted = nextCursor == ""
}

// Cursor 返回当前翻页游标；历史拉完后返回空串。
func (v *ChatView) Cursor() (cursor string, exhausted bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.cursor, v.exhausted
}

// Messages 返回当前视图快照，时间倒序。
func (v *ChatView) Messages() []Entry {
	v.mu.Lock()
	defer v.mu.Unlock()

	out := make([]Entry, 0, len(v.entries))
	for _, e := range v.entries {
		out = append(out, *e)
	}
	return out
}

// sortLocked 按时间倒序排序，时间相同按 id 倒序保证稳定。
// 乐观条目没有 id，靠本地时间戳排位。
func (v *ChatView) sortLocked() {
	sort.SliceStable(v.entries, func(i, j int) bool {
		a, b := v.entries[i], v.entries[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.Id > b.Id
	})
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

// ==================== 视图缓存 ====================

// Store 按对端 uuid 缓存会话视图。
// 客户端可能打开很多会话，LRU 限制驻留内存的视图数量；
// 被淘汰的会话重新打开时从服务端历史重建。
type Store struct {
	mu       sync.Mutex
	selfUuid string
	views    *lru.Cache[string, *ChatView]
	friends  *FriendView
}

// NewStore 创建视图缓存，maxViews 为驻留会话数上限。
func NewStore(selfUuid string, maxViews int) (*Store, error) {
	views, err := lru.New[string, *ChatView](maxViews)
	if err != nil {
		return nil, err
	}
	return &Store{
		selfUuid: selfUuid,
		views:    views,
		friends:  NewFriendView(selfUuid),
	}, nil
}

// Chat 返回与 peer 的会话视图，不存在时创建。
func (s *Store) Chat(peerUuid string) *ChatView {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := s.views.Get(peerUuid); ok {
		return v
	}
	v := NewChatView(s.selfUuid, peerUuid)
	s.views.Add(peerUuid, v)
	return v
}

// Friends 返回好友列表视图。
func (s *Store) Friends() *FriendView {
	return s.friends
}
