package reconcile

import "sync"

// 好友关系状态文案，与服务端 DTO 保持一致。
const (
	StatusPending  = "pending"
	StatusAccepted = "accepted"
	StatusRejected = "rejected"
)

// Friendship 客户端视角的好友关系条目。
type Friendship struct {
	Id           string `json:"id"`
	SenderUuid   string `json:"sender_uuid"`
	ReceiverUuid string `json:"receiver_uuid"`
	Status       string `json:"status"`
}

// Txn 一次乐观变更的回滚句柄。
type Txn struct {
	once sync.Once
	undo func()
}

// Rollback 撤销变更，恢复操作前的快照。重复调用无副作用。
func (t *Txn) Rollback() {
	if t == nil {
		return
	}
	t.once.Do(t.undo)
}

// FriendView 好友列表的本地视图，按关系 id 索引。
type FriendView struct {
	mu       sync.Mutex
	selfUuid string
	items    map[string]Friendship
}

// NewFriendView 创建好友列表视图。
func NewFriendView(selfUuid string) *FriendView {
	return &FriendView{
		selfUuid: selfUuid,
		items:    make(map[string]Friendship),
	}
}

// ApplyRespond 乐观处理一条申请：accept 置 ACCEPTED，否则置 REJECTED。
// 返回的 Txn 在请求失败时恢复原状态。
func (v *FriendView) ApplyRespond(friendshipId string, accept bool) *Txn {
	v.mu.Lock()
	defer v.mu.Unlock()

	prev, existed := v.items[friendshipId]
	next := prev
	next.Id = friendshipId
	if accept {
		next.Status = StatusAccepted
	} else {
		next.Status = StatusRejected
	}
	v.items[friendshipId] = next

	return v.txnLocked(friendshipId, prev, existed)
}

// ApplyRemove 乐观删除一条好友关系。
func (v *FriendView) ApplyRemove(friendshipId string) *Txn {
	v.mu.Lock()
	defer v.mu.Unlock()

	prev, existed := v.items[friendshipId]
	delete(v.items, friendshipId)

	return v.txnLocked(friendshipId, prev, existed)
}

// ApplyRequest 乐观写入一条己方发起的申请。
// 服务端确认后用真实 id 回流，通过 Reconcile 合并；失败用 Txn 回滚。
func (v *FriendView) ApplyRequest(localId, targetUuid string) *Txn {
	v.mu.Lock()
	defer v.mu.Unlock()

	prev, existed := v.items[localId]
	v.items[localId] = Friendship{
		Id:           localId,
		SenderUuid:   v.selfUuid,
		ReceiverUuid: targetUuid,
		Status:       StatusPending,
	}

	return v.txnLocked(localId, prev, existed)
}

// Reconcile 合并服务端回流的关系事件：按 id 替换，绝不产生重复条目。
// localId 非空时同时清除对应的乐观占位。
func (v *FriendView) Reconcile(f Friendship, localId string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if localId != "" && localId != f.Id {
		delete(v.items, localId)
	}
	v.items[f.Id] = f
}

// Drop 按 id 移除条目（如对方解除关系的事件回流）。
func (v *FriendView) Drop(friendshipId string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.items, friendshipId)
}

// Get 按 id 查询条目。
func (v *FriendView) Get(friendshipId string) (Friendship, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	f, ok := v.items[friendshipId]
	return f, ok
}

// Accepted 返回已确认好友的快照。
func (v *FriendView) Accepted() []Friendship {
	v.mu.Lock()
	defer v.mu.Unlock()

	out := make([]Friendship, 0, len(v.items))
	for _, f := range v.items {
		if f.Status == StatusAccepted {
			out = append(out, f)
		}
	}
	return out
}

// txnLocked 构造恢复到 prev 的回滚句柄，调用方需持锁。
func (v *FriendView) txnLocked(id string, prev Friendship, existed bool) *Txn {
	return &Txn{undo: func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		if existed {
			v.items[id] = prev
		} else {
			delete(v.items, id)
		}
	}}
}
