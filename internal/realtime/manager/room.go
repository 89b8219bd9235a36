package manager

import "sync"

// RoomManager 管理房间与连接的多对多关系。
// 房间是纯内存概念：第一个成员加入时隐式创建，最后一个成员离开时回收。
// 两类房间共用同一套键空间：
//   - 个人房间：room_key 即 user_uuid，连接建立时自动加入；
//   - 私聊房间：room_key 为两个 uuid 的有序拼接（与好友 pair_key 同构），
//     两端导航到同一会话时得到同一个房间键。
type RoomManager struct {
	mu       sync.RWMutex
	rooms    map[string]map[*Client]struct{}
	byClient map[*Client]map[string]struct{}
}

// NewRoomManager 创建房间管理器实例。
func NewRoomManager() *RoomManager {
	return &RoomManager{
		rooms:    make(map[string]map[*Client]struct{}),
		byClient: make(map[*Client]map[string]struct{}),
	}
}

// Join 将连接加入房间，重复加入是幂等空操作。
func (r *RoomManager) Join(roomKey string, client *Client) {
	if roomKey == "" || client == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.rooms[roomKey]
	if !ok {
		members = make(map[*Client]struct{})
		r.rooms[roomKey] = members
	}
	members[client] = struct{}{}

	joined, ok := r.byClient[client]
	if !ok {
		joined = make(map[string]struct{})
		r.byClient[client] = joined
	}
	joined[roomKey] = struct{}{}
}

// Leave 将连接移出房间，未加入时是幂等空操作。
// 最后一个成员离开后房间被回收。
func (r *RoomManager) Leave(roomKey string, client *Client) {
	if roomKey == "" || client == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(roomKey, client)
}

// LeaveAll 将连接移出其加入的全部房间，连接断开时调用。
func (r *RoomManager) LeaveAll(client *Client) {
	if client == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for roomKey := range r.byClient[client] {
		r.leaveLocked(roomKey, client)
	}
}

func (r *RoomManager) leaveLocked(roomKey string, client *Client) {
	if members, ok := r.rooms[roomKey]; ok {
		delete(members, client)
		if len(members) == 0 {
			delete(r.rooms, roomKey)
		}
	}
	if joined, ok := r.byClient[client]; ok {
		delete(joined, roomKey)
		if len(joined) == 0 {
			delete(r.byClient, client)
		}
	}
}

// Members 返回房间当前全部成员连接的快照。
func (r *RoomManager) Members(roomKey string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.rooms[roomKey]
	if !ok {
		return nil
	}
	out := make([]*Client, 0, len(members))
	for client := range members {
		out = append(out, client)
	}
	return out
}

// MemberCount 返回房间成员数，不存在的房间返回 0。
func (r *RoomManager) MemberCount(roomKey string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[roomKey])
}

// Contains 判断连接是否在房间内。
func (r *RoomManager) Contains(roomKey string, client *Client) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[roomKey][client]
	return ok
}

// Broadcast 向房间全部成员广播消息，返回成功入队的连接数。
func (r *RoomManager) Broadcast(roomKey string, msg []byte) int {
	sent := 0
	for _, client := range r.Members(roomKey) {
		if client.Enqueue(msg) {
			sent++
		}
	}
	return sent
}
