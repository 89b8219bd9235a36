package manager

import (
	"sync"
	"time"
)

// Registry 管理所有在线 WebSocket 连接并维护在线状态。
// 维护两套索引：
// - byKey(user_uuid:device_id) 用于精确定位单设备连接；
// - byUser(user_uuid -> device_id -> client) 用于按用户广播。
// 在线语义：用户存在至少一条活跃连接即在线；
// 注册首条连接产生"上线"迁移，注销最后一条连接产生"下线"迁移，
// 中间的连接增减不产生任何对外可见的状态变化。
type Registry struct {
	mu       sync.RWMutex
	byKey    map[string]*Client
	byUser   map[string]map[string]*Client
	lastSeen map[string]time.Time // 下线用户的最后活跃时间
	shutdown bool
}

// NewRegistry 创建连接注册表实例。
func NewRegistry() *Registry {
	return &Registry{
		byKey:    make(map[string]*Client),
		byUser:   make(map[string]map[string]*Client),
		lastSeen: make(map[string]time.Time),
	}
}

// Register 注册一个设备连接。
// 返回值：
//   - replaced：被新连接替换掉的旧连接（如果存在），调用方应主动关闭，
//     确保同设备最多一个活跃连接；
//   - becameOnline：本次注册是否使用户从离线变为在线。
func (m *Registry) Register(client *Client) (replaced *Client, becameOnline bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.shutdown {
		return nil, false
	}

	key := client.Key()
	if old, ok := m.byKey[key]; ok && old != client {
		replaced = old
	}

	m.byKey[key] = client
	userConns, ok := m.byUser[client.UserUUID()]
	if !ok {
		userConns = make(map[string]*Client)
		m.byUser[client.UserUUID()] = userConns
		becameOnline = true
	}
	userConns[client.DeviceID()] = client
	delete(m.lastSeen, client.UserUUID())
	return replaced, becameOnline
}

// Unregister 注销一个连接。
// 只有当 map 中当前连接与入参完全一致时才删除，防止并发替换时误删新连接。
// 返回 becameOffline 表示本次注销是否使用户从在线变为离线。
func (m *Registry) Unregister(client *Client) (becameOffline bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := client.Key()
	current, ok := m.byKey[key]
	if !ok || current != client {
		return false
	}

	delete(m.byKey, key)
	if userConns, ok := m.byUser[client.UserUUID()]; ok {
		delete(userConns, client.DeviceID())
		if len(userConns) == 0 {
			delete(m.byUser, client.UserUUID())
			m.lastSeen[client.UserUUID()] = client.LastActiveAt()
			becameOffline = true
		}
	}
	return becameOffline
}

// IsOnline 判断用户是否在线（至少一条活跃连接）。
func (m *Registry) IsOnline(userUUID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byUser[userUUID]) > 0
}

// LastActiveAt 返回用户最近活跃时间。
// 在线用户取所有连接的最大值，刚下线的用户取断开时的记录；
// 完全未知的用户返回零值。
func (m *Registry) LastActiveAt(userUUID string) time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if userConns, ok := m.byUser[userUUID]; ok && len(userConns) > 0 {
		var latest time.Time
		for _, client := range userConns {
			if t := client.LastActiveAt(); t.After(latest) {
				latest = t
			}
		}
		return latest
	}
	return m.lastSeen[userUUID]
}

// SendToDevice 向指定用户的指定设备发送消息。
// 返回 false 表示目标连接不存在或写队列不可用。
func (m *Registry) SendToDevice(userUUID, deviceID string, msg []byte) bool {
	m.mu.RLock()
	client := m.byKey[buildKey(userUUID, deviceID)]
	m.mu.RUnlock()
	if client == nil {
		return false
	}
	return client.Enqueue(msg)
}

// SendToUser 向用户的所有在线设备广播消息。
// 返回成功入队的设备数量，可用于统计下行投递率。
func (m *Registry) SendToUser(userUUID string, msg []byte) int {
	m.mu.RLock()
	userConns, ok := m.byUser[userUUID]
	if !ok || len(userConns) == 0 {
		m.mu.RUnlock()
		return 0
	}
	clients := make([]*Client, 0, len(userConns))
	for _, client := range userConns {
		clients = append(clients, client)
	}
	m.mu.RUnlock()

	sent := 0
	for _, client := range clients {
		if client.Enqueue(msg) {
			sent++
		}
	}
	return sent
}

// Count 返回当前在线连接数（按 user_uuid+device_id 去重后）。
func (m *Registry) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byKey)
}

// OnlineUserCount 返回当前在线用户数。
func (m *Registry) OnlineUserCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byUser)
}

// Shutdown 关闭全部连接并阻止后续注册。
// 用于进程优雅退出阶段，确保不再接收新连接并尽快释放资源。
func (m *Registry) Shutdown() {
	m.mu.Lock()
	if m.shutdown {
		m.mu.Unlock()
		return
	}
	m.shutdown = true

	clients := make([]*Client, 0, len(m.byKey))
	for _, client := range m.byKey {
		clients = append(clients, client)
	}
	m.byKey = make(map[string]*Client)
	m.byUser = make(map[string]map[string]*Client)
	m.mu.Unlock()

	for _, client := range clients {
		client.Close()
	}
}

// buildKey 统一构造设备连接键。
func buildKey(userUUID, deviceID string) string {
	return userUUID + ":" + deviceID
}
