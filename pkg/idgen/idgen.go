package idgen

import (
	"os"
	"strconv"
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	node *snowflake.Node
	once sync.Once
)

// Init 初始化雪花节点。
// nodeID 取值范围 0~1023，多实例部署时必须互不相同（通常注入实例序号）。
func Init(nodeID int64) error {
	var err error
	once.Do(func() {
		node, err = snowflake.NewNode(nodeID)
	})
	return err
}

// NodeIDFromEnv 从 SNOWFLAKE_NODE_ID 读取节点号，未设置时返回 0。
func NodeIDFromEnv() int64 {
	raw := os.Getenv("SNOWFLAKE_NODE_ID")
	if raw == "" {
		return 0
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 0 || id > 1023 {
		return 0
	}
	return id
}

// Next 生成下一个雪花 ID。
// 未初始化时惰性初始化节点 0，保证测试场景零配置可用。
func Next() int64 {
	if node == nil {
		_ = Init(0)
	}
	return node.Generate().Int64()
}

// NextString 生成十进制字符串形式的雪花 ID。
func NextString() string {
	return strconv.FormatInt(Next(), 10)
}
