package model

import "time"

// Message 私信消息，写入后不可变。
// idx_pair_cursor 支撑按 (pair_key, id DESC) 的游标翻页；
// 雪花 id 自带时间序，游标只需要记录 id。
type Message struct {
	Id           int64     `gorm:"column:id;primaryKey;comment:雪花id"`
	SenderUuid   string    `gorm:"column:sender_uuid;type:char(20);not null;comment:发送方uuid"`
	ReceiverUuid string    `gorm:"column:receiver_uuid;type:char(20);not null;comment:接收方uuid"`
	PairKey      string    `gorm:"column:pair_key;type:char(41);not null;index:idx_pair_cursor,priority:1;comment:无序对键"`
	Content      string    `gorm:"column:content;type:varchar(4096);not null;comment:消息内容"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime;comment:发送时间"`
}

func (Message) TableName() string { return "message" }
