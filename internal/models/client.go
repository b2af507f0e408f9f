package models

import "time"

// Client 预订客户，以邮箱作为身份标识
type Client struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Email     string    `gorm:"type:varchar(254);uniqueIndex;not null" json:"email"`
	FirstName string    `gorm:"type:varchar(100);not null" json:"first_name"`
	LastName  string    `gorm:"type:varchar(100);not null" json:"last_name"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 表名
func (Client) TableName() string {
	return "clients"
}

// FullName 客户全名
func (c *Client) FullName() string {
	return c.FirstName + " " + c.LastName
}
