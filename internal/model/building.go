package model

import "time"

// Building 对应于数据库中的 'buildings' 表。地址全局唯一。
type Building struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Address   string    `gorm:"type:varchar(255);not null;uniqueIndex" json:"address"`
	Latitude  float64   `gorm:"not null" json:"latitude"`
	Longitude float64   `gorm:"not null" json:"longitude"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (Building) TableName() string {
	return "buildings"
}
