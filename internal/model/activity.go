// Package model 定义了与数据库表对应的 Go 结构体。
package model

import "time"

// Activity 对应于数据库中的 'activities' 表，是业务活动分类树上的一个节点。
// 树以邻接表存储：ParentID 为 NULL 的节点是根。
type Activity struct {
	ID   uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"type:varchar(255);not null;index" json:"name"`
	// ParentID 指向父节点，使用指针以接受 NULL 值，表示根节点。
	ParentID *uint `gorm:"index" json:"parentId"`
	// Children 仅用于声明自引用外键及级联删除，不参与 JSON 输出。
	Children  []Activity `gorm:"foreignKey:ParentID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (Activity) TableName() string {
	return "activities"
}

// ActivityNode 是活动树视图中的一个节点。
type ActivityNode struct {
	ID       uint            `json:"id"`
	Name     string          `json:"name"`
	ParentID *uint           `json:"parentId"`
	Children []*ActivityNode `json:"children"`
}
