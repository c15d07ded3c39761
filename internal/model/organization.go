package model

import "time"

// Organization 对应于数据库中的 'organizations' 表。
// 电话随组织删除而删除；活动只是多对多关联，删除组织只移除关联行。
type Organization struct {
	ID         uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	Name       string     `gorm:"type:varchar(255);not null;index" json:"name"`
	BuildingID *uint      `gorm:"index" json:"buildingId"`
	Building   *Building  `gorm:"foreignKey:BuildingID;constraint:OnDelete:CASCADE" json:"building,omitempty"`
	Phones     []Phone    `gorm:"foreignKey:OrganizationID;constraint:OnDelete:CASCADE" json:"phones"`
	Activities []Activity `gorm:"many2many:organization_activities" json:"activities"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt  time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (Organization) TableName() string {
	return "organizations"
}

// OrganizationActivity 是组织与活动之间的纯关联表，没有额外负载。
type OrganizationActivity struct {
	OrganizationID uint `gorm:"primaryKey"`
	ActivityID     uint `gorm:"primaryKey;index"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (OrganizationActivity) TableName() string {
	return "organization_activities"
}
