package model

// Phone 对应于数据库中的 'phones' 表。
// 号码是全局命名空间，同一时刻只属于一个组织；转移归属时原地修改 OrganizationID。
type Phone struct {
	ID             uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Number         string `gorm:"type:varchar(64);not null;uniqueIndex" json:"number"`
	OrganizationID *uint  `gorm:"index" json:"organizationId"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (Phone) TableName() string {
	return "phones"
}
