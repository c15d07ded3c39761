package database

import (
	"gorm.io/gorm"
	"org-directory-go/internal/model"
)

// Migrate 注册自定义关联表并同步表结构。
func Migrate(db *gorm.DB) error {
	if err := db.SetupJoinTable(&model.Organization{}, "Activities", &model.OrganizationActivity{}); err != nil {
		return err
	}
	return db.AutoMigrate(
		&model.Building{},
		&model.Activity{},
		&model.Organization{},
		&model.Phone{},
		&model.OrganizationActivity{},
	)
}
