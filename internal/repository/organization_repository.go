package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"org-directory-go/internal/model"
)

// OrganizationRepository 接口定义了组织及其活动关联的数据操作方法。
type OrganizationRepository interface {
	WithTx(tx *gorm.DB) OrganizationRepository
	Create(ctx context.Context, org *model.Organization) error
	FindByID(ctx context.Context, id uint) (*model.Organization, error)
	FindByIDs(ctx context.Context, ids []uint) ([]model.Organization, error)
	Exists(ctx context.Context, id uint) (bool, error)
	FindAll(ctx context.Context, offset, limit int) ([]model.Organization, error)
	FindByBuildingIDs(ctx context.Context, buildingIDs []uint) ([]model.Organization, error)
	FindIDsByBuilding(ctx context.Context, buildingID uint) ([]uint, error)
	FindByActivityIDs(ctx context.Context, activityIDs []uint) ([]model.Organization, error)
	SearchByName(ctx context.Context, substring string) ([]model.Organization, error)
	Update(ctx context.Context, org *model.Organization) error
	ReplaceActivities(ctx context.Context, organizationID uint, activityIDs []uint) error
	DeleteByIDs(ctx context.Context, ids []uint) (int64, error)
}

type organizationRepository struct {
	db *gorm.DB
}

// NewOrganizationRepository 创建一个新的 OrganizationRepository 实例。
func NewOrganizationRepository(db *gorm.DB) OrganizationRepository {
	return &organizationRepository{db: db}
}

// WithTx 返回绑定到给定事务的仓库。
func (r *organizationRepository) WithTx(tx *gorm.DB) OrganizationRepository {
	return &organizationRepository{db: tx}
}

// withAssociations 预加载组织的楼宇、电话和活动，关联按 ID 排序以保证输出稳定。
func (r *organizationRepository) withAssociations(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Building").
		Preload("Phones", func(db *gorm.DB) *gorm.DB { return db.Order("phones.id") }).
		Preload("Activities", func(db *gorm.DB) *gorm.DB { return db.Order("activities.id") })
}

// Create 只插入组织本身，电话与活动的关联由调用方显式维护。
func (r *organizationRepository) Create(ctx context.Context, org *model.Organization) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(org).Error
}

// FindByID 根据 ID 查找组织并预加载关联，不存在时返回 gorm.ErrRecordNotFound。
func (r *organizationRepository) FindByID(ctx context.Context, id uint) (*model.Organization, error) {
	var org model.Organization
	if err := r.withAssociations(ctx).First(&org, id).Error; err != nil {
		return nil, err
	}
	return &org, nil
}

// FindByIDs 批量查找组织。
func (r *organizationRepository) FindByIDs(ctx context.Context, ids []uint) ([]model.Organization, error) {
	orgs := make([]model.Organization, 0)
	if len(ids) == 0 {
		return orgs, nil
	}
	err := r.withAssociations(ctx).Where("id IN ?", ids).Order("id").Find(&orgs).Error
	return orgs, err
}

// Exists 判断组织是否存在，不加载关联。
func (r *organizationRepository) Exists(ctx context.Context, id uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Organization{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// FindAll 分页检索组织。limit <= 0 表示不限制。
func (r *organizationRepository) FindAll(ctx context.Context, offset, limit int) ([]model.Organization, error) {
	orgs := make([]model.Organization, 0)
	q := r.withAssociations(ctx).Order("id")
	if limit > 0 {
		q = q.Offset(offset).Limit(limit)
	}
	err := q.Find(&orgs).Error
	return orgs, err
}

// FindByBuildingIDs 返回位于任一给定楼宇中的组织。
func (r *organizationRepository) FindByBuildingIDs(ctx context.Context, buildingIDs []uint) ([]model.Organization, error) {
	orgs := make([]model.Organization, 0)
	if len(buildingIDs) == 0 {
		return orgs, nil
	}
	err := r.withAssociations(ctx).Where("building_id IN ?", buildingIDs).Order("id").Find(&orgs).Error
	return orgs, err
}

// FindIDsByBuilding 返回某楼宇中所有组织的 ID。
func (r *organizationRepository) FindIDsByBuilding(ctx context.Context, buildingID uint) ([]uint, error) {
	ids := make([]uint, 0)
	err := r.db.WithContext(ctx).Model(&model.Organization{}).
		Where("building_id = ?", buildingID).
		Order("id").
		Pluck("id", &ids).Error
	return ids, err
}

// FindByActivityIDs 返回与任一给定活动关联的组织，每个组织只出现一次。
func (r *organizationRepository) FindByActivityIDs(ctx context.Context, activityIDs []uint) ([]model.Organization, error) {
	orgs := make([]model.Organization, 0)
	if len(activityIDs) == 0 {
		return orgs, nil
	}
	sub := r.db.WithContext(ctx).Model(&model.OrganizationActivity{}).
		Select("organization_id").
		Where("activity_id IN ?", activityIDs)
	err := r.withAssociations(ctx).Where("id IN (?)", sub).Order("id").Find(&orgs).Error
	return orgs, err
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// SearchByName 按名称做大小写不敏感的子串匹配。
func (r *organizationRepository) SearchByName(ctx context.Context, substring string) ([]model.Organization, error) {
	orgs := make([]model.Organization, 0)
	pattern := "%" + likeEscaper.Replace(strings.ToLower(substring)) + "%"
	err := r.withAssociations(ctx).
		Where("LOWER(name) LIKE ? ESCAPE '!'", pattern).
		Order("id").
		Find(&orgs).Error
	return orgs, err
}

// Update 更新组织的名称和所在楼宇。
func (r *organizationRepository) Update(ctx context.Context, org *model.Organization) error {
	org.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Model(&model.Organization{}).
		Where("id = ?", org.ID).
		Updates(map[string]interface{}{
			"name":        org.Name,
			"building_id": org.BuildingID,
			"updated_at":  org.UpdatedAt,
		}).Error
}

// ReplaceActivities 用 activityIDs 整体替换组织的活动关联。调用方负责去重。
func (r *organizationRepository) ReplaceActivities(ctx context.Context, organizationID uint, activityIDs []uint) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("organization_id = ?", organizationID).Delete(&model.OrganizationActivity{}).Error; err != nil {
		return err
	}
	if len(activityIDs) == 0 {
		return nil
	}
	links := make([]model.OrganizationActivity, 0, len(activityIDs))
	for _, id := range activityIDs {
		links = append(links, model.OrganizationActivity{OrganizationID: organizationID, ActivityID: id})
	}
	return db.Create(&links).Error
}

// DeleteByIDs 删除组织及其活动关联，返回实际删除的组织数。
// 电话需由调用方在同一事务中先行删除。
func (r *organizationRepository) DeleteByIDs(ctx context.Context, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	db := r.db.WithContext(ctx)
	if err := db.Where("organization_id IN ?", ids).Delete(&model.OrganizationActivity{}).Error; err != nil {
		return 0, err
	}
	res := db.Where("id IN ?", ids).Delete(&model.Organization{})
	return res.RowsAffected, res.Error
}
