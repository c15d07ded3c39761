package repository

import (
	"context"

	"gorm.io/gorm"
	"org-directory-go/internal/model"
)

// BuildingRepository 接口定义了楼宇的数据操作方法。
type BuildingRepository interface {
	WithTx(tx *gorm.DB) BuildingRepository
	Create(ctx context.Context, building *model.Building) error
	FindByID(ctx context.Context, id uint) (*model.Building, error)
	FindAll(ctx context.Context, offset, limit int) ([]model.Building, error)
	Delete(ctx context.Context, id uint) (bool, error)
}

type buildingRepository struct {
	db *gorm.DB
}

// NewBuildingRepository 创建一个新的 BuildingRepository 实例。
func NewBuildingRepository(db *gorm.DB) BuildingRepository {
	return &buildingRepository{db: db}
}

// WithTx 返回绑定到给定事务的仓库。
func (r *buildingRepository) WithTx(tx *gorm.DB) BuildingRepository {
	return &buildingRepository{db: tx}
}

// Create 插入一个楼宇。
func (r *buildingRepository) Create(ctx context.Context, building *model.Building) error {
	return r.db.WithContext(ctx).Create(building).Error
}

// FindByID 根据 ID 查找楼宇。
func (r *buildingRepository) FindByID(ctx context.Context, id uint) (*model.Building, error) {
	var building model.Building
	if err := r.db.WithContext(ctx).First(&building, id).Error; err != nil {
		return nil, err
	}
	return &building, nil
}

// FindAll 分页检索楼宇。limit <= 0 表示返回全部，半径查询用这种方式加载候选集。
func (r *buildingRepository) FindAll(ctx context.Context, offset, limit int) ([]model.Building, error) {
	buildings := make([]model.Building, 0)
	q := r.db.WithContext(ctx).Order("id")
	if limit > 0 {
		q = q.Offset(offset).Limit(limit)
	}
	err := q.Find(&buildings).Error
	return buildings, err
}

// Delete 删除楼宇本身，返回记录是否存在。楼内组织需由调用方先行删除。
func (r *buildingRepository) Delete(ctx context.Context, id uint) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&model.Building{}, id)
	return res.RowsAffected > 0, res.Error
}
