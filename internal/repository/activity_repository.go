package repository

import (
	"context"

	"gorm.io/gorm"
	"org-directory-go/internal/model"
)

// ActivityRepository 接口定义了活动树节点的数据操作方法。
type ActivityRepository interface {
	WithTx(tx *gorm.DB) ActivityRepository
	Create(ctx context.Context, activity *model.Activity) error
	FindByID(ctx context.Context, id uint) (*model.Activity, error)
	FindByIDs(ctx context.Context, ids []uint) ([]model.Activity, error)
	FindAll(ctx context.Context, offset, limit int) ([]model.Activity, error)
	FindChildren(ctx context.Context, parentID uint) ([]model.Activity, error)
	FindChildIDs(ctx context.Context, parentIDs []uint) ([]uint, error)
	FindRootIDs(ctx context.Context) ([]uint, error)
	FindDescendantIDs(ctx context.Context, parentID uint) ([]uint, error)
	FindSubtree(ctx context.Context, parentID *uint) ([]model.Activity, error)
	FindOrganizationIDs(ctx context.Context, activityIDs []uint) ([]uint, error)
	Update(ctx context.Context, activity *model.Activity) error
	DeleteTree(ctx context.Context, ids []uint) error
}

type activityRepository struct {
	db *gorm.DB
}

// NewActivityRepository 创建一个新的 ActivityRepository 实例。
func NewActivityRepository(db *gorm.DB) ActivityRepository {
	return &activityRepository{db: db}
}

// WithTx 返回绑定到给定事务的仓库。
func (r *activityRepository) WithTx(tx *gorm.DB) ActivityRepository {
	return &activityRepository{db: tx}
}

// Create 在数据库中插入一个新的活动节点。
func (r *activityRepository) Create(ctx context.Context, activity *model.Activity) error {
	return r.db.WithContext(ctx).Create(activity).Error
}

// FindByID 根据 ID 查找活动，不存在时返回 gorm.ErrRecordNotFound。
func (r *activityRepository) FindByID(ctx context.Context, id uint) (*model.Activity, error) {
	var activity model.Activity
	if err := r.db.WithContext(ctx).First(&activity, id).Error; err != nil {
		return nil, err
	}
	return &activity, nil
}

// FindByIDs 批量查找活动，不存在的 ID 被忽略。
func (r *activityRepository) FindByIDs(ctx context.Context, ids []uint) ([]model.Activity, error) {
	activities := make([]model.Activity, 0)
	if len(ids) == 0 {
		return activities, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id").Find(&activities).Error
	return activities, err
}

// FindAll 分页检索活动。limit <= 0 表示不分页，此时忽略 offset。
func (r *activityRepository) FindAll(ctx context.Context, offset, limit int) ([]model.Activity, error) {
	activities := make([]model.Activity, 0)
	q := r.db.WithContext(ctx).Order("id")
	if limit > 0 {
		q = q.Offset(offset).Limit(limit)
	}
	err := q.Find(&activities).Error
	return activities, err
}

// FindChildren 返回直接子节点。
func (r *activityRepository) FindChildren(ctx context.Context, parentID uint) ([]model.Activity, error) {
	activities := make([]model.Activity, 0)
	err := r.db.WithContext(ctx).Where("parent_id = ?", parentID).Order("id").Find(&activities).Error
	return activities, err
}

// FindChildIDs 返回一组父节点的所有直接子节点 ID，BFS 展开时每层调用一次。
func (r *activityRepository) FindChildIDs(ctx context.Context, parentIDs []uint) ([]uint, error) {
	ids := make([]uint, 0)
	if len(parentIDs) == 0 {
		return ids, nil
	}
	err := r.db.WithContext(ctx).Model(&model.Activity{}).
		Where("parent_id IN ?", parentIDs).
		Pluck("id", &ids).Error
	return ids, err
}

// FindRootIDs 返回所有根节点的 ID。
func (r *activityRepository) FindRootIDs(ctx context.Context) ([]uint, error) {
	ids := make([]uint, 0)
	err := r.db.WithContext(ctx).Model(&model.Activity{}).
		Where("parent_id IS NULL").
		Pluck("id", &ids).Error
	return ids, err
}

// 递归 CTE 用 UNION 而非 UNION ALL 去重，即使数据中存在环也能终止。
const descendantIDsSQL = `
WITH RECURSIVE tree (id) AS (
	SELECT id FROM activities WHERE parent_id = ?
	UNION
	SELECT a.id FROM activities a INNER JOIN tree t ON a.parent_id = t.id
)
SELECT id FROM tree WHERE id <> ?`

const subtreeSQL = `
WITH RECURSIVE tree (id) AS (
	SELECT id FROM activities WHERE parent_id = ?
	UNION
	SELECT a.id FROM activities a INNER JOIN tree t ON a.parent_id = t.id
)
SELECT * FROM activities WHERE id IN (SELECT id FROM tree) AND id <> ? ORDER BY id`

const forestSQL = `
WITH RECURSIVE tree (id) AS (
	SELECT id FROM activities WHERE parent_id IS NULL
	UNION
	SELECT a.id FROM activities a INNER JOIN tree t ON a.parent_id = t.id
)
SELECT * FROM activities WHERE id IN (SELECT id FROM tree) ORDER BY id`

// FindDescendantIDs 用递归查询返回 parentID 之下所有子孙的 ID，不含 parentID 本身。
func (r *activityRepository) FindDescendantIDs(ctx context.Context, parentID uint) ([]uint, error) {
	ids := make([]uint, 0)
	err := r.db.WithContext(ctx).Raw(descendantIDsSQL, parentID, parentID).Scan(&ids).Error
	return ids, err
}

// FindSubtree 用递归查询返回 parentID 之下的所有节点行。
// parentID 为 nil 时返回所有根节点及其完整子树。
func (r *activityRepository) FindSubtree(ctx context.Context, parentID *uint) ([]model.Activity, error) {
	activities := make([]model.Activity, 0)
	db := r.db.WithContext(ctx)
	var err error
	if parentID == nil {
		err = db.Raw(forestSQL).Scan(&activities).Error
	} else {
		err = db.Raw(subtreeSQL, *parentID, *parentID).Scan(&activities).Error
	}
	return activities, err
}

// FindOrganizationIDs 返回与任一给定活动关联的组织 ID（去重）。
func (r *activityRepository) FindOrganizationIDs(ctx context.Context, activityIDs []uint) ([]uint, error) {
	ids := make([]uint, 0)
	if len(activityIDs) == 0 {
		return ids, nil
	}
	err := r.db.WithContext(ctx).Model(&model.OrganizationActivity{}).
		Distinct().
		Where("activity_id IN ?", activityIDs).
		Order("organization_id").
		Pluck("organization_id", &ids).Error
	return ids, err
}

// Update 更新活动的名称和父节点。
func (r *activityRepository) Update(ctx context.Context, activity *model.Activity) error {
	return r.db.WithContext(ctx).Model(activity).
		Select("name", "parent_id", "updated_at").
		Updates(activity).Error
}

// DeleteTree 删除一组节点（通常是某个节点及其全部子孙）以及它们与组织的关联。
// 必须在事务中调用。先断开父子引用，使删除顺序与外键是否启用无关。
func (r *activityRepository) DeleteTree(ctx context.Context, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	db := r.db.WithContext(ctx)
	if err := db.Model(&model.Activity{}).Where("id IN ?", ids).Update("parent_id", nil).Error; err != nil {
		return err
	}
	if err := db.Where("activity_id IN ?", ids).Delete(&model.OrganizationActivity{}).Error; err != nil {
		return err
	}
	return db.Where("id IN ?", ids).Delete(&model.Activity{}).Error
}
