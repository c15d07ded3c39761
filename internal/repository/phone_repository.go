package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"org-directory-go/internal/model"
)

// PhoneRepository 接口定义了电话号码的数据操作方法。
type PhoneRepository interface {
	WithTx(tx *gorm.DB) PhoneRepository
	Create(ctx context.Context, phone *model.Phone) error
	FindByID(ctx context.Context, id uint) (*model.Phone, error)
	FindByNumber(ctx context.Context, number string) (*model.Phone, error)
	FindByNumberForUpdate(ctx context.Context, number string) (*model.Phone, error)
	FindByNumbers(ctx context.Context, numbers []string) ([]model.Phone, error)
	UpdateOwner(ctx context.Context, phone *model.Phone, organizationID *uint) error
	DetachExcept(ctx context.Context, organizationID uint, keep []string) error
	DeleteByOrganizationIDs(ctx context.Context, organizationIDs []uint) error
	Delete(ctx context.Context, id uint) (bool, error)
}

type phoneRepository struct {
	db *gorm.DB
}

// NewPhoneRepository 创建一个新的 PhoneRepository 实例。
func NewPhoneRepository(db *gorm.DB) PhoneRepository {
	return &phoneRepository{db: db}
}

// WithTx 返回绑定到给定事务的仓库。
func (r *phoneRepository) WithTx(tx *gorm.DB) PhoneRepository {
	return &phoneRepository{db: tx}
}

// Create 插入一个电话号码。
// 插入包在嵌套事务里：处于外部事务中时 GORM 会使用 SAVEPOINT，
// 唯一键冲突只回滚这一条插入，外部事务仍然可用。
func (r *phoneRepository) Create(ctx context.Context, phone *model.Phone) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(phone).Error
	})
}

// FindByID 根据 ID 查找电话号码。
func (r *phoneRepository) FindByID(ctx context.Context, id uint) (*model.Phone, error) {
	var phone model.Phone
	if err := r.db.WithContext(ctx).First(&phone, id).Error; err != nil {
		return nil, err
	}
	return &phone, nil
}

// FindByNumber 根据号码查找，不存在时返回 gorm.ErrRecordNotFound。
func (r *phoneRepository) FindByNumber(ctx context.Context, number string) (*model.Phone, error) {
	var phone model.Phone
	if err := r.db.WithContext(ctx).Where("number = ?", number).First(&phone).Error; err != nil {
		return nil, err
	}
	return &phone, nil
}

// FindByNumberForUpdate 用加锁读（SELECT ... FOR UPDATE）查找号码并锁定该行。
// InnoDB 的加锁读总是读取最新已提交的版本，不受 REPEATABLE READ 事务快照的限制，
// 因此能看到事务开始后其他事务提交的号码。SQLite 方言会忽略 FOR 子句。
func (r *phoneRepository) FindByNumberForUpdate(ctx context.Context, number string) (*model.Phone, error) {
	var phone model.Phone
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("number = ?", number).
		First(&phone).Error
	if err != nil {
		return nil, err
	}
	return &phone, nil
}

// FindByNumbers 批量查找号码。
func (r *phoneRepository) FindByNumbers(ctx context.Context, numbers []string) ([]model.Phone, error) {
	phones := make([]model.Phone, 0)
	if len(numbers) == 0 {
		return phones, nil
	}
	err := r.db.WithContext(ctx).Where("number IN ?", numbers).Order("id").Find(&phones).Error
	return phones, err
}

// UpdateOwner 将号码的归属原地改为 organizationID。
func (r *phoneRepository) UpdateOwner(ctx context.Context, phone *model.Phone, organizationID *uint) error {
	err := r.db.WithContext(ctx).Model(&model.Phone{}).
		Where("id = ?", phone.ID).
		Update("organization_id", organizationID).Error
	if err != nil {
		return err
	}
	phone.OrganizationID = organizationID
	return nil
}

// DetachExcept 解除组织对不在 keep 中的号码的归属。号码记录本身保留。
func (r *phoneRepository) DetachExcept(ctx context.Context, organizationID uint, keep []string) error {
	q := r.db.WithContext(ctx).Model(&model.Phone{}).Where("organization_id = ?", organizationID)
	if len(keep) > 0 {
		q = q.Where("number NOT IN ?", keep)
	}
	return q.Update("organization_id", nil).Error
}

// DeleteByOrganizationIDs 删除属于给定组织的全部号码。
func (r *phoneRepository) DeleteByOrganizationIDs(ctx context.Context, organizationIDs []uint) error {
	if len(organizationIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Where("organization_id IN ?", organizationIDs).Delete(&model.Phone{}).Error
}

// Delete 删除一个号码，返回记录是否存在。
func (r *phoneRepository) Delete(ctx context.Context, id uint) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&model.Phone{}, id)
	return res.RowsAffected > 0, res.Error
}
