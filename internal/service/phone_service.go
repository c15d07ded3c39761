package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"org-directory-go/internal/model"
	"org-directory-go/internal/repository"
	"org-directory-go/pkg/events"
	"org-directory-go/pkg/log"
)

// PhoneService 接口定义了电话号码的业务操作。
type PhoneService interface {
	// WithTx 返回绑定到事务的实例。事务内的实例不发布事件，由外层在提交后统一发布。
	WithTx(tx *gorm.DB) PhoneService
	CreateOrClaim(ctx context.Context, number string, organizationID *uint) (*model.Phone, error)
	Get(ctx context.Context, id uint) (*model.Phone, error)
	GetByNumber(ctx context.Context, number string) (*model.Phone, error)
	GetByNumbers(ctx context.Context, numbers []string) ([]model.Phone, error)
	Delete(ctx context.Context, id uint) (bool, error)
}

type phoneService struct {
	repo      repository.PhoneRepository
	orgRepo   repository.OrganizationRepository
	publisher events.Publisher
}

// NewPhoneService 创建一个新的 PhoneService 实例。
func NewPhoneService(repo repository.PhoneRepository, orgRepo repository.OrganizationRepository, publisher events.Publisher) PhoneService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &phoneService{repo: repo, orgRepo: orgRepo, publisher: publisher}
}

func (s *phoneService) WithTx(tx *gorm.DB) PhoneService {
	return &phoneService{
		repo:      s.repo.WithTx(tx),
		orgRepo:   s.orgRepo.WithTx(tx),
		publisher: events.NopPublisher{},
	}
}

// CreateOrClaim 按号码查找电话：存在则把归属改为 organizationID，否则插入新记录。
// 查找未命中到插入之间可能有并发写入同一号码，此时插入触发唯一键冲突，
// 回滚这次插入后重新查找并认领，只重试一次。
func (s *phoneService) CreateOrClaim(ctx context.Context, number string, organizationID *uint) (*model.Phone, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return nil, fmt.Errorf("%w: phone number is required", ErrInvalidInput)
	}
	if organizationID != nil {
		ok, err := s.orgRepo.Exists(ctx, *organizationID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: organization %d does not exist", ErrInvalidOrganization, *organizationID)
		}
	}

	phone, err := s.repo.FindByNumber(ctx, number)
	if err == nil {
		return s.claim(ctx, phone, organizationID)
	}
	if !repository.IsNotFound(err) {
		return nil, err
	}

	phone = &model.Phone{Number: number, OrganizationID: organizationID}
	err = s.repo.Create(ctx, phone)
	if err == nil {
		publishAfterCommit(ctx, s.publisher, events.New(events.OrganizationUpserted, ownerIDs(organizationID)...))
		return phone, nil
	}
	if !repository.IsDuplicateKey(err) {
		return nil, err
	}

	log.Warnw("phone number inserted concurrently, claiming existing row", "number", number)
	// 处于调用方事务中时普通读只能看到事务快照，必须用加锁读才能看到对方已提交的行
	phone, err = s.repo.FindByNumberForUpdate(ctx, number)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, fmt.Errorf("%w: number %q conflicted on insert but cannot be found", ErrPhoneReconciliationFailed, number)
		}
		return nil, err
	}
	return s.claim(ctx, phone, organizationID)
}

// claim 把已存在的号码转移给 organizationID，最后一次认领生效。
func (s *phoneService) claim(ctx context.Context, phone *model.Phone, organizationID *uint) (*model.Phone, error) {
	previous := phone.OrganizationID
	if sameOwner(previous, organizationID) {
		return phone, nil
	}
	if err := s.repo.UpdateOwner(ctx, phone, organizationID); err != nil {
		return nil, err
	}
	log.Infow("phone ownership transferred", "number", phone.Number, "from", previous, "to", organizationID)
	affected := append(ownerIDs(previous), ownerIDs(organizationID)...)
	publishAfterCommit(ctx, s.publisher, events.New(events.OrganizationUpserted, affected...))
	return phone, nil
}

// Get 根据 ID 获取电话。
func (s *phoneService) Get(ctx context.Context, id uint) (*model.Phone, error) {
	phone, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return phone, nil
}

// GetByNumber 根据号码获取电话。
func (s *phoneService) GetByNumber(ctx context.Context, number string) (*model.Phone, error) {
	phone, err := s.repo.FindByNumber(ctx, strings.TrimSpace(number))
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return phone, nil
}

// GetByNumbers 批量查找，空输入直接返回空结果，不访问数据库。
func (s *phoneService) GetByNumbers(ctx context.Context, numbers []string) ([]model.Phone, error) {
	if len(numbers) == 0 {
		return []model.Phone{}, nil
	}
	return s.repo.FindByNumbers(ctx, numbers)
}

// Delete 删除电话，不存在时返回 false。
func (s *phoneService) Delete(ctx context.Context, id uint) (bool, error) {
	phone, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	ok, err := s.repo.Delete(ctx, id)
	if err != nil || !ok {
		return ok, err
	}
	publishAfterCommit(ctx, s.publisher, events.New(events.OrganizationUpserted, ownerIDs(phone.OrganizationID)...))
	return true, nil
}

func sameOwner(a, b *uint) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func ownerIDs(ids ...*uint) []uint {
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id != nil {
			out = append(out, *id)
		}
	}
	return out
}
