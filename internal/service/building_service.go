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
	"org-directory-go/pkg/geo"
	"org-directory-go/pkg/log"
)

// BuildingInput 是创建楼宇的参数。
type BuildingInput struct {
	Address   string
	Latitude  float64
	Longitude float64
}

// BuildingService 接口定义了楼宇相关的业务操作。
type BuildingService interface {
	Create(ctx context.Context, in BuildingInput) (*model.Building, error)
	Get(ctx context.Context, id uint) (*model.Building, error)
	List(ctx context.Context, offset, limit int) ([]model.Building, error)
	Delete(ctx context.Context, id uint) (bool, error)
}

type buildingService struct {
	repo      repository.BuildingRepository
	orgRepo   repository.OrganizationRepository
	phoneRepo repository.PhoneRepository
	txm       repository.TxManager
	publisher events.Publisher
	paging    Paging
}

// NewBuildingService 创建一个新的 BuildingService 实例。
func NewBuildingService(repo repository.BuildingRepository, orgRepo repository.OrganizationRepository, phoneRepo repository.PhoneRepository, txm repository.TxManager, publisher events.Publisher, paging Paging) BuildingService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &buildingService{
		repo:      repo,
		orgRepo:   orgRepo,
		phoneRepo: phoneRepo,
		txm:       txm,
		publisher: publisher,
		paging:    paging,
	}
}

// Create 创建楼宇。坐标在写入时校验，与半径查询中心点使用同一套范围规则。
func (s *buildingService) Create(ctx context.Context, in BuildingInput) (*model.Building, error) {
	address := strings.TrimSpace(in.Address)
	if address == "" {
		return nil, fmt.Errorf("%w: building address is required", ErrInvalidInput)
	}
	point := geo.Point{Latitude: in.Latitude, Longitude: in.Longitude}
	if err := point.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBuilding, err)
	}

	building := &model.Building{Address: address, Latitude: in.Latitude, Longitude: in.Longitude}
	if err := s.repo.Create(ctx, building); err != nil {
		if repository.IsDuplicateKey(err) {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateAddress, address)
		}
		return nil, err
	}
	return building, nil
}

// Get 根据 ID 获取楼宇。
func (s *buildingService) Get(ctx context.Context, id uint) (*model.Building, error) {
	building, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return building, nil
}

// List 分页列出楼宇。
func (s *buildingService) List(ctx context.Context, offset, limit int) ([]model.Building, error) {
	offset, limit = s.paging.Normalize(offset, limit)
	return s.repo.FindAll(ctx, offset, limit)
}

// Delete 删除楼宇，并级联删除楼内的组织及其电话。楼宇不存在时返回 false。
func (s *buildingService) Delete(ctx context.Context, id uint) (bool, error) {
	var orgIDs []uint
	err := s.txm.Transaction(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		orgRepo := s.orgRepo.WithTx(tx)
		if _, err := repo.FindByID(ctx, id); err != nil {
			if repository.IsNotFound(err) {
				return ErrNotFound
			}
			return err
		}

		var err error
		orgIDs, err = orgRepo.FindIDsByBuilding(ctx, id)
		if err != nil {
			return err
		}
		if err := s.phoneRepo.WithTx(tx).DeleteByOrganizationIDs(ctx, orgIDs); err != nil {
			return err
		}
		if _, err := orgRepo.DeleteByIDs(ctx, orgIDs); err != nil {
			return err
		}
		_, err = repo.Delete(ctx, id)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	log.Infow("building deleted", "id", id, "organizations", len(orgIDs))
	publishAfterCommit(ctx, s.publisher, events.New(events.OrganizationDeleted, orgIDs...))
	return true, nil
}
