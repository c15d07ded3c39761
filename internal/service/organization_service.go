package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"gorm.io/gorm"
	"org-directory-go/internal/model"
	"org-directory-go/internal/repository"
	"org-directory-go/pkg/events"
	"org-directory-go/pkg/geo"
	"org-directory-go/pkg/log"
)

// OrganizationInput 是创建组织的参数。
type OrganizationInput struct {
	Name         string
	BuildingID   *uint
	PhoneNumbers []string
	ActivityIDs  []uint
}

// OrganizationPatch 描述对组织的部分更新。
// 指针为 nil 或切片为 nil 表示该字段不变；非 nil 的切片（包括空切片）整体替换原有集合。
type OrganizationPatch struct {
	Name          *string
	BuildingID    *uint
	ClearBuilding bool
	PhoneNumbers  []string
	ActivityIDs   []uint
}

// GeoQuery 是半径查询的参数。Unit 为空时按米处理。
type GeoQuery struct {
	Latitude  float64
	Longitude float64
	Radius    float64
	Unit      string
}

// OrganizationService 接口定义了组织相关的业务操作。
type OrganizationService interface {
	Create(ctx context.Context, in OrganizationInput) (*model.Organization, error)
	Get(ctx context.Context, id uint) (*model.Organization, error)
	List(ctx context.Context, offset, limit int) ([]model.Organization, error)
	Update(ctx context.Context, id uint, patch OrganizationPatch) (*model.Organization, error)
	Delete(ctx context.Context, id uint) (bool, error)
	GetByBuilding(ctx context.Context, buildingID uint) ([]model.Organization, error)
	GetByActivity(ctx context.Context, activityID uint) ([]model.Organization, error)
	SearchByName(ctx context.Context, substring string) ([]model.Organization, error)
	FindWithinRadius(ctx context.Context, q GeoQuery) ([]model.Organization, error)
}

type organizationService struct {
	repo         repository.OrganizationRepository
	buildingRepo repository.BuildingRepository
	activityRepo repository.ActivityRepository
	phoneRepo    repository.PhoneRepository
	phones       PhoneService
	activities   ActivityService
	txm          repository.TxManager
	publisher    events.Publisher
	paging       Paging
}

// OrganizationDeps 汇集组织服务依赖的仓库和服务。
type OrganizationDeps struct {
	Organizations repository.OrganizationRepository
	Buildings     repository.BuildingRepository
	Activities    repository.ActivityRepository
	Phones        repository.PhoneRepository
	PhoneService  PhoneService
	Hierarchy     ActivityService
	TxManager     repository.TxManager
	Publisher     events.Publisher
	Paging        Paging
}

// NewOrganizationService 创建一个新的 OrganizationService 实例。
func NewOrganizationService(deps OrganizationDeps) OrganizationService {
	publisher := deps.Publisher
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &organizationService{
		repo:         deps.Organizations,
		buildingRepo: deps.Buildings,
		activityRepo: deps.Activities,
		phoneRepo:    deps.Phones,
		phones:       deps.PhoneService,
		activities:   deps.Hierarchy,
		txm:          deps.TxManager,
		publisher:    publisher,
		paging:       deps.Paging,
	}
}

// txScope 是一次事务中使用的仓库集合。
type txScope struct {
	orgs       repository.OrganizationRepository
	buildings  repository.BuildingRepository
	activities repository.ActivityRepository
	phoneRepo  repository.PhoneRepository
	phones     PhoneService
}

func (s *organizationService) scope(tx *gorm.DB) txScope {
	return txScope{
		orgs:       s.repo.WithTx(tx),
		buildings:  s.buildingRepo.WithTx(tx),
		activities: s.activityRepo.WithTx(tx),
		phoneRepo:  s.phoneRepo.WithTx(tx),
		phones:     s.phones.WithTx(tx),
	}
}

// validatePhoneNumbers 在任何写入之前检查号码：不能为空，也不能重复。
func validatePhoneNumbers(numbers []string) ([]string, error) {
	seen := make(map[string]struct{}, len(numbers))
	out := make([]string, 0, len(numbers))
	for _, n := range numbers {
		n = strings.TrimSpace(n)
		if n == "" {
			return nil, fmt.Errorf("%w: phone number is required", ErrInvalidInput)
		}
		if _, ok := seen[n]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicatePhoneNumber, n)
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out, nil
}

// Create 在一个事务中创建组织并绑定电话和活动。不存在的活动 ID 被静默忽略。
func (s *organizationService) Create(ctx context.Context, in OrganizationInput) (*model.Organization, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: organization name is required", ErrInvalidInput)
	}
	numbers, err := validatePhoneNumbers(in.PhoneNumbers)
	if err != nil {
		return nil, err
	}

	var (
		created  *model.Organization
		affected []uint
	)
	err = s.txm.Transaction(ctx, func(tx *gorm.DB) error {
		sc := s.scope(tx)
		if err := checkBuilding(ctx, sc.buildings, in.BuildingID); err != nil {
			return err
		}

		org := &model.Organization{Name: name, BuildingID: in.BuildingID}
		if err := sc.orgs.Create(ctx, org); err != nil {
			return err
		}
		prev, err := s.attachPhones(ctx, sc, org.ID, numbers, false)
		if err != nil {
			return err
		}
		if err := attachActivities(ctx, sc, org.ID, in.ActivityIDs); err != nil {
			return err
		}
		affected = append([]uint{org.ID}, prev...)

		created, err = sc.orgs.FindByID(ctx, org.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Infow("organization created", "id", created.ID, "phones", len(created.Phones), "activities", len(created.Activities))
	publishAfterCommit(ctx, s.publisher, events.New(events.OrganizationUpserted, uniqueIDs(affected)...))
	return created, nil
}

func checkBuilding(ctx context.Context, repo repository.BuildingRepository, buildingID *uint) error {
	if buildingID == nil {
		return nil
	}
	if _, err := repo.FindByID(ctx, *buildingID); err != nil {
		if repository.IsNotFound(err) {
			return fmt.Errorf("%w: building %d does not exist", ErrInvalidBuilding, *buildingID)
		}
		return err
	}
	return nil
}

// attachPhones 让组织恰好拥有 numbers 中的号码：已存在的号码直接转移归属，
// 缺失的号码走 CreateOrClaim。replace 为 true 时先解除不在 numbers 中的旧号码。
// 返回因号码被转走而受影响的其他组织 ID。
func (s *organizationService) attachPhones(ctx context.Context, sc txScope, orgID uint, numbers []string, replace bool) ([]uint, error) {
	if replace {
		if err := sc.phoneRepo.DetachExcept(ctx, orgID, numbers); err != nil {
			return nil, err
		}
	}
	existing, err := sc.phones.GetByNumbers(ctx, numbers)
	if err != nil {
		return nil, err
	}

	owner := orgID
	affected := make([]uint, 0)
	found := make(map[string]struct{}, len(existing))
	for i := range existing {
		phone := &existing[i]
		found[phone.Number] = struct{}{}
		if sameOwner(phone.OrganizationID, &owner) {
			continue
		}
		affected = append(affected, ownerIDs(phone.OrganizationID)...)
		if err := sc.phoneRepo.UpdateOwner(ctx, phone, &owner); err != nil {
			return nil, err
		}
	}
	for _, n := range numbers {
		if _, ok := found[n]; ok {
			continue
		}
		if _, err := sc.phones.CreateOrClaim(ctx, n, &owner); err != nil {
			return nil, err
		}
	}
	return uniqueIDs(affected, orgID), nil
}

// attachActivities 用存在的活动整体替换组织的活动关联。
func attachActivities(ctx context.Context, sc txScope, orgID uint, activityIDs []uint) error {
	ids := uniqueIDs(activityIDs)
	activities, err := sc.activities.FindByIDs(ctx, ids)
	if err != nil {
		return err
	}
	resolved := make([]uint, 0, len(activities))
	for _, a := range activities {
		resolved = append(resolved, a.ID)
	}
	if dropped := len(ids) - len(resolved); dropped > 0 {
		log.Debugf("organization %d: dropped %d unknown activity ids", orgID, dropped)
	}
	return sc.orgs.ReplaceActivities(ctx, orgID, resolved)
}

// Get 根据 ID 获取组织及其关联。
func (s *organizationService) Get(ctx context.Context, id uint) (*model.Organization, error) {
	org, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return org, nil
}

// List 分页列出组织。
func (s *organizationService) List(ctx context.Context, offset, limit int) ([]model.Organization, error) {
	offset, limit = s.paging.Normalize(offset, limit)
	return s.repo.FindAll(ctx, offset, limit)
}

// Update 在一个事务中部分更新组织。电话号码和活动集合提供时整体替换。
func (s *organizationService) Update(ctx context.Context, id uint, patch OrganizationPatch) (*model.Organization, error) {
	var numbers []string
	if patch.PhoneNumbers != nil {
		var err error
		if numbers, err = validatePhoneNumbers(patch.PhoneNumbers); err != nil {
			return nil, err
		}
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return nil, fmt.Errorf("%w: organization name is required", ErrInvalidInput)
	}

	var (
		updated  *model.Organization
		affected []uint
	)
	err := s.txm.Transaction(ctx, func(tx *gorm.DB) error {
		sc := s.scope(tx)
		org, err := sc.orgs.FindByID(ctx, id)
		if err != nil {
			if repository.IsNotFound(err) {
				return ErrNotFound
			}
			return err
		}

		if patch.Name != nil {
			org.Name = strings.TrimSpace(*patch.Name)
		}
		switch {
		case patch.ClearBuilding:
			org.BuildingID = nil
		case patch.BuildingID != nil:
			if err := checkBuilding(ctx, sc.buildings, patch.BuildingID); err != nil {
				return err
			}
			org.BuildingID = patch.BuildingID
		}
		if err := sc.orgs.Update(ctx, org); err != nil {
			return err
		}

		affected = []uint{id}
		if patch.PhoneNumbers != nil {
			prev, err := s.attachPhones(ctx, sc, id, numbers, true)
			if err != nil {
				return err
			}
			affected = append(affected, prev...)
		}
		if patch.ActivityIDs != nil {
			if err := attachActivities(ctx, sc, id, patch.ActivityIDs); err != nil {
				return err
			}
		}

		updated, err = sc.orgs.FindByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	publishAfterCommit(ctx, s.publisher, events.New(events.OrganizationUpserted, uniqueIDs(affected)...))
	return updated, nil
}

// Delete 删除组织及其电话和活动关联，活动本身保留。组织不存在时返回 false。
func (s *organizationService) Delete(ctx context.Context, id uint) (bool, error) {
	var deleted int64
	err := s.txm.Transaction(ctx, func(tx *gorm.DB) error {
		sc := s.scope(tx)
		if err := sc.phoneRepo.DeleteByOrganizationIDs(ctx, []uint{id}); err != nil {
			return err
		}
		var err error
		deleted, err = sc.orgs.DeleteByIDs(ctx, []uint{id})
		if err != nil {
			return err
		}
		if deleted == 0 {
			// 回滚，避免留下任何写入
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	log.Infow("organization deleted", "id", id)
	publishAfterCommit(ctx, s.publisher, events.New(events.OrganizationDeleted, id))
	return true, nil
}

// GetByBuilding 返回位于某楼宇的组织。楼宇不存在时返回空列表。
func (s *organizationService) GetByBuilding(ctx context.Context, buildingID uint) ([]model.Organization, error) {
	return s.repo.FindByBuildingIDs(ctx, []uint{buildingID})
}

// GetByActivity 返回与该活动或其任一子孙关联的组织，每个组织只出现一次。
// 活动不存在时返回空列表。
func (s *organizationService) GetByActivity(ctx context.Context, activityID uint) ([]model.Organization, error) {
	if _, err := s.activities.Get(ctx, activityID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return []model.Organization{}, nil
		}
		return nil, err
	}
	descendants, err := s.activities.DescendantIDs(ctx, activityID)
	if err != nil {
		return nil, err
	}
	return s.repo.FindByActivityIDs(ctx, append([]uint{activityID}, descendants...))
}

// SearchByName 按名称做大小写不敏感的子串匹配。
func (s *organizationService) SearchByName(ctx context.Context, substring string) ([]model.Organization, error) {
	return s.repo.SearchByName(ctx, strings.TrimSpace(substring))
}

// FindWithinRadius 返回所在楼宇与中心点的大圆距离不超过半径的组织（含边界）。
// 全量加载楼宇后在内存中过滤，没有空间索引。
func (s *organizationService) FindWithinRadius(ctx context.Context, q GeoQuery) ([]model.Organization, error) {
	center := geo.Point{Latitude: q.Latitude, Longitude: q.Longitude}
	if err := center.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGeoQuery, err)
	}
	if math.IsNaN(q.Radius) || math.IsInf(q.Radius, 0) || q.Radius <= 0 {
		return nil, fmt.Errorf("%w: radius must be a positive number", ErrInvalidGeoQuery)
	}
	unit, err := geo.ParseUnit(q.Unit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGeoQuery, err)
	}
	radius, err := geo.ToMeters(q.Radius, unit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGeoQuery, err)
	}

	buildings, err := s.buildingRepo.FindAll(ctx, 0, 0)
	if err != nil {
		return nil, err
	}
	ids := make([]uint, 0)
	for _, b := range buildings {
		if geo.Within(center, radius, geo.Point{Latitude: b.Latitude, Longitude: b.Longitude}) {
			ids = append(ids, b.ID)
		}
	}
	log.Debugf("radius query %.1fm: %d of %d buildings matched", radius, len(ids), len(buildings))
	return s.repo.FindByBuildingIDs(ctx, ids)
}
