package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"
	"org-directory-go/internal/model"
	"org-directory-go/internal/repository"
	"org-directory-go/pkg/events"
	"org-directory-go/pkg/log"
)

// ActivityOptions 控制活动树的层级限制和子孙展开策略。
type ActivityOptions struct {
	// MaxDepth 是允许的最大层级，根节点为第 1 层。
	MaxDepth int
	// RecursiveQueries 为 true 时用 WITH RECURSIVE 一次查出子孙，否则逐层 BFS 展开。
	RecursiveQueries bool
	Paging           Paging
}

// ActivityPatch 描述对活动的部分更新。nil 字段保持不变。
type ActivityPatch struct {
	Name     *string
	ParentID *uint
	// ToRoot 为 true 时把节点移为根节点，此时忽略 ParentID。
	ToRoot bool
}

// ActivityService 接口定义了活动树相关的业务操作。
type ActivityService interface {
	Create(ctx context.Context, name string, parentID *uint) (*model.Activity, error)
	Get(ctx context.Context, id uint) (*model.Activity, error)
	List(ctx context.Context, offset, limit int) ([]model.Activity, error)
	Children(ctx context.Context, id uint) ([]model.Activity, error)
	Level(ctx context.Context, id uint) (int, error)
	DescendantIDs(ctx context.Context, id uint) ([]uint, error)
	Tree(ctx context.Context, parentID *uint) ([]*model.ActivityNode, error)
	Update(ctx context.Context, id uint, patch ActivityPatch) (*model.Activity, error)
	Delete(ctx context.Context, id uint) (bool, error)
}

type activityService struct {
	repo      repository.ActivityRepository
	txm       repository.TxManager
	publisher events.Publisher
	opts      ActivityOptions
}

// NewActivityService 创建一个新的 ActivityService 实例。
func NewActivityService(repo repository.ActivityRepository, txm repository.TxManager, publisher events.Publisher, opts ActivityOptions) ActivityService {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = 3
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &activityService{repo: repo, txm: txm, publisher: publisher, opts: opts}
}

// Create 创建活动节点。有父节点时校验新节点的层级不超过 MaxDepth。
func (s *activityService) Create(ctx context.Context, name string, parentID *uint) (*model.Activity, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: activity name is required", ErrInvalidInput)
	}

	if parentID != nil {
		if _, err := s.repo.FindByID(ctx, *parentID); err != nil {
			if repository.IsNotFound(err) {
				return nil, fmt.Errorf("%w: activity %d does not exist", ErrInvalidParent, *parentID)
			}
			return nil, err
		}
		level, err := s.level(ctx, s.repo, *parentID)
		if err != nil {
			return nil, err
		}
		if level >= s.opts.MaxDepth {
			return nil, fmt.Errorf("%w: parent %d is already at level %d", ErrDepthExceeded, *parentID, level)
		}
	}

	activity := &model.Activity{Name: name, ParentID: parentID}
	if err := s.repo.Create(ctx, activity); err != nil {
		return nil, err
	}
	log.Infow("activity created", "id", activity.ID, "parent_id", parentID)
	return activity, nil
}

// Get 根据 ID 获取活动。
func (s *activityService) Get(ctx context.Context, id uint) (*model.Activity, error) {
	activity, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return activity, nil
}

// List 分页列出活动。
func (s *activityService) List(ctx context.Context, offset, limit int) ([]model.Activity, error) {
	offset, limit = s.opts.Paging.Normalize(offset, limit)
	return s.repo.FindAll(ctx, offset, limit)
}

// Children 返回节点的直接子节点。
func (s *activityService) Children(ctx context.Context, id uint) ([]model.Activity, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.FindChildren(ctx, id)
}

// Level 返回节点所在层级，根节点为 1。
func (s *activityService) Level(ctx context.Context, id uint) (int, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return 0, err
	}
	return s.level(ctx, s.repo, id)
}

// level 沿父链走到根节点并计数。父链中出现环说明数据已损坏，直接报错。
func (s *activityService) level(ctx context.Context, repo repository.ActivityRepository, id uint) (int, error) {
	visited := make(map[uint]struct{})
	level := 0
	cur := &id
	for cur != nil {
		if _, ok := visited[*cur]; ok {
			return 0, fmt.Errorf("activity %d: parent chain contains a cycle", id)
		}
		visited[*cur] = struct{}{}

		activity, err := repo.FindByID(ctx, *cur)
		if err != nil {
			if repository.IsNotFound(err) {
				// 悬空的 parent_id 视为到达根
				break
			}
			return 0, err
		}
		level++
		cur = activity.ParentID
	}
	return level, nil
}

// DescendantIDs 返回 id 之下所有子孙的 ID（升序，不含 id 本身）。id 不存在时返回空集。
func (s *activityService) DescendantIDs(ctx context.Context, id uint) ([]uint, error) {
	return s.descendantIDs(ctx, s.repo, id)
}

func (s *activityService) descendantIDs(ctx context.Context, repo repository.ActivityRepository, id uint) ([]uint, error) {
	var (
		ids []uint
		err error
	)
	if s.opts.RecursiveQueries {
		ids, err = repo.FindDescendantIDs(ctx, id)
	} else {
		ids, err = expandFrontier(ctx, repo, []uint{id})
	}
	if err != nil {
		return nil, err
	}
	ids = uniqueIDs(ids, id)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// expandFrontier 从 start 出发逐层查询子节点，直到没有新节点为止。
// visited 集合保证即使数据中存在环也会终止。返回结果不含 start 本身。
func expandFrontier(ctx context.Context, repo repository.ActivityRepository, start []uint) ([]uint, error) {
	visited := make(map[uint]struct{}, len(start))
	for _, id := range start {
		visited[id] = struct{}{}
	}
	result := make([]uint, 0)
	frontier := start
	for len(frontier) > 0 {
		children, err := repo.FindChildIDs(ctx, frontier)
		if err != nil {
			return nil, err
		}
		next := make([]uint, 0, len(children))
		for _, child := range children {
			if _, ok := visited[child]; ok {
				continue
			}
			visited[child] = struct{}{}
			next = append(next, child)
		}
		result = append(result, next...)
		frontier = next
	}
	return result, nil
}

// subtreeHeight 返回以 id 为根的子树层数，叶子节点为 1。
func subtreeHeight(ctx context.Context, repo repository.ActivityRepository, id uint) (int, error) {
	visited := map[uint]struct{}{id: {}}
	height := 0
	frontier := []uint{id}
	for len(frontier) > 0 {
		height++
		children, err := repo.FindChildIDs(ctx, frontier)
		if err != nil {
			return 0, err
		}
		next := make([]uint, 0, len(children))
		for _, child := range children {
			if _, ok := visited[child]; ok {
				continue
			}
			visited[child] = struct{}{}
			next = append(next, child)
		}
		frontier = next
	}
	return height, nil
}

// Tree 返回 parentID 之下的活动森林；parentID 为 nil 时返回整棵森林。
// parentID 指向不存在的活动时返回空森林。
func (s *activityService) Tree(ctx context.Context, parentID *uint) ([]*model.ActivityNode, error) {
	rows, err := s.subtreeRows(ctx, parentID)
	if err != nil {
		return nil, err
	}
	forest := BuildForest(rows, parentID)
	log.Debugf("activity tree assembled: %d rows, %d nodes", len(rows), CountNodes(forest))
	return forest, nil
}

func (s *activityService) subtreeRows(ctx context.Context, parentID *uint) ([]model.Activity, error) {
	if s.opts.RecursiveQueries {
		return s.repo.FindSubtree(ctx, parentID)
	}

	var ids []uint
	if parentID == nil {
		roots, err := s.repo.FindRootIDs(ctx)
		if err != nil {
			return nil, err
		}
		below, err := expandFrontier(ctx, s.repo, roots)
		if err != nil {
			return nil, err
		}
		ids = append(roots, below...)
	} else {
		below, err := expandFrontier(ctx, s.repo, []uint{*parentID})
		if err != nil {
			return nil, err
		}
		ids = below
	}
	return s.repo.FindByIDs(ctx, ids)
}

// Update 部分更新活动。修改父节点时与创建一样校验层级，并拒绝把节点挂到自身或其子孙之下。
func (s *activityService) Update(ctx context.Context, id uint, patch ActivityPatch) (*model.Activity, error) {
	var (
		updated  *model.Activity
		affected []uint
	)
	err := s.txm.Transaction(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		activity, err := repo.FindByID(ctx, id)
		if err != nil {
			if repository.IsNotFound(err) {
				return ErrNotFound
			}
			return err
		}

		renamed := false
		if patch.Name != nil {
			name := strings.TrimSpace(*patch.Name)
			if name == "" {
				return fmt.Errorf("%w: activity name is required", ErrInvalidInput)
			}
			renamed = name != activity.Name
			activity.Name = name
		}

		switch {
		case patch.ToRoot:
			if err := s.checkReparent(ctx, repo, id, nil); err != nil {
				return err
			}
			activity.ParentID = nil
		case patch.ParentID != nil:
			if err := s.checkReparent(ctx, repo, id, patch.ParentID); err != nil {
				return err
			}
			parent := *patch.ParentID
			activity.ParentID = &parent
		}

		if err := repo.Update(ctx, activity); err != nil {
			return err
		}
		if renamed {
			// 组织的检索文档里带有活动名称
			affected, err = repo.FindOrganizationIDs(ctx, []uint{id})
			if err != nil {
				return err
			}
		}
		updated = activity
		return nil
	})
	if err != nil {
		return nil, err
	}

	publishAfterCommit(ctx, s.publisher, events.New(events.OrganizationUpserted, affected...))
	return updated, nil
}

// checkReparent 校验把 id 移到 newParent 之下（nil 表示移为根）后树仍然合法。
func (s *activityService) checkReparent(ctx context.Context, repo repository.ActivityRepository, id uint, newParent *uint) error {
	height, err := subtreeHeight(ctx, repo, id)
	if err != nil {
		return err
	}
	if newParent == nil {
		if height > s.opts.MaxDepth {
			return fmt.Errorf("%w: subtree of %d has %d levels", ErrDepthExceeded, id, height)
		}
		return nil
	}

	if *newParent == id {
		return fmt.Errorf("%w: activity cannot be its own parent", ErrInvalidParent)
	}
	if _, err := repo.FindByID(ctx, *newParent); err != nil {
		if repository.IsNotFound(err) {
			return fmt.Errorf("%w: activity %d does not exist", ErrInvalidParent, *newParent)
		}
		return err
	}
	descendants, err := s.descendantIDs(ctx, repo, id)
	if err != nil {
		return err
	}
	for _, d := range descendants {
		if d == *newParent {
			return fmt.Errorf("%w: activity %d is a descendant of %d", ErrInvalidParent, *newParent, id)
		}
	}

	level, err := s.level(ctx, repo, *newParent)
	if err != nil {
		return err
	}
	if level+height > s.opts.MaxDepth {
		return fmt.Errorf("%w: moving %d under %d would create %d levels", ErrDepthExceeded, id, *newParent, level+height)
	}
	return nil
}

// Delete 删除节点及其全部子孙，同时移除它们与组织的关联。节点不存在时返回 false。
func (s *activityService) Delete(ctx context.Context, id uint) (bool, error) {
	var affected []uint
	err := s.txm.Transaction(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.FindByID(ctx, id); err != nil {
			if repository.IsNotFound(err) {
				return ErrNotFound
			}
			return err
		}

		descendants, err := s.descendantIDs(ctx, repo, id)
		if err != nil {
			return err
		}
		ids := append([]uint{id}, descendants...)

		affected, err = repo.FindOrganizationIDs(ctx, ids)
		if err != nil {
			return err
		}
		return repo.DeleteTree(ctx, ids)
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	log.Infow("activity subtree deleted", "id", id)
	publishAfterCommit(ctx, s.publisher, events.New(events.OrganizationUpserted, affected...))
	return true, nil
}
