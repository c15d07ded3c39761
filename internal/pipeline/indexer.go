// Package pipeline 把目录变更事件同步到检索索引。
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"org-directory-go/internal/model"
	"org-directory-go/internal/service"
	"org-directory-go/pkg/events"
	"org-directory-go/pkg/log"
)

// OrganizationReader 按 ID 读取带关联的组织。
type OrganizationReader interface {
	Get(ctx context.Context, id uint) (*model.Organization, error)
}

// SearchIndex 是检索索引的写入端。
type SearchIndex interface {
	IndexOrganization(ctx context.Context, doc model.OrganizationDocument) error
	DeleteOrganization(ctx context.Context, id uint) error
}

// Indexer 消费目录事件，以关系库为准重建组织文档。
type Indexer struct {
	orgs  OrganizationReader
	index SearchIndex
}

// NewIndexer 创建一个新的 Indexer 实例。
func NewIndexer(orgs OrganizationReader, index SearchIndex) *Indexer {
	return &Indexer{orgs: orgs, index: index}
}

// Process 处理一条事件。事件只携带组织 ID，文档内容总是重新读取，
// 因此重复或乱序投递不会写入过期数据。
func (p *Indexer) Process(ctx context.Context, evt events.DirectoryEvent) error {
	switch evt.Type {
	case events.OrganizationDeleted:
		return p.remove(ctx, evt.OrganizationID)
	case events.OrganizationUpserted:
		org, err := p.orgs.Get(ctx, evt.OrganizationID)
		if err != nil {
			if errors.Is(err, service.ErrNotFound) {
				// 事件发出后组织已被删除
				return p.remove(ctx, evt.OrganizationID)
			}
			return fmt.Errorf("load organization %d: %w", evt.OrganizationID, err)
		}
		if err := p.index.IndexOrganization(ctx, model.NewOrganizationDocument(org)); err != nil {
			return err
		}
		log.Debugf("[Indexer] organization %d indexed", org.ID)
		return nil
	default:
		log.Warnf("[Indexer] unknown event type %q, skipped", evt.Type)
		return nil
	}
}

func (p *Indexer) remove(ctx context.Context, id uint) error {
	if err := p.index.DeleteOrganization(ctx, id); err != nil {
		return err
	}
	log.Debugf("[Indexer] organization %d removed from index", id)
	return nil
}
