// Package events 定义了目录服务对外发布的变更事件。
package events

import (
	"context"
	"time"
)

// Type 标识事件种类。
type Type string

const (
	// OrganizationUpserted 表示组织被创建或其任一关联（电话、活动、建筑）发生变化。
	OrganizationUpserted Type = "organization.upserted"
	// OrganizationDeleted 表示组织已被删除（包括随建筑级联删除）。
	OrganizationDeleted Type = "organization.deleted"
)

// DirectoryEvent 是写入 Kafka 的消息体。消费方应以关系库为准重新读取实体。
type DirectoryEvent struct {
	Type           Type      `json:"type"`
	OrganizationID uint      `json:"organization_id"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// New 为一组组织 ID 构造同类事件。
func New(t Type, organizationIDs ...uint) []DirectoryEvent {
	now := time.Now().UTC()
	evts := make([]DirectoryEvent, 0, len(organizationIDs))
	for _, id := range organizationIDs {
		evts = append(evts, DirectoryEvent{Type: t, OrganizationID: id, OccurredAt: now})
	}
	return evts
}

// Publisher 在事务提交之后发布事件。
type Publisher interface {
	Publish(ctx context.Context, evts ...DirectoryEvent) error
}

// NopPublisher 在未配置 Kafka 时使用，丢弃所有事件。
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, ...DirectoryEvent) error { return nil }
