package service

import (
	"context"

	"org-directory-go/pkg/events"
	"org-directory-go/pkg/log"
)

// publishAfterCommit 发布事件，失败只记录日志。事件是派生数据，不能让已提交的写操作失败。
func publishAfterCommit(ctx context.Context, p events.Publisher, evts []events.DirectoryEvent) {
	if p == nil || len(evts) == 0 {
		return
	}
	if err := p.Publish(ctx, evts...); err != nil {
		log.Warnw("failed to publish directory events", "count", len(evts), "type", evts[0].Type, "error", err)
	}
}

// uniqueIDs 去重并保持首次出现的顺序，可选地排除 skip。
func uniqueIDs(ids []uint, skip ...uint) []uint {
	seen := make(map[uint]struct{}, len(ids)+len(skip))
	for _, id := range skip {
		seen[id] = struct{}{}
	}
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
