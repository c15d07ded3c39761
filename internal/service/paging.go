package service

// Paging 规范化 offset/limit 分页参数。
type Paging struct {
	DefaultSize int
	MaxSize     int
}

// Normalize 返回修正后的 offset 和 limit：负 offset 视为 0，
// 非正 limit 使用默认值，超过上限时截断。
func (p Paging) Normalize(offset, limit int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = p.DefaultSize
	}
	if p.MaxSize > 0 && limit > p.MaxSize {
		limit = p.MaxSize
	}
	return offset, limit
}
