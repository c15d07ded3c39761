// Package service 包含了目录服务的业务逻辑层。
package service

import "errors"

// 业务错误。handler 层通过 errors.Is 把它们映射为 HTTP 状态码，
// 其余错误（数据库连接、完整性约束等）原样向上传递。
var (
	ErrNotFound                  = errors.New("not found")
	ErrInvalidInput              = errors.New("invalid input")
	ErrDepthExceeded             = errors.New("activity depth limit exceeded")
	ErrInvalidParent             = errors.New("invalid parent activity")
	ErrInvalidGeoQuery           = errors.New("invalid geo query")
	ErrInvalidBuilding           = errors.New("invalid building")
	ErrInvalidOrganization       = errors.New("invalid organization")
	ErrDuplicateAddress          = errors.New("building address already exists")
	ErrDuplicatePhoneNumber      = errors.New("duplicate phone number")
	ErrPhoneReconciliationFailed = errors.New("phone reconciliation failed")
)
