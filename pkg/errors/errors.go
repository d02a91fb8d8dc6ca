package errors

import "errors"

var (
	// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
	ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")
	// ErrResourceBusy 资源正被其他请求占用（分布式锁未获取到）
	ErrResourceBusy = errors.New("资源正被其他请求处理，请稍后重试")
)
