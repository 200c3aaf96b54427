package entity

import "errors"

// 模型错误类型，调用方使用errors.Is匹配
var (
	// ErrInvalidConfiguration 参数缺失、取值非法或网格退化（没有内部元胞）
	ErrInvalidConfiguration = errors.New("invalid configuration")
	// ErrInvalidBottleneckRange 瓶颈的空间/时间索引超出元胞或迭代索引空间
	ErrInvalidBottleneckRange = errors.New("invalid bottleneck range")
	// ErrNumericDomainViolation 更新后密度超出[0, 最大密度]（超出数值容差）
	ErrNumericDomainViolation = errors.New("numeric domain violation")
)
