package config

import (
	"fmt"

	"gopkg.in/yaml.v2"
)

const (
	DefaultParallelThreshold = 8192 // 默认并行更新阈值（元胞数）
	DefaultProfiles          = 5    // 默认剖面图时刻数
)

// RuntimeConfig 运行时配置
// 功能：存储补全默认值后的配置
type RuntimeConfig struct {
	All Config  // 全部配置
	C   Control // 全局控制配置
}

// NewRuntimeConfig 根据配置初始化运行时配置
// 功能：创建运行时配置对象并补全默认值
// 参数：config-原始配置对象
// 返回：初始化的运行时配置指针
func NewRuntimeConfig(config Config) *RuntimeConfig {
	rc := &RuntimeConfig{}

	rc.All = config
	rc.C = config.Control
	if rc.C.ParallelThreshold == 0 {
		rc.C.ParallelThreshold = DefaultParallelThreshold
	}
	if rc.All.Output.Profiles <= 0 {
		rc.All.Output.Profiles = DefaultProfiles
	}
	return rc
}

// Parse 严格解析YAML配置，未知字段报错
func Parse(data []byte) (Config, error) {
	var c Config
	if err := yaml.UnmarshalStrict(data, &c); err != nil {
		return Config{}, fmt.Errorf("config parse err: %w", err)
	}
	return c, nil
}
