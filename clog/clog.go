package clog

import "fmt"

// New 创建一个新的 Logger 实例
//
// config - 日志配置，如果为 nil 会使用默认配置
// opts   - 函数式选项列表，用于命名空间等配置
func New(config *Config, opts ...Option) (Logger, error) {
	if config == nil {
		config = NewDevDefaultConfig("aegis")
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	options := applyOptions(opts...)

	return newLogger(config, options)
}

// NewDevDefaultConfig 返回适合开发环境的默认配置
//
// debug 级别、console 格式、输出到 stdout，namespace 为 service。
func NewDevDefaultConfig(service string) *Config {
	return &Config{
		Level:   "debug",
		Format:  "console",
		Output:  "stdout",
		Service: service,
	}
}

// NewProdDefaultConfig 返回适合生产环境的默认配置
//
// info 级别、json 格式、输出到 stdout。
func NewProdDefaultConfig(service string) *Config {
	return &Config{
		Level:   "info",
		Format:  "json",
		Output:  "stdout",
		Service: service,
	}
}
