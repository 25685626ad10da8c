package connector

import "time"

// RedisConfig Redis 连接配置
type RedisConfig struct {
	// 基础配置（可选，有默认值）
	Name string `json:"name" yaml:"name" mapstructure:"name"` // 连接器名称 (默认: "default")

	// 核心配置
	Addr     string `json:"addr" yaml:"addr" mapstructure:"addr"`             // [必填] 连接地址，如 "127.0.0.1:6379"
	Password string `json:"password" yaml:"password" mapstructure:"password"` // [可选] 认证密码
	DB       int    `json:"db" yaml:"db" mapstructure:"db"`                   // [可选] 数据库编号 (默认: 0)

	// 高级配置（可选，有默认值）
	PoolSize     int           `json:"pool_size" yaml:"pool_size" mapstructure:"pool_size"`                // 连接池大小 (默认: 10)
	MinIdleConns int           `json:"min_idle_conns" yaml:"min_idle_conns" mapstructure:"min_idle_conns"` // 最小空闲连接数 (默认: 2)
	DialTimeout  time.Duration `json:"dial_timeout" yaml:"dial_timeout" mapstructure:"dial_timeout"`       // 连接超时 (默认: 5s)
	ReadTimeout  time.Duration `json:"read_timeout" yaml:"read_timeout" mapstructure:"read_timeout"`       // 读取超时 (默认: 3s)
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout" mapstructure:"write_timeout"`    // 写入超时 (默认: 3s)
}

// setDefaults 设置默认值
func (c *RedisConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "default"
	}
	if c.PoolSize == 0 {
		c.PoolSize = 10
	}
	if c.MinIdleConns == 0 {
		c.MinIdleConns = 2
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 3 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 3 * time.Second
	}
}

// validate 验证配置
func (c *RedisConfig) validate() error {
	if c.Addr == "" {
		return ErrConfig
	}
	return nil
}
