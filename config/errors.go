package config

import "github.com/ceyewan/aegis/xerrors"

// 错误定义
var (
	// ErrKeyEmpty 监听的配置 key 为空
	ErrKeyEmpty = xerrors.New("config: key is empty")

	// ErrNotLoaded 配置尚未加载
	ErrNotLoaded = xerrors.New("config: not loaded")
)
