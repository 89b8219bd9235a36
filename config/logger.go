package config

// LoggerConfig 日志组件配置。
// 说明：输出默认走 stdout/stderr，文件输出不带滚动（滚动由外部系统负责）。
type LoggerConfig struct {
	Level            string   `json:"level" yaml:"level"`                       // 日志级别：debug/info/warn/error
	Encoding         string   `json:"encoding" yaml:"encoding"`                 // 编码方式：json/console
	EnableColor      bool     `json:"enableColor" yaml:"enableColor"`           // console 模式下是否启用彩色等级
	Development      bool     `json:"development" yaml:"development"`           // 开发模式（错误级别附带堆栈）
	OutputPaths      []string `json:"outputPaths" yaml:"outputPaths"`           // 普通日志输出路径
	ErrorOutputPaths []string `json:"errorOutputPaths" yaml:"errorOutputPaths"` // 错误日志输出路径
}

// DefaultLoggerConfig 返回本地开发的默认配置。
func DefaultLoggerConfig() LoggerConfig {
	return LoggerConfig{
		Level:       "info",
		Encoding:    "json",
		EnableColor: false,
		Development: false,
	}
}
