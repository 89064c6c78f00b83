package layout

import "log/slog"

// Options 配置分页阶段所需的依赖，例如排版后端与日志。
type Options struct {
	Typesetter Typesetter
	// Logger 接收调试与告警日志，为空时丢弃。
	Logger *slog.Logger
	// Outline 为每个容器输出一个描边矩形，便于检查版面。
	Outline bool
	// MaxPages 大于 0 时限制页数，超过即返回 ErrNoProgress。
	MaxPages int
}

// Typesetter 负责根据字体与宽度约束将文本拆成可绘制的行。
type Typesetter interface {
	LayoutLines(content string, width float64, font FontResource, fontSize float64, lineHeight float64, wrap string) ([]TextLine, error)
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return o.Logger
}
