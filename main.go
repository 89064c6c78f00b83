package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ByLCY/quire/dsl"
	"github.com/ByLCY/quire/frontend"
	"github.com/ByLCY/quire/layout"
	"github.com/ByLCY/quire/renderer"
	canvasrenderer "github.com/ByLCY/quire/renderer/canvas"
	"github.com/ByLCY/quire/renderer/raster"
)

type config struct {
	input   string
	output  string
	debug   string
	preview string
	outline bool
	data    any
}

func main() {
	input := flag.String("in", "examples/demo.quire", "DSL 文件路径")
	output := flag.String("out", "output/demo.pdf", "PDF 输出路径")
	debug := flag.String("debug", "", "布局调试 JSON 输出路径")
	dataJSON := flag.String("data", "", "绑定到 DSL 的 JSON 数据，@path 表示从文件读取")
	preview := flag.String("preview", "", "PNG 预览输出目录")
	outline := flag.Bool("outline", false, "绘制容器轮廓")
	verbose := flag.Bool("v", false, "输出调试日志")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	data, err := loadData(*dataJSON)
	if err != nil {
		logger.Error("解析 data JSON 失败", "err", err)
		os.Exit(1)
	}

	cfg := config{
		input:   *input,
		output:  *output,
		debug:   *debug,
		preview: *preview,
		outline: *outline,
		data:    data,
	}
	r := canvasrenderer.NewRenderer(filepath.Dir(*input))
	if err := run(cfg, r, logger); err != nil {
		logger.Error("生成 PDF 失败", "err", err)
		os.Exit(1)
	}
	fmt.Printf("已生成 PDF：%s\n", *output)
}

func loadData(arg string) (any, error) {
	if arg == "" {
		return nil, nil
	}
	raw := []byte(arg)
	if path, ok := strings.CutPrefix(arg, "@"); ok {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	var data any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	return data, nil
}

// run 串联解析、布局与渲染。
func run(cfg config, r renderer.Renderer, logger *slog.Logger) error {
	if r == nil {
		return fmt.Errorf("renderer 不能为空")
	}
	file, err := os.Open(cfg.input)
	if err != nil {
		return fmt.Errorf("无法打开 DSL 文件 %s: %w", cfg.input, err)
	}
	defer file.Close()

	doc, err := dsl.Parse(file)
	if err != nil {
		return fmt.Errorf("解析 DSL 失败: %w", err)
	}

	ts, ok := r.(layout.Typesetter)
	if !ok {
		return fmt.Errorf("renderer 未实现排版接口")
	}
	opts := layout.Options{
		Typesetter: layout.NewCachedTypesetter(ts, 0),
		Logger:     logger,
		Outline:    cfg.outline,
	}
	built, err := frontend.Build(doc, cfg.data, opts)
	if err != nil {
		return fmt.Errorf("构建文档失败: %w", err)
	}
	result, err := built.Paginate()
	if err != nil {
		return fmt.Errorf("布局计算失败: %w", err)
	}
	logger.Info("分页完成", "pages", len(result.Pages), "warnings", len(result.Warnings))

	if cfg.debug != "" {
		if err := writeDebug(result, cfg.debug); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(cfg.output), 0o755); err != nil {
		return fmt.Errorf("创建输出目录失败: %w", err)
	}
	pdfBytes, err := r.Render(result)
	if err != nil {
		return fmt.Errorf("渲染 PDF 失败: %w", err)
	}
	if err := os.WriteFile(cfg.output, pdfBytes, 0o644); err != nil {
		return fmt.Errorf("写入 PDF 文件失败: %w", err)
	}

	if cfg.preview != "" {
		return writePreviews(result, cfg, logger)
	}
	return nil
}

func writeDebug(result *layout.Result, debugPath string) error {
	if err := os.MkdirAll(filepath.Dir(debugPath), 0o755); err != nil {
		return fmt.Errorf("创建调试目录失败: %w", err)
	}
	if err := layout.WriteDebugJSON(result, debugPath); err != nil {
		return fmt.Errorf("输出调试 JSON 失败: %w", err)
	}
	return nil
}

func writePreviews(result *layout.Result, cfg config, logger *slog.Logger) error {
	if err := os.MkdirAll(cfg.preview, 0o755); err != nil {
		return fmt.Errorf("创建预览目录失败: %w", err)
	}
	pr := raster.New(renderer.Assets{BaseDir: filepath.Dir(cfg.input)}, raster.DefaultDPI)
	pages, err := pr.RenderPages(result)
	if err != nil {
		return fmt.Errorf("渲染预览失败: %w", err)
	}
	for i, png := range pages {
		path := filepath.Join(cfg.preview, fmt.Sprintf("page-%03d.png", i+1))
		if err := os.WriteFile(path, png, 0o644); err != nil {
			return fmt.Errorf("写入预览 %s 失败: %w", path, err)
		}
		logger.Debug("写入预览", "path", path)
	}
	return nil
}
