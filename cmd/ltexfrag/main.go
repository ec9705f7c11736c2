package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	cfgpkg "ltexfrag/internal/config"
	"ltexfrag/internal/diag"
	"ltexfrag/internal/pipeline"
)

var version = "dev"

var pipelineRun = pipeline.Run

// 退出码：0 成功；1 运行期错误；2 用法错误；3 配置/装配错误。
const (
	exitOK     = 0
	exitRun    = 1
	exitUsage  = 2
	exitConfig = 3
)

// exitError 携带退出码；消息已在返回前输出。
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	err := root.Execute()
	if err == nil {
		return exitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	fprintf(stderr, "错误: %v\n", err)
	return exitUsage
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "ltexfrag",
		Short: "将 LaTeX/Markdown/纯文本文档按语言与检查设置划分为片段",
		Long: `ltexfrag 读取文档，识别语言切换命令、语言环境与指令注释，
输出带区域码与设置的片段序列（JSONL 或 CBOR），供语法检查组件逐段检查。

示例:
  ltexfrag fragment thesis/ -o out
  ltexfrag fragment --dialect latex - < chapter.tex
  ltexfrag languages
  ltexfrag init-config --format yaml`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.AddCommand(
		newFragmentCmd(),
		newLanguagesCmd(),
		newSignaturesCmd(),
		newInitConfigCmd(),
		newVersionCmd(),
	)
	return root
}

// fragmentOptions: fragment 子命令旗标（空值表示不覆盖）。
type fragmentOptions struct {
	config   string
	dialect  string
	encoder  string
	language string
	output   string
	compress string
	logLevel string
	status   bool
}

func (o *fragmentOptions) addFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&o.config, "config", "c", "", "配置文件路径（.json/.jsonc/.yaml/.toml）；缺省查找 ./ltexfrag.*")
	fs.StringVarP(&o.dialect, "dialect", "d", "", "强制方言（latex|rsweave|markdown|plaintext）；缺省按扩展名判定")
	fs.StringVarP(&o.encoder, "encoder", "e", "", "输出编码（jsonl|cbor）")
	fs.StringVarP(&o.language, "language", "l", "", "初始区域码（如 de-DE）")
	fs.StringVarP(&o.output, "output", "o", "", "输出目录（覆盖 writer.output_dir）")
	fs.StringVar(&o.compress, "compress", "", "输出压缩（none|zstd）")
	fs.StringVar(&o.logLevel, "log-level", "", "日志级别（debug|info|warn|error）")
	fs.BoolVar(&o.status, "status", true, "终端状态提示（stderr）。TTY 动态刷新；非 TTY 打点输出")
}

func newFragmentCmd() *cobra.Command {
	var o fragmentOptions
	cmd := &cobra.Command{
		Use:   "fragment [roots...]",
		Short: "片段化文件、目录或 STDIN（\"-\"）",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFragment(cmd.Context(), o, args, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	o.addFlags(cmd.Flags())
	return cmd
}

func runFragment(ctx context.Context, o fragmentOptions, roots []string, stdout, stderr io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()
	corrID := diag.NewCorrID()
	// 在任何 ENV 读取前，尝试加载工作目录下的 .env（不覆盖已有 ENV）。
	_ = loadDotEnv(".env")
	// 先占位默认，稍后在解析/合并配置后重建 logger 以使用最终 level
	logger := diag.NewLogger(corrID, "info")
	fail := func(code int, msg string, err error) error {
		fprintf(stderr, "%s: %v\n", msg, err)
		logger.Error("pipeline", string(diag.Classify(err)), "first error", &start)
		return &exitError{code: code, err: err}
	}

	cfg, err := resolveConfig(o, roots)
	if err != nil {
		return fail(exitConfig, "配置解析失败", err)
	}
	if err := cfgpkg.Validate(cfg); err != nil {
		// 提示打印有效配置，便于诊断
		_ = dumpConfig(stderr, cfg)
		return fail(exitConfig, "配置校验失败", err)
	}

	// 使用最终配置中的日志级别重建 logger；片段化诊断经默认 logger 输出
	logger = diag.NewLogger(corrID, cfg.Logging.Level)
	diag.SetDefault(logger)
	defer diag.SetDefault(nil)

	// 预检：若使用文件系统 Writer，检查输出目录的可写性
	if err := preflightCheckOutputDir(cfg); err != nil {
		return fail(exitConfig, "输出目录不可写或无法创建", err)
	}
	comp, set, err := cfgpkg.Assemble(cfg)
	if err != nil {
		return fail(exitConfig, "装配失败", err)
	}

	// 终端信息提示（非日志）：按 CLI 启用，默认开启
	term := diag.NewTerminal(stderr, o.status)
	diag.SetTerminal(term)
	defer diag.SetTerminal(nil)
	term.RunStart(cfg.Dialect, comp.Encoder.Ext())

	logger.DebugStart("config", "effective", "", map[string]string{
		"inputs_count": fmt.Sprintf("%d", len(cfg.Inputs)),
		"dialect":      cfg.Dialect,
		"language":     set.Settings.LanguageShortCode(),
		"reader":       cfg.Components.Reader,
		"encoder":      cfg.Components.Encoder,
		"writer":       cfg.Components.Writer,
	})

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	t := logger.Start("pipeline", "run")
	if err := pipelineRun(ctx, comp, set, logger); err != nil {
		code := string(diag.Classify(err))
		logger.Error("pipeline", code, "first error", &start)
		diag.IncOp("pipeline", "error", "error")
		if code != string(diag.CodeUnknown) {
			diag.IncError("pipeline", code)
		}
		if !errors.Is(err, context.Canceled) {
			fprintf(stderr, "运行失败: %v\n", err)
		}
		term.RunFinish(false, time.Since(start))
		return &exitError{code: exitRun, err: err}
	}
	t.Finish("run", 0)
	diag.IncOp("pipeline", "finish", "success")
	diag.ObserveDuration("pipeline", "finish", time.Since(start).Milliseconds())
	term.RunFinish(true, time.Since(start))
	return nil
}

// defaultConfigNames: 未指定配置时在工作目录中按序查找。
var defaultConfigNames = []string{"ltexfrag.jsonc", "ltexfrag.json", "ltexfrag.yaml", "ltexfrag.yml", "ltexfrag.toml"}

// resolveConfig 按优先级合并：Defaults → 文件/LTEXFRAG_CONFIG_JSON → ENV → CLI。
func resolveConfig(o fragmentOptions, roots []string) (cfgpkg.Config, error) {
	cfg := cfgpkg.Defaults()

	path := o.config
	if path == "" {
		path = os.Getenv(cfgpkg.EnvPrefix + "CONFIG_FILE")
	}
	if path == "" {
		for _, name := range defaultConfigNames {
			if _, err := os.Stat(name); err == nil {
				path = name
				break
			}
		}
	}
	if path != "" {
		base, err := cfgpkg.LoadFile(path)
		if err != nil {
			return cfg, err
		}
		cfg = cfgpkg.Merge(cfg, base)
	}
	if s := os.Getenv(cfgpkg.EnvPrefix + "CONFIG_JSON"); s != "" {
		base, err := cfgpkg.Load(cfgpkg.FormatJSON, []byte(s))
		if err != nil {
			return cfg, err
		}
		cfg = cfgpkg.Merge(cfg, base)
	}

	// ENV 覆盖（最小集合）
	overEnv, err := cfgpkg.EnvOverlay(os.Environ())
	if err != nil {
		return cfg, err
	}
	cfg = cfgpkg.Merge(cfg, overEnv)

	// CLI 覆盖
	var overCLI cfgpkg.Config
	overCLI.Inputs = roots
	overCLI.Dialect = o.dialect
	overCLI.Components.Encoder = o.encoder
	overCLI.Settings.LanguageShortCode = o.language
	overCLI.Logging.Level = o.logLevel
	cfg = cfgpkg.Merge(cfg, overCLI)

	patch := map[string]any{}
	if o.output != "" {
		patch["output_dir"] = o.output
	}
	if o.compress != "" {
		patch["compress"] = o.compress
	}
	if len(patch) > 0 {
		raw, err := patchRaw(cfg.Options.Writer, patch)
		if err != nil {
			return cfg, fmt.Errorf("options.writer: %w", err)
		}
		cfg.Options.Writer = raw
	}
	// 未给出任何输入时读取 STDIN
	if len(cfg.Inputs) == 0 {
		cfg.Inputs = []string{"-"}
	}
	return cfg, nil
}

// patchRaw 在原样 JSON 对象上覆盖若干键，其余键保持不变。
func patchRaw(raw json.RawMessage, kv map[string]any) (json.RawMessage, error) {
	obj := map[string]any{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, err
		}
		if obj == nil {
			obj = map[string]any{}
		}
	}
	for k, v := range kv {
		obj[k] = v
	}
	return json.Marshal(obj)
}

func fprintf(w io.Writer, format string, a ...any) { _, _ = fmt.Fprintf(w, format, a...) }

func dumpConfig(w io.Writer, c cfgpkg.Config) error {
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	fprintf(w, "有效配置:\n%s\n", b)
	return nil
}

// loadDotEnv 读取简单的 .env 文件格式并注入进程环境。
// 规则：
// - 忽略不存在的文件；无法读取时返回错误（但调用处可忽略）。
// - 跳过空行与以 # 开头的行；支持可选的前缀 "export ".
// - 仅按首个 '=' 分割；key 为左侧去空白；value 去首尾空白；
// - 若 value 被成对的单/双引号包裹，则去除外层引号；双引号内常见转义 \n/\t/\\/\" 作最小处理。
// - 不覆盖已存在的环境变量（保持系统/调用者优先）。
func loadDotEnv(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()
	s := bufio.NewScanner(f)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		key, val, ok := strings.Cut(line, "=")
		key = strings.TrimSpace(key)
		val = strings.TrimSpace(val)
		if !ok || key == "" {
			continue
		}
		// 去除成对引号
		if len(val) >= 2 {
			if (val[0] == '\'' && val[len(val)-1] == '\'') || (val[0] == '"' && val[len(val)-1] == '"') {
				quoted := val[0]
				val = val[1 : len(val)-1]
				if quoted == '"' {
					val = strings.NewReplacer(`\n`, "\n", `\t`, "\t", `\r`, "\r", `\"`, `"`, `\\`, `\`).Replace(val)
				}
			}
		}
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		_ = os.Setenv(key, val)
	}
	return s.Err()
}

// preflightCheckOutputDir: 当 Writer 使用文件系统实现(fs)时，启动前检查输出目录可写性。
// 规则：
// - 若目录已存在：尝试创建并删除临时文件；失败则判为不可写。
// - 若目录不存在：检查父目录是否可写（尝试在父目录创建并删除临时目录）。
func preflightCheckOutputDir(cfg cfgpkg.Config) error {
	writerName := strings.TrimSpace(cfg.Components.Writer)
	if writerName == "" {
		writerName = cfgpkg.Defaults().Components.Writer
	}
	if writerName != "fs" {
		return nil
	}
	var wopts struct {
		OutputDir string `json:"output_dir"`
	}
	if len(cfg.Options.Writer) > 0 {
		_ = json.Unmarshal(cfg.Options.Writer, &wopts)
	}
	dir := strings.TrimSpace(wopts.OutputDir)
	if dir == "" {
		// 未指定时无法可靠检查，让装配阶段按实现自行报错
		return nil
	}
	st, err := os.Stat(dir)
	switch {
	case err == nil && st.IsDir():
		f, err := os.CreateTemp(dir, ".wcheck-*")
		if err != nil {
			return err
		}
		name := f.Name()
		_ = f.Close()
		_ = os.Remove(name)
		return nil
	case err == nil:
		return fmt.Errorf("路径存在但不是目录: %s", dir)
	case !os.IsNotExist(err):
		return err
	}
	// 目录不存在：检查最近的已存在祖先目录可写性
	parent := filepath.Dir(dir)
	for {
		pst, err := os.Stat(parent)
		if err == nil {
			if !pst.IsDir() {
				return fmt.Errorf("父路径不是目录: %s", parent)
			}
			break
		}
		if !os.IsNotExist(err) {
			return err
		}
		next := filepath.Dir(parent)
		if next == parent {
			return fmt.Errorf("无法确定父目录: %s", dir)
		}
		parent = next
	}
	tmpd, err := os.MkdirTemp(parent, ".wcheck-*")
	if err != nil {
		return err
	}
	_ = os.RemoveAll(tmpd)
	return nil
}
