package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"ltexfrag/internal/command"
	cfgpkg "ltexfrag/internal/config"
	"ltexfrag/internal/langmap"
)

func newLanguagesCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "languages [prefix]",
		Short: "列出已知语言名及其区域码",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix := ""
			if len(args) == 1 {
				prefix = strings.ToLower(args[0])
			}
			type entry struct {
				Name string `json:"name"`
				Code string `json:"code"`
			}
			var out []entry
			for _, name := range langmap.Names() {
				if !strings.HasPrefix(name, prefix) {
					continue
				}
				code, _ := langmap.ShortCode(name)
				out = append(out, entry{Name: name, Code: code})
			}
			w := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}
			tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
			for _, e := range out {
				fmt.Fprintf(tw, "%s\t%s\n", e.Name, e.Code)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "以 JSON 数组输出")
	return cmd
}

// signatureKinds: 种类名 → 签名表（按执行顺序）。
var signatureKinds = []string{"package", "switch", "inline", "environment", "extra"}

func signaturesOf(kind string) ([]*command.Signature, *langmap.Table) {
	switch kind {
	case "package":
		return langmap.PackageSignatures, nil
	case "switch":
		return langmap.SwitchSignatures, nil
	case "inline":
		return langmap.InlineSignatures.Signatures(), langmap.InlineSignatures
	case "environment":
		return langmap.EnvironmentSignatures.Signatures(), langmap.EnvironmentSignatures
	case "extra":
		return langmap.ExtraSignatures, nil
	}
	return nil, nil
}

func newSignaturesCmd() *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "signatures",
		Short: "列出片段化各趟识别的命令原型",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds := signatureKinds
			if kind != "" {
				if sigs, _ := signaturesOf(kind); sigs == nil {
					return fmt.Errorf("unknown kind %q (want one of %s)", kind, strings.Join(signatureKinds, ", "))
				}
				kinds = []string{kind}
			}
			return writeSignatures(cmd.OutOrStdout(), kinds)
		},
	}
	cmd.Flags().StringVarP(&kind, "kind", "k", "", "仅列出某一种类（"+strings.Join(signatureKinds, "|")+"）")
	return cmd
}

func writeSignatures(w io.Writer, kinds []string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, k := range kinds {
		sigs, table := signaturesOf(k)
		for _, s := range sigs {
			code := ""
			if table != nil {
				c, _ := table.Code(s)
				code = c
				if c == langmap.FromArgument {
					code = "<argument>"
				}
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\n", k, s.Prototype, code)
		}
	}
	return tw.Flush()
}

func newInitConfigCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "init-config [dir]",
		Short: "在目录中生成默认配置与 .env 模板（已存在则跳过，不覆盖）",
		Long: `在指定目录生成 ltexfrag.<ext> 与 .env 模板；缺省为当前目录。
dir 为 "-" 时仅将配置写到标准输出。`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 && strings.TrimSpace(args[0]) != "" {
				dir = strings.TrimSpace(args[0])
			}
			f := cfgpkg.Format(strings.ToLower(format))
			b, err := cfgpkg.Marshal(f, cfgpkg.DefaultTemplateConfig())
			if err != nil {
				return &exitError{code: exitConfig, err: fmt.Errorf("生成默认配置失败: %w", err)}
			}
			if dir == "-" {
				_, err := cmd.OutOrStdout().Write(b)
				return err
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				fprintf(cmd.ErrOrStderr(), "生成默认配置失败: %v\n", err)
				return &exitError{code: exitConfig, err: err}
			}
			path := filepath.Join(dir, "ltexfrag."+extFor(f))
			if err := writeNew(path, b); err != nil {
				fprintf(cmd.ErrOrStderr(), "生成默认配置失败: %v\n", err)
				return &exitError{code: exitConfig, err: err}
			}
			if err := writeDotEnv(filepath.Join(dir, ".env")); err != nil {
				fprintf(cmd.ErrOrStderr(), "提示：.env 生成失败（已跳过）：%v\n", err)
			}
			fprintf(cmd.OutOrStdout(), "%s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "配置格式（json|yaml|toml）")
	return cmd
}

func extFor(f cfgpkg.Format) string {
	if f == cfgpkg.FormatYAML {
		return "yaml"
	}
	return string(f)
}

// writeNew 创建新文件；已存在时返回错误，不覆盖。
func writeNew(path string, b []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(b)
	return err
}

// envTemplateKeys: .env 模板中列出的覆盖项。
var envTemplateKeys = []string{
	"CONFIG_FILE", "CONFIG_JSON",
	"INPUTS", "DIALECT", "LANGUAGE", "LOG_LEVEL",
	"COMPONENTS_READER", "COMPONENTS_ENCODER", "COMPONENTS_WRITER",
	"OPTIONS_READER_JSON", "OPTIONS_ENCODER_JSON", "OPTIONS_WRITER_JSON",
	"OPTIONS_FRAGMENTIZER__LATEX_JSON", "OPTIONS_FRAGMENTIZER__MARKDOWN_JSON",
}

// writeDotEnv 生成 .env 模板（若文件已存在则跳过）。
func writeDotEnv(path string) error {
	if st, err := os.Stat(path); err == nil && !st.IsDir() {
		return nil
	} else if err != nil && !os.IsNotExist(err) {
		return err
	}
	var b strings.Builder
	b.WriteString("# ltexfrag .env 模板（由 init-config 生成）\n")
	b.WriteString("# 优先级：CLI > ENV(.env) > 配置文件\n")
	b.WriteString("# 空值表示未设置。\n\n")
	for _, k := range envTemplateKeys {
		b.WriteString(cfgpkg.EnvPrefix + k + "=\n")
	}
	err := writeNew(path, []byte(b.String()))
	if os.IsExist(err) {
		return nil
	}
	return err
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "打印版本",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fprintf(cmd.OutOrStdout(), "ltexfrag %s (%d languages)\n", version, len(langmap.Names()))
		},
	}
}
