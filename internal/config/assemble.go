package config

import (
	"errors"
	"fmt"
	"strings"

	"ltexfrag/internal/command"
	"ltexfrag/internal/diag"
	"ltexfrag/internal/langmap"
	"ltexfrag/internal/pipeline"
	"ltexfrag/pkg/contract"
	"ltexfrag/pkg/registry"
)

// Validate 对最小必要边界做静态校验。
func Validate(cfg Config) error {
	if len(cfg.Inputs) == 0 {
		return errors.New("config: inputs empty")
	}
	// 输入路径不得为空字符串；"-" 不能与其他根混用
	dash := false
	for _, r := range cfg.Inputs {
		if strings.TrimSpace(r) == "" {
			return errors.New("config: input path cannot be empty")
		}
		if strings.TrimSpace(r) == "-" {
			dash = true
		}
	}
	if dash && len(cfg.Inputs) > 1 {
		return errors.New("config: '-' cannot be mixed with other roots")
	}
	if lv := cfg.Logging.Level; lv != "" && !diag.ValidLevel(lv) {
		return fmt.Errorf("config: logging.level %q invalid", lv)
	}
	if cfg.Dialect != "" && registry.Fragmentizer[cfg.Dialect] == nil {
		return fmt.Errorf("config: %w: %q", contract.ErrUnknownDialect, cfg.Dialect)
	}
	for name := range cfg.Options.Fragmentizer {
		if registry.Fragmentizer[name] == nil {
			return fmt.Errorf("config: options.fragmentizer: %w: %q", contract.ErrUnknownDialect, name)
		}
	}
	// 组件名若为空，使用默认名（由 Defaults() 提供）。此处只要最终有值即可。
	d := Defaults()
	if name := effName(cfg.Components.Reader, d.Components.Reader); registry.Reader[name] == nil {
		return fmt.Errorf("config: reader %q not registered", name)
	}
	if name := effName(cfg.Components.Encoder, d.Components.Encoder); registry.Encoder[name] == nil {
		return fmt.Errorf("config: encoder %q not registered", name)
	}
	if name := effName(cfg.Components.Writer, d.Components.Writer); registry.Writer[name] == nil {
		return fmt.Errorf("config: writer %q not registered", name)
	}
	return validateSettings(cfg.Settings)
}

func validateSettings(s contract.SettingsSpec) error {
	if code := strings.TrimSpace(s.LanguageShortCode); code != "" {
		if _, err := langmap.Tag(code); err != nil {
			return fmt.Errorf("config: settings.language %q: %w: %v", code, contract.ErrInvalidInput, err)
		}
	}
	for _, d := range s.Enabled {
		if registry.Fragmentizer[string(d)] == nil {
			return fmt.Errorf("config: settings.enabled: %w: %q", contract.ErrUnknownDialect, d)
		}
	}
	for proto, c := range s.Commands {
		if !c.Valid() {
			return fmt.Errorf("config: settings.commands[%q]: %w: classification %q", proto, contract.ErrInvalidInput, c)
		}
	}
	for env, c := range s.Environments {
		if !c.Valid() {
			return fmt.Errorf("config: settings.environments[%q]: %w: classification %q", env, contract.ErrInvalidInput, c)
		}
	}
	return nil
}

// Assemble 构造 Components 与 Settings。
// 严格 Options 解析在 registry （工厂）层进行；此处只传 raw JSON。
func Assemble(cfg Config) (pipeline.Components, pipeline.Settings, error) {
	if err := Validate(cfg); err != nil {
		return pipeline.Components{}, pipeline.Settings{}, err
	}

	// 有效名称
	d := Defaults()
	rn := effName(cfg.Components.Reader, d.Components.Reader)
	en := effName(cfg.Components.Encoder, d.Components.Encoder)
	wn := effName(cfg.Components.Writer, d.Components.Writer)

	// 构造实例
	r, err := registry.Reader[rn](cfg.Options.Reader)
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, fmt.Errorf("reader %s: %w", rn, err)
	}
	frs := make(map[contract.DialectID]contract.Fragmentizer, len(registry.Fragmentizer))
	for _, name := range registry.Dialects() {
		f, err := registry.Fragmentizer[name](cfg.Options.Fragmentizer[name])
		if err != nil {
			return pipeline.Components{}, pipeline.Settings{}, fmt.Errorf("fragmentizer %s: %w", name, err)
		}
		frs[contract.DialectID(name)] = f
	}
	enc, err := registry.Encoder[en](cfg.Options.Encoder)
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, fmt.Errorf("encoder %s: %w", en, err)
	}
	w, err := registry.Writer[wn](cfg.Options.Writer)
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, fmt.Errorf("writer %s: %w", wn, err)
	}

	comp := pipeline.Components{
		Reader:        r,
		Fragmentizers: frs,
		Encoder:       enc,
		Writer:        w,
	}
	set := pipeline.Settings{
		Inputs:  cloneStrings(cfg.Inputs),
		Dialect: contract.DialectID(cfg.Dialect),
		// 命令原型规范化后作为键，与匹配器使用的签名文本一致
		Settings: contract.NewSettings(cfg.Settings, command.CanonicalPrototype),
	}
	return comp, set, nil
}

func effName(got, def string) string {
	if got == "" {
		return def
	}
	return got
}
