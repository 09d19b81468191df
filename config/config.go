// Package config loads the YAML configuration used by the hostbridge CLI.
package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/wasm-hostbridge/engine"
	"github.com/wippyai/wasm-hostbridge/errors"
	"github.com/wippyai/wasm-hostbridge/host"
	"github.com/wippyai/wasm-hostbridge/value"
)

// validate is shared; validator caches struct metadata per instance.
var validate = validator.New()

type Config struct {
	Engine Engine `yaml:"engine" json:"engine"`
	Bridge Bridge `yaml:"bridge" json:"bridge"`
	Stubs  []Stub `yaml:"stubs,omitempty" json:"stubs,omitempty" validate:"dive"`
}

// Engine mirrors engine.Config.
type Engine struct {
	MemoryLimitPages   uint32 `yaml:"memory_limit_pages,omitempty" json:"memory_limit_pages,omitempty" validate:"lte=65536" jsonschema:"maximum=65536,description=Maximum linear memory per instance in 64KiB pages"`
	Interpreter        bool   `yaml:"interpreter,omitempty" json:"interpreter,omitempty" jsonschema:"description=Use the interpreter instead of the compiler"`
	Threads            bool   `yaml:"threads,omitempty" json:"threads,omitempty" jsonschema:"description=Enable the threads proposal"`
	CloseOnContextDone bool   `yaml:"close_on_context_done,omitempty" json:"close_on_context_done,omitempty"`
}

type Bridge struct {
	Overflow string `yaml:"overflow,omitempty" json:"overflow,omitempty" validate:"omitempty,oneof=fail saturate wrap" jsonschema:"enum=fail,enum=saturate,enum=wrap,default=fail"`
	ExecLock bool   `yaml:"exec_lock,omitempty" json:"exec_lock,omitempty" jsonschema:"description=Serialize guest calls and host callables"`
}

// Stub satisfies an import no built-in host provides. Stubs are
// untyped: they take the import's declared signature and return Result
// (ignored for void imports).
type Stub struct {
	Namespace string `yaml:"namespace" json:"namespace" validate:"required"`
	Name      string `yaml:"name" json:"name" validate:"required"`
	Result    any    `yaml:"result,omitempty" json:"result,omitempty" jsonschema:"oneof_type=integer;number"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Bridge: Bridge{Overflow: value.OverflowFail.String()},
	}
}

// Load reads and validates a YAML file. Unset fields keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "read config")
	}
	return Parse(data)
}

// Parse decodes and validates YAML configuration.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "parse config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "config validation failed")
	}

	seen := make(map[string]bool, len(c.Stubs))
	for i, s := range c.Stubs {
		key := s.Namespace + "." + s.Name
		if seen[key] {
			return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
				Path("stubs", fmt.Sprint(i)).
				Detail("duplicate stub %s", key).
				Build()
		}
		seen[key] = true

		switch s.Result.(type) {
		case nil, int, int64, uint64, float64:
		default:
			return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
				Path("stubs", fmt.Sprint(i), "result").
				GoType(fmt.Sprintf("%T", s.Result)).
				Detail("stub result must be a number").
				Build()
		}
	}
	return nil
}

// EngineConfig converts the engine section.
func (c *Config) EngineConfig() *engine.Config {
	return &engine.Config{
		MemoryLimitPages:   c.Engine.MemoryLimitPages,
		EnableThreads:      c.Engine.Threads,
		Interpreter:        c.Engine.Interpreter,
		CloseOnContextDone: c.Engine.CloseOnContextDone,
	}
}

// Policy returns the configured overflow policy.
func (c *Config) Policy() (value.Policy, error) {
	p, err := value.ParsePolicy(c.Bridge.Overflow)
	if err != nil {
		return 0, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "bridge.overflow")
	}
	return p, nil
}

// Locker returns the exec lock selected by the bridge section.
func (c *Config) Locker() host.Locker {
	if c.Bridge.ExecLock {
		return host.NewExecLock()
	}
	return host.NoLock{}
}

// Callable returns the stub as an untyped callable.
func (s Stub) Callable() host.Callable {
	result := s.Result
	return host.Func(func(context.Context, ...any) (any, error) {
		return result, nil
	})
}

// Schema returns the JSON schema of the configuration file.
func Schema() ([]byte, error) {
	reflector := jsonschema.Reflector{
		ExpandedStruct: true,
	}
	schema := reflector.Reflect(&Config{})

	out, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return out, nil
}
