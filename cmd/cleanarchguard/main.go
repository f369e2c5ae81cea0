// Command cleanarchguard checks that modules/* keep their layering: domain imports nothing
// from the outer layers, services only reach domain, and presentation never touches
// persistence directly.
package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/roblaszczak/go-cleanarch/cleanarch"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type config struct {
	Version           int      `yaml:"version"`
	Root              string   `yaml:"root"`
	IgnoreTests       bool     `yaml:"ignore_tests"`
	IgnorePackages    []string `yaml:"ignore_packages"`
	SharedModules     []string `yaml:"shared_modules"`
	AllowedViolations []string `yaml:"allow_violations"`
	Aliases           struct {
		Domain         []string `yaml:"domain"`
		Application    []string `yaml:"application"`
		Interfaces     []string `yaml:"interfaces"`
		Infrastructure []string `yaml:"infrastructure"`
	} `yaml:"aliases"`
}

var (
	defaultDomainAliases         = []string{"domain", "aggregates", "entities"}
	defaultApplicationAliases    = []string{"services", "application"}
	defaultInterfacesAliases     = []string{"presentation", "controllers"}
	defaultInfrastructureAliases = []string{"infrastructure", "persistence"}
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		debug      bool
	)
	cmd := &cobra.Command{
		Use:           "cleanarchguard",
		Short:         "Check module layering with go-cleanarch",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return fmt.Errorf("read config: %w", err)
			}
			if debug {
				cleanarch.Log.SetOutput(cmd.ErrOrStderr())
			}
			return run(cfg, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&configPath, "config", ".gocleanarch.yml", "Config file; defaults apply when it does not exist")
	cmd.Flags().BoolVar(&debug, "debug", false, "Enable go-cleanarch debug output")
	return cmd
}

func run(cfg *config, out io.Writer) error {
	logger := logrus.New()
	logger.SetOutput(out)

	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return fmt.Errorf("resolve root: %w", err)
	}

	validator := cleanarch.NewValidator(layerAliases(cfg))
	ok, errs, err := validator.Validate(root, cfg.IgnoreTests, cfg.IgnorePackages)
	if err != nil {
		return fmt.Errorf("go-cleanarch: %w", err)
	}

	violations := filterValidationErrors(errs, cfg)
	if !ok && len(violations) > 0 {
		for _, v := range violations {
			logger.WithField("root", cfg.Root).Error(v.Error())
		}
		return fmt.Errorf("%d layering violation(s)", len(violations))
	}
	logger.WithField("root", cfg.Root).Info("layering check passed")
	return nil
}

// loadConfig falls back to the defaults (root "modules", tests ignored) when path does not exist.
func loadConfig(path string) (*config, error) {
	cfg := &config{Version: 1, Root: "modules", IgnoreTests: true}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.Root) == "" {
		cfg.Root = "modules"
	}
	return cfg, nil
}

func layerAliases(cfg *config) map[string]cleanarch.Layer {
	aliases := map[string]cleanarch.Layer{}
	applyAliases(aliases, cfg.Aliases.Domain, defaultDomainAliases, cleanarch.LayerDomain)
	applyAliases(aliases, cfg.Aliases.Application, defaultApplicationAliases, cleanarch.LayerApplication)
	applyAliases(aliases, cfg.Aliases.Interfaces, defaultInterfacesAliases, cleanarch.LayerInterfaces)
	applyAliases(aliases, cfg.Aliases.Infrastructure, defaultInfrastructureAliases, cleanarch.LayerInfrastructure)
	return aliases
}

func applyAliases(dst map[string]cleanarch.Layer, custom, defaults []string, layer cleanarch.Layer) {
	candidates := defaults
	if len(custom) > 0 {
		candidates = custom
	}
	for _, alias := range candidates {
		if alias != "" {
			dst[alias] = layer
		}
	}
}

var crossModulePattern = regexp.MustCompile(`between ([\w-]+) and ([\w-]+) modules`)

// filterValidationErrors drops cross-module findings that involve a shared module and
// any finding containing an allowed pattern.
func filterValidationErrors(errs []cleanarch.ValidationError, cfg *config) []cleanarch.ValidationError {
	shared := make(map[string]struct{}, len(cfg.SharedModules))
	for _, m := range cfg.SharedModules {
		if m = strings.TrimSpace(m); m != "" {
			shared[m] = struct{}{}
		}
	}

	out := make([]cleanarch.ValidationError, 0, len(errs))
	for _, v := range errs {
		msg := v.Error()
		if involvesShared(msg, shared) || allowed(msg, cfg.AllowedViolations) {
			continue
		}
		out = append(out, v)
	}
	return out
}

func involvesShared(msg string, shared map[string]struct{}) bool {
	m := crossModulePattern.FindStringSubmatch(msg)
	if len(m) != 3 {
		return false
	}
	_, a := shared[m[1]]
	_, b := shared[m[2]]
	return a || b
}

func allowed(msg string, patterns []string) bool {
	for _, p := range patterns {
		if p != "" && strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
