package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Environment selects a built-in endpoint preset or a custom URL.
type Environment struct {
	Name            string
	OrchestratorURL string
}

var builtinEnvironments = map[string]string{
	"production": "https://orchestrator.nexus.xyz",
	"staging":    "https://staging.orchestrator.nexus.xyz",
	"beta":       "https://beta.orchestrator.nexus.xyz",
}

// ResolveEnvironment maps NEXUS_ENVIRONMENT (or an explicit flag value) to
// an Environment. An unrecognized name is treated as a custom URL.
func ResolveEnvironment(name string) Environment {
	lower := strings.ToLower(strings.TrimSpace(name))
	if url, ok := builtinEnvironments[lower]; ok {
		return Environment{Name: lower, OrchestratorURL: url}
	}
	if name == "" {
		return Environment{Name: "production", OrchestratorURL: builtinEnvironments["production"]}
	}
	return Environment{Name: "custom", OrchestratorURL: name}
}

// Settings binds the process-wide knobs read from environment variables
// via viper. No cobra flags are bound here; commands apply their own flag
// overrides after reading these values.
type Settings struct {
	v *viper.Viper
}

// NewSettings constructs a Settings bound to the process environment.
func NewSettings() *Settings {
	v := viper.New()
	v.SetEnvPrefix("")
	v.AutomaticEnv()
	v.SetDefault("NEXUS_ENVIRONMENT", "production")
	v.SetDefault("RUST_LOG", "info")
	v.SetDefault("NONINTERACTIVE", "")
	return &Settings{v: v}
}

// Environment returns the resolved environment from NEXUS_ENVIRONMENT.
func (s *Settings) Environment() Environment {
	return ResolveEnvironment(s.v.GetString("NEXUS_ENVIRONMENT"))
}

// NonInteractive reports whether NONINTERACTIVE is set, skipping any
// interactive setup prompt.
func (s *Settings) NonInteractive() bool {
	return s.v.GetBool("NONINTERACTIVE") || s.v.GetString("NONINTERACTIVE") != ""
}

// LogLevel parses the RUST_LOG-style level string: the first "module=level"
// token or a bare level sets the threshold; unrecognized input defaults to
// "info".
func (s *Settings) LogLevel() string {
	return ParseRustLogLevel(s.v.GetString("RUST_LOG"))
}

// ParseRustLogLevel extracts the severity threshold from a RUST_LOG-style
// string such as "nexus_prover=debug,hyper=warn" or a bare "warn". Parsing
// is best-effort: an unrecognized token falls back to "info".
func ParseRustLogLevel(raw string) string {
	valid := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true}
	for _, token := range strings.Split(raw, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		if idx := strings.LastIndex(token, "="); idx >= 0 {
			token = token[idx+1:]
		}
		token = strings.ToLower(token)
		if valid[token] {
			return token
		}
	}
	return "info"
}
