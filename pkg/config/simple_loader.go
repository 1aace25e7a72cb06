package config

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ajitpratap0/nova/pkg/errors"
)

// Load reads a YAML file into config. ${VAR} references are expanded from
// the environment before parsing, so credentials like the report API key
// can stay out of the file itself.
func Load(path string, config interface{}) error {
	raw, err := os.ReadFile(path) //nolint:gosec // G304: path comes from the CLI flag
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to read config file").
			WithDetail("path", path)
	}

	expanded := expandEnv(string(raw))
	if err := yaml.Unmarshal([]byte(expanded), config); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "failed to parse config YAML").
			WithDetail("path", path)
	}
	return nil
}

// Save writes config back out as YAML.
func Save(path string, config interface{}) error {
	raw, err := yaml.Marshal(config)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "failed to marshal config")
	}

	if err := os.WriteFile(path, raw, 0644); err != nil { //nolint:gosec
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write config file").
			WithDetail("path", path)
	}
	return nil
}

// expandEnv replaces ${VAR} references with environment values. Unset
// variables expand to the empty string, matching shell semantics; an
// unterminated reference is left as-is.
func expandEnv(content string) string {
	var out strings.Builder
	out.Grow(len(content))

	for {
		start := strings.Index(content, "${")
		if start == -1 {
			out.WriteString(content)
			break
		}
		end := strings.Index(content[start+2:], "}")
		if end == -1 {
			out.WriteString(content)
			break
		}

		out.WriteString(content[:start])
		out.WriteString(os.Getenv(content[start+2 : start+2+end]))
		content = content[start+2+end+1:]
	}
	return out.String()
}
