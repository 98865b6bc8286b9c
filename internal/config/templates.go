package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	gotoml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

func ParseFormat(raw string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "toml", "":
		return FormatTOML, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown config format: %s", raw)
	}
}

func Template(format Format) (string, error) {
	switch format {
	case FormatTOML:
		return tomlTemplate, nil
	case FormatYAML:
		return yamlTemplate, nil
	default:
		return "", fmt.Errorf("unknown config format: %s", format)
	}
}

func WriteTemplate(path string, format Format, overwrite bool) error {
	template, err := Template(format)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

// Render serializes the effective configuration.
func Render(cfg File, format Format) ([]byte, error) {
	switch format {
	case FormatYAML:
		return yaml.Marshal(cfg)
	case FormatTOML:
		var buf bytes.Buffer
		enc := gotoml.NewEncoder(&buf)
		enc.SetIndentTables(true)
		if err := enc.Encode(cfg); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unknown config format: %s", format)
	}
}

const tomlTemplate = `[server]
host = "127.0.0.1"
port = 5000

[sender]
timeout = "1s"
max_attempts = 5
retry_delay = "1s"
backoff_multiplier = 1.0
max_retry_delay = "0s"
jitter = false

[receiver]
corruption_probability = 0.6
corruption_seed = 0
sentinel = "*"
admin_addr = ""
admin_token = ""
cors_origins = ["http://localhost:3000"]

[log]
level = "info"
timestamp = true
no_color = false
`

const yamlTemplate = `server:
  host: 127.0.0.1
  port: 5000
sender:
  timeout: 1s
  max_attempts: 5
  retry_delay: 1s
  backoff_multiplier: 1.0
  max_retry_delay: 0s
  jitter: false
receiver:
  corruption_probability: 0.6
  corruption_seed: 0
  sentinel: "*"
  admin_addr: ""
  admin_token: ""
  cors_origins:
    - http://localhost:3000
log:
  level: info
  timestamp: true
  no_color: false
`
