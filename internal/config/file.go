package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// FileConfig is the dev server's TOML configuration.
//
//	[google]
//	api_key   = "..."
//	client_id = "..."
//	scopes    = ["https://www.googleapis.com/auth/drive"]
//
//	[server]
//	addr       = ":8080"
//	static_dir = "web"
type FileConfig struct {
	Google struct {
		APIKey   string   `toml:"api_key"`
		ClientID string   `toml:"client_id"`
		Scopes   []string `toml:"scopes"`
	} `toml:"google"`
	Server struct {
		Addr      string `toml:"addr"`
		StaticDir string `toml:"static_dir"`
	} `toml:"server"`
	Debug bool `toml:"debug"`
}

// LoadFile decodes a TOML configuration file.
func LoadFile(path string) (*FileConfig, error) {
	var fc FileConfig
	md, err := toml.DecodeFile(path, &fc)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}
	return &fc, nil
}

// Values returns the file contents as injectable key/value pairs.
func (fc *FileConfig) Values() map[string]string {
	out := map[string]string{}
	if fc.Google.APIKey != "" {
		out[KeyAPIKey] = fc.Google.APIKey
	}
	if fc.Google.ClientID != "" {
		out[KeyClientID] = fc.Google.ClientID
	}
	if len(fc.Google.Scopes) > 0 {
		out[KeyScopes] = strings.Join(fc.Google.Scopes, " ")
	}
	if fc.Debug {
		out[KeyDebug] = strconv.FormatBool(fc.Debug)
	}
	return out
}

// Public returns the subset of cfg that is safe to hand to the page.
func Public(cfg Config) map[string]string {
	return map[string]string{
		KeyAPIKey:   cfg.APIKey,
		KeyClientID: cfg.ClientID,
		KeyScopes:   cfg.ScopeString(),
		KeyDebug:    strconv.FormatBool(cfg.Debug),
	}
}
