package utils

import (
	"fmt"
	"net/url"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

type Config struct {
	Backend struct {
		BaseURL string `yaml:"baseURL" split_words:"true"`
		// Timeout in seconds for backend requests; 0 means none.
		Timeout int    `yaml:"timeout"`
	} `yaml:"backend"`
	Browser struct {
		Headless bool `yaml:"headless"`
		Debug    bool `yaml:"debug"`
	} `yaml:"browser"`
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Output struct {
		Dir  string `yaml:"dir"`
		Logs string `yaml:"logs"`
	} `yaml:"output"`
}

// DefaultConfig is what LoadConfig starts from before reading the file.
func DefaultConfig() *Config {
	config := &Config{}
	config.Backend.BaseURL = "http://localhost:5000"
	config.Browser.Headless = true
	config.Server.Addr = "127.0.0.1:8080"
	config.Output.Dir = "output"
	config.Output.Logs = "logs"
	return config
}

// LoadConfig reads the YAML file at path, then applies STOCKDASH_* environment
// overrides (a .env file is honoured when present). A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	file, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if err == nil {
		if err := yaml.Unmarshal(file, config); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %v", path, err)
		}
	}

	_ = godotenv.Load()

	if err := envconfig.Process("stockdash", config); err != nil {
		return nil, fmt.Errorf("failed to read environment: %v", err)
	}

	return config, nil
}

func (c *Config) Validate() error {
	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid backend base URL %q", c.Backend.BaseURL)
	}
	if c.Backend.Timeout < 0 {
		return fmt.Errorf("invalid timeout value")
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server address is empty")
	}
	return nil
}
