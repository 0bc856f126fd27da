package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// runnerConfig shapes the emulated execution environment. All fields have
// working defaults so the emulator runs with no config file at all.
type runnerConfig struct {
	Listen          string        `yaml:"listen"`
	FunctionName    string        `yaml:"function_name"`
	FunctionVersion string        `yaml:"function_version"`
	MemoryMB        int           `yaml:"memory_mb"`
	Region          string        `yaml:"region"`
	AccountID       string        `yaml:"account_id"`
	Timeout         time.Duration `yaml:"timeout"`
}

func defaultRunnerConfig() *runnerConfig {
	return &runnerConfig{
		Listen:          "127.0.0.1:9001",
		FunctionName:    "local-function",
		FunctionVersion: "$LATEST",
		MemoryMB:        128,
		Region:          "us-east-1",
		AccountID:       "000000000000",
		Timeout:         30 * time.Second,
	}
}

func loadRunnerConfig(path string) (*runnerConfig, error) {
	conf := defaultRunnerConfig()
	if path == "" {
		return conf, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, conf); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return conf, nil
}

func (c *runnerConfig) arn() string {
	return fmt.Sprintf("arn:aws:lambda:%s:%s:function:%s", c.Region, c.AccountID, c.FunctionName)
}
