package main

import (
	"fmt"
	"log/slog"
	"sync"

	"vibecast/internal/config"
	"vibecast/internal/logging"
)

// commandContext lazily loads configuration once per invocation and shares it
// across subcommands.
type commandContext struct {
	configFlag string

	once    sync.Once
	cfg     *config.Config
	cfgPath string
	loadErr error
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.once.Do(func() {
		cfg, path, _, err := config.Load(c.configFlag)
		if err != nil {
			c.loadErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.loadErr = fmt.Errorf("prepare directories: %w", err)
			return
		}
		c.cfg = cfg
		c.cfgPath = path
	})
	return c.cfg, c.loadErr
}

func (c *commandContext) configValue() *config.Config {
	return c.cfg
}

func (c *commandContext) logger() (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
}
