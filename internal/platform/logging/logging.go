package logging

import (
	"fmt"

	"github.com/kart-io/logger"
	"github.com/kart-io/logger/option"

	"animalcare-rag/internal/config"
)

// Init builds the global logger from the [log] section.
func Init(cfg config.LogConfig, serviceName string) error {
	opt := option.DefaultLogOption()
	if cfg.Engine != "" {
		opt.Engine = cfg.Engine
	}
	if cfg.Level != "" {
		opt.Level = cfg.Level
	}
	if cfg.Format != "" {
		opt.Format = cfg.Format
	}
	if len(cfg.OutputPaths) > 0 {
		opt.OutputPaths = cfg.OutputPaths
	}
	opt.Development = cfg.Development
	opt.InitialFields = map[string]interface{}{"service.name": serviceName}

	if err := opt.Validate(); err != nil {
		return fmt.Errorf("invalid log config: %w", err)
	}
	l, err := logger.New(opt)
	if err != nil {
		return fmt.Errorf("create logger failed: %w", err)
	}
	logger.SetGlobal(l)
	return nil
}
