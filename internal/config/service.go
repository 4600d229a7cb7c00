package config

import "github.com/JonMunkholm/gwasupload/internal/core"

// ReaderOptions returns the preview reader settings.
func (c *Config) ReaderOptions() core.ReaderOptions {
	return core.ReaderOptions{
		PreviewBytes:         c.Upload.PreviewBytes,
		CompressedExtensions: c.Upload.CompressedExtensions,
	}
}

// ControllerConfig returns the per-form controller settings.
func (c *Config) ControllerConfig() core.ControllerConfig {
	return core.ControllerConfig{
		MaxFileSize:       c.Upload.MaxFileSize,
		Reader:            c.ReaderOptions(),
		ExpectedHeader:    c.Upload.ExpectedHeader,
		ValidationTimeout: c.Upload.ValidationTimeout,
	}
}

// ServiceConfig returns the session service settings.
func (c *Config) ServiceConfig() core.ServiceConfig {
	return core.ServiceConfig{
		Controller:    c.ControllerConfig(),
		MaxConcurrent: c.Upload.MaxConcurrent,
		MaxWaitTime:   c.Upload.MaxWaitTime,
	}
}

// JanitorConfig returns the idle session sweep settings.
func (c *Config) JanitorConfig() core.JanitorConfig {
	return core.JanitorConfig{
		IdleTimeout:   c.Session.IdleTimeout,
		SweepInterval: c.Session.SweepInterval,
	}
}
