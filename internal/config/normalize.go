package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeIngest()
	c.normalizeBackend()
	c.normalizeOpenAI()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.UploadDir, err = expandPath(c.Paths.UploadDir); err != nil {
		return fmt.Errorf("paths.upload_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.SocketPath, err = expandPath(c.Paths.SocketPath); err != nil {
		return fmt.Errorf("paths.socket_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeIngest() {
	c.Ingest.Bind = strings.TrimSpace(c.Ingest.Bind)
	if c.Ingest.Bind == "" {
		c.Ingest.Bind = defaultIngestBind
	}
	if c.Ingest.MaxChunkBytes <= 0 {
		c.Ingest.MaxChunkBytes = defaultMaxChunkBytes
	}
	if c.Ingest.WriteQueueDepth <= 0 {
		c.Ingest.WriteQueueDepth = defaultWriteQueueDepth
	}
}

func (c *Config) normalizeBackend() {
	c.Backend.BaseURL = strings.TrimRight(strings.TrimSpace(c.Backend.BaseURL), "/")
	if c.Backend.RequestTimeout <= 0 {
		c.Backend.RequestTimeout = defaultBackendTimeout
	}
}

func (c *Config) normalizeOpenAI() {
	c.OpenAI.APIKey = strings.TrimSpace(c.OpenAI.APIKey)
	c.OpenAI.BaseURL = strings.TrimRight(strings.TrimSpace(c.OpenAI.BaseURL), "/")
	if c.OpenAI.BaseURL == "" {
		c.OpenAI.BaseURL = defaultOpenAIBaseURL
	}
	if strings.TrimSpace(c.OpenAI.TranscriptionModel) == "" {
		c.OpenAI.TranscriptionModel = defaultTranscriptionModel
	}
	if strings.TrimSpace(c.OpenAI.CompletionModel) == "" {
		c.OpenAI.CompletionModel = defaultCompletionModel
	}
	if c.OpenAI.MaxInputBytes <= 0 {
		c.OpenAI.MaxInputBytes = defaultMaxInputBytes
	}
	if c.OpenAI.TimeoutSeconds <= 0 {
		c.OpenAI.TimeoutSeconds = defaultOpenAITimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
}
