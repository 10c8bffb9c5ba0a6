package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// Validate checks the configuration for values the daemon cannot run without.
// The OpenAI key is deliberately optional: transcription is a conditional
// stage and accounts without it never reach the AI service.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Paths.UploadDir) == "" {
		problems = append(problems, "paths.upload_dir is required")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		problems = append(problems, "paths.log_dir is required")
	}
	if _, _, err := net.SplitHostPort(c.Ingest.Bind); err != nil {
		problems = append(problems, fmt.Sprintf("ingest.bind %q is not host:port", c.Ingest.Bind))
	}
	if strings.TrimSpace(c.Backend.BaseURL) == "" {
		problems = append(problems, "backend.base_url is required")
	}
	if strings.TrimSpace(c.ObjectStore.Bucket) == "" {
		problems = append(problems, "object_store.bucket is required")
	}
	if strings.TrimSpace(c.ObjectStore.Region) == "" {
		problems = append(problems, "object_store.region is required")
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("logging.format %q must be console or json", c.Logging.Format))
	}

	if len(problems) == 0 {
		return nil
	}
	return errors.New("invalid configuration: " + strings.Join(problems, "; "))
}
