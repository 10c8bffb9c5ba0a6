package config

const (
	defaultUploadDir          = "~/.local/share/spool/uploads"
	defaultLogDir             = "~/.local/share/spool/logs"
	defaultSocketPath         = "~/.local/share/spool/spoold.sock"
	defaultIngestBind         = "127.0.0.1:5001"
	defaultMaxChunkBytes      = 4 << 20
	defaultWriteQueueDepth    = 64
	defaultBackendTimeout     = 15
	defaultObjectStoreRegion  = "us-east-1"
	defaultOpenAIBaseURL      = "https://api.openai.com/v1"
	defaultTranscriptionModel = "whisper-1"
	defaultCompletionModel    = "gpt-3.5-turbo"
	defaultMaxInputBytes      = 25_000_000
	defaultOpenAITimeout      = 120
	defaultLogLevel           = "info"
	defaultLogFormat          = "console"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			UploadDir:  defaultUploadDir,
			LogDir:     defaultLogDir,
			SocketPath: defaultSocketPath,
		},
		Ingest: Ingest{
			Bind:            defaultIngestBind,
			MaxChunkBytes:   defaultMaxChunkBytes,
			WriteQueueDepth: defaultWriteQueueDepth,
		},
		Backend: Backend{
			RequestTimeout: defaultBackendTimeout,
		},
		ObjectStore: ObjectStore{
			Region: defaultObjectStoreRegion,
		},
		OpenAI: OpenAI{
			BaseURL:            defaultOpenAIBaseURL,
			TranscriptionModel: defaultTranscriptionModel,
			CompletionModel:    defaultCompletionModel,
			MaxInputBytes:      defaultMaxInputBytes,
			TimeoutSeconds:     defaultOpenAITimeout,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}
