package config

const (
	defaultDataDir                = "~/.local/share/convocoach/data"
	defaultLogDir                 = "~/.local/share/convocoach/logs"
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
	defaultAnalysisBaseURL        = "https://openrouter.ai/api/v1/chat/completions"
	defaultAnalysisModel          = "google/gemini-3-flash-preview"
	defaultAnalysisTimeoutSeconds = 60
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Analysis: Analysis{
			Enabled:        false,
			BaseURL:        defaultAnalysisBaseURL,
			Model:          defaultAnalysisModel,
			TimeoutSeconds: defaultAnalysisTimeoutSeconds,
		},
	}
}
