package config

const (
	defaultStagingDir         = "~/.local/share/aivideodub/staging"
	defaultOutputDir          = "~/dubbed"
	defaultLogDir             = "~/.local/share/aivideodub/logs"
	defaultSourceLanguage     = "en"
	defaultTargetLanguage     = "pt"
	defaultSilenceThresholdDB = -30.0
	defaultSilenceMinDuration = 0.5
	defaultSTTBaseURL         = "https://api.openai.com/v1/audio/transcriptions"
	defaultSTTModel           = "whisper-1"
	defaultSTTTimeoutSeconds  = 300
	defaultTranslateBaseURL   = "https://api.openai.com/v1/chat/completions"
	defaultTranslateModel     = "gpt-4o-mini"
	defaultTranslateTimeout   = 120
	defaultTTSBaseURL         = "https://api.openai.com/v1/audio/speech"
	defaultTTSModel           = "tts-1"
	defaultTTSVoice           = "alloy"
	defaultTTSTimeoutSeconds  = 120
	defaultMinGapDuration     = 2.0
	defaultRatioEpsilon       = 0.02
	defaultTempoMinFactor     = 0.5
	defaultTempoMaxFactor     = 2.0
	defaultMaxTotalStretch    = 4.0
	defaultDurationTolerance  = 1.0
	defaultSynthesisWorkers   = 2
	defaultFFmpegBinary       = "ffmpeg"
	defaultFFprobeBinary      = "ffprobe"
	defaultYtDlpBinary        = "yt-dlp"
	defaultQueuePollInterval  = 5
	defaultLogLevel           = "info"
	defaultLogFormat          = "console"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir: defaultStagingDir,
			OutputDir:  defaultOutputDir,
			LogDir:     defaultLogDir,
		},
		Dubbing: Dubbing{
			SourceLanguage:     defaultSourceLanguage,
			TargetLanguage:     defaultTargetLanguage,
			SilenceThresholdDB: defaultSilenceThresholdDB,
			SilenceMinDuration: defaultSilenceMinDuration,
		},
		STT: STT{
			BaseURL:        defaultSTTBaseURL,
			Model:          defaultSTTModel,
			TimeoutSeconds: defaultSTTTimeoutSeconds,
		},
		Translate: Translate{
			BaseURL:        defaultTranslateBaseURL,
			Model:          defaultTranslateModel,
			TimeoutSeconds: defaultTranslateTimeout,
		},
		TTS: TTS{
			BaseURL:        defaultTTSBaseURL,
			Model:          defaultTTSModel,
			Voice:          defaultTTSVoice,
			TimeoutSeconds: defaultTTSTimeoutSeconds,
		},
		Alignment: Alignment{
			MinGapDuration:    defaultMinGapDuration,
			RatioEpsilon:      defaultRatioEpsilon,
			TempoMinFactor:    defaultTempoMinFactor,
			TempoMaxFactor:    defaultTempoMaxFactor,
			MaxTotalStretch:   defaultMaxTotalStretch,
			DurationTolerance: defaultDurationTolerance,
			SynthesisWorkers:  defaultSynthesisWorkers,
		},
		Tools: Tools{
			FFmpeg:  defaultFFmpegBinary,
			FFprobe: defaultFFprobeBinary,
			YtDlp:   defaultYtDlpBinary,
		},
		Workflow: Workflow{
			QueuePollInterval: defaultQueuePollInterval,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}
