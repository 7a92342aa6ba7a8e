package config

import (
	"time"

	"github.com/TimzAjes16/echoID/internal/coercion"
	"github.com/TimzAjes16/echoID/internal/util"
)

// EchoServer holds the HTTP listener settings.
type EchoServer struct {
	ListenAddress                  string
	HideInternalServerErrorDetails bool
}

// LoggerServer holds the zerolog settings.
type LoggerServer struct {
	Level              string
	PrettyPrintConsole bool
}

// ChainServer holds the on-chain collaborator parameters.
type ChainServer struct {
	ChainID          int64
	FeeWei           string
	Treasury         string
	ContractAddress  string
	DirectoryBaseURL string
	BlobBaseURL      string
	DeepLinkScheme   string
	CallTimeout      time.Duration
}

// ConsentServer holds the consent lifecycle parameters.
type ConsentServer struct {
	LockDuration          time.Duration
	SimulatedConfirmDelay time.Duration
	DeviceKeyLabel        string
}

// StorageServer holds the persisted local state settings.
type StorageServer struct {
	BasePath         string
	EncryptionSecret string
	UseRedis         bool
}

// RedisServer holds the optional hosted consent-store backend settings.
type RedisServer struct {
	Addr     string
	Password string
	DB       int
}

// Server is the central configuration struct, populated from the
// environment once at startup and passed by value to the components that
// need it.
type Server struct {
	Echo     EchoServer
	Logger   LoggerServer
	Chain    ChainServer
	Consent  ConsentServer
	Coercion coercion.Config
	Storage  StorageServer
	Redis    RedisServer
}

// DefaultServiceConfigFromEnv returns the server config with all values
// taken from the environment, falling back to development defaults.
func DefaultServiceConfigFromEnv() Server {
	return Server{
		Echo: EchoServer{
			ListenAddress:                  util.GetEnv("ECHOID_SERVER_LISTEN_ADDRESS", ":8080"),
			HideInternalServerErrorDetails: util.GetEnvAsBool("ECHOID_SERVER_HIDE_INTERNAL_ERRORS", true),
		},
		Logger: LoggerServer{
			Level:              util.GetEnv("ECHOID_LOGGER_LEVEL", "info"),
			PrettyPrintConsole: util.GetEnvAsBool("ECHOID_LOGGER_PRETTY", false),
		},
		Chain: ChainServer{
			ChainID:          util.GetEnvAsInt64("ECHOID_CHAIN_ID", 8453),
			FeeWei:           util.GetEnv("ECHOID_CHAIN_FEE_WEI", "100000000000000"),
			Treasury:         util.GetEnv("ECHOID_CHAIN_TREASURY", ""),
			ContractAddress:  util.GetEnv("ECHOID_CHAIN_CONTRACT_ADDRESS", ""),
			DirectoryBaseURL: util.GetEnv("ECHOID_DIRECTORY_BASE_URL", "https://api.echoid.app"),
			BlobBaseURL:      util.GetEnv("ECHOID_BLOB_BASE_URL", "http://127.0.0.1:5001"),
			DeepLinkScheme:   util.GetEnv("ECHOID_DEEP_LINK_SCHEME", "echoid"),
			CallTimeout:      util.GetEnvAsDuration("ECHOID_CHAIN_CALL_TIMEOUT", 30*time.Second),
		},
		Consent: ConsentServer{
			LockDuration:          util.GetEnvAsDuration("ECHOID_CONSENT_LOCK_DURATION", 24*time.Hour),
			SimulatedConfirmDelay: util.GetEnvAsDuration("ECHOID_CONSENT_SIMULATED_DELAY", 2*time.Second),
			DeviceKeyLabel:        util.GetEnv("ECHOID_DEVICE_KEY_LABEL", "echoid-device-key"),
		},
		Coercion: coercionConfigFromEnv(),
		Storage: StorageServer{
			BasePath:         util.GetEnv("ECHOID_STORAGE_BASE_PATH", "/var/lib/echoid"),
			EncryptionSecret: util.GetEnv("ECHOID_STORAGE_ENCRYPTION_SECRET", "development-only-secret"),
			UseRedis:         util.GetEnvAsBool("ECHOID_STORAGE_USE_REDIS", false),
		},
		Redis: RedisServer{
			Addr:     util.GetEnv("ECHOID_REDIS_ADDR", "127.0.0.1:6379"),
			Password: util.GetEnv("ECHOID_REDIS_PASSWORD", ""),
			DB:       util.GetEnvAsInt("ECHOID_REDIS_DB", 0),
		},
	}
}

func coercionConfigFromEnv() coercion.Config {
	def := coercion.DefaultConfig()
	return coercion.Config{
		SpeechRateHighWPM:     util.GetEnvAsFloat64("ECHOID_COERCION_RATE_HIGH_WPM", def.SpeechRateHighWPM),
		SpeechRateHighPoints:  util.GetEnvAsInt("ECHOID_COERCION_RATE_HIGH_POINTS", def.SpeechRateHighPoints),
		SpeechRateLowWPM:      util.GetEnvAsFloat64("ECHOID_COERCION_RATE_LOW_WPM", def.SpeechRateLowWPM),
		SpeechRateLowPoints:   util.GetEnvAsInt("ECHOID_COERCION_RATE_LOW_POINTS", def.SpeechRateLowPoints),
		PauseCountMax:         util.GetEnvAsInt("ECHOID_COERCION_PAUSE_COUNT_MAX", def.PauseCountMax),
		PauseCountPoints:      util.GetEnvAsInt("ECHOID_COERCION_PAUSE_COUNT_POINTS", def.PauseCountPoints),
		AvgPauseMaxMs:         util.GetEnvAsFloat64("ECHOID_COERCION_AVG_PAUSE_MAX_MS", def.AvgPauseMaxMs),
		AvgPausePoints:        util.GetEnvAsInt("ECHOID_COERCION_AVG_PAUSE_POINTS", def.AvgPausePoints),
		JitterMax:             util.GetEnvAsFloat64("ECHOID_COERCION_JITTER_MAX", def.JitterMax),
		JitterPoints:          util.GetEnvAsInt("ECHOID_COERCION_JITTER_POINTS", def.JitterPoints),
		VolumeVariationMax:    util.GetEnvAsFloat64("ECHOID_COERCION_VOLUME_VARIATION_MAX", def.VolumeVariationMax),
		VolumeVariationPoints: util.GetEnvAsInt("ECHOID_COERCION_VOLUME_VARIATION_POINTS", def.VolumeVariationPoints),
		AmberScore:            util.GetEnvAsInt("ECHOID_COERCION_AMBER_SCORE", def.AmberScore),
		RedScore:              util.GetEnvAsInt("ECHOID_COERCION_RED_SCORE", def.RedScore),
	}
}
