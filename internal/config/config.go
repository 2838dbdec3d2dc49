package config

type Config interface {
	EnvConfig
	CorsConfig
	AuthConfig
	EdgeConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Cors
	Auth
	Edge
}

func New() Config {
	return mainConfig{}
}
