package config

type Config interface {
	EnvConfig
	CorsConfig
	SecurityConfig
	AttendanceConfig
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
	Security
	Attendance
}

func New() Config {
	return mainConfig{}
}
