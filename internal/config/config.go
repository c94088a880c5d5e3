package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth"     validate:"required"`
	Task     TaskConfig     `mapstructure:"task"     validate:"required"`
	Solver   SolverConfig   `mapstructure:"solver"   validate:"required"`
}

// ServerConfig contains all HTTP server related settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database related settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret                   string `mapstructure:"jwt_secret"                     validate:"required,min=32"`
	TokenLifetimeMinutes        int    `mapstructure:"token_lifetime_minutes"         validate:"required,gt=0"`
	RefreshTokenLifetimeMinutes int    `mapstructure:"refresh_token_lifetime_minutes" validate:"required,gt=0"`
	BcryptCost                  int    `mapstructure:"bcrypt_cost"                    validate:"omitempty,gte=4,lte=31"`
}

// TaskConfig contains background task processing settings.
type TaskConfig struct {
	WorkerCount         int `mapstructure:"worker_count"           validate:"required,gt=0"`
	QueueSize           int `mapstructure:"queue_size"             validate:"required,gt=0"`
	StuckTaskAgeMinutes int `mapstructure:"stuck_task_age_minutes" validate:"required,gt=0"`
}

// SolverConfig contains limits applied to solver runs.
type SolverConfig struct {
	// RunTimeoutSeconds bounds the wall-clock time of a single solver
	// execution.
	RunTimeoutSeconds int `mapstructure:"run_timeout_seconds" validate:"required,gt=0"`
}
