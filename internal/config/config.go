package config

import (
	"time"
)

// Config is the process-wide configuration, constructed once at startup and
// passed by injection into every component. Business logic never reads
// environment variables or other ambient state directly.
type Config struct {
	Environment  string             `mapstructure:"environment"`
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Kafka        KafkaConfig        `mapstructure:"kafka"`
	JWT          JWTConfig          `mapstructure:"jwt"`
	Security     SecurityConfig     `mapstructure:"security"`
	Verification VerificationConfig `mapstructure:"verification"`
	Notification NotificationConfig `mapstructure:"notification"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	User         string        `mapstructure:"user"`
	Password     string        `mapstructure:"password"`
	DBName       string        `mapstructure:"dbname"`
	SSLMode      string        `mapstructure:"sslmode"`
	MaxOpenConns int           `mapstructure:"max_open_conns"`
	MaxIdleConns int           `mapstructure:"max_idle_conns"`
	ConnMaxLife  time.Duration `mapstructure:"conn_max_life"`
	AutoMigrate  bool          `mapstructure:"auto_migrate"`
}

type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type JWTConfig struct {
	Secret               string        `mapstructure:"secret"`
	Issuer               string        `mapstructure:"issuer"`
	AccessTokenTTL       time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenTTL      time.Duration `mapstructure:"refresh_token_ttl"`
	ChallengeTokenTTL    time.Duration `mapstructure:"challenge_token_ttl"`
	ChallengeTokenSecret string        `mapstructure:"challenge_token_secret"`
}

type PasswordHashConfig struct {
	Memory      uint32 `mapstructure:"memory"`
	Iterations  uint32 `mapstructure:"iterations"`
	Parallelism uint8  `mapstructure:"parallelism"`
	SaltLength  uint32 `mapstructure:"salt_length"`
	KeyLength   uint32 `mapstructure:"key_length"`
}

type LockoutConfig struct {
	MaxFailedAttempts int           `mapstructure:"max_failed_attempts"`
	FailureWindow     time.Duration `mapstructure:"failure_window"`
	LockoutDuration   time.Duration `mapstructure:"lockout_duration"`
}

type SecurityConfig struct {
	// EncryptionKeyHex is the AES-256 key for data-at-rest encryption,
	// hex-encoded (64 characters). Loaded once; never rotated at runtime.
	EncryptionKeyHex string `mapstructure:"encryption_key_hex"`
	// AdminEmails is the allowlist of privileged accounts, matched by the
	// lookup hash of the normalized email.
	AdminEmails  []string           `mapstructure:"admin_emails"`
	PasswordHash PasswordHashConfig `mapstructure:"password_hash"`
	Lockout      LockoutConfig      `mapstructure:"lockout"`
	// DeviceTrustDuration is how long a "trust this device" grant lasts.
	DeviceTrustDuration time.Duration `mapstructure:"device_trust_duration"`
}

type VerificationConfig struct {
	// CodeTTL applies to login, email_verification and phone_verification
	// codes; PasswordResetTTL applies to password_reset codes.
	CodeTTL          time.Duration `mapstructure:"code_ttl"`
	PasswordResetTTL time.Duration `mapstructure:"password_reset_ttl"`
}

type NotificationConfig struct {
	Email EmailAPIConfig  `mapstructure:"email"`
	SMS   SMSVerifyConfig `mapstructure:"sms"`
}

type EmailAPIConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	FromAddress string        `mapstructure:"from_address"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type SMSVerifyConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	AccountID string        `mapstructure:"account_id"`
	AuthToken string        `mapstructure:"auth_token"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}
