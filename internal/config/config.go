package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type AppConfig struct {
	Port        int    `yaml:"port"`
	GinMode     string `yaml:"gin_mode"`
	MetricsPort int    `yaml:"metrics_port"`
	FrontendURL string `yaml:"frontend_url"`
}

type MongoConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type JWTConfig struct {
	Secret string `yaml:"secret"`
	Issuer string `yaml:"issuer"`
	TTL    string `yaml:"ttl"`
}

type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

type OAuthConfig struct {
	GoogleClientID     string `yaml:"google_client_id"`
	GoogleClientSecret string `yaml:"google_client_secret"`
	GoogleCallbackURL  string `yaml:"google_callback_url"`
}

type OTPConfig struct {
	TTL string `yaml:"ttl"`
}

type DispatchConfig struct {
	BatchSize   int    `yaml:"batch_size"`
	BatchDelay  string `yaml:"batch_delay"`
	SendTimeout string `yaml:"send_timeout"`
	SendRate    int    `yaml:"send_rate"`
}

type QueueConfig struct {
	Name         string `yaml:"name"`
	Attempts     int    `yaml:"attempts"`
	Backoff      string `yaml:"backoff"`
	Delay        string `yaml:"delay"`
	ProbeTimeout string `yaml:"probe_timeout"`
}

type CasbinConfig struct {
	ModelPath  string `yaml:"model_path"`
	PolicyPath string `yaml:"policy_path"`
}

type ConfigFile struct {
	App      AppConfig      `yaml:"app"`
	Mongo    MongoConfig    `yaml:"mongo"`
	Redis    RedisConfig    `yaml:"redis"`
	JWT      JWTConfig      `yaml:"jwt"`
	SMTP     SMTPConfig     `yaml:"smtp"`
	OAuth    OAuthConfig    `yaml:"oauth"`
	OTP      OTPConfig      `yaml:"otp"`
	Dispatch DispatchConfig `yaml:"dispatch"`
	Queue    QueueConfig    `yaml:"queue"`
	Casbin   CasbinConfig   `yaml:"casbin"`
}

// Config is the flattened runtime configuration.
type Config struct {
	Port        string
	GinMode     string
	MetricsPort string
	FrontendURL string

	MongoURI      string
	MongoDatabase string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret string
	JWTIssuer string
	JWTTTL    time.Duration

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SMTPFrom     string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleCallbackURL  string

	OTPTTL time.Duration

	DispatchBatchSize  int
	DispatchBatchDelay time.Duration
	SendTimeout        time.Duration
	SendRate           int

	QueueName         string
	QueueAttempts     int
	QueueBackoff      time.Duration
	QueueDelay        time.Duration
	QueueProbeTimeout time.Duration

	CasbinModelPath  string
	CasbinPolicyPath string
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func parseDuration(name, raw string, def time.Duration) (time.Duration, error) {
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration %q: %w", name, raw, err)
	}
	return d, nil
}

// Load reads config/config.yml and applies environment overrides for the
// secrets that should never live in the file.
func Load() (*Config, error) {
	configFile, err := loadConfigFile(env("CONFIG_PATH", "config/config.yml"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	jwtTTL, err := parseDuration("jwt.ttl", configFile.JWT.TTL, 24*time.Hour)
	if err != nil {
		return nil, err
	}
	otpTTL, err := parseDuration("otp.ttl", configFile.OTP.TTL, 5*time.Minute)
	if err != nil {
		return nil, err
	}
	batchDelay, err := parseDuration("dispatch.batch_delay", configFile.Dispatch.BatchDelay, time.Second)
	if err != nil {
		return nil, err
	}
	sendTimeout, err := parseDuration("dispatch.send_timeout", configFile.Dispatch.SendTimeout, 15*time.Second)
	if err != nil {
		return nil, err
	}
	queueBackoff, err := parseDuration("queue.backoff", configFile.Queue.Backoff, 2*time.Second)
	if err != nil {
		return nil, err
	}
	queueDelay, err := parseDuration("queue.delay", configFile.Queue.Delay, 5*time.Second)
	if err != nil {
		return nil, err
	}
	probeTimeout, err := parseDuration("queue.probe_timeout", configFile.Queue.ProbeTimeout, 2*time.Second)
	if err != nil {
		return nil, err
	}

	batchSize := configFile.Dispatch.BatchSize
	if batchSize <= 0 {
		batchSize = 10
	}
	sendRate := configFile.Dispatch.SendRate
	if sendRate <= 0 {
		sendRate = 1
	}
	attempts := configFile.Queue.Attempts
	if attempts <= 0 {
		attempts = 3
	}
	queueName := configFile.Queue.Name
	if queueName == "" {
		queueName = "email-processing"
	}

	return &Config{
		Port:        fmt.Sprintf("%d", configFile.App.Port),
		GinMode:     configFile.App.GinMode,
		MetricsPort: fmt.Sprintf("%d", configFile.App.MetricsPort),
		FrontendURL: env("FRONTEND_URL", configFile.App.FrontendURL),

		MongoURI:      env("MONGO_URI", configFile.Mongo.URI),
		MongoDatabase: configFile.Mongo.Database,

		RedisAddr:     env("REDIS_ADDR", configFile.Redis.Addr),
		RedisPassword: env("REDIS_PASSWORD", configFile.Redis.Password),
		RedisDB:       configFile.Redis.DB,

		JWTSecret: env("JWT_SECRET", configFile.JWT.Secret),
		JWTIssuer: configFile.JWT.Issuer,
		JWTTTL:    jwtTTL,

		SMTPHost:     env("SMTP_HOST", configFile.SMTP.Host),
		SMTPPort:     envInt("SMTP_PORT", configFile.SMTP.Port),
		SMTPUser:     env("EMAIL_USER", configFile.SMTP.User),
		SMTPPassword: env("EMAIL_PASSWORD", configFile.SMTP.Password),
		SMTPFrom:     env("EMAIL_FROM", configFile.SMTP.From),

		GoogleClientID:     env("GOOGLE_CLIENT_ID", configFile.OAuth.GoogleClientID),
		GoogleClientSecret: env("GOOGLE_CLIENT_SECRET", configFile.OAuth.GoogleClientSecret),
		GoogleCallbackURL:  env("GOOGLE_CALLBACK_URL", configFile.OAuth.GoogleCallbackURL),

		OTPTTL: otpTTL,

		DispatchBatchSize:  batchSize,
		DispatchBatchDelay: batchDelay,
		SendTimeout:        sendTimeout,
		SendRate:           sendRate,

		QueueName:         queueName,
		QueueAttempts:     attempts,
		QueueBackoff:      queueBackoff,
		QueueDelay:        queueDelay,
		QueueProbeTimeout: probeTimeout,

		CasbinModelPath:  configFile.Casbin.ModelPath,
		CasbinPolicyPath: configFile.Casbin.PolicyPath,
	}, nil
}

func loadConfigFile(path string) (*ConfigFile, error) {
	bytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read config file at %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(bytes, &config); err != nil {
		return nil, fmt.Errorf("could not parse config yaml: %w", err)
	}

	return &config, nil
}
