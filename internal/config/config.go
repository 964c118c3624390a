package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config - настройки обоих бинарников: API форума и воркера уведомлений.
type Config struct {
	Env      string
	Port     string
	LogLevel string

	Storage     string // in-memory или postgres
	DatabaseURL string

	IdentityAddr    string
	IdentityTimeout time.Duration

	PubSubProject       string
	CommentCreatedTopic string
	NotifierSub         string
	PublishAckTimeout   time.Duration
	PublishWorkers      int
	MaxOutstanding      int

	SendGridAPIKey string
	MailFrom       string
	MailFromName   string

	SentryDSN string
	Version   string
}

// IsLocal сообщает, запущен ли сервис локально.
func (c *Config) IsLocal() bool {
	return c.Env == "local"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", "local")
	v.SetDefault("PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("STORAGE", "in-memory")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("IDENTITY_ADDR", "localhost:9090")
	v.SetDefault("IDENTITY_TIMEOUT", "2s")
	v.SetDefault("GOOGLE_CLOUD_PROJECT", "forum-local")
	v.SetDefault("PUBSUB_TOPIC_COMMENT_CREATED", "comment.created")
	v.SetDefault("PUBSUB_SUB_NOTIFIER", "comment.created.notifier")
	v.SetDefault("PUBLISH_ACK_TIMEOUT", "30s")
	v.SetDefault("PUBLISH_WORKERS", 8)
	v.SetDefault("NOTIFIER_MAX_OUTSTANDING", 100)
	v.SetDefault("SENDGRID_API_KEY", "")
	v.SetDefault("MAIL_FROM", "studyapp@forumapp.com")
	v.SetDefault("MAIL_FROM_NAME", "Forum")
	v.SetDefault("SENTRY_DSN", "")
	v.SetDefault("VERSION", "")
}

// positiveDuration возвращает fallback, если значение не разобралось или не больше нуля.
func positiveDuration(v *viper.Viper, key string, fallback time.Duration) time.Duration {
	if d := v.GetDuration(key); d > 0 {
		return d
	}
	return fallback
}

// Load читает .env (если он есть) и переменные окружения поверх значений по умолчанию.
func Load() *Config {
	// Отсутствие .env - нормальная ситуация
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	return &Config{
		Env:                 v.GetString("ENV"),
		Port:                v.GetString("PORT"),
		LogLevel:            v.GetString("LOG_LEVEL"),
		Storage:             v.GetString("STORAGE"),
		DatabaseURL:         v.GetString("DATABASE_URL"),
		IdentityAddr:        v.GetString("IDENTITY_ADDR"),
		IdentityTimeout:     positiveDuration(v, "IDENTITY_TIMEOUT", 2*time.Second),
		PubSubProject:       v.GetString("GOOGLE_CLOUD_PROJECT"),
		CommentCreatedTopic: v.GetString("PUBSUB_TOPIC_COMMENT_CREATED"),
		NotifierSub:         v.GetString("PUBSUB_SUB_NOTIFIER"),
		PublishAckTimeout:   positiveDuration(v, "PUBLISH_ACK_TIMEOUT", 30*time.Second),
		PublishWorkers:      v.GetInt("PUBLISH_WORKERS"),
		MaxOutstanding:      v.GetInt("NOTIFIER_MAX_OUTSTANDING"),
		SendGridAPIKey:      v.GetString("SENDGRID_API_KEY"),
		MailFrom:            v.GetString("MAIL_FROM"),
		MailFromName:        v.GetString("MAIL_FROM_NAME"),
		SentryDSN:           v.GetString("SENTRY_DSN"),
		Version:             v.GetString("VERSION"),
	}
}
