package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	awspkg "marketplace-service/pkg/aws"
)

// Config holds all configuration for the marketplace service.
type Config struct {
	Env         string
	Port        string
	FrontendURL string

	DBDriver         string // postgres | mysql | sqlite
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresHost     string
	PostgresPort     string
	PostgresSSLMode  string
	PostgresTimeZone string
	MySQLDSN         string
	SQLitePath       string

	RedisURL     string
	SessionTTL   time.Duration
	CartTTL      time.Duration
	JWTSecret    string
	CookieSecure bool
	CookieDomain string

	StripeSecretKey  string
	StripeWebhookKey string
	Currency         string
	DeliveryFeeCents int64

	CommissionPercent int
	// AllowApplicationReReview lets admins change the decision on an already
	// reviewed application.
	AllowApplicationReReview bool

	EmailAPIURL          string
	EmailAPIKey          string
	EmailSenderAddress   string
	EmailSenderName      string
	NotificationQueueURL string
	Templates            TemplateIDs

	EventsTransport   string // sns | kafka | none
	EventsSNSTopicARN string
	KafkaBrokers      []string
	KafkaTopic        string

	AWSRegion             string
	AWSEndpoint           string
	AWSAccessKeyID        string
	AWSSecretAccessKey    string
	AWSUseSecrets         bool
	SecretsPrefix         string
	S3Bucket              string
	S3PublicBaseURL       string
	UploadURLExpiry       time.Duration
	CloudWatchEnabled     bool
	CloudWatchNamespace   string
	CloudWatchLogsEnabled bool
	CloudWatchLogGroup    string

	AllowedOrigins     []string
	AuthRatePerMinute  int
	AuthRateBurst      int
	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
	WebhookMaxBodySize int64
}

// TemplateIDs maps notification kinds to transactional-email template ids.
type TemplateIDs struct {
	EmailVerification   int64
	OrderConfirmation   int64
	GroupOrderConfirmed int64
	LoyaltyCoupon       int64
	ApplicationApproved int64
	ApplicationRejected int64
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", "development")
	v.SetDefault("PORT", "8080")
	v.SetDefault("FRONTEND_URL", "http://localhost:3000")
	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("POSTGRES_PORT", "5432")
	v.SetDefault("POSTGRES_SSLMODE", "disable")
	v.SetDefault("POSTGRES_TIMEZONE", "UTC")
	v.SetDefault("SQLITE_PATH", "marketplace.db")
	v.SetDefault("REDIS_URL", "redis://localhost:6379/0")
	v.SetDefault("SESSION_TTL", "24h")
	v.SetDefault("CART_TTL", "168h")
	v.SetDefault("COOKIE_SECURE", true)
	v.SetDefault("CURRENCY", "eur")
	v.SetDefault("DELIVERY_FEE_CENTS", 1500)
	v.SetDefault("COMMISSION_PERCENT", 10)
	v.SetDefault("ALLOW_APPLICATION_RE_REVIEW", false)
	v.SetDefault("EMAIL_API_URL", "https://api.brevo.com/v3/smtp/email")
	v.SetDefault("EMAIL_SENDER_NAME", "Local Market")
	v.SetDefault("TEMPLATE_EMAIL_VERIFICATION", 1)
	v.SetDefault("TEMPLATE_ORDER_CONFIRMATION", 2)
	v.SetDefault("TEMPLATE_GROUP_ORDER_CONFIRMED", 3)
	v.SetDefault("TEMPLATE_LOYALTY_COUPON", 4)
	v.SetDefault("TEMPLATE_APPLICATION_APPROVED", 5)
	v.SetDefault("TEMPLATE_APPLICATION_REJECTED", 6)
	v.SetDefault("EVENTS_TRANSPORT", "none")
	v.SetDefault("KAFKA_TOPIC", "marketplace-events")
	v.SetDefault("AWS_REGION", "eu-west-2")
	v.SetDefault("SECRETS_PREFIX", "marketplace")
	v.SetDefault("UPLOAD_URL_EXPIRY", "15m")
	v.SetDefault("CLOUDWATCH_NAMESPACE", "Marketplace")
	v.SetDefault("CLOUDWATCH_LOG_GROUP", "/marketplace/api")
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:3000")
	v.SetDefault("AUTH_RATE_PER_MINUTE", 30)
	v.SetDefault("AUTH_RATE_BURST", 10)
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("SHUTDOWN_TIMEOUT", "10s")
	v.SetDefault("WEBHOOK_MAX_BODY_SIZE", 65536)
}

// LoadConfig reads .env (if present) and the environment, applies defaults and
// optional Secrets Manager overrides, then validates the result.
func LoadConfig(ctx context.Context) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		Env:         v.GetString("ENV"),
		Port:        v.GetString("PORT"),
		FrontendURL: strings.TrimSuffix(v.GetString("FRONTEND_URL"), "/"),

		DBDriver:         strings.ToLower(v.GetString("DB_DRIVER")),
		PostgresUser:     v.GetString("POSTGRES_USER"),
		PostgresPassword: v.GetString("POSTGRES_PASSWORD"),
		PostgresDB:       v.GetString("POSTGRES_DB"),
		PostgresHost:     v.GetString("POSTGRES_HOST"),
		PostgresPort:     v.GetString("POSTGRES_PORT"),
		PostgresSSLMode:  v.GetString("POSTGRES_SSLMODE"),
		PostgresTimeZone: v.GetString("POSTGRES_TIMEZONE"),
		MySQLDSN:         v.GetString("MYSQL_DSN"),
		SQLitePath:       v.GetString("SQLITE_PATH"),

		RedisURL:     v.GetString("REDIS_URL"),
		SessionTTL:   v.GetDuration("SESSION_TTL"),
		CartTTL:      v.GetDuration("CART_TTL"),
		JWTSecret:    strings.TrimSpace(v.GetString("JWT_SECRET")),
		CookieSecure: v.GetBool("COOKIE_SECURE"),
		CookieDomain: v.GetString("COOKIE_DOMAIN"),

		StripeSecretKey:  v.GetString("STRIPE_API_KEY"),
		StripeWebhookKey: v.GetString("STRIPE_WEBHOOK_SECRET"),
		Currency:         strings.ToLower(v.GetString("CURRENCY")),
		DeliveryFeeCents: v.GetInt64("DELIVERY_FEE_CENTS"),

		CommissionPercent:        v.GetInt("COMMISSION_PERCENT"),
		AllowApplicationReReview: v.GetBool("ALLOW_APPLICATION_RE_REVIEW"),

		EmailAPIURL:          v.GetString("EMAIL_API_URL"),
		EmailAPIKey:          v.GetString("EMAIL_API_KEY"),
		EmailSenderAddress:   v.GetString("EMAIL_SENDER_ADDRESS"),
		EmailSenderName:      v.GetString("EMAIL_SENDER_NAME"),
		NotificationQueueURL: v.GetString("NOTIFICATION_QUEUE_URL"),
		Templates: TemplateIDs{
			EmailVerification:   v.GetInt64("TEMPLATE_EMAIL_VERIFICATION"),
			OrderConfirmation:   v.GetInt64("TEMPLATE_ORDER_CONFIRMATION"),
			GroupOrderConfirmed: v.GetInt64("TEMPLATE_GROUP_ORDER_CONFIRMED"),
			LoyaltyCoupon:       v.GetInt64("TEMPLATE_LOYALTY_COUPON"),
			ApplicationApproved: v.GetInt64("TEMPLATE_APPLICATION_APPROVED"),
			ApplicationRejected: v.GetInt64("TEMPLATE_APPLICATION_REJECTED"),
		},

		EventsTransport:   strings.ToLower(v.GetString("EVENTS_TRANSPORT")),
		EventsSNSTopicARN: v.GetString("EVENTS_SNS_TOPIC_ARN"),
		KafkaBrokers:      splitList(v.GetString("KAFKA_BROKERS")),
		KafkaTopic:        v.GetString("KAFKA_TOPIC"),

		AWSRegion:             v.GetString("AWS_REGION"),
		AWSEndpoint:           v.GetString("AWS_ENDPOINT"),
		AWSAccessKeyID:        v.GetString("AWS_ACCESS_KEY_ID"),
		AWSSecretAccessKey:    v.GetString("AWS_SECRET_ACCESS_KEY"),
		AWSUseSecrets:         v.GetBool("AWS_USE_SECRETS"),
		SecretsPrefix:         v.GetString("SECRETS_PREFIX"),
		S3Bucket:              v.GetString("S3_BUCKET"),
		S3PublicBaseURL:       v.GetString("S3_PUBLIC_BASE_URL"),
		UploadURLExpiry:       v.GetDuration("UPLOAD_URL_EXPIRY"),
		CloudWatchEnabled:     v.GetBool("CLOUDWATCH_ENABLED"),
		CloudWatchNamespace:   v.GetString("CLOUDWATCH_NAMESPACE"),
		CloudWatchLogsEnabled: v.GetBool("CLOUDWATCH_LOGS_ENABLED"),
		CloudWatchLogGroup:    v.GetString("CLOUDWATCH_LOG_GROUP"),

		AllowedOrigins:     splitList(v.GetString("ALLOWED_ORIGINS")),
		AuthRatePerMinute:  v.GetInt("AUTH_RATE_PER_MINUTE"),
		AuthRateBurst:      v.GetInt("AUTH_RATE_BURST"),
		RequestTimeout:     v.GetDuration("REQUEST_TIMEOUT"),
		ShutdownTimeout:    v.GetDuration("SHUTDOWN_TIMEOUT"),
		WebhookMaxBodySize: v.GetInt64("WEBHOOK_MAX_BODY_SIZE"),
	}

	if cfg.AWSUseSecrets {
		if err := cfg.applySecrets(ctx); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// secretSource is satisfied by *awspkg.SecretsClient.
type secretSource interface {
	GetSecretMap(ctx context.Context, name string) (map[string]string, error)
}

func (c *Config) applySecrets(ctx context.Context) error {
	awsCfg, err := awspkg.LoadAWSConfig(ctx, c.AWSOptions())
	if err != nil {
		return err
	}
	return c.ApplySecretOverrides(ctx, awspkg.NewSecretsClient(awsCfg))
}

// ApplySecretOverrides replaces credentials with values stored under
// <prefix>/DB_CREDENTIALS and <prefix>/APP_SECRETS. Missing keys are left alone.
func (c *Config) ApplySecretOverrides(ctx context.Context, sm secretSource) error {
	db, err := sm.GetSecretMap(ctx, c.SecretsPrefix+"/DB_CREDENTIALS")
	if err != nil {
		return fmt.Errorf("load db credentials: %w", err)
	}
	override(&c.PostgresUser, db["POSTGRES_USER"])
	override(&c.PostgresPassword, db["POSTGRES_PASSWORD"])
	override(&c.PostgresDB, db["POSTGRES_DB"])
	override(&c.PostgresHost, db["POSTGRES_HOST"])
	override(&c.PostgresPort, db["POSTGRES_PORT"])
	override(&c.MySQLDSN, db["MYSQL_DSN"])

	app, err := sm.GetSecretMap(ctx, c.SecretsPrefix+"/APP_SECRETS")
	if err != nil {
		return fmt.Errorf("load app secrets: %w", err)
	}
	override(&c.JWTSecret, app["JWT_SECRET"])
	override(&c.StripeSecretKey, app["STRIPE_API_KEY"])
	override(&c.StripeWebhookKey, app["STRIPE_WEBHOOK_SECRET"])
	override(&c.EmailAPIKey, app["EMAIL_API_KEY"])
	return nil
}

// Validate checks that every required setting is present.
func (c *Config) Validate() error {
	var missing []string
	switch c.DBDriver {
	case "postgres":
		if c.PostgresUser == "" || c.PostgresPassword == "" || c.PostgresDB == "" || c.PostgresHost == "" {
			missing = append(missing, "POSTGRES_*")
		}
	case "mysql":
		if c.MySQLDSN == "" {
			missing = append(missing, "MYSQL_DSN")
		}
	case "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if c.StripeSecretKey == "" || c.StripeWebhookKey == "" {
		missing = append(missing, "STRIPE_API_KEY/STRIPE_WEBHOOK_SECRET")
	}
	switch c.EventsTransport {
	case "none":
	case "sns":
		if c.EventsSNSTopicARN == "" {
			missing = append(missing, "EVENTS_SNS_TOPIC_ARN")
		}
	case "kafka":
		if len(c.KafkaBrokers) == 0 {
			missing = append(missing, "KAFKA_BROKERS")
		}
	default:
		return fmt.Errorf("unsupported EVENTS_TRANSPORT %q", c.EventsTransport)
	}
	if c.CommissionPercent < 0 || c.CommissionPercent > 100 {
		return fmt.Errorf("COMMISSION_PERCENT must be between 0 and 100")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

func (c *Config) AWSOptions() awspkg.Options {
	return awspkg.Options{
		Region:          c.AWSRegion,
		Endpoint:        c.AWSEndpoint,
		AccessKeyID:     c.AWSAccessKeyID,
		SecretAccessKey: c.AWSSecretAccessKey,
	}
}

// UsesAWS reports whether any AWS-backed component is enabled.
func (c *Config) UsesAWS() bool {
	return c.S3Bucket != "" || c.NotificationQueueURL != "" || c.EventsTransport == "sns" ||
		c.CloudWatchEnabled || c.CloudWatchLogsEnabled
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(part), "/")); p != "" {
			out = append(out, p)
		}
	}
	return out
}
