package config

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port        string `envconfig:"PORT" default:"8000"`
	Environment string `envconfig:"ENV" default:"development"`

	DBConnectionString string `envconfig:"DATABASE_URL" required:"true"`

	JWTSecret string `envconfig:"SUPABASE_JWT_SECRET" required:"true"`

	// Stripe settings
	StripeSecretKey       string `envconfig:"STRIPE_SECRET_KEY" required:"true"`
	StripeWebhookSecret   string `envconfig:"STRIPE_WEBHOOK_SECRET" required:"true"`
	StripePortalReturnURL string `envconfig:"STRIPE_PORTAL_RETURN_URL" default:"https://muilinguistics.netlify.app/account"`
	StripePriceBasic      string `envconfig:"STRIPE_PRICE_BASIC"`
	StripePricePro        string `envconfig:"STRIPE_PRICE_PRO"`

	// Audio storage (Supabase storage S3 endpoint)
	S3URL       string `envconfig:"SUPABASE_S3_URL" required:"true"`
	S3Bucket    string `envconfig:"SUPABASE_S3_BUCKET" default:"audio"`
	S3Region    string `envconfig:"SUPABASE_S3_REGION" default:"us-east-1"`
	S3AccessKey string `envconfig:"SUPABASE_S3_ACCESS_KEY" required:"true"`
	S3SecretKey string `envconfig:"SUPABASE_S3_SECRET_KEY" required:"true"`

	// Analysis pipeline settings
	GCPProjectID  string `envconfig:"GCP_PROJECT_ID" required:"true"`
	AnalysisTopic string `envconfig:"ANALYSIS_TOPIC" default:"audio_analysis_jobs"`

	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"https://muilinguistics.netlify.app,http://localhost:5173"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
