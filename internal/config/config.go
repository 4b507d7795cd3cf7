package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Environment    string // ENV: production, development, etc.
	Port           string
	Host           string   // Raw HOST env (e.g. https://api.mindmatch.ie)
	AllowedHost    string   // Hostname only for strict host check (production only)
	FrontendURL    string   // Used to build booking and dashboard links in emails
	AllowedOrigins []string // CORS: from ALLOWED_ORIGINS or FRONTEND_URL(s)

	PostgresURI   string
	RedisURI      string
	MongoURI      string
	EncryptionKey string // base64, 32 bytes; encrypts client contact details

	CloudinaryName      string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string
	CloudinaryFolder    string

	AWSRegion         string
	FromEmail         string
	EmailEnabled      bool
	SMSEnabled        bool
	ClinicalLeadPhone string // E.164, receives crisis referral alerts

	MatchingRulesFile    string
	MatchingDefaultLimit int
	TherapistCacheTTL    time.Duration

	LogLevel  string
	LogFormat string
}

// Load reads configuration from the environment, plus an optional file named
// by CONFIG_FILE. Environment variables win over the file.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	if err := v.BindEnv("mongodb_uri", "MONGODB_URI", "MONGO_URI"); err != nil {
		return nil, fmt.Errorf("bind MONGODB_URI: %w", err)
	}

	if file := v.GetString("config_file"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", file, err)
		}
	}

	env := strings.ToLower(strings.TrimSpace(v.GetString("env")))
	host := v.GetString("host")

	// AllowedHost is only set in production; host check is skipped in development
	var allowedHost string
	if env == "production" {
		allowedHost = bareHost(host)
	}

	cfg := &Config{
		Environment:    env,
		Port:           v.GetString("port"),
		Host:           host,
		AllowedHost:    allowedHost,
		FrontendURL:    strings.TrimRight(v.GetString("frontend_url"), "/"),
		AllowedOrigins: allowedOrigins(v, host),

		PostgresURI:   v.GetString("postgres_uri"),
		RedisURI:      v.GetString("redis_uri"),
		MongoURI:      v.GetString("mongodb_uri"),
		EncryptionKey: v.GetString("encryption_key"),

		CloudinaryName:      v.GetString("cloudinary_cloud_name"),
		CloudinaryAPIKey:    v.GetString("cloudinary_api_key"),
		CloudinaryAPISecret: v.GetString("cloudinary_api_secret"),
		CloudinaryFolder:    v.GetString("cloudinary_folder"),

		AWSRegion:         v.GetString("aws_region"),
		FromEmail:         v.GetString("ses_from_email"),
		EmailEnabled:      v.GetBool("email_enabled"),
		SMSEnabled:        v.GetBool("sms_enabled"),
		ClinicalLeadPhone: v.GetString("clinical_lead_phone"),

		MatchingRulesFile:    v.GetString("matching_rules_file"),
		MatchingDefaultLimit: v.GetInt("matching_default_limit"),
		TherapistCacheTTL:    v.GetDuration("therapist_cache_ttl"),

		LogLevel:  strings.ToLower(v.GetString("log_level")),
		LogFormat: strings.ToLower(v.GetString("log_format")),
	}

	if cfg.SMSEnabled && cfg.ClinicalLeadPhone == "" {
		return nil, fmt.Errorf("SMS_ENABLED requires CLINICAL_LEAD_PHONE")
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "development")
	v.SetDefault("port", "8080")
	v.SetDefault("host", "http://localhost:8080")
	v.SetDefault("frontend_url", "http://localhost:3000")
	v.SetDefault("frontend_url_2", "")
	v.SetDefault("frontend_url_3", "")
	v.SetDefault("allowed_origins", "")
	v.SetDefault("config_file", "")

	v.SetDefault("postgres_uri", "postgres://localhost:5432/mindmatch?sslmode=disable")
	v.SetDefault("redis_uri", "redis://localhost:6379/0")
	v.SetDefault("mongodb_uri", "mongodb://localhost:27017/mindmatch")
	v.SetDefault("encryption_key", "")

	v.SetDefault("cloudinary_cloud_name", "")
	v.SetDefault("cloudinary_api_key", "")
	v.SetDefault("cloudinary_api_secret", "")
	v.SetDefault("cloudinary_folder", "mindmatch/therapist-documents")

	v.SetDefault("aws_region", "eu-west-1")
	v.SetDefault("ses_from_email", "MindMatch <noreply@mindmatch.ie>")
	v.SetDefault("email_enabled", false)
	v.SetDefault("sms_enabled", false)
	v.SetDefault("clinical_lead_phone", "")

	v.SetDefault("matching_rules_file", "")
	v.SetDefault("matching_default_limit", 3)
	v.SetDefault("therapist_cache_ttl", 5*time.Minute)

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
}

func allowedOrigins(v *viper.Viper, host string) []string {
	origins := parseOrigins(v.GetString("allowed_origins"))
	if len(origins) == 0 {
		for _, u := range []string{v.GetString("frontend_url"), v.GetString("frontend_url_2"), v.GetString("frontend_url_3")} {
			u = strings.TrimSpace(u)
			if u != "" {
				origins = append(origins, u)
			}
		}
	}

	// When HOST is a backend subdomain (api.mindmatch.ie), also allow
	// https://mindmatch.ie and https://www.mindmatch.ie
	h := bareHost(host)
	if h != "" && h != "localhost" {
		parts := strings.Split(h, ".")
		if len(parts) >= 3 {
			domain := strings.Join(parts[1:], ".")
			for _, origin := range []string{"https://" + domain, "https://www." + domain} {
				if !containsOrigin(origins, origin) {
					origins = append(origins, origin)
				}
			}
		}
	}
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	return origins
}

// bareHost strips scheme, path and port.
func bareHost(host string) string {
	for _, prefix := range []string{"https://", "http://"} {
		host = strings.TrimPrefix(host, prefix)
	}
	if idx := strings.Index(host, "/"); idx != -1 {
		host = host[:idx]
	}
	if idx := strings.Index(host, ":"); idx != -1 {
		host = host[:idx]
	}
	return strings.TrimSpace(host)
}

func parseOrigins(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func containsOrigin(list []string, o string) bool {
	o = strings.TrimSpace(strings.ToLower(o))
	for _, v := range list {
		if strings.TrimSpace(strings.ToLower(v)) == o {
			return true
		}
	}
	return false
}

// IsProduction returns true when ENV is set to "production".
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// CloudinaryConfigured reports whether document uploads can be enabled.
func (c *Config) CloudinaryConfigured() bool {
	return c.CloudinaryName != "" && c.CloudinaryAPIKey != "" && c.CloudinaryAPISecret != ""
}
