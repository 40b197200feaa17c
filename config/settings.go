package config

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Settings is the resolved configuration handed to every component.
type Settings struct {
	Env Environment

	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	DBType       string
	DatabaseURL  string
	DBHost       string
	DBUser       string
	DBPassword   string
	DBName       string
	DBPort       string
	DBSSLMode    string
	ReplicaDSNs  []string
	MaxOpenConns int
	MaxIdleConns int

	SupabaseURL string
	JWTSecret   string

	StorageDriver string
	Bucket        string
	S3Endpoint    string
	S3Region      string
	S3AccessKey   string
	S3SecretKey   string
	CDNDomain     string
	MaxUploadMB   int

	AcceptedOrigins []string
	InvitePrefix    string
	InviteTTL       time.Duration
	ResendAPIKey    string
	MailFrom        string
	SiteURL         string

	LogLevel       string
	EditSessionTTL time.Duration

	GenerateModels bool
	ColumnReport   bool
}

// Build resolves the environment and reads every setting from values.
func Build(values map[string]string) Settings {
	env := ResolveEnvironment(values)
	c := NewScoped(env, values)

	s := Settings{
		Env:          env,
		Port:         c.String("PORT", "8080"),
		ReadTimeout:  c.Duration("READ_TIMEOUT_SECONDS", 180*time.Second),
		WriteTimeout: c.Duration("WRITE_TIMEOUT_SECONDS", 180*time.Second),
		IdleTimeout:  c.Duration("IDLE_TIMEOUT_SECONDS", 180*time.Second),

		DBType:       strings.ToLower(c.String("DB_TYPE", "supa")),
		DatabaseURL:  c.String("DATABASE_URL", ""),
		DBHost:       c.String("SUPABASE_DB_HOST", ""),
		DBUser:       c.String("SUPABASE_DB_USER", ""),
		DBPassword:   c.String("SUPABASE_DB_PASSWORD", ""),
		DBName:       c.String("SUPABASE_DB_NAME", "postgres"),
		DBPort:       c.String("SUPABASE_DB_PORT", "5432"),
		DBSSLMode:    c.String("SUPABASE_DB_SSLMODE", "require"),
		ReplicaDSNs:  c.List("DB_REPLICA_DSNS"),
		MaxOpenConns: c.Int("DB_MAX_OPEN_CONNS", 20),
		MaxIdleConns: c.Int("DB_MAX_IDLE_CONNS", 5),

		SupabaseURL: strings.TrimRight(c.String("SUPABASE_URL", ""), "/"),
		JWTSecret:   c.String("SUPABASE_JWT_SECRET", ""),

		StorageDriver: strings.ToLower(c.String("STORAGE_DRIVER", "s3")),
		Bucket:        c.String("STORAGE_BUCKET", "project-images"),
		S3Endpoint:    c.String("S3_ENDPOINT", ""),
		S3Region:      c.String("S3_REGION", "us-east-1"),
		S3AccessKey:   c.String("S3_ACCESS_KEY_ID", ""),
		S3SecretKey:   c.String("S3_SECRET_ACCESS_KEY", ""),
		CDNDomain:     c.String("CDN_DOMAIN", ""),
		MaxUploadMB:   c.Int("MAX_UPLOAD_MB", 40),

		AcceptedOrigins: c.List("ACCEPTED_ORIGINS"),
		InvitePrefix:    strings.ToUpper(c.String("INVITE_PREFIX", "HZN")),
		InviteTTL:       c.Duration("INVITE_TTL", 30*24*time.Hour),
		ResendAPIKey:    c.String("RESEND_API_KEY", ""),
		MailFrom:        c.String("MAIL_FROM", "Horizons Archive <no-reply@horizons-db.org>"),
		SiteURL:         strings.TrimRight(c.String("SITE_URL", ""), "/"),

		LogLevel:       c.String("LOG_LEVEL", defaultLogLevel(env)),
		EditSessionTTL: c.Duration("EDIT_SESSION_TTL", 2*time.Hour),

		GenerateModels: c.Bool("GENERATE_MODELS", false),
		ColumnReport:   c.Bool("GENERATE_COLUMN_REPORT", false),
	}
	if s.S3Endpoint == "" && s.SupabaseURL != "" {
		s.S3Endpoint = s.SupabaseURL + "/storage/v1/s3"
	}
	return s
}

func defaultLogLevel(env Environment) string {
	if env == Dev {
		return "debug"
	}
	return "info"
}

// Load layers CONFIG_FILE, then SSM_PARAMETER_PATH, then the process
// environment, and builds Settings from the result.
func Load(ctx context.Context) (Settings, error) {
	env := New()
	layers := []map[string]string{}

	if path := GetString(env, "CONFIG_FILE", ""); path != "" {
		fileValues, err := LoadFile(path)
		if err != nil {
			return Settings{}, err
		}
		layers = append(layers, fileValues)
	}

	if prefix := GetString(env, "SSM_PARAMETER_PATH", ""); prefix != "" {
		client, err := NewSSMClient(ctx, GetString(env, "AWS_REGION", ""))
		if err != nil {
			return Settings{}, err
		}
		params, err := LoadSSM(ctx, client, prefix)
		if err != nil {
			return Settings{}, err
		}
		layers = append(layers, params)
	}

	layers = append(layers, env)
	s := Build(Merge(layers...))
	return s, s.Validate()
}

// Validate reports settings that make the server unusable.
func (s Settings) Validate() error {
	var missing []string
	if s.DBType == "supa" && s.DatabaseURL == "" && s.DBHost == "" {
		missing = append(missing, "SUPABASE_DB_HOST or DATABASE_URL")
	}
	if s.JWTSecret == "" {
		missing = append(missing, "SUPABASE_JWT_SECRET")
	}
	switch s.StorageDriver {
	case "s3":
		if s.S3Endpoint == "" {
			missing = append(missing, "S3_ENDPOINT or SUPABASE_URL")
		}
	case "gcs", "memory":
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", s.StorageDriver)
	}
	switch s.DBType {
	case "supa", "memory":
	default:
		return fmt.Errorf("unknown DB_TYPE %q", s.DBType)
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing configuration for %s: %s", s.Env, strings.Join(missing, ", "))
	}
	return nil
}

// DSN is the primary connection string.
func (s Settings) DSN() string {
	if s.DatabaseURL != "" {
		return s.DatabaseURL
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		s.DBHost, s.DBUser, s.DBPassword, s.DBName, s.DBPort, s.DBSSLMode)
}

// PublicStorageURL is the base of public object URLs for the S3 driver.
func (s Settings) PublicStorageURL() string {
	if s.CDNDomain != "" {
		return "https://" + s.CDNDomain
	}
	if s.SupabaseURL != "" {
		return s.SupabaseURL + "/storage/v1/object/public"
	}
	return ""
}
