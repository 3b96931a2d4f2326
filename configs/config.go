package configs

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	OrphanPolicyLeave  = "leave"
	OrphanPolicyDetach = "detach"
)

type Config struct {
	Port string

	MongoURI string
	MongoDB  string
	// Transactions gates the coordinator's transactional write path. Set it
	// to false on standalone deployments to skip straight to the fallback
	// sequence instead of paying a failed attempt per write.
	Transactions bool

	JWTSecret string
	JWTTTL    time.Duration

	BcryptCost int

	// AdminCanEditComments lets admins edit comments they did not author.
	AdminCanEditComments bool
	// OrphanPolicy controls what happens to replies when their parent
	// comment is deleted: "leave" keeps the dangling parent reference,
	// "detach" promotes them to root comments.
	OrphanPolicy string

	// ReconcileSchedule is a cron expression for the periodic count repair
	// sweep. Empty disables the scheduler.
	ReconcileSchedule string
}

// Load reads configuration from a .env file (if present), an optional
// config.yaml, and the environment. Environment variables override file
// settings.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file found, relying on environment")
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{
		Port:                 viper.GetString("port"),
		MongoURI:             viper.GetString("mongo.uri"),
		MongoDB:              viper.GetString("mongo.db"),
		Transactions:         viper.GetBool("mongo.transactions"),
		JWTSecret:            viper.GetString("jwt.secret"),
		JWTTTL:               viper.GetDuration("jwt.ttl"),
		BcryptCost:           viper.GetInt("bcrypt.cost"),
		AdminCanEditComments: viper.GetBool("comments.admin_can_edit"),
		OrphanPolicy:         viper.GetString("comments.orphan_policy"),
		ReconcileSchedule:    viper.GetString("reconcile.schedule"),
	}

	if cfg.MongoURI == "" {
		return nil, fmt.Errorf("MONGO_URI is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.OrphanPolicy != OrphanPolicyLeave && cfg.OrphanPolicy != OrphanPolicyDetach {
		return nil, fmt.Errorf("comments.orphan_policy must be %q or %q", OrphanPolicyLeave, OrphanPolicyDetach)
	}
	return cfg, nil
}

func setDefaults() {
	viper.SetDefault("port", "3000")
	viper.SetDefault("mongo.db", "blog")
	viper.SetDefault("mongo.transactions", true)
	viper.SetDefault("jwt.ttl", 24*time.Hour)
	viper.SetDefault("bcrypt.cost", 10)
	viper.SetDefault("comments.admin_can_edit", true)
	viper.SetDefault("comments.orphan_policy", OrphanPolicyLeave)
	viper.SetDefault("reconcile.schedule", "@every 10m")
}
