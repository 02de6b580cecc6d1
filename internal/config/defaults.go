package config

import "github.com/spf13/viper"

// Default values for every setting. Every key must have a default so that
// CRUDKIT_* environment variables are picked up by viper.Unmarshal.
const (
	DefaultEnvFile          = ".env"
	DefaultMigrationBackend = "alembic"
	DefaultMigrationsDir    = "db/migrations/sql"
	DefaultMigrationsTable  = "schema_migrations"
)

// DefaultVolumes are the named volumes removed by clean.
var DefaultVolumes = []string{"postgres_data", "mysql_data"}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("env_file", DefaultEnvFile)
	v.SetDefault("compose_file", "")
	v.SetDefault("project", "")
	v.SetDefault("dry_run", false)

	v.SetDefault("services.app", "app")
	v.SetDefault("services.postgres", "postgres")
	v.SetDefault("services.mysql", "mysql")
	v.SetDefault("services.mongo", "mongo")

	v.SetDefault("volumes", DefaultVolumes)
	v.SetDefault("env.required", []string{})

	v.SetDefault("migrations.backend", DefaultMigrationBackend)
	v.SetDefault("migrations.dir", DefaultMigrationsDir)
	v.SetDefault("migrations.table", DefaultMigrationsTable)

	v.SetDefault("test.command", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Default returns settings built purely from defaults.
func Default() *Settings {
	v := viper.New()
	SetDefaults(v)
	s, err := Load(v)
	if err != nil {
		panic(err)
	}
	return s
}
