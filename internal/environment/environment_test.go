package environment

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeEnv(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_ParsesKeyValueLines(t *testing.T) {
	path := writeEnv(t, `# stack settings
DB_TYPE=postgres
DB_USER=app
DB_PASSWORD="s3cr3t value"
export DB_PORT=5432
`)

	env, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, path, env.Path())
	assert.Equal(t, []string{"DB_PASSWORD", "DB_PORT", "DB_TYPE", "DB_USER"}, env.Keys())
	assert.Equal(t, "s3cr3t value", env.Get("DB_PASSWORD"))
	assert.Equal(t, "5432", env.Get("DB_PORT"))
	assert.Equal(t, Postgres, env.DBType())

	_, ok := env.Lookup("MISSING")
	assert.False(t, ok)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), ".env"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingEnvFile))
}

func TestEnviron_FileWins(t *testing.T) {
	env := FromMap(map[string]string{"DB_TYPE": "mysql", "APP_PORT": "8000"})

	got := env.Environ([]string{"PATH=/usr/bin", "DB_TYPE=postgres", "HOME=/root"})

	assert.Equal(t, []string{"PATH=/usr/bin", "HOME=/root", "APP_PORT=8000", "DB_TYPE=mysql"}, got)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		values  map[string]string
		extra   []string
		wantErr []string
	}{
		{
			name:   "postgres ok",
			values: map[string]string{"DB_TYPE": "postgres"},
		},
		{
			name:   "mysql ok with extra key",
			values: map[string]string{"DB_TYPE": "mysql", "SECRET_KEY": "x"},
			extra:  []string{"SECRET_KEY"},
		},
		{
			name:    "missing db type",
			values:  map[string]string{},
			wantErr: []string{"DB_TYPE: is required"},
		},
		{
			name:    "unsupported db type",
			values:  map[string]string{"DB_TYPE": "sqlite"},
			wantErr: []string{`DB_TYPE: must be one of [postgres mysql], got "sqlite"`},
		},
		{
			name:    "missing extra key",
			values:  map[string]string{"DB_TYPE": "postgres"},
			extra:   []string{"SECRET_KEY", " "},
			wantErr: []string{"SECRET_KEY: is required"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := FromMap(tt.values).Validate(tt.extra...)
			if len(tt.wantErr) == 0 {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			for _, want := range tt.wantErr {
				assert.Contains(t, err.Error(), want)
			}
			var mk *MissingKeyError
			assert.True(t, errors.As(err, &mk))
		})
	}
}

func TestDatabase(t *testing.T) {
	env := FromMap(map[string]string{
		"DB_TYPE":     "postgres",
		"DB_USER":     "app",
		"DB_PASSWORD": "p@ss",
		"DB_HOST":     "postgres",
		"DB_PORT":     "5432",
		"DB_NAME":     "crud",
	})

	db, err := env.Database()
	require.NoError(t, err)
	assert.Equal(t, Postgres, db.Type)
	assert.Equal(t, "5432", db.Port)
	assert.Equal(t, "crud", db.Name)
}

func TestDatabase_Invalid(t *testing.T) {
	env := FromMap(map[string]string{"DB_TYPE": "mysql", "DB_PORT": "abc"})

	_, err := env.Database()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_USER: is required")
	assert.Contains(t, err.Error(), "DB_PASSWORD: is required")
	assert.Contains(t, err.Error(), `DB_PORT: must be numeric, got "abc"`)
	assert.Contains(t, err.Error(), "DB_NAME: is required")
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name, value string
		kind        Kind
		sensitive   bool
	}{
		{"DB_PASSWORD", "hunter2", KindSecret, true},
		{"DATABASE_URL", "postgres://u:p@db/x", KindDatabase, true},
		{"MONGO_URL", "mongodb://mongo:27017", KindDatabase, true},
		{"CALLBACK", "https://user:pw@example.com", KindDatabase, true},
		{"APP_URL", "http://localhost:8000", KindURL, false},
		{"DEBUG", "true", KindBoolean, false},
		{"DB_PORT", "5432", KindNumeric, false},
		{"DB_TYPE", "postgres", KindConfig, false},
		{"REQUEST_ID", "550e8400-e29b-41d4-a716-446655440000", KindGenerated, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, sensitive := Classify(tt.name, tt.value)
			assert.Equal(t, tt.kind, kind)
			assert.Equal(t, tt.sensitive, sensitive)
		})
	}
}

func TestMask(t *testing.T) {
	assert.Equal(t, "", Mask(""))
	assert.Equal(t, "********", Mask("short"))
	assert.Equal(t, "po******", Mask("postgres://u:p@db/x"))
	assert.Equal(t, "********", Mask("пароль12"))

	masked := Mask("пароль-секрет")
	assert.Equal(t, "па******", masked)
	assert.True(t, utf8.ValidString(masked))
}
