package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, ":3000", cfg.Addr())
	assert.Equal(t, int64(10000000), cfg.Upload.MaxBytes)
	assert.Equal(t, "image", cfg.Upload.FieldName)
	assert.Equal(t, []string{"Nature", "Architecture", "People", "Animals"}, cfg.Upload.Categories)
	assert.Equal(t, []string{"image/jpeg", "image/png", "image/gif"}, cfg.Upload.MediaTypes)
	assert.True(t, cfg.Upload.SniffContent)
	assert.Equal(t, "local", cfg.Storage.Type)
	assert.Equal(t, "./uploads", cfg.Storage.LocalPath)
	assert.True(t, cfg.Catalog.Rehydrate)
	assert.Equal(t, 15*time.Second, cfg.HTTP.ReadTimeout)
	assert.Equal(t, 10*time.Second, cfg.HTTP.ShutdownTimeout)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Empty(t, cfg.Log.Path)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
	assert.False(t, cfg.DebugPprof)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("UPLOAD_MAX_BYTES", "2048")
	t.Setenv("UPLOAD_FIELD", "photo")
	t.Setenv("UPLOAD_CATEGORIES", "Cats,Dogs")
	t.Setenv("UPLOAD_MEDIA_TYPES", "image/png")
	t.Setenv("UPLOAD_SNIFF_CONTENT", "false")
	t.Setenv("STORAGE_TYPE", "memory")
	t.Setenv("STORAGE_MEMORY_MAX_BYTES", "1048576")
	t.Setenv("HTTP_WRITE_TIMEOUT", "2m")
	t.Setenv("LOG_PATH", "/tmp/gallery.log")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8081", cfg.Port)
	assert.Equal(t, int64(2048), cfg.Upload.MaxBytes)
	assert.Equal(t, "photo", cfg.Upload.FieldName)
	assert.Equal(t, []string{"Cats", "Dogs"}, cfg.Upload.Categories)
	assert.Equal(t, []string{"image/png"}, cfg.Upload.MediaTypes)
	assert.False(t, cfg.Upload.SniffContent)
	assert.Equal(t, "memory", cfg.Storage.Type)
	assert.Equal(t, int64(1048576), cfg.Storage.MemoryMaxBytes)
	assert.Equal(t, 2*time.Minute, cfg.HTTP.WriteTimeout)
	assert.Equal(t, "/tmp/gallery.log", cfg.Log.Path)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"zero max bytes", "UPLOAD_MAX_BYTES", "0"},
		{"unknown storage", "STORAGE_TYPE", "s3"},
		{"not a number", "UPLOAD_MAX_BYTES", "ten"},
		{"empty categories", "UPLOAD_CATEGORIES", ","},
		{"negative memory cap", "STORAGE_MEMORY_MAX_BYTES", "-1"},
		{"category with a slash", "UPLOAD_CATEGORIES", "Nature,Black/White"},
		{"category with a backslash", "UPLOAD_CATEGORIES", `Nature,a\b`},
		{"parent directory category", "UPLOAD_CATEGORIES", "Nature,.."},
		{"current directory category", "UPLOAD_CATEGORIES", "."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			cfg, err := Load()
			assert.Error(t, err)
			assert.Nil(t, cfg)
		})
	}
}

func TestLoad_PaddedCategoriesAreAccepted(t *testing.T) {
	t.Setenv("UPLOAD_CATEGORIES", " Nature , People ")

	cfg, err := Load()
	require.NoError(t, err)
	assert.NotNil(t, cfg)
}
