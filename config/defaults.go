package config

import (
	"time"

	"github.com/spf13/viper"
)

const (
	ScopeOwner  = "owner"
	ScopeSystem = "system"
)

const (
	DefaultGracePeriod      = 24 * time.Hour
	DefaultMaxFilesPerBatch = 10
	DefaultMaxFileSize      = 10 << 20
	DefaultContentPrefix    = "image/"
	DefaultGCSchedule       = "0 3 * * *"
	DefaultGCTimezone       = "UTC"
	DefaultGCTimeout        = 30 * time.Minute
	DefaultOwnerHeader      = "X-Owner-Id"
)

// DefaultCategories is used when the configuration does not list any.
func DefaultCategories() []Category {
	return []Category{
		{Name: "diary", Scope: ScopeOwner},
		{Name: "chat", Scope: ScopeOwner},
		{Name: "post", Scope: ScopeOwner},
		{Name: "profile", Scope: ScopeSystem},
		{Name: "notice", Scope: ScopeSystem},
	}
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("server.owner_header", DefaultOwnerHeader)
	v.SetDefault("server.limits.max_payload_size", 1<<20)
	v.SetDefault("server.limits.max_multipart_mem", 32<<20)

	v.SetDefault("media.grace_period", DefaultGracePeriod)
	v.SetDefault("media.max_files_per_batch", DefaultMaxFilesPerBatch)
	v.SetDefault("media.max_file_size", DefaultMaxFileSize)
	v.SetDefault("media.allowed_content_type_prefix", DefaultContentPrefix)

	categories := make([]map[string]any, 0, 5)
	for _, c := range DefaultCategories() {
		categories = append(categories, map[string]any{"name": c.Name, "scope": c.Scope})
	}
	v.SetDefault("media.categories", categories)

	v.SetDefault("gc.enabled", true)
	v.SetDefault("gc.schedule", DefaultGCSchedule)
	v.SetDefault("gc.timezone", DefaultGCTimezone)
	v.SetDefault("gc.timeout", DefaultGCTimeout)
}

// DefaultMedia returns the lifecycle rules used when nothing is configured.
func DefaultMedia() Media {
	return Media{
		GracePeriod:              DefaultGracePeriod,
		MaxFilesPerBatch:         DefaultMaxFilesPerBatch,
		MaxFileSize:              DefaultMaxFileSize,
		AllowedContentTypePrefix: DefaultContentPrefix,
		Categories:               DefaultCategories(),
	}
}
