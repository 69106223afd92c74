package config

import "time"

type Config struct {
	Debug    bool    `mapstructure:"debug"`
	LogLevel string  `mapstructure:"log_level" validate:"omitempty,oneof=trace debug info warn error"`
	Server   Server  `mapstructure:"server"`
	Media    Media   `mapstructure:"media"`
	Storage  Storage `mapstructure:"storage"`
	GC       GC      `mapstructure:"gc"`
}

type Server struct {
	Address     string       `mapstructure:"address" validate:"required,hostname|ip"`
	Port        int          `mapstructure:"port" validate:"required,min=1,max=65535"`
	OwnerHeader string       `mapstructure:"owner_header"`
	Limits      ServerLimits `mapstructure:"limits"`
}

type ServerLimits struct {
	MaxPayloadSize  uint `mapstructure:"max_payload_size" validate:"required"`
	MaxMultipartMem uint `mapstructure:"max_multipart_mem" validate:"required"`
}

// Media holds the lifecycle rules applied to every upload and promotion.
type Media struct {
	GracePeriod              time.Duration `mapstructure:"grace_period" validate:"required,gt=0"`
	MaxFilesPerBatch         int           `mapstructure:"max_files_per_batch" validate:"required,min=1"`
	MaxFileSize              int64         `mapstructure:"max_file_size" validate:"required,min=1"`
	AllowedContentTypePrefix string        `mapstructure:"allowed_content_type_prefix" validate:"required"`
	Categories               []Category    `mapstructure:"categories" validate:"required,min=1,unique=Name,dive"`
}

type Category struct {
	Name  string `mapstructure:"name" validate:"required,keysegment"`
	Scope string `mapstructure:"scope" validate:"required,oneof=owner system"`
}

type Storage struct {
	Blob     Blob     `mapstructure:"blob"`
	Metadata Metadata `mapstructure:"metadata"`
}

type Blob struct {
	Strategy   string                  `mapstructure:"strategy" validate:"required,oneof=s3 filesystem memory"`
	S3         *S3BlobStrategy         `mapstructure:"s3" validate:"required_if=Strategy s3"`
	Filesystem *FilesystemBlobStrategy `mapstructure:"filesystem" validate:"required_if=Strategy filesystem"`
	Memory     *MemoryBlobStrategy     `mapstructure:"memory"`
}

type S3BlobStrategy struct {
	AccessKeyId    string `mapstructure:"access_key_id" validate:"required"`
	SecretKeyId    string `mapstructure:"secret_key_id" validate:"required"`
	Region         string `mapstructure:"region" validate:"required"`
	Bucket         string `mapstructure:"bucket" validate:"required"`
	Endpoint       string `mapstructure:"endpoint" validate:"omitempty,url"`
	PublicUrl      string `mapstructure:"public_url" validate:"omitempty,url"`
	ForcePathStyle bool   `mapstructure:"force_path_style"`
	DisableSSL     bool   `mapstructure:"disable_ssl"`
}

type FilesystemBlobStrategy struct {
	Path      string `mapstructure:"path" validate:"required,abspath"`
	PublicUrl string `mapstructure:"public_url" validate:"required,url"`
}

type MemoryBlobStrategy struct {
	PublicUrl string `mapstructure:"public_url" validate:"omitempty,url"`
}

type Metadata struct {
	Strategy string               `mapstructure:"strategy" validate:"required,oneof=sql d1 memory"`
	SQL      *SQLMetadataStrategy `mapstructure:"sql" validate:"required_if=Strategy sql"`
	D1       *D1MetadataStrategy  `mapstructure:"d1" validate:"required_if=Strategy d1"`
}

type SQLMetadataStrategy struct {
	Driver      string  `mapstructure:"driver" validate:"required,oneof=postgres mysql"`
	DSN         string  `mapstructure:"dsn" validate:"required"`
	TablePrefix *string `mapstructure:"table_prefix" validate:"omitempty,identifier"`
}

type D1MetadataStrategy struct {
	AccountID   string  `mapstructure:"account_id" validate:"required"`
	DatabaseID  string  `mapstructure:"database_id" validate:"required"`
	APIToken    string  `mapstructure:"api_token" validate:"required"`
	Endpoint    string  `mapstructure:"endpoint" validate:"omitempty,url"`
	TablePrefix *string `mapstructure:"table_prefix" validate:"omitempty,identifier"`
}

// GC controls the scheduled orphan sweep.
type GC struct {
	Enabled  bool          `mapstructure:"enabled"`
	Schedule string        `mapstructure:"schedule" validate:"required_if=Enabled true,omitempty,cronspec"`
	Timezone string        `mapstructure:"timezone" validate:"omitempty,timezone"`
	Timeout  time.Duration `mapstructure:"timeout" validate:"omitempty,gt=0"`
}
