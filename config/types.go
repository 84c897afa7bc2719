package config

type Config struct {
	Debug     bool      `mapstructure:"debug"`
	Server    Server    `mapstructure:"server"`
	Auth      Auth      `mapstructure:"auth"`
	Media     Media     `mapstructure:"media"`
	Documents Documents `mapstructure:"documents"`
}

type Server struct {
	Address string       `mapstructure:"address" validate:"required,hostname|ip"`
	Port    int          `mapstructure:"port" validate:"required,min=1,max=65535"`
	Limits  ServerLimits `mapstructure:"limits"`
}

type ServerLimits struct {
	MaxFileSize     uint `mapstructure:"max_file_size" validate:"required"`
	MaxMultipartMem uint `mapstructure:"max_multipart_mem" validate:"required"`
}

type Auth struct {
	JwtSecret string `mapstructure:"jwt_secret" validate:"required,min=16"`
	Issuer    string `mapstructure:"issuer"`
}

type Media struct {
	Strategy          string                   `mapstructure:"strategy" validate:"required,oneof=cloudinary s3 filesystem memory"`
	Namespace         string                   `mapstructure:"namespace" validate:"required"`
	DefaultProfilePic string                   `mapstructure:"default_profile_pic" validate:"required"`
	Policies          map[string]MediaPolicy   `mapstructure:"policies" validate:"dive,keys,oneof=profile-pic post-media story-media event-image business-image,endkeys"`
	Cloudinary        *CloudinaryMediaStrategy `mapstructure:"cloudinary" validate:"required_if=Strategy cloudinary"`
	S3                *S3MediaStrategy         `mapstructure:"s3" validate:"required_if=Strategy s3"`
	Filesystem        *FilesystemMediaStrategy `mapstructure:"filesystem" validate:"required_if=Strategy filesystem"`
}

// MediaPolicy overrides the built-in policy of one asset class. Zero values keep the default.
type MediaPolicy struct {
	MaxBytes            int64    `mapstructure:"max_bytes" validate:"gte=0"`
	AllowedMimePrefixes []string `mapstructure:"allowed_mime_prefixes" validate:"dive,mimeprefix"`
}

type CloudinaryMediaStrategy struct {
	CloudName string `mapstructure:"cloud_name" validate:"required"`
	APIKey    string `mapstructure:"api_key" validate:"required"`
	APISecret string `mapstructure:"api_secret" validate:"required"`
}

type S3MediaStrategy struct {
	AccessKeyId    string `mapstructure:"access_key_id" validate:"required"`
	SecretKeyId    string `mapstructure:"secret_key_id" validate:"required"`
	Region         string `mapstructure:"region"`
	Bucket         string `mapstructure:"bucket" validate:"required"`
	Endpoint       string `mapstructure:"endpoint" validate:"omitempty,url"`
	ForcePathStyle bool   `mapstructure:"force_path_style"`
	DisableSSL     bool   `mapstructure:"disable_ssl"`
	PublicUrl      string `mapstructure:"public_url" validate:"omitempty,url"`
}

type FilesystemMediaStrategy struct {
	Path      string `mapstructure:"path" validate:"required,abspath"`
	PublicUrl string `mapstructure:"public_url" validate:"required"`
}

type Documents struct {
	Strategy string               `mapstructure:"strategy" validate:"required,oneof=sql d1 memory"`
	SQL      *SQLDocumentStrategy `mapstructure:"sql" validate:"required_if=Strategy sql"`
	D1       *D1DocumentStrategy  `mapstructure:"d1" validate:"required_if=Strategy d1"`
}

type SQLDocumentStrategy struct {
	Driver      string  `mapstructure:"driver" validate:"required,oneof=postgres mysql sqlite"`
	DSN         string  `mapstructure:"dsn" validate:"required"`
	TablePrefix *string `mapstructure:"table_prefix" validate:"omitempty,identifier"`
}

type D1DocumentStrategy struct {
	AccountID   string  `mapstructure:"account_id" validate:"required"`
	DatabaseID  string  `mapstructure:"database_id" validate:"required"`
	APIToken    string  `mapstructure:"api_token" validate:"required"`
	Endpoint    string  `mapstructure:"endpoint" validate:"omitempty,url"`
	TablePrefix *string `mapstructure:"table_prefix" validate:"omitempty,identifier"`
}
