package config

import "time"

// StorageConfig describes the S3-compatible bucket used for uploads
// (resumes, blog covers).  Endpoint is optional and enables path-style
// addressing for MinIO and similar services.
type StorageConfig struct {
	Enabled         bool
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	PresignTTL      time.Duration
	MaxUploadBytes  int64
	AllowedTypes    []string
}

// LoadStorageConfig reads S3_* variables.  Storage is disabled unless a
// bucket is configured.
func LoadStorageConfig() StorageConfig {
	cfg := StorageConfig{
		Bucket:          envStr("S3_BUCKET", ""),
		Region:          envStr("S3_REGION", "us-east-1"),
		Endpoint:        envStr("S3_ENDPOINT", ""),
		AccessKeyID:     envStr("S3_ACCESS_KEY_ID", ""),
		SecretAccessKey: envStr("S3_SECRET_ACCESS_KEY", ""),
		PresignTTL:      envDur("S3_PRESIGN_TTL", 15*time.Minute),
		MaxUploadBytes:  int64(envInt("S3_MAX_UPLOAD_BYTES", 10<<20)),
		AllowedTypes: splitList(envStr("S3_ALLOWED_TYPES",
			"application/pdf,application/msword,application/vnd.openxmlformats-officedocument.wordprocessingml.document,image/png,image/jpeg,image/webp")),
	}
	cfg.Enabled = cfg.Bucket != ""
	return cfg
}
