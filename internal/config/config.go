package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime settings. Values come from environment variables
// with sensible defaults for a trusted-LAN deployment.
type Config struct {
	Host string
	Port string

	// UploadDir is the shared folder. Chunks are staged under
	// UploadDir/.temp until reassembly completes.
	UploadDir string

	MaxUploadSize int64 // request body limit in bytes
	ChunkSize     int64 // advertised client-side chunk size in bytes

	AllowedExtensions map[string]struct{}

	CodeLength      int
	MaxAuthAttempts int
	LockoutDuration time.Duration
	SessionLifetime time.Duration

	// FileExpiry <= 0 disables the cleanup sweeper.
	FileExpiry      time.Duration
	CleanupInterval time.Duration
}

var defaultExtensions = []string{
	"pdf", "doc", "docx", "xls", "xlsx", "txt",
	"jpg", "jpeg", "png", "gif", "bmp", "svg",
	"mp4", "avi", "mov", "mkv",
	"mp3", "wav", "flac",
	"zip", "rar", "7z", "tar", "gz",
	"apk",
}

// Load builds a Config from the environment.
func Load() *Config {
	uploadDir := getEnv("UPLOAD_DIR", "uploads")
	if abs, err := filepath.Abs(uploadDir); err == nil {
		uploadDir = abs
	}

	return &Config{
		Host:              getEnv("HOST", "0.0.0.0"),
		Port:              getEnv("PORT", "8080"),
		UploadDir:         uploadDir,
		MaxUploadSize:     getEnvInt64("MAX_UPLOAD_MB", 500) * 1024 * 1024,
		ChunkSize:         getEnvInt64("CHUNK_SIZE_KB", 1024) * 1024,
		AllowedExtensions: parseExtensions(os.Getenv("ALLOWED_EXTENSIONS")),
		CodeLength:        getEnvInt("CODE_LENGTH", 8),
		MaxAuthAttempts:   getEnvInt("MAX_AUTH_ATTEMPTS", 5),
		LockoutDuration:   time.Duration(getEnvInt("LOCKOUT_SECONDS", 300)) * time.Second,
		SessionLifetime:   time.Duration(getEnvInt("SESSION_MINUTES", 30)) * time.Minute,
		FileExpiry:        time.Duration(getEnvInt("FILE_EXPIRY_DAYS", 7)) * 24 * time.Hour,
		CleanupInterval:   time.Duration(getEnvInt("CLEANUP_INTERVAL_SECONDS", 3600)) * time.Second,
	}
}

// ExtensionAllowed reports whether the filename carries an allow-listed
// extension. Files without an extension are rejected.
func (c *Config) ExtensionAllowed(filename string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if ext == "" {
		return false
	}
	_, ok := c.AllowedExtensions[ext]
	return ok
}

// TempDir returns the scratch root for chunked uploads.
func (c *Config) TempDir() string {
	return filepath.Join(c.UploadDir, ".temp")
}

func parseExtensions(raw string) map[string]struct{} {
	exts := defaultExtensions
	if raw != "" {
		exts = strings.Split(raw, ",")
	}
	set := make(map[string]struct{}, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(e, ".")))
		if e != "" {
			set[e] = struct{}{}
		}
	}
	return set
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}
