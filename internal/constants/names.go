package constants

const (
	DefaultBackupDir   = "backups"
	DefaultComposeFile = "docker-compose.yaml"
	DefaultCaddyfile   = "Caddyfile"
	DefaultEnvFile     = ".env"
	DefaultSettingsDir = "searxng"

	SnapshotInfoFile     = "backup-info.txt"
	SnapshotManifestFile = "manifest.json"
	ArchiveSuffix        = ".tar.gz"
	LockFileName         = ".searxops.lock"
	TempSnapshotPrefix   = ".tmp-"

	DefaultHelperImage = "alpine:latest"
	DefaultAppURL      = "http://127.0.0.1:8080"
	DefaultGitBranch   = "main"
	DefaultGitRemote   = "origin"
)

var (
	DefaultVolumes    = []string{"caddy-data", "caddy-config", "redis-data", "searxng-data"}
	DefaultContainers = []string{"searxng", "redis", "caddy"}
	DefaultProxyPorts = []string{"80/tcp", "443/tcp"}

	DefaultCachePingCommand = []string{"sh", "-c", "valkey-cli ping 2>/dev/null || redis-cli ping"}

	DefaultLogKeywords = []string{"error", "fatal", "critical", "panic", "exception"}
	DefaultLogBenign   = []string{
		"X-Forwarded-For nor X-Real-IP header is set",
		"limiter.toml",
		"error_log",
		"errors=0",
	}
)
