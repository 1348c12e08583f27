package config

// StorageConfig selects where snapshots are written.
type StorageConfig struct {
	// Mode is "local" or "s3".
	Mode         string
	UploadDir    string
	AWSRegion    string
	AWSBucket    string
	SnapshotPath string
	// WatchPaths are directories watched for changes; empty disables the watcher.
	WatchPaths []string
}

func loadStorageConfig() StorageConfig {
	return StorageConfig{
		Mode:         getEnv("STORAGE_MODE", "local"),
		UploadDir:    getEnv("UPLOAD_DIR", "./uploads"),
		AWSRegion:    getEnv("AWS_REGION", "us-east-1"),
		AWSBucket:    getEnv("AWS_BUCKET", "debouncex-snapshots"),
		SnapshotPath: getEnv("SNAPSHOT_PATH", "snapshots/latest.json"),
		WatchPaths:   getEnvStringSlice("WATCH_PATHS", nil),
	}
}
