package config

const (
	projectConfigName      = "shipwright.toml"
	defaultUserConfigPath  = "~/.config/shipwright/config.toml"
	tagPlaceholder         = "{tag}"
	defaultPyproject       = "pyproject.toml"
	defaultDistDir         = "dist"
	defaultGitRemote       = "origin"
	defaultCommitMessage   = "release: {tag}"
	defaultTagMessage      = "Release {tag}"
	defaultHistoryLimit    = 20
	defaultRegistryURL     = "https://pypi.org"
	defaultUploadURL       = "https://upload.pypi.org/legacy/"
	defaultRegistryTimeout = 15
	defaultHostAPIURL      = "https://api.github.com"
	defaultHostTimeout     = 30
	defaultSettingsFile    = ".env"
	defaultNotifyTimeout   = 10
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
	defaultRunLogDir       = ".git/shipwright/logs"
	defaultRetentionDays   = 30
)

var (
	defaultBuildCommand  = []string{"python", "-m", "build"}
	defaultUploadCommand = []string{"twine", "upload", "--non-interactive"}
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Project: Project{
			Pyproject: defaultPyproject,
			DistDir:   defaultDistDir,
		},
		Git: Git{
			Remote:        defaultGitRemote,
			CommitMessage: defaultCommitMessage,
			TagMessage:    defaultTagMessage,
			HistoryLimit:  defaultHistoryLimit,
		},
		Build: Build{
			Command: append([]string(nil), defaultBuildCommand...),
		},
		Registry: Registry{
			URL:            defaultRegistryURL,
			UploadCommand:  append([]string(nil), defaultUploadCommand...),
			TimeoutSeconds: defaultRegistryTimeout,
		},
		Host: Host{
			APIURL:         defaultHostAPIURL,
			TimeoutSeconds: defaultHostTimeout,
		},
		Release: Release{
			SettingsFile: defaultSettingsFile,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RunLogDir:     defaultRunLogDir,
			RetentionDays: defaultRetentionDays,
		},
	}
}
