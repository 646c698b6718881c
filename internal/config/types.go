package config

import "time"

// Default sources for SKSAppManifestGenerator.
const (
	DefaultPrimaryURL  = "https://github.com/Sak32009/SKSAppManifestGenerator/releases/download/v2.0.3/SKSAppManifestGenerator_x64_v2.0.3.zip"
	DefaultFallbackURL = "https://github.com/ahmed98Osama/Steam-acf-generator/raw/master/SKSAppManifestGenerator_x64.exe"
	DefaultToolName    = "SKSAppManifestGenerator_x64.exe"
	DefaultToolDir     = "tools/SKSAppManifestGenerator"

	// DefaultArchivePassword is tried first; extraction falls back to no password
	// when the archive rejects it.
	DefaultArchivePassword = "cs.rin.ru"

	DefaultUserAgent = "acfgen/1.0 (+https://github.com/Sak32009/SKSAppManifestGenerator)"
)

// Config is the fully resolved configuration for one run.
// Values come from defaults, then an optional YAML file, then ACFGEN_* environment
// variables, then command-line flags.
type Config struct {
	// ToolPath is where the generator executable lives (or will be installed).
	ToolPath string `yaml:"tool_path" env:"TOOL_PATH"`
	// ToolName is the executable filename searched for inside the release archive.
	ToolName string `yaml:"tool_name" env:"TOOL_NAME"`

	PrimaryURL      string `yaml:"primary_url" env:"PRIMARY_URL"`
	FallbackURL     string `yaml:"fallback_url" env:"FALLBACK_URL"`
	ArchivePassword string `yaml:"archive_password" env:"ARCHIVE_PASSWORD"`
	UserAgent       string `yaml:"user_agent" env:"USER_AGENT"`

	// WorkingDir is where the generator runs and where manifests are searched for.
	WorkingDir string `yaml:"working_dir" env:"WORKING_DIR"`
	// Debug passes -d to the generator.
	Debug bool `yaml:"debug" env:"DEBUG"`

	InvokeTimeout   time.Duration `yaml:"invoke_timeout" env:"INVOKE_TIMEOUT"`
	DownloadTimeout time.Duration `yaml:"download_timeout" env:"DOWNLOAD_TIMEOUT"`
	ConnectTimeout  time.Duration `yaml:"connect_timeout" env:"CONNECT_TIMEOUT"`

	// StateFile records provenance of the provisioned tool. Empty means
	// "<tool dir>/.acfgen-state.json".
	StateFile string `yaml:"state_file" env:"STATE_FILE"`

	Compat Compat `yaml:"compat" envPrefix:"COMPAT_"`
}

// Compat configures the compatibility layer used to run the Windows generator elsewhere.
type Compat struct {
	// Commands are the layer command names looked up on PATH, in order.
	Commands []string `yaml:"commands" env:"COMMANDS" envSeparator:","`
	// Packages are installed through the system package manager when no command is found.
	Packages []string `yaml:"packages" env:"PACKAGES" envSeparator:","`
	// AutoInstall permits the package manager step.
	AutoInstall bool `yaml:"auto_install" env:"AUTO_INSTALL"`
	// NativeOS is the GOOS the generator runs on without a layer.
	NativeOS string `yaml:"native_os" env:"NATIVE_OS"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		ToolPath:        DefaultToolDir + "/" + DefaultToolName,
		ToolName:        DefaultToolName,
		PrimaryURL:      DefaultPrimaryURL,
		FallbackURL:     DefaultFallbackURL,
		ArchivePassword: DefaultArchivePassword,
		UserAgent:       DefaultUserAgent,
		InvokeTimeout:   600 * time.Second,
		DownloadTimeout: 300 * time.Second,
		ConnectTimeout:  30 * time.Second,
		Compat: Compat{
			Commands:    []string{"wine", "wine64"},
			Packages:    []string{"wine", "wine64"},
			AutoInstall: true,
			NativeOS:    "windows",
		},
	}
}
