package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/color"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/a3tai/mcp-pdf-mapper/internal/pdf/inject"
)

const (
	// Mode constants
	ModeStdio  = "stdio"
	ModeServer = "server"

	// Default values
	DefaultPort        = 8080
	DefaultHost        = "127.0.0.1"
	DefaultLogLevel    = "info"
	DefaultMaxFileSize = 100 * 1024 * 1024 // 100MB
	DefaultTextColor   = "#000000"

	// Directory permissions
	DefaultDirPerm = 0o750

	envPrefix = "PDF_MAPPER"
)

// Config holds all configuration for the PDF mapper
type Config struct {
	// Server configuration
	Mode string // "server" or "stdio"
	Host string
	Port int

	// PDF configuration
	PDFDirectory string

	// Rendering defaults
	FontName       string
	FontSize       float64
	TextColor      string // hex, "#RRGGBB"
	StrictGeometry bool

	// Application configuration
	Version     string
	ServerName  string
	LogLevel    string
	MaxFileSize int64 // Maximum PDF file size in bytes
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		// Fall back to the relative current directory
		currentDir = "."
	}

	return &Config{
		Mode:         ModeStdio, // stdio is what MCP clients launch
		Host:         DefaultHost,
		Port:         DefaultPort,
		PDFDirectory: currentDir,
		FontName:     inject.DefaultFontName,
		FontSize:     inject.DefaultFontSize,
		TextColor:    DefaultTextColor,
		Version:      "1.0.0",
		ServerName:   "mcp-pdf-mapper",
		LogLevel:     DefaultLogLevel,
		MaxFileSize:  DefaultMaxFileSize,
	}
}

// LoadFromFlags parses command line flags and environment variables and
// returns a validated configuration
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	// Set up viper for environment variables and defaults
	setupViperEnvironment(cfg)

	// Define command line flags and bind them to viper
	defineCommandLineFlags(cfg)
	bindFlagsToViper()

	// Set custom usage message
	setupUsageMessage()

	// Check for version flag before parsing
	if err := checkVersionFlag(); err != nil {
		return nil, err
	}

	pflag.Parse()

	// Flags win over PDF_MAPPER_* environment variables
	populateConfigFromViper(cfg)

	// Expand paths if needed
	if cfg.PDFDirectory != "" {
		if expandedPath, err := filepath.Abs(cfg.PDFDirectory); err == nil {
			cfg.PDFDirectory = expandedPath
		}
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(cfg *Config) {
	// Set environment variable prefix; font-size reads PDF_MAPPER_FONT_SIZE
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	// Define flags with Viper
	viper.SetDefault("mode", cfg.Mode)
	viper.SetDefault("host", cfg.Host)
	viper.SetDefault("port", cfg.Port)
	viper.SetDefault("dir", cfg.PDFDirectory)
	viper.SetDefault("log-level", cfg.LogLevel)
	viper.SetDefault("max-file-size", cfg.MaxFileSize)
	viper.SetDefault("font", cfg.FontName)
	viper.SetDefault("font-size", cfg.FontSize)
	viper.SetDefault("text-color", cfg.TextColor)
	viper.SetDefault("strict-geometry", cfg.StrictGeometry)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(cfg *Config) {
	pflag.String("mode", cfg.Mode, "Server mode: 'stdio' for MCP standard I/O, 'server' for HTTP (SSE) server")
	pflag.String("host", cfg.Host, "Server host address (server mode only)")
	pflag.Int("port", cfg.Port, "Server port (server mode only)")
	pflag.String("dir", cfg.PDFDirectory, "Directory containing source PDFs and receiving filled output")
	pflag.String("log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	pflag.Int64("max-file-size", cfg.MaxFileSize, "Maximum PDF file size in bytes")
	DefineRenderFlags(pflag.CommandLine, cfg)
}

// DefineRenderFlags registers the rendering flags on fs. The values are read
// back through viper once bound.
func DefineRenderFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.String("font", cfg.FontName, "Text font: a standard-14 name or alias (helv, tiro, cour, ...)")
	fs.Float64("font-size", cfg.FontSize, "Default text size in points")
	fs.String("text-color", cfg.TextColor, "Text color as #RRGGBB")
	fs.Bool("strict-geometry", cfg.StrictGeometry, "Reject templates with field rects outside the page")
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper() {
	for _, name := range []string{
		"mode", "host", "port", "dir", "log-level", "max-file-size",
		"font", "font-size", "text-color", "strict-geometry",
	} {
		_ = viper.BindPFlag(name, pflag.Lookup(name))
	}
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nMCP PDF Mapper - A Model Context Protocol server that fills PDFs from templates\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                                         "+
			"# stdio mode, current directory (default)\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --dir=/path/to/pdfs --font=tiro         "+
			"# stdio mode, Times-Roman text\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=server --host=0.0.0.0 --port=8081 # SSE server on all interfaces\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  PDF_MAPPER_MODE             Server mode\n")
		fmt.Fprintf(os.Stderr, "  PDF_MAPPER_HOST             Server host\n")
		fmt.Fprintf(os.Stderr, "  PDF_MAPPER_PORT             Server port\n")
		fmt.Fprintf(os.Stderr, "  PDF_MAPPER_DIR              PDF directory\n")
		fmt.Fprintf(os.Stderr, "  PDF_MAPPER_LOG_LEVEL        Log level\n")
		fmt.Fprintf(os.Stderr, "  PDF_MAPPER_MAX_FILE_SIZE    Maximum file size\n")
		fmt.Fprintf(os.Stderr, "  PDF_MAPPER_FONT             Text font\n")
		fmt.Fprintf(os.Stderr, "  PDF_MAPPER_FONT_SIZE        Text size\n")
		fmt.Fprintf(os.Stderr, "  PDF_MAPPER_TEXT_COLOR       Text color\n")
		fmt.Fprintf(os.Stderr, "  PDF_MAPPER_STRICT_GEOMETRY  Reject out-of-page rects\n")
	}
}

// checkVersionFlag checks if version flag was requested
func checkVersionFlag() error {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return fmt.Errorf("version requested")
		}
	}
	return nil
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(cfg *Config) {
	cfg.Mode = viper.GetString("mode")
	cfg.Host = viper.GetString("host")
	cfg.Port = viper.GetInt("port")
	cfg.PDFDirectory = viper.GetString("dir")
	cfg.LogLevel = viper.GetString("log-level")
	cfg.MaxFileSize = viper.GetInt64("max-file-size")
	cfg.FontName = viper.GetString("font")
	cfg.FontSize = viper.GetFloat64("font-size")
	cfg.TextColor = viper.GetString("text-color")
	cfg.StrictGeometry = viper.GetBool("strict-geometry")
}

// Validate checks if the configuration is valid. A missing PDF directory is
// accepted so that clients may pass placeholder paths.
func (c *Config) Validate() error {
	// Validate mode
	if c.Mode != ModeStdio && c.Mode != ModeServer {
		return errors.New("mode must be either 'stdio' or 'server'")
	}

	// Validate port range (only for server mode)
	if c.Mode == ModeServer && (c.Port < 1 || c.Port > 65535) {
		return errors.New("port must be between 1 and 65535")
	}

	// Validate PDF directory
	if c.PDFDirectory == "" {
		return errors.New("PDF directory cannot be empty")
	}

	// Validate max file size
	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	// Validate rendering defaults
	if _, err := c.RenderOptions(); err != nil {
		return err
	}

	return nil
}

// RenderOptions converts the rendering settings into engine options
func (c *Config) RenderOptions() (inject.Options, error) {
	fontName, err := inject.ResolveFontName(c.FontName)
	if err != nil {
		return inject.Options{}, err
	}

	if math.IsNaN(c.FontSize) || c.FontSize <= 0 {
		return inject.Options{}, fmt.Errorf("font size must be positive, got %g", c.FontSize)
	}

	textColor, err := parseTextColor(c.TextColor)
	if err != nil {
		return inject.Options{}, err
	}

	return inject.Options{
		FontName:       fontName,
		FontSize:       c.FontSize,
		TextColor:      textColor,
		StrictGeometry: c.StrictGeometry,
	}, nil
}

func parseTextColor(hex string) (color.SimpleColor, error) {
	if hex == "" {
		return color.Black, nil
	}
	if !strings.HasPrefix(hex, "#") {
		hex = "#" + hex
	}
	c, err := color.NewSimpleColorForHexCode(hex)
	if err != nil {
		return color.SimpleColor{}, fmt.Errorf("invalid text color %q: %w", hex, err)
	}
	return c, nil
}

// Address returns the server address as host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, Host: %s, Port: %d, PDFDirectory: %s, LogLevel: %s, MaxFileSize: %d, "+
		"Font: %s %gpt %s, StrictGeometry: %t}",
		c.Mode, c.Host, c.Port, c.PDFDirectory, c.LogLevel, c.MaxFileSize,
		c.FontName, c.FontSize, c.TextColor, c.StrictGeometry)
}

// IsServerMode returns true if the server is running in HTTP server mode
func (c *Config) IsServerMode() bool {
	return c.Mode == ModeServer
}

// IsStdioMode returns true if the server is running in stdio mode
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}
