package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type Mode string

const (
	ModeMove Mode = "move"
	ModeCopy Mode = "copy" // copy, then delete the source
)

// Config holds the settings of a run. It is read once and not changed after
// Validate.
type Config struct {
	LibraryBase     string
	ImageRoot       string
	VideoRoot       string
	NonImageRoot    string
	DuplicateRoot   string
	FailedRoot      string
	ImageExtensions []string
	VideoExtensions []string
	Mode            Mode
	LegacyHash      bool
	UseExiftool     bool
	DryRun          bool
	PruneEmpty      bool
	Strict          bool
}

// ConfigFile represents the YAML configuration
type ConfigFile struct {
	LibraryBase     string   `yaml:"library_base,omitempty"`
	ImageRoot       string   `yaml:"image_root,omitempty"`
	VideoRoot       string   `yaml:"video_root,omitempty"`
	NonImageRoot    string   `yaml:"non_image_root,omitempty"`
	DuplicateRoot   string   `yaml:"duplicate_root,omitempty"`
	FailedRoot      string   `yaml:"failed_root,omitempty"`
	ImageExtensions []string `yaml:"image_extensions,omitempty"`
	VideoExtensions []string `yaml:"video_extensions,omitempty"`
	Mode            string   `yaml:"mode,omitempty"`
	LegacyHash      *bool    `yaml:"legacy_hash,omitempty"`
	UseExiftool     *bool    `yaml:"use_exiftool,omitempty"`
}

var (
	defaultImageExtensions = []string{
		".cr2", ".png", ".jpg", ".jpeg", ".jpe", ".tif", ".tiff",
		".heic", ".heif", ".raw", ".nef", ".arw",
	}

	defaultVideoExtensions = []string{
		".mp4", ".mov", ".avi", ".wmv", ".mkv", ".m4v", ".mpg", ".mpeg",
		".flv", ".3gp", ".mts", ".m2ts",
	}
)

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() *Config {
	base := "MediaLibrary"
	if home, err := os.UserHomeDir(); err == nil {
		base = filepath.Join(home, "MediaLibrary")
	}
	return &Config{
		LibraryBase:     base,
		ImageExtensions: append([]string(nil), defaultImageExtensions...),
		VideoExtensions: append([]string(nil), defaultVideoExtensions...),
		Mode:            ModeMove,
	}
}

// getConfigPath returns the path to the config file
func getConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".media-ingest.yaml"
	}
	return filepath.Join(home, ".media-ingest.yaml")
}

// loadConfigFile reads a YAML config. A missing file is only an error when
// the path was asked for explicitly.
func loadConfigFile(path string, explicit bool) (*ConfigFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, &ConfigError{Code: ErrCodeInvalidConfig, Path: path, Err: err}
	}

	var cf ConfigFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, &ConfigError{Code: ErrCodeInvalidConfig, Path: path, Err: err}
	}
	return &cf, nil
}

// saveConfigFile saves configuration to YAML file
func saveConfigFile(path string, cf *ConfigFile) error {
	data, err := yaml.Marshal(cf)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Apply overlays the values set in the file.
func (c *Config) Apply(cf *ConfigFile) {
	if cf == nil {
		return
	}
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&c.LibraryBase, cf.LibraryBase)
	set(&c.ImageRoot, cf.ImageRoot)
	set(&c.VideoRoot, cf.VideoRoot)
	set(&c.NonImageRoot, cf.NonImageRoot)
	set(&c.DuplicateRoot, cf.DuplicateRoot)
	set(&c.FailedRoot, cf.FailedRoot)
	if len(cf.ImageExtensions) > 0 {
		c.ImageExtensions = cf.ImageExtensions
	}
	if len(cf.VideoExtensions) > 0 {
		c.VideoExtensions = cf.VideoExtensions
	}
	if cf.Mode != "" {
		c.Mode = Mode(strings.ToLower(cf.Mode))
	}
	if cf.LegacyHash != nil {
		c.LegacyHash = *cf.LegacyHash
	}
	if cf.UseExiftool != nil {
		c.UseExiftool = *cf.UseExiftool
	}
}

// Validate derives empty roots from the library base, makes every root
// absolute and normalizes the extension lists.
func (c *Config) Validate() error {
	if c.Mode != ModeMove && c.Mode != ModeCopy {
		return &ConfigError{Code: ErrCodeInvalidConfig, Path: "mode", Err: fmt.Errorf("unknown mode %q", c.Mode)}
	}

	roots := []struct {
		dst  *string
		name string
		def  string
	}{
		{&c.ImageRoot, "image_root", "Images"},
		{&c.VideoRoot, "video_root", "Videos"},
		{&c.NonImageRoot, "non_image_root", "NonMedia"},
		{&c.DuplicateRoot, "duplicate_root", "Duplicates"},
		{&c.FailedRoot, "failed_root", "Failed"},
	}
	for _, r := range roots {
		if *r.dst == "" {
			if c.LibraryBase == "" {
				return &ConfigError{Code: ErrCodeInvalidConfig, Path: r.name, Err: errors.New("no root and no library_base")}
			}
			*r.dst = filepath.Join(c.LibraryBase, r.def)
		}
		abs, err := filepath.Abs(*r.dst)
		if err != nil {
			return &ConfigError{Code: ErrCodeInvalidConfig, Path: *r.dst, Err: err}
		}
		*r.dst = abs
	}
	if c.LibraryBase != "" {
		abs, err := filepath.Abs(c.LibraryBase)
		if err != nil {
			return &ConfigError{Code: ErrCodeInvalidConfig, Path: c.LibraryBase, Err: err}
		}
		c.LibraryBase = abs
	}

	c.ImageExtensions = normalizeExtensions(c.ImageExtensions)
	c.VideoExtensions = normalizeExtensions(c.VideoExtensions)
	images := make(map[string]bool, len(c.ImageExtensions))
	for _, e := range c.ImageExtensions {
		if e == sidecarExtension {
			return &ConfigError{Code: ErrCodeInvalidConfig, Path: "image_extensions", Err: fmt.Errorf("%s is the sidecar extension", e)}
		}
		images[e] = true
	}
	for _, e := range c.VideoExtensions {
		if e == sidecarExtension || images[e] {
			return &ConfigError{Code: ErrCodeInvalidConfig, Path: "video_extensions", Err: fmt.Errorf("%s is already claimed", e)}
		}
	}
	return nil
}

// Layout returns the destination roots with the run-date bucket.
func (c *Config) Layout(runDate string) Layout {
	return Layout{
		ImageRoot:     c.ImageRoot,
		VideoRoot:     c.VideoRoot,
		NonImageRoot:  c.NonImageRoot,
		DuplicateRoot: c.DuplicateRoot,
		FailedRoot:    c.FailedRoot,
		RunDate:       runDate,
	}
}

func normalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	seen := make(map[string]bool, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		if !seen[e] {
			seen[e] = true
			out = append(out, e)
		}
	}
	return out
}

// runSetupWizard asks for the main settings and saves them to path.
func runSetupWizard(in io.Reader, out io.Writer, path string) (*ConfigFile, error) {
	reader := bufio.NewReader(in)
	ask := func(prompt, def string) string {
		fmt.Fprintf(out, "   %s [%s]: ", prompt, def)
		answer, _ := reader.ReadString('\n')
		answer = strings.TrimSpace(answer)
		if answer == "" {
			return def
		}
		return answer
	}

	fmt.Fprintln(out, "╔════════════════════════════════════════════════════════════════╗")
	fmt.Fprintln(out, "║                  Media Ingest - First Time Setup               ║")
	fmt.Fprintln(out, "╚════════════════════════════════════════════════════════════════╝")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "This configuration will be saved to:", path)
	fmt.Fprintln(out)

	def := DefaultConfig()
	cf := &ConfigFile{}

	fmt.Fprintln(out, "1. Where should the library be created?")
	fmt.Fprintln(out, "   (Images, Videos, NonMedia, Duplicates and Failed go below it)")
	cf.LibraryBase = ask("Path", def.LibraryBase)

	fmt.Fprintln(out)
	fmt.Fprintln(out, "2. Move files, or copy them and delete the source?")
	for {
		mode := strings.ToLower(ask("Mode (move/copy)", string(ModeMove)))
		if mode == string(ModeMove) || mode == string(ModeCopy) {
			cf.Mode = mode
			break
		}
		fmt.Fprintln(out, "   Please answer move or copy.")
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "3. Read capture dates with exiftool as well?")
	fmt.Fprintln(out, "   (Needs the exiftool binary; covers videos and more RAW formats)")
	useExiftool := yes(ask("Use exiftool (y/n)", "n"))
	cf.UseExiftool = &useExiftool

	fmt.Fprintln(out)
	fmt.Fprintln(out, "═══════════════════════════════════════════════════════════════")
	fmt.Fprintln(out, "Configuration Summary:")
	fmt.Fprintln(out, "═══════════════════════════════════════════════════════════════")
	fmt.Fprintf(out, "  Library:   %s\n", cf.LibraryBase)
	fmt.Fprintf(out, "  Mode:      %s\n", cf.Mode)
	fmt.Fprintf(out, "  Exiftool:  %t\n", useExiftool)
	fmt.Fprintln(out)

	if !yes(ask("Save this configuration? (y/n)", "y")) {
		fmt.Fprintln(out, "\nSetup cancelled.")
		return nil, nil
	}

	if err := saveConfigFile(path, cf); err != nil {
		return nil, fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "✓ Configuration saved to:", path)
	return cf, nil
}

func yes(s string) bool {
	s = strings.ToLower(s)
	return s == "y" || s == "yes"
}
