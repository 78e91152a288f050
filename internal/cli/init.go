package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/arbml/masader-form/internal/paths"
	"github.com/arbml/masader-form/pkg/types"
)

// configFile holds the structure written to config.yaml.
type configFile struct {
	SchemaMode           string       `yaml:"schema_mode"`
	SchemaBaseURL        string       `yaml:"schema_base_url"`
	ExtractorURL         string       `yaml:"extractor_url"`
	IdentityURL          string       `yaml:"identity_url"`
	Repo                 string       `yaml:"repo"`
	DatasetsDir          string       `yaml:"datasets_dir"`
	VolumeField          string       `yaml:"volume_field"`
	AnnotationsFromPaper bool         `yaml:"annotations_from_paper"`
	Server               serverConfig `yaml:"server"`
	LogLevel             string       `yaml:"log_level"`
}

type serverConfig struct {
	Addr string `yaml:"addr"`
}

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize masader configuration and storage",
		Long:  "Create the configuration and data directories, write a default config.yaml and create the draft store.",
		Args:  cobra.NoArgs,
		RunE:  runInit,
	}
}

func runInit(cmd *cobra.Command, args []string) error {
	configDir, err := paths.ResolveConfigDir(flags.configDir)
	if err != nil {
		return sysError(fmt.Errorf("resolve config dir: %w", err))
	}
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return sysError(fmt.Errorf("create config directory: %w", err))
	}

	configPath := filepath.Join(configDir, configFileExt)
	if err := writeConfigIfMissing(configPath); err != nil {
		return sysError(fmt.Errorf("write config: %w", err))
	}

	backend, cfg, err := attachBackend()
	if err != nil {
		return err
	}
	if err := backend.Detach(); err != nil {
		return sysError(fmt.Errorf("finalize storage: %w", err))
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "masader initialized successfully")
	fmt.Fprintln(out, "  config:", configPath)
	fmt.Fprintln(out, "  data:  ", cfg.DataDir)
	return nil
}

// writeConfigIfMissing creates config.yaml with default values if the file
// does not exist. If it already exists, the function returns nil.
func writeConfigIfMissing(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	cfg := configFile{
		SchemaMode:    types.DefaultSchemaMode,
		SchemaBaseURL: types.DefaultSchemaBaseURL,
		ExtractorURL:  types.DefaultExtractorURL,
		IdentityURL:   types.DefaultIdentityURL,
		Repo:          types.DefaultRepo,
		DatasetsDir:   types.DefaultDatasetsDir,
		VolumeField:   types.DefaultVolumeField,
		Server:        serverConfig{Addr: types.DefaultServerAddr},
		LogLevel:      types.DefaultLogLevel,
	}

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
