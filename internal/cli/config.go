package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/arbml/masader-form/internal/app"
	"github.com/arbml/masader-form/internal/paths"
	"github.com/arbml/masader-form/internal/sqlite"
	"github.com/arbml/masader-form/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"
	envPrefix      = "MASADER"
)

// Config keys.
const (
	cfgKeySchemaMode           = "schema_mode"
	cfgKeySchemaBaseURL        = "schema_base_url"
	cfgKeySchemaPath           = "schema_path"
	cfgKeyExtractorURL         = "extractor_url"
	cfgKeyIdentityURL          = "identity_url"
	cfgKeyRepo                 = "repo"
	cfgKeyRepoURL              = "repo_url"
	cfgKeyDatasetsDir          = "datasets_dir"
	cfgKeyDataDir              = "data_dir"
	cfgKeySaveDir              = "save_dir"
	cfgKeyVolumeField          = "volume_field"
	cfgKeyAnnotationsFromPaper = "annotations_from_paper"
	cfgKeyServerAddr           = "server.addr"
	cfgKeyLogLevel             = "log_level"
)

// Secrets read from the environment only.
const (
	envGitHubToken  = "GITHUB_TOKEN"
	envGitUserName  = "GIT_USER_NAME"
	envGitUserEmail = "GIT_USER_EMAIL"
)

// loadConfig reads config.yaml from configDir with MASADER_ environment
// overrides. A missing config.yaml is not an error.
func loadConfig(configDir string) (*viper.Viper, error) {
	v := viper.New()
	v.SetDefault(cfgKeySchemaMode, types.DefaultSchemaMode)
	v.SetDefault(cfgKeySchemaBaseURL, types.DefaultSchemaBaseURL)
	v.SetDefault(cfgKeyExtractorURL, types.DefaultExtractorURL)
	v.SetDefault(cfgKeyIdentityURL, types.DefaultIdentityURL)
	v.SetDefault(cfgKeyRepo, types.DefaultRepo)
	v.SetDefault(cfgKeyDatasetsDir, types.DefaultDatasetsDir)
	v.SetDefault(cfgKeyVolumeField, types.DefaultVolumeField)
	v.SetDefault(cfgKeyServerAddr, types.DefaultServerAddr)
	v.SetDefault(cfgKeyLogLevel, types.DefaultLogLevel)
	// Keys without defaults must still be known to AutomaticEnv lookups.
	for _, k := range []string{cfgKeySchemaPath, cfgKeyRepoURL, cfgKeyDataDir, cfgKeySaveDir, cfgKeyAnnotationsFromPaper} {
		_ = v.BindEnv(k)
	}

	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// resolveConfig resolves directories and loads the full configuration.
func resolveConfig() (types.Config, error) {
	configDir, err := paths.ResolveConfigDir(flags.configDir)
	if err != nil {
		return types.Config{}, fmt.Errorf("resolve config dir: %w", err)
	}
	v, err := loadConfig(configDir)
	if err != nil {
		return types.Config{}, err
	}

	dataDir, err := paths.ResolveDataDir(flags.dataDir, v.GetString(cfgKeyDataDir))
	if err != nil {
		return types.Config{}, fmt.Errorf("resolve data dir: %w", err)
	}
	saveDir, err := paths.ResolveSaveDir(v.GetString(cfgKeySaveDir))
	if err != nil {
		return types.Config{}, fmt.Errorf("resolve save dir: %w", err)
	}

	return types.Config{
		SchemaMode:           v.GetString(cfgKeySchemaMode),
		SchemaBaseURL:        v.GetString(cfgKeySchemaBaseURL),
		SchemaPath:           v.GetString(cfgKeySchemaPath),
		ExtractorURL:         v.GetString(cfgKeyExtractorURL),
		IdentityURL:          v.GetString(cfgKeyIdentityURL),
		Repo:                 v.GetString(cfgKeyRepo),
		RepoURL:              v.GetString(cfgKeyRepoURL),
		DatasetsDir:          v.GetString(cfgKeyDatasetsDir),
		DataDir:              dataDir,
		SaveDir:              saveDir,
		VolumeField:          v.GetString(cfgKeyVolumeField),
		ServerAddr:           v.GetString(cfgKeyServerAddr),
		LogLevel:             v.GetString(cfgKeyLogLevel),
		AnnotationsFromPaper: v.GetBool(cfgKeyAnnotationsFromPaper),
		GitHubToken:          os.Getenv(envGitHubToken),
		GitUserName:          os.Getenv(envGitUserName),
		GitUserEmail:         os.Getenv(envGitUserEmail),
	}, nil
}

// openApp loads the configuration and opens an App. The caller must defer
// a.Close().
func openApp(ctx context.Context, stderr io.Writer) (*app.App, error) {
	cfg, err := resolveConfig()
	if err != nil {
		return nil, sysError(err)
	}
	setupLogger(stderr, cfg.LogLevel)
	a, err := app.Open(ctx, cfg)
	if err != nil {
		return nil, sysError(err)
	}
	return a, nil
}

// attachBackend opens the draft store alone, for commands that do not need
// the schema. The caller must defer backend.Detach().
func attachBackend() (*sqlite.Backend, types.Config, error) {
	cfg, err := resolveConfig()
	if err != nil {
		return nil, cfg, sysError(err)
	}
	backend := sqlite.NewBackend()
	if err := backend.Attach(cfg); err != nil {
		return nil, cfg, sysError(fmt.Errorf("attach drafts: %w", err))
	}
	return backend, cfg, nil
}
