package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	KeyAPIURL        = "ZPOOL_API_URL"
	KeyUser          = "ZPOOL_USER"
	KeyPAT           = "ZPOOLPAT"
	KeyTokenCacheDir = "ZPOOL_TOKEN_CACHE_DIR"
	KeySSHHost       = "SSH_HOST"
	KeySSHPrivKey    = "SSH_PRIVKEY_FILE"

	// EnvPassword is read from the environment only, never from the rc file.
	EnvPassword = "ZPOOL_PASSWORD"

	DefaultAPIURL  = "https://api.zpools.io/v1"
	DefaultSSHHost = "ssh.zpools.io"

	rcConfigType = "env"
	rcDir        = ".config/zpools.io"
	rcFileName   = "zpoolrc"
)

var keys = []string{KeyAPIURL, KeyUser, KeyPAT, KeyTokenCacheDir, KeySSHHost, KeySSHPrivKey}

type Config struct {
	APIURL        string
	Username      string
	Password      string
	PAT           string
	TokenCacheDir string
	SSHHost       string
	SSHPrivKey    string
	// RCFile is the rc file that was read, empty when none was found.
	RCFile string
}

// Overrides carries explicitly supplied values. They win over the
// environment, which wins over the rc file.
type Overrides struct {
	RCFile   string
	APIURL   string
	Username string
	PAT      string
}

// DefaultRCPath is ~/.config/zpools.io/zpoolrc.
func DefaultRCPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(homeDir, rcDir, rcFileName), nil
}

// Load resolves configuration as explicit > environment > rc file > default.
// A missing default rc file is not an error; a missing explicit one is.
func Load(v *viper.Viper, overrides Overrides) (Config, error) {
	if v == nil {
		v = viper.New()
	}

	rcPath := overrides.RCFile
	explicit := rcPath != ""
	if !explicit {
		defaultPath, err := DefaultRCPath()
		if err != nil {
			return Config{}, err
		}
		rcPath = defaultPath
	}
	rcPath = expandHome(rcPath)

	v.SetConfigFile(rcPath)
	v.SetConfigType(rcConfigType)
	v.SetDefault(KeyAPIURL, DefaultAPIURL)
	v.SetDefault(KeySSHHost, DefaultSSHHost)
	v.AutomaticEnv()
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return Config{}, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	readFile := rcPath
	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		switch {
		case errors.As(err, &configNotFound), errors.Is(err, fs.ErrNotExist):
			if explicit {
				return Config{}, fmt.Errorf("rc file %s not found", rcPath)
			}
			readFile = ""
		default:
			return Config{}, fmt.Errorf("read rc file %s: %w", rcPath, err)
		}
	}

	setIfPresent(v, KeyAPIURL, overrides.APIURL)
	setIfPresent(v, KeyUser, overrides.Username)
	setIfPresent(v, KeyPAT, overrides.PAT)

	cfg := Config{
		APIURL:        strings.TrimRight(strings.TrimSpace(v.GetString(KeyAPIURL)), "/"),
		Username:      strings.TrimSpace(v.GetString(KeyUser)),
		Password:      os.Getenv(EnvPassword),
		PAT:           strings.TrimSpace(v.GetString(KeyPAT)),
		TokenCacheDir: expandHome(strings.TrimSpace(v.GetString(KeyTokenCacheDir))),
		SSHHost:       strings.TrimSpace(v.GetString(KeySSHHost)),
		SSHPrivKey:    expandHome(strings.TrimSpace(v.GetString(KeySSHPrivKey))),
		RCFile:        readFile,
	}
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	return cfg, nil
}

func setIfPresent(v *viper.Viper, key, value string) {
	if strings.TrimSpace(value) != "" {
		v.Set(key, value)
	}
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(homeDir, strings.TrimPrefix(path, "~"))
}
