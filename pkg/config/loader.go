package config

import (
	"errors"
	"os"
	"strings"

	"github.com/kkyr/fig"
)

const EnvPrefix = "CLOUD_CALL"

// LoadConfig loads a configuration file into the given struct.
// The path param specifies a custom directory of the configuration file.
// Reads and puts environment variables with the prefix CLOUD_CALL_.
// Params from the config should be in uppercase separated with _.
// When no file is found, it falls back to defaults and env.
func LoadConfig(config any, name string, path string) error {
	dirs := []string{path}
	if path == "" {
		dirs = append(dirs, ".", "configs", "../../configs")
		if home, err := os.UserHomeDir(); err == nil {
			dirs = append(dirs, home+"/.cloud-call")
		}
	}
	err := fig.Load(config, fig.File(name), fig.Dirs(dirs...), fig.UseEnv(EnvPrefix))
	if errors.Is(err, fig.ErrFileNotFound) {
		return LoadConfigEnv(config)
	}
	return err
}

func LoadConfigEnv(config any) error {
	return fig.Load(config, fig.IgnoreFile(), fig.UseEnv(EnvPrefix))
}

// Path extracts the --conf value from the raw command line args,
// so the file can be read before the rest of the flags override it.
func Path(args []string) string {
	for i, a := range args {
		switch {
		case strings.HasPrefix(a, "--conf="):
			return strings.TrimPrefix(a, "--conf=")
		case a == "--conf" && i+1 < len(args):
			return args[i+1]
		}
	}
	return ""
}
