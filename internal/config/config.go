package config

import "os"

// Config captures the tunables the chaintrust CLI runs with. The core
// library packages take no configuration.
type Config struct {
	// StorePath locates the sqlite trust archive.
	StorePath string
	// LogFile receives CLI logs; "console" keeps them on stderr.
	LogFile  string
	LogLevel string
	// GPGBinary is invoked for OpenPGP signing and key lookup.
	GPGBinary string
	// GPGHome overrides GNUPGHOME for gpg invocations when set.
	GPGHome string
}

func Default() *Config {
	return &Config{
		StorePath: "chaintrust.db",
		LogFile:   "console",
		LogLevel:  "info",
		GPGBinary: "gpg",
	}
}

// LoadEnv applies CHAINTRUST_* environment overrides. Flag values bound
// by the CLI are parsed afterwards and win over these.
func (c *Config) LoadEnv() {
	for env, target := range map[string]*string{
		"CHAINTRUST_STORE":     &c.StorePath,
		"CHAINTRUST_LOG_FILE":  &c.LogFile,
		"CHAINTRUST_LOG_LEVEL": &c.LogLevel,
		"CHAINTRUST_GPG":       &c.GPGBinary,
		"CHAINTRUST_GPG_HOME":  &c.GPGHome,
	} {
		if v, ok := os.LookupEnv(env); ok {
			*target = v
		}
	}
}
