package config

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. MONITORD_OUTPUT_FORMAT.
const EnvPrefix = "MONITORD"

// flagCategories groups flags for the usage text.
var flagCategories = []struct {
	title string
	names []string
}{
	{"Configuration", []string{"config", "dbus-address", "output-format", "key-prefix"}},
	{"Run Mode", []string{"daemon", "tui", "skip-preflight"}},
	{"Observability", []string{"log-format", "log-level", "verbose"}},
}

// RegisterFlags adds the command line flags to fs. Flag defaults come from
// DefaultConfig; the file and environment are applied afterwards by
// ApplyOverrides, so defaults here never mask a file value.
func RegisterFlags(fs *pflag.FlagSet) {
	d := DefaultConfig()

	fs.String("config", d.ConfigPath, "Path to the INI configuration file")
	fs.String("dbus-address", d.DBusAddress, "System bus address")
	fs.String("output-format", d.OutputFormat, "Output format: "+strings.Join(OutputFormats, ", "))
	fs.String("key-prefix", d.KeyPrefix, "Key prefix for json-flat output")

	fs.Bool("daemon", d.Daemon, "Collect every refresh interval until interrupted")
	fs.Bool("tui", d.TUIEnabled, "Show a live terminal dashboard (daemon mode)")
	fs.Bool("skip-preflight", d.SkipPreflight, "Skip preflight checks")

	fs.String("log-format", d.LogFormat, `Log format: "json" or "text"`)
	fs.String("log-level", d.LogLevel, "Log level: debug, info, warn, error")
	fs.BoolP("verbose", "v", d.Verbose, "Verbose logging (debug level)")
}

// ApplyOverrides applies flags that were set explicitly and MONITORD_*
// environment variables on top of cfg. Flags win over the environment.
func ApplyOverrides(cfg *Config, fs *pflag.FlagSet) error {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return fmt.Errorf("bind flags: %w", err)
	}

	str := func(key string, dst *string) {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}
	boolean := func(key string, dst *bool) {
		if v.IsSet(key) {
			*dst = v.GetBool(key)
		}
	}

	str("dbus-address", &cfg.DBusAddress)
	str("output-format", &cfg.OutputFormat)
	str("key-prefix", &cfg.KeyPrefix)
	boolean("daemon", &cfg.Daemon)
	boolean("tui", &cfg.TUIEnabled)
	boolean("skip-preflight", &cfg.SkipPreflight)
	str("log-format", &cfg.LogFormat)
	str("log-level", &cfg.LogLevel)
	boolean("verbose", &cfg.Verbose)
	return nil
}

// ConfigPath returns the --config value, or MONITORD_CONFIG when the flag
// was not given.
func ConfigPath(fs *pflag.FlagSet) string {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	_ = v.BindPFlag("config", fs.Lookup("config"))
	if p := v.GetString("config"); p != "" {
		return p
	}
	return DefaultPath
}

// PrintUsage writes the flags grouped by category.
func PrintUsage(w io.Writer, fs *pflag.FlagSet) {
	for _, cat := range flagCategories {
		fmt.Fprintf(w, "\n%s:\n", cat.title)
		printFlagCategory(w, fs, cat.names)
	}
}

// printFlagCategory prints flags matching the given names (helper for usage).
func printFlagCategory(w io.Writer, fs *pflag.FlagSet, names []string) {
	for _, name := range names {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		flagName := "--" + f.Name
		if f.Shorthand != "" {
			flagName = "-" + f.Shorthand + ", " + flagName
		}
		typ := f.Value.Type()
		if typ == "bool" {
			typ = ""
		}
		fmt.Fprintf(w, "  %s %s\n    \t%s", flagName, typ, f.Usage)
		if f.DefValue != "" && f.DefValue != "false" && f.DefValue != "0" {
			fmt.Fprintf(w, " (default %s)", f.DefValue)
		}
		fmt.Fprintln(w)
	}
}
