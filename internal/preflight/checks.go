// Package preflight provides startup validation checks.
package preflight

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"syscall"

	"github.com/randomizedcoder/go-monitord/internal/config"
	"github.com/randomizedcoder/go-monitord/internal/process"
)

// minFileDescriptors covers one D-Bus connection pair per target plus the
// varlink socket, state files and logging.
const minFileDescriptors = 256

// Check represents the result of a single preflight check.
type Check struct {
	Name     string // Name of the check
	Required int    // Required value (if applicable)
	Actual   int    // Actual value found
	Passed   bool   // Whether the check passed
	Warning  bool   // True if it's a warning (non-fatal)
	Message  string // Additional context
}

// Result holds the results of all preflight checks.
type Result struct {
	Checks []Check
	Passed bool
}

// String returns a human-readable summary of the check.
func (c Check) String() string {
	status := "✓"
	if !c.Passed {
		status = "✗"
	} else if c.Warning {
		status = "⚠"
	}

	if c.Required > 0 {
		return fmt.Sprintf("  %s %s: %d available (need %d)", status, c.Name, c.Actual, c.Required)
	}
	return fmt.Sprintf("  %s %s: %s", status, c.Name, c.Message)
}

func (r *Result) add(c Check) {
	r.Checks = append(r.Checks, c)
	if !c.Passed {
		r.Passed = false
	}
}

// RunAll executes the checks that apply to cfg. Checks for disabled
// collectors are skipped.
func RunAll(cfg *config.Config) *Result {
	result := &Result{
		Checks: make([]Check, 0, 5),
		Passed: true,
	}

	result.add(checkDBusSocket(cfg.DBusAddress))
	result.add(checkFileDescriptors())

	if cfg.VarlinkEnabled {
		result.add(checkPathWarning("varlink_socket", cfg.VarlinkSocketPath))
	}
	if cfg.VerifyEnabled {
		result.add(checkAnalyze(cfg.AnalyzePath))
	}
	if cfg.NetworkdEnabled {
		result.add(checkPathWarning("link_state_dir", cfg.LinkStateDir))
	}
	return result
}

// SocketPath returns the socket path of the first address in a D-Bus
// address list when it is a unix:path= address.
func SocketPath(address string) (string, bool) {
	first, _, _ := strings.Cut(address, ";")
	params, ok := strings.CutPrefix(first, "unix:")
	if !ok {
		return "", false
	}
	for _, kv := range strings.Split(params, ",") {
		if path, ok := strings.CutPrefix(kv, "path="); ok && path != "" {
			return path, true
		}
	}
	return "", false
}

// checkDBusSocket verifies the system bus socket exists.
func checkDBusSocket(address string) Check {
	path, ok := SocketPath(address)
	if !ok {
		return Check{
			Name:    "dbus_socket",
			Passed:  true,
			Warning: true,
			Message: fmt.Sprintf("%s is not a unix:path address, not checked", address),
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return Check{
			Name:    "dbus_socket",
			Passed:  false,
			Message: fmt.Sprintf("%s: %v", path, err),
		}
	}
	if info.Mode()&os.ModeSocket == 0 {
		return Check{
			Name:    "dbus_socket",
			Passed:  false,
			Message: fmt.Sprintf("%s is not a socket", path),
		}
	}
	return Check{
		Name:    "dbus_socket",
		Passed:  true,
		Message: fmt.Sprintf("found at %s", path),
	}
}

// checkFileDescriptors verifies sufficient file descriptors are available.
func checkFileDescriptors() Check {
	var limit syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &limit); err != nil {
		return Check{
			Name:    "file_descriptors",
			Passed:  true,
			Warning: true,
			Message: fmt.Sprintf("unable to read limit: %v", err),
		}
	}

	actual := int(min(limit.Cur, 1<<30))
	return Check{
		Name:     "file_descriptors",
		Required: minFileDescriptors,
		Actual:   actual,
		Passed:   true,
		Warning:  actual < minFileDescriptors,
		Message:  fmt.Sprintf("ulimit -n %d (recommend %d)", actual, minFileDescriptors),
	}
}

// checkAnalyze verifies systemd-analyze is available and working.
func checkAnalyze(path string) Check {
	resolved, err := process.FindAnalyze(path)
	if err != nil {
		return Check{
			Name:    "systemd_analyze",
			Passed:  false,
			Message: fmt.Sprintf("not found at %s: %v", path, err),
		}
	}

	output, err := exec.Command(resolved, "--version").Output()
	if err != nil {
		return Check{
			Name:    "systemd_analyze",
			Passed:  false,
			Message: fmt.Sprintf("%s --version: %v", resolved, err),
		}
	}

	// "systemd 256 (256.1-1.fc41)"
	version := "unknown"
	first, _, _ := strings.Cut(string(output), "\n")
	if parts := strings.Fields(first); len(parts) >= 2 {
		version = parts[1]
	}

	return Check{
		Name:    "systemd_analyze",
		Passed:  true,
		Message: fmt.Sprintf("found at %s (version %s)", resolved, version),
	}
}

// checkPathWarning warns when an optional path is missing.
func checkPathWarning(name, path string) Check {
	if _, err := os.Stat(path); err != nil {
		return Check{
			Name:    name,
			Passed:  true,
			Warning: true,
			Message: fmt.Sprintf("%s: %v (collector will fail until it appears)", path, err),
		}
	}
	return Check{
		Name:    name,
		Passed:  true,
		Message: fmt.Sprintf("found at %s", path),
	}
}

// PrintResults prints the preflight check results.
func PrintResults(w io.Writer, result *Result) {
	fmt.Fprintln(w, "Preflight checks:")
	for _, check := range result.Checks {
		fmt.Fprintln(w, check.String())
		if !check.Passed {
			fmt.Fprintf(w, "    Fix: %s\n", suggestFix(check.Name))
		}
	}
	fmt.Fprintln(w)
}

// suggestFix returns a suggestion for fixing a failed check.
func suggestFix(name string) string {
	switch name {
	case "dbus_socket":
		return "start dbus-broker or dbus-daemon, or set dbus_address in [monitord]"
	case "file_descriptors":
		return "raise LimitNOFILE= in the monitord unit"
	case "systemd_analyze":
		return "install systemd (systemd-analyze) or disable [verify]"
	case "varlink_socket":
		return "requires systemd 257+, or disable [varlink]"
	case "link_state_dir":
		return "enable systemd-networkd or disable [networkd]"
	default:
		return "see documentation"
	}
}
