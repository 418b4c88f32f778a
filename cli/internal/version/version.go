// Package version reports the build of the tablemap binary and the adapters
// compiled into it.
package version

import (
	"fmt"
	"runtime"
	"strings"

	goversion "github.com/hashicorp/go-version"

	"github.com/satishbabariya/tablemap/adapter"
)

// Set through -ldflags at release time.
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// Info holds version information
type Info struct {
	Version   string
	BuildDate string
	GitCommit string
	GoVersion string
	Platform  string
	Adapters  []string
}

// Get returns the running binary's Info, including every registered adapter.
func Get() Info {
	return Info{
		Version:   Version,
		BuildDate: BuildDate,
		GitCommit: GitCommit,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		Adapters:  adapter.List(),
	}
}

func (i Info) String() string {
	return fmt.Sprintf("tablemap version %s (%s %s)", i.Version, i.Platform, i.GoVersion)
}

// FullString is the multi-line form printed by the version command.
func (i Info) FullString() string {
	var b strings.Builder
	fmt.Fprintf(&b, "tablemap version %s\n", i.Version)
	fmt.Fprintf(&b, "Build Date: %s\n", i.BuildDate)
	fmt.Fprintf(&b, "Git Commit: %s\n", i.GitCommit)
	fmt.Fprintf(&b, "Platform: %s\n", i.Platform)
	fmt.Fprintf(&b, "Go Version: %s\n", i.GoVersion)
	adapters := "none"
	if len(i.Adapters) > 0 {
		adapters = strings.Join(i.Adapters, ", ")
	}
	fmt.Fprintf(&b, "Adapters: %s", adapters)
	return b.String()
}

// Older reports whether the CLI version is below other. Both must be
// semantic versions, with or without a leading v.
func (i Info) Older(other string) (bool, error) {
	current, err := goversion.NewVersion(i.Version)
	if err != nil {
		return false, fmt.Errorf("invalid version %q: %w", i.Version, err)
	}
	o, err := goversion.NewVersion(other)
	if err != nil {
		return false, fmt.Errorf("invalid version %q: %w", other, err)
	}
	return current.LessThan(o), nil
}
