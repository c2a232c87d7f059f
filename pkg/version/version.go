// Package version reports how the amalgam binary was built.
package version

import (
	"fmt"
	"runtime"
	"strings"
)

// Set with -ldflags, e.g.
// go build -ldflags "-X 'amalgam/pkg/version.Version=1.2.3' -X 'amalgam/pkg/version.Commit=abcdefg'"
var (
	Version   = "dev"
	Commit    = ""
	BuildTime = ""
)

// Info describes the running binary.
type Info struct {
	Version   string
	Commit    string
	BuildTime string
	Runtime   string // Go version, OS and architecture.
}

// Get returns the build information of the running binary.
func Get() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		Runtime:   fmt.Sprintf("%s %s/%s", runtime.Version(), runtime.GOOS, runtime.GOARCH),
	}
}

// String formats the information on one line, omitting fields that were
// not stamped at build time:
//
//	amalgam 1.2.3 (abcdefg, 2024-04-27T15:04:05Z) go1.23.1 linux/amd64
func (i Info) String() string {
	var stamps []string
	if i.Commit != "" {
		stamps = append(stamps, i.Commit)
	}
	if i.BuildTime != "" {
		stamps = append(stamps, i.BuildTime)
	}

	var b strings.Builder
	b.WriteString("amalgam ")
	b.WriteString(i.Version)
	if len(stamps) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(stamps, ", "))
	}
	if i.Runtime != "" {
		b.WriteString(" ")
		b.WriteString(i.Runtime)
	}
	return b.String()
}
