// Package version reports the semantic version of the linechat binary.
package version

import (
	"strconv"
	"strings"
)

// Commit is stamped at build time with -ldflags "-X github.com/Tyrowin/linechat/internal/version.Commit=<sha>".
var Commit string

// Current is the released version of the server.
var Current = V{Major: 0, Minor: 3, Patch: 0}

// V is a semantic version.
type V struct {
	Major, Minor, Patch uint
	PreRelease          string
	BuildMetadata       []string
}

// String formats v as MAJOR.MINOR.PATCH[-PRERELEASE][+BUILD].
func (v V) String() string {
	var buf strings.Builder
	buf.WriteString(strconv.FormatUint(uint64(v.Major), 10))
	buf.WriteByte('.')
	buf.WriteString(strconv.FormatUint(uint64(v.Minor), 10))
	buf.WriteByte('.')
	buf.WriteString(strconv.FormatUint(uint64(v.Patch), 10))
	if v.PreRelease != "" {
		buf.WriteByte('-')
		buf.WriteString(v.PreRelease)
	}
	if len(v.BuildMetadata) > 0 {
		buf.WriteByte('+')
		buf.WriteString(strings.Join(v.BuildMetadata, "."))
	}
	return buf.String()
}

// Build returns Current with the stamped commit, if any, as build metadata.
func Build() V {
	v := Current
	if Commit != "" {
		v.BuildMetadata = append(append([]string(nil), v.BuildMetadata...), Commit)
	}
	return v
}
