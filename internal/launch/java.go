package launch

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultJavaHome is where installed JDKs are expected to live when no
// javaHome override is configured, one directory per major version.
const DefaultJavaHome = "/var/lib/atlas-runner/java"

// version is a parsed Minecraft version, compared component-wise.
type version [3]int

func parseVersion(s string) version {
	var v version
	parts := strings.SplitN(s, ".", 3)
	for i := 0; i < len(parts) && i < 3; i++ {
		n, err := strconv.Atoi(parts[i])
		if err != nil {
			break
		}
		v[i] = n
	}
	return v
}

func (v version) less(other version) bool {
	for i := 0; i < 3; i++ {
		if v[i] != other[i] {
			return v[i] < other[i]
		}
	}
	return false
}

func (v version) atLeast(other version) bool {
	return !v.less(other)
}

var (
	v1205 = version{1, 20, 5}
	v118  = version{1, 18, 0}
)

// RequiredJavaMajor maps a Minecraft version to the Java major version its
// server jar needs: >=1.20.5 -> 21, [1.18, 1.20.5) -> 17, otherwise -> 8.
func RequiredJavaMajor(minecraftVersion string) int {
	v := parseVersion(minecraftVersion)
	switch {
	case v.atLeast(v1205):
		return 21
	case v.atLeast(v118):
		return 17
	default:
		return 8
	}
}

// ResolveJavaMajor applies an optional override on top of the version-
// derived requirement. An override may only raise the major version, never
// lower it below what the Minecraft version itself requires.
func ResolveJavaMajor(minecraftVersion string, override int) int {
	required := RequiredJavaMajor(minecraftVersion)
	if override > required {
		return override
	}
	return required
}

// ResolveJavaBin returns explicitBin unchanged if set; otherwise it
// returns the conventional path for major under javaHome (DefaultJavaHome
// if javaHome is empty): "<javaHome>/jdk-<major>/bin/java". It does not
// check that the binary exists — provisioning the JDK itself is handled
// outside this package.
func ResolveJavaBin(javaHome string, major int, explicitBin string) string {
	if explicitBin != "" {
		return explicitBin
	}
	if javaHome == "" {
		javaHome = DefaultJavaHome
	}
	return filepath.Join(javaHome, fmt.Sprintf("jdk-%d", major), "bin", "java")
}
