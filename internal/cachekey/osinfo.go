package cachekey

import (
	"regexp"
	"strings"
)

// defaultOS is what cigen assumes when a job's image doesn't name a
// recognizable OS/version pair — CircleCI's and GitHub's own default
// runner images are both Ubuntu 22.04 at the time this cache-key grammar
// was written.
var defaultOS = OSInfo{OS: "linux", Version: "ubuntu22.04"}

var osVersionPattern = regexp.MustCompile(`ubuntu-?(\d\d\.\d\d)`)

// DeriveOSInfo guesses the platform segment of a cache key from a job's
// image reference (e.g. "cimg/base:ubuntu-22.04", "ubuntu-2204:current").
// spec.md §4.4 step 4 leaves OS/os_version detection to the caller ("the
// step synthesizer knows the job's image/resource-class"); this is that
// detection, named but not derived from any single teacher file since the
// teacher has no notion of a CI runner image.
func DeriveOSInfo(image string) OSInfo {
	lower := strings.ToLower(image)
	if m := osVersionPattern.FindStringSubmatch(lower); len(m) == 2 {
		return OSInfo{OS: "linux", Version: "ubuntu" + m[1]}
	}
	if strings.Contains(lower, "alpine") {
		return OSInfo{OS: "linux", Version: "alpine"}
	}
	if strings.Contains(lower, "macos") || strings.Contains(lower, "xcode") {
		return OSInfo{OS: "macos", Version: "current"}
	}
	if strings.Contains(lower, "windows") {
		return OSInfo{OS: "windows", Version: "current"}
	}
	return defaultOS
}
