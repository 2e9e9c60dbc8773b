package docindex

import (
	"strconv"
	"strings"
)

// minAvailability holds the per-platform minimum-version integers parsed
// from an availability string, nil where the platform wasn't mentioned.
type minAvailability struct {
	ios, macos, tvos, watchos, visionos *int
}

var platformFields = map[string]string{
	"ios":      "ios",
	"macos":    "macos",
	"tvos":     "tvos",
	"watchos":  "watchos",
	"visionos": "visionos",
}

// parseAvailability parses a string like "iOS 13.0+, macOS 10.15+" into
// per-platform (major*1000 + minor) integers, as compared at query time
// against the min* filters.
func parseAvailability(s string) minAvailability {
	var out minAvailability
	if s == "" {
		return out
	}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		part = strings.TrimSuffix(part, "+")
		fields := strings.Fields(part)
		if len(fields) != 2 {
			continue
		}
		platform := strings.ToLower(fields[0])
		if _, ok := platformFields[platform]; !ok {
			continue
		}
		version := versionToInt(fields[1])
		if version == nil {
			continue
		}
		switch platform {
		case "ios":
			out.ios = version
		case "macos":
			out.macos = version
		case "tvos":
			out.tvos = version
		case "watchos":
			out.watchos = version
		case "visionos":
			out.visionos = version
		}
	}
	return out
}

// versionToInt encodes "13.0" (or "13") as major*1000+minor. Anything
// that doesn't parse as at least a major version returns nil.
func versionToInt(v string) *int {
	parts := strings.SplitN(v, ".", 3)
	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return nil
	}
	minor := 0
	if len(parts) > 1 {
		minor, _ = strconv.Atoi(parts[1])
	}
	encoded := major*1000 + minor
	return &encoded
}
