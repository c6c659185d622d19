package api

import (
	"fmt"
	"strconv"
)

// Version contains versioning information for the API
type Version struct {
	Major      int    `json:"major"`
	Minor      int    `json:"minor"`
	Patch      int    `json:"patch"`
	GitCommit  string `json:"git_commit,omitempty"`
	BuildDate  string `json:"build_date,omitempty"`
	APIVersion string `json:"api_version"`
}

// These values are set at build time with -ldflags "-X"
var (
	VersionMajor = "0"
	VersionMinor = "1"
	VersionPatch = "0"
	GitCommit    = "development"
	BuildDate    = "unknown"
	APIVersion   = "v1"
)

// GetVersion returns the current application version
func GetVersion() Version {
	return Version{
		Major:      parseIntOrZero(VersionMajor),
		Minor:      parseIntOrZero(VersionMinor),
		Patch:      parseIntOrZero(VersionPatch),
		GitCommit:  GitCommit,
		BuildDate:  BuildDate,
		APIVersion: APIVersion,
	}
}

func parseIntOrZero(s string) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return i
}

// GetVersionString returns the version as major.minor.patch
func GetVersionString() string {
	v := GetVersion()
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}
