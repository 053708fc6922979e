package version

import (
	"runtime"
	rdebug "runtime/debug"
	"strings"
)

var (
	GitCommit          string
	GitBranch          string
	GitSummary         string
	BuildDate          string
	AppVersion         string
	StateswitchVersion = stateswitchVersion()
	GoVersion          = runtime.Version()
)

type Version struct {
	GitCommit          string `json:"git_commit"`
	GitBranch          string `json:"git_branch"`
	GitSummary         string `json:"git_summary"`
	BuildDate          string `json:"build_date"`
	AppVersion         string `json:"app_version"`
	GoVersion          string `json:"go_version"`
	StateswitchVersion string `json:"stateswitch_version"`
}

func Current() Version {
	return Version{
		GitBranch:          GitBranch,
		GitCommit:          GitCommit,
		GitSummary:         GitSummary,
		BuildDate:          BuildDate,
		AppVersion:         AppVersion,
		GoVersion:          GoVersion,
		StateswitchVersion: StateswitchVersion,
	}
}

func stateswitchVersion() string {
	buildInfo, ok := rdebug.ReadBuildInfo()
	if !ok {
		return ""
	}

	for _, d := range buildInfo.Deps {
		if strings.Contains(d.Path, "stateswitch") {
			return d.Version
		}
	}

	return ""
}
