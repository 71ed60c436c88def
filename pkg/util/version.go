package util

// 通过 -ldflags "-X product-annotator/pkg/util.version=..." 注入
var (
	version   = "v0.1.0"
	gitCommit = "unknown"
	buildDate = "unknown"
)

type VersionInfo struct {
	Version   string `json:"version"`
	GitCommit string `json:"gitCommit"`
	BuildDate string `json:"buildDate"`
}

func GetVersion() VersionInfo {
	return VersionInfo{
		Version:   version,
		GitCommit: gitCommit,
		BuildDate: buildDate,
	}
}
