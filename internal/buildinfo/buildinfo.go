package buildinfo

var (
	Version    = "v0.3.0"
	CommitHash = "unknown"
)

type Info struct {
	Service    string `json:"service,omitempty"`
	Version    string `json:"version,omitempty"`
	CommitHash string `json:"commit_hash,omitempty"`
}

func GetBuildInfo() Info {
	return Info{
		Service:    "minterra",
		Version:    Version,
		CommitHash: CommitHash,
	}
}
