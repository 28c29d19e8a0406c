package credentials

// Credentials represents the stored bearer tokens in credentials.toml.
type Credentials struct {
	Version int                         `toml:"version"`
	Targets map[string]TargetCredential `toml:"targets"`
}

// TargetCredential holds the bearer token for a single target.
type TargetCredential struct {
	Token string `toml:"token"`
}

// Source names where a resolved token came from.
type Source string

const (
	SourceNone   Source = ""
	SourceFlag   Source = "flag"
	SourceEnv    Source = "env"
	SourceStored Source = "stored"
)
