// Package credentials stores the bearer tokens agentchat sends to the agent
// service and that the relay requires from its own clients.
package credentials

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"

	"github.com/BurntSushi/toml"

	"github.com/papercomputeco/agentchat/pkg/dotdir"
)

const (
	credentialsFile = "credentials.toml"

	currentVersion = 0
)

const (
	// TargetAgent is the token sent to the agent service as
	// "Authorization: Bearer <token>".
	TargetAgent = "agent"

	// TargetRelay is the token the relay requires from its clients.
	TargetRelay = "relay"
)

// targetEnvVars maps targets to the environment variables that override
// their stored tokens.
var targetEnvVars = map[string]string{
	TargetAgent: "AGENTCHAT_TOKEN",
	TargetRelay: "AGENTCHAT_RELAY_TOKEN",
}

// Manager manages reading and writing credentials.toml in the .agentchat/ directory.
type Manager struct {
	ddm        *dotdir.Manager
	targetPath string
}

// NewManager creates a new credentials Manager. If override is non-empty it is
// used as the .agentchat/ directory; otherwise the standard dotdir resolution
// applies.
func NewManager(override string) (*Manager, error) {
	mgr := &Manager{}
	mgr.ddm = dotdir.NewManager()

	target, err := mgr.ddm.Target(override)
	if err != nil {
		return nil, err
	}

	mgr.targetPath = filepath.Join(target, credentialsFile)

	return mgr, nil
}

// Load reads credentials.toml from the target directory.
// Returns an empty Credentials if the file does not exist.
func (m *Manager) Load() (*Credentials, error) {
	data, err := os.ReadFile(m.targetPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Credentials{
				Version: currentVersion,
				Targets: make(map[string]TargetCredential),
			}, nil
		}
		return nil, fmt.Errorf("reading credentials: %w", err)
	}

	creds := &Credentials{}
	if err := toml.Unmarshal(data, creds); err != nil {
		return nil, fmt.Errorf("parsing credentials: %w", err)
	}

	if creds.Targets == nil {
		creds.Targets = make(map[string]TargetCredential)
	}

	return creds, nil
}

// Save writes credentials to credentials.toml with 0600 permissions.
func (m *Manager) Save(creds *Credentials) error {
	if creds == nil {
		return errors.New("cannot save nil credentials")
	}

	var buf bytes.Buffer
	encoder := toml.NewEncoder(&buf)
	if err := encoder.Encode(creds); err != nil {
		return fmt.Errorf("encoding credentials: %w", err)
	}

	if err := os.WriteFile(m.targetPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}

	return nil
}

// SetToken stores a bearer token for the given target.
func (m *Manager) SetToken(target, token string) error {
	if !IsSupportedTarget(target) {
		return fmt.Errorf("unsupported target: %q", target)
	}

	creds, err := m.Load()
	if err != nil {
		return err
	}

	creds.Targets[target] = TargetCredential{Token: token}

	return m.Save(creds)
}

// GetToken returns the stored token for the given target.
// Returns an empty string if no token is stored.
func (m *Manager) GetToken(target string) (string, error) {
	creds, err := m.Load()
	if err != nil {
		return "", err
	}

	return creds.Targets[target].Token, nil
}

// RemoveToken deletes the stored credential for a target.
func (m *Manager) RemoveToken(target string) error {
	creds, err := m.Load()
	if err != nil {
		return err
	}

	delete(creds.Targets, target)

	return m.Save(creds)
}

// ListTargets returns the names of targets that have stored credentials.
func (m *Manager) ListTargets() ([]string, error) {
	creds, err := m.Load()
	if err != nil {
		return nil, err
	}

	targets := make([]string, 0, len(creds.Targets))
	for name := range creds.Targets {
		targets = append(targets, name)
	}

	sort.Strings(targets)

	return targets, nil
}

// Resolve returns the token for target using, in order, the explicit value,
// the target's environment variable and the stored credential. An empty
// token with SourceNone means no token is configured, which is valid for
// agent services that run without auth.
func (m *Manager) Resolve(target, explicit string) (string, Source, error) {
	if explicit != "" {
		return explicit, SourceFlag, nil
	}

	if env := EnvVarForTarget(target); env != "" {
		if v := os.Getenv(env); v != "" {
			return v, SourceEnv, nil
		}
	}

	token, err := m.GetToken(target)
	if err != nil {
		return "", SourceNone, err
	}
	if token != "" {
		return token, SourceStored, nil
	}

	return "", SourceNone, nil
}

// GetTarget returns the resolved path to the credentials file.
func (m *Manager) GetTarget() string {
	return m.targetPath
}

// EnvVarForTarget returns the environment variable name for a given target.
// Returns an empty string for unknown targets.
func EnvVarForTarget(target string) string {
	return targetEnvVars[target]
}

// SupportedTargets returns the list of targets that can hold a token.
func SupportedTargets() []string {
	return []string{TargetAgent, TargetRelay}
}

// IsSupportedTarget returns true if the given target is supported.
func IsSupportedTarget(target string) bool {
	return slices.Contains(SupportedTargets(), target)
}
