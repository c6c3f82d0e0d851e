// Package credentials manages the tokens.toml file that backs the static
// token registry.
package credentials

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"

	"github.com/papercomputeco/mnemo/pkg/dotdir"
)

const (
	// TokensFile is the file name of the token table inside the .mnemo/ dir.
	TokensFile = "tokens.toml"

	tokenPrefix = "mnemo_"

	currentVersion = 0
)

// Manager manages reading and writing tokens.toml.
type Manager struct {
	targetPath string
}

// NewManager creates a new credentials Manager. If override is non-empty it is
// used as the .mnemo/ directory; otherwise the standard dotdir resolution applies.
func NewManager(override string) (*Manager, error) {
	path, err := dotdir.File(override, TokensFile)
	if err != nil {
		return nil, err
	}

	return &Manager{targetPath: path}, nil
}

// NewManagerAt creates a Manager for an explicit tokens file path.
func NewManagerAt(path string) (*Manager, error) {
	if path == "" {
		return nil, errors.New("tokens file path is required")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating tokens dir: %w", err)
	}

	return &Manager{targetPath: path}, nil
}

// NewManagerFor picks the tokens file configured as auth.tokens_file when
// set, falling back to tokens.toml in the resolved .mnemo/ directory.
func NewManagerFor(override, tokensFile string) (*Manager, error) {
	if tokensFile != "" {
		return NewManagerAt(tokensFile)
	}
	return NewManager(override)
}

// Load reads tokens.toml from the target path.
// Returns an empty Tokens if the file does not exist.
func (m *Manager) Load() (*Tokens, error) {
	data, err := os.ReadFile(m.targetPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Tokens{
				Version: currentVersion,
				Clients: make(map[string]ClientTokens),
			}, nil
		}
		return nil, fmt.Errorf("reading tokens: %w", err)
	}

	tokens := &Tokens{}
	if err := toml.Unmarshal(data, tokens); err != nil {
		return nil, fmt.Errorf("parsing tokens: %w", err)
	}

	if tokens.Clients == nil {
		tokens.Clients = make(map[string]ClientTokens)
	}

	return tokens, nil
}

// Save replaces tokens.toml with tokens, with 0600 permissions.
func (m *Manager) Save(tokens *Tokens) error {
	if tokens == nil {
		return errors.New("cannot save nil tokens")
	}

	var buf bytes.Buffer
	encoder := toml.NewEncoder(&buf)
	if err := encoder.Encode(tokens); err != nil {
		return fmt.Errorf("encoding tokens: %w", err)
	}

	return writeFileAtomic(m.targetPath, buf.Bytes())
}

// writeFileAtomic replaces path through a temp file in the same directory so
// readers, including the registry's watcher, never see a truncated table.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("writing tokens: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing tokens: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing tokens: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing tokens: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing tokens: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replacing tokens: %w", err)
	}

	return nil
}

// AddClient stores a token for the given client, replacing any previous one.
// An empty token generates a fresh random one. The stored token is returned.
func (m *Manager) AddClient(clientID, token string, scopes []string) (string, error) {
	if clientID == "" {
		return "", errors.New("client id is required")
	}
	if len(scopes) == 0 {
		return "", errors.New("at least one scope is required")
	}

	tokens, err := m.Load()
	if err != nil {
		return "", err
	}

	if token == "" {
		token = GenerateToken()
	}

	for id, existing := range tokens.Clients {
		if id != clientID && existing.Token == token {
			return "", fmt.Errorf("token already assigned to client %q", id)
		}
	}

	tokens.Clients[clientID] = ClientTokens{
		Token:  token,
		Scopes: scopes,
	}

	if err := m.Save(tokens); err != nil {
		return "", err
	}

	return token, nil
}

// GetClient returns the stored entry for the given client.
func (m *Manager) GetClient(clientID string) (ClientTokens, bool, error) {
	tokens, err := m.Load()
	if err != nil {
		return ClientTokens{}, false, err
	}

	ct, ok := tokens.Clients[clientID]
	return ct, ok, nil
}

// RemoveClient deletes the stored token for a client. Reports whether an
// entry existed.
func (m *Manager) RemoveClient(clientID string) (bool, error) {
	tokens, err := m.Load()
	if err != nil {
		return false, err
	}

	if _, ok := tokens.Clients[clientID]; !ok {
		return false, nil
	}

	delete(tokens.Clients, clientID)

	return true, m.Save(tokens)
}

// ListClients returns the ids of clients that have stored tokens.
func (m *Manager) ListClients() ([]string, error) {
	tokens, err := m.Load()
	if err != nil {
		return nil, err
	}

	clients := make([]string, 0, len(tokens.Clients))
	for id := range tokens.Clients {
		clients = append(clients, id)
	}

	sort.Strings(clients)

	return clients, nil
}

// GetTarget returns the resolved path to the tokens file.
func (m *Manager) GetTarget() string {
	return m.targetPath
}

// GenerateToken returns a new random bearer token.
func GenerateToken() string {
	return tokenPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Mask hides all but the first few characters of a token for display.
func Mask(token string) string {
	const visible = 4
	if len(token) <= visible*2 {
		return strings.Repeat("*", len(token))
	}
	return token[:visible] + strings.Repeat("*", len(token)-visible)
}
