package credentials

// Tokens represents the stored client tokens in tokens.toml.
type Tokens struct {
	Version int                     `toml:"version"`
	Clients map[string]ClientTokens `toml:"clients"`
}

// ClientTokens holds the bearer token and granted scopes for a single client.
type ClientTokens struct {
	Token  string   `toml:"token"`
	Scopes []string `toml:"scopes"`
}
