package auth

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/oukeidos/jsontp/internal/metadata"
	"github.com/zalando/go-keyring"
	"golang.org/x/term"
)

const serviceName = "jsontp"

// Source names where a key was found.
const (
	SourceKeychain = "Keychain"
	SourceEnv      = "Environment Variable"
)

type account struct {
	name   string
	envVar string
}

var accounts = map[string]account{
	metadata.ProviderOpenAI: {name: "openai-api-key", envVar: "OPENAI_API_KEY"},
	metadata.ProviderGemini: {name: "gemini-api-key", envVar: "GEMINI_API_KEY"},
}

func lookup(provider string) (account, error) {
	a, ok := accounts[provider]
	if !ok {
		return account{}, fmt.Errorf("unsupported provider %q", provider)
	}
	return a, nil
}

// EnvVar returns the environment variable consulted for provider.
func EnvVar(provider string) string {
	return accounts[provider].envVar
}

// GetKey retrieves the API key for provider from the keychain, then from the
// environment when allowEnv is set. It returns the key and where it came from.
func GetKey(provider string, allowEnv bool) (string, string) {
	a, err := lookup(provider)
	if err != nil {
		return "", ""
	}
	if key, err := keyring.Get(serviceName, a.name); err == nil && strings.TrimSpace(key) != "" {
		return strings.TrimSpace(key), SourceKeychain
	}
	if allowEnv {
		if key := strings.TrimSpace(os.Getenv(a.envVar)); key != "" {
			return key, SourceEnv
		}
	}
	return "", ""
}

// SaveKey stores the key for provider in the OS keychain.
func SaveKey(provider, key string) error {
	a, err := lookup(provider)
	if err != nil {
		return err
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("API key must not be empty")
	}
	return keyring.Set(serviceName, a.name, key)
}

// DeleteKey removes the key for provider from the OS keychain. A missing key
// is not an error.
func DeleteKey(provider string) error {
	a, err := lookup(provider)
	if err != nil {
		return err
	}
	if err := keyring.Delete(serviceName, a.name); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return err
	}
	return nil
}

// GetStatus reports whether a key for provider exists in the keychain.
func GetStatus(provider string) bool {
	a, err := lookup(provider)
	if err != nil {
		return false
	}
	key, err := keyring.Get(serviceName, a.name)
	return err == nil && key != ""
}

// GetEnvKey retrieves the key for provider from the environment only.
func GetEnvKey(provider string) (string, bool) {
	a, err := lookup(provider)
	if err != nil {
		return "", false
	}
	key := strings.TrimSpace(os.Getenv(a.envVar))
	return key, key != ""
}

// PromptForAPIKey reads a key from the terminal without echo.
func PromptForAPIKey(out io.Writer, prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("stdin is not a terminal: cannot prompt for API key")
	}
	fmt.Fprint(out, prompt)
	secret, err := term.ReadPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(secret)), nil
}
