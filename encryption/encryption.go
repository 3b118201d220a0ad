// Package encryption handles at-rest encryption of credential material.
package encryption

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fernet/fernet-go"

	"github.com/dxlander/dxlander/domain"
)

// EncryptionService handles encryption/decryption of sensitive data
type EncryptionService struct {
	key *fernet.Key
}

// NewEncryptionService creates a new encryption service with the provided key
func NewEncryptionService(keyString string) (*EncryptionService, error) {
	if keyString == "" {
		return nil, fmt.Errorf("encryption key cannot be empty")
	}

	key, err := fernet.DecodeKey(keyString)
	if err != nil {
		return nil, fmt.Errorf("invalid encryption key: %w", err)
	}

	return &EncryptionService{key: key}, nil
}

// GenerateKey creates a new random fernet key in its encoded form.
func GenerateKey() (string, error) {
	var key fernet.Key
	if err := key.Generate(); err != nil {
		return "", fmt.Errorf("failed to generate encryption key: %w", err)
	}
	return key.Encode(), nil
}

// Encrypt encrypts plaintext and returns a base64-encoded token
func (e *EncryptionService) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil // Don't encrypt empty strings
	}

	token, err := fernet.EncryptAndSign([]byte(plaintext), e.key)
	if err != nil {
		return "", fmt.Errorf("encryption failed: %w", err)
	}
	return base64.StdEncoding.EncodeToString(token), nil
}

// Decrypt decrypts a base64-encoded token and returns plaintext
func (e *EncryptionService) Decrypt(token string) (string, error) {
	if token == "" {
		return "", nil // Return empty string for empty tokens
	}

	// Decode base64 first
	tokenBytes, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return "", fmt.Errorf("invalid token format: %w", err)
	}

	// Set TTL to 100 years - we don't want credentials to expire
	plaintext := fernet.VerifyAndDecrypt(tokenBytes, time.Hour*24*365*100, []*fernet.Key{e.key})
	if plaintext == nil {
		return "", fmt.Errorf("failed to decrypt token: invalid or expired")
	}

	return string(plaintext), nil
}

// EncryptCredentials serializes and encrypts an integration's credential map.
func (e *EncryptionService) EncryptCredentials(credentials map[string]string) (string, error) {
	if len(credentials) == 0 {
		return "", nil
	}

	data, err := json.Marshal(credentials)
	if err != nil {
		return "", fmt.Errorf("failed to serialize credentials: %w", err)
	}

	encrypted, err := e.Encrypt(string(data))
	if err != nil {
		return "", fmt.Errorf("failed to encrypt credentials: %w", err)
	}
	return encrypted, nil
}

// DecryptCredentials decrypts an encrypted credential blob back into a map.
func (e *EncryptionService) DecryptCredentials(encrypted string) (map[string]string, error) {
	if encrypted == "" {
		return map[string]string{}, nil
	}

	data, err := e.Decrypt(encrypted)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt credentials: %w", err)
	}

	var credentials map[string]string
	if err := json.Unmarshal([]byte(data), &credentials); err != nil {
		return nil, fmt.Errorf("failed to deserialize credentials: %w", err)
	}
	return credentials, nil
}

// GitAuthCredentials represents the structure for storing all Git authentication credentials
type GitAuthCredentials struct {
	HTTP *domain.GitHTTPAuthConfig `json:"http,omitempty"`
	SSH  *domain.GitSSHAuthConfig  `json:"ssh,omitempty"`
}

// EncryptGitAuthConfig encrypts a GitAuthConfig for database storage
func (e *EncryptionService) EncryptGitAuthConfig(
	auth *domain.GitAuthConfig,
) (authType string, encryptedCredentials string, err error) {
	if auth == nil {
		return "", "", nil
	}

	// Convert GitAuthConfig to GitAuthCredentials
	credentials := &GitAuthCredentials{}
	var authTypeValue domain.GitAuthType

	if auth.HTTPAuth != nil {
		credentials.HTTP = auth.HTTPAuth
		authTypeValue = domain.GitAuthTypeHTTP
	}

	if auth.SSHAuth != nil {
		credentials.SSH = auth.SSHAuth
		authTypeValue = domain.GitAuthTypeSSH
	}

	// If no auth is set, return empty
	if credentials.HTTP == nil && credentials.SSH == nil {
		return "", "", nil
	}

	// Serialize credentials
	credentialsData, err := json.Marshal(credentials)
	if err != nil {
		return "", "", fmt.Errorf("failed to serialize credentials: %w", err)
	}

	// Encrypt the serialized data
	encryptedData, err := e.Encrypt(string(credentialsData))
	if err != nil {
		return "", "", fmt.Errorf("failed to encrypt credentials: %w", err)
	}

	return authTypeValue.String(), encryptedData, nil
}

// DecryptGitAuthConfig decrypts credentials back to GitAuthConfig
func (e *EncryptionService) DecryptGitAuthConfig(
	authType string,
	encryptedCredentials string,
) (*domain.GitAuthConfig, error) {
	if authType == "" || encryptedCredentials == "" {
		return nil, nil
	}

	// Parse the authType string into GitAuthType enum
	parsedAuthType, err := domain.ParseGitAuthType(authType)
	if err != nil {
		return nil, fmt.Errorf("invalid auth type: %w", err)
	}

	// Decrypt the serialized data
	credentialsData, err := e.Decrypt(encryptedCredentials)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt credentials: %w", err)
	}

	// Deserialize credentials
	var credentials GitAuthCredentials
	if err := json.Unmarshal([]byte(credentialsData), &credentials); err != nil {
		return nil, fmt.Errorf("failed to deserialize credentials: %w", err)
	}

	// Convert GitAuthCredentials to GitAuthConfig
	auth := &domain.GitAuthConfig{}

	if credentials.HTTP != nil && parsedAuthType == domain.GitAuthTypeHTTP {
		auth.HTTPAuth = credentials.HTTP
	}

	if credentials.SSH != nil && parsedAuthType == domain.GitAuthTypeSSH {
		auth.SSHAuth = credentials.SSH
	}

	return auth, nil
}
