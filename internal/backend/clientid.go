package backend

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const clientIDFile = "client_id"

// ClientID returns the stable installation identifier, generating and
// persisting one in the state directory on first use.
func ClientID(stateDir string) (string, error) {
	path := filepath.Join(stateDir, clientIDFile)

	raw, err := os.ReadFile(path)
	if err == nil {
		id := strings.TrimSpace(string(raw))
		if _, parseErr := uuid.Parse(id); parseErr == nil {
			return id, nil
		}
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("read client id: %w", err)
	}

	id := uuid.NewString()
	if err := os.WriteFile(path, []byte(id+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("persist client id: %w", err)
	}
	return id, nil
}
