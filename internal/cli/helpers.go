package cli

import (
	"fmt"
	"strings"

	"github.com/emiliopalmerini/abcta/internal/adapters/storage"
	"github.com/emiliopalmerini/abcta/internal/domain"
)

// openProfile opens a profile file by explicit path, or by name under the
// XDG data directory.
func openProfile(name, path string) (*storage.ProfileStore, error) {
	if path != "" {
		return storage.NewProfileStoreAt(path)
	}
	p, err := storage.NewProfileStore(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open profile %q: %w", name, err)
	}
	return p, nil
}

// endpointURL joins the collector base URL with the experiment endpoint.
// An absolute endpoint is used as-is.
func endpointURL(collector, endpoint string) string {
	if endpoint == "" {
		endpoint = domain.DefaultEndpoint
	}
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	return strings.TrimRight(collector, "/") + "/" + strings.TrimLeft(endpoint, "/")
}

// nopTransport drops every record.
type nopTransport struct{}

func (nopTransport) Send(domain.Properties) {}
