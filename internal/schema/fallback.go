package schema

import (
	"fmt"
	"os"

	"github.com/coop-records-api/internal/models"
	"gopkg.in/yaml.v3"
)

// Fallback is the static per-domain column listing used when the
// backend cannot provide one. It is a versioned configuration asset
// loaded once at startup; see configs/schema_fallback.yaml for the
// update procedure.
type Fallback map[models.Domain][]string

type fallbackFile struct {
	Domains map[string][]string `yaml:"domains"`
}

// LoadFallback reads the schema fallback asset from path.
func LoadFallback(path string) (Fallback, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema fallback asset: %w", err)
	}

	var file fallbackFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("failed to parse schema fallback asset: %w", err)
	}

	fb := make(Fallback, len(file.Domains))
	for name, cols := range file.Domains {
		domain, err := models.ParseDomain(name)
		if err != nil {
			return nil, fmt.Errorf("schema fallback asset: %w", err)
		}
		if len(cols) == 0 {
			return nil, fmt.Errorf("schema fallback asset: domain %q has no columns", name)
		}
		fb[domain] = cols
	}

	for _, d := range models.Domains() {
		if _, ok := fb[d]; !ok {
			return nil, fmt.Errorf("schema fallback asset: domain %q missing", d)
		}
	}

	return fb, nil
}
