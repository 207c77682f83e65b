package finding

import (
	"fmt"
	"strings"

	sharedErrors "github.com/khanhnv2901/gh-recon/internal/shared/errors"
)

// Ecosystem is a package-manager namespace with its own registry.
type Ecosystem string

const (
	EcosystemNPM  Ecosystem = "npm"
	EcosystemPyPI Ecosystem = "pypi"
	EcosystemGem  Ecosystem = "gem"
	EcosystemGo   Ecosystem = "go"
)

var ecosystemOrder = []Ecosystem{EcosystemNPM, EcosystemPyPI, EcosystemGem, EcosystemGo}

// Ecosystems returns every supported ecosystem in report order.
func Ecosystems() []Ecosystem {
	out := make([]Ecosystem, len(ecosystemOrder))
	copy(out, ecosystemOrder)
	return out
}

// ParseEcosystem accepts the canonical names plus a few common aliases.
func ParseEcosystem(s string) (Ecosystem, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "npm", "node", "js":
		return EcosystemNPM, nil
	case "pypi", "pip", "python":
		return EcosystemPyPI, nil
	case "gem", "gems", "rubygems", "ruby":
		return EcosystemGem, nil
	case "go", "golang", "go-modules", "gomod":
		return EcosystemGo, nil
	}
	return "", fmt.Errorf("%w: %q", sharedErrors.ErrUnknownEcosystem, s)
}

// Valid reports whether e is one of the supported ecosystems.
func (e Ecosystem) Valid() bool {
	for _, known := range ecosystemOrder {
		if e == known {
			return true
		}
	}
	return false
}

func (e Ecosystem) String() string {
	return string(e)
}

// Title is the upper-cased label used for report section headers.
func (e Ecosystem) Title() string {
	return strings.ToUpper(string(e))
}

// PackageRef names one package inside one ecosystem.
type PackageRef struct {
	Ecosystem Ecosystem
	Name      string
}

func (p PackageRef) String() string {
	return p.Ecosystem.String() + ":" + p.Name
}
