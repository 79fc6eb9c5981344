package mission

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Defaults fill in mission fields that the definition omits.
type Defaults struct {
	Speed    float64
	Altitude float64
}

// Load reads, decodes and validates a mission definition file. YAML and
// JSON are both accepted, decided by file extension.
func Load(path string, defaults Defaults) (*Mission, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithMessage(err, "reading mission file")
	}

	switch filepath.Ext(path) {
	case ".json":
		return Parse(data, true, defaults)
	default:
		return Parse(data, false, defaults)
	}
}

// Parse decodes a raw mission definition, applies defaults and validates.
func Parse(data []byte, isJSON bool, defaults Defaults) (*Mission, error) {
	var m Mission
	var err error
	if isJSON {
		err = json.Unmarshal(data, &m)
	} else {
		err = yaml.Unmarshal(data, &m)
	}
	if err != nil {
		return nil, errors.WithMessage(err, "decoding mission definition")
	}

	m.applyDefaults(defaults)
	if err := m.Validate(); err != nil {
		return nil, err
	}

	log.Printf("Loaded mission: %s (%d waypoints)", m.Name, len(m.Waypoints))
	return &m, nil
}

func (m *Mission) applyDefaults(defaults Defaults) {
	if m.Name == "" {
		m.Name = "Unnamed Mission"
	}
	if m.MaxSpeed == 0 {
		m.MaxSpeed = defaults.Speed
	}
	if m.DefaultAltitude == 0 {
		m.DefaultAltitude = defaults.Altitude
	}
	if m.PayloadMetadata == nil {
		m.PayloadMetadata = map[string]string{}
	}
	for i := range m.Waypoints {
		if m.Waypoints[i].Alt == 0 {
			m.Waypoints[i].Alt = m.DefaultAltitude
		}
		if m.Waypoints[i].Action == "" {
			m.Waypoints[i].Action = ActionNone
		}
	}
}

// Find resolves a mission id to a definition file under dir, trying the
// supported extensions in order.
func Find(dir, id string) (string, error) {
	for _, ext := range []string{".yaml", ".yml", ".json"} {
		path := filepath.Join(dir, id+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", errors.Errorf("no mission definition for %q in %s", id, dir)
}

// FindAndLoad combines Find and Load for the start-command path.
func FindAndLoad(dir, id string, defaults Defaults) (*Mission, error) {
	path, err := Find(dir, id)
	if err != nil {
		return nil, err
	}

	m, err := Load(path, defaults)
	if err != nil {
		return nil, errors.WithMessage(err, fmt.Sprintf("mission %q", id))
	}

	return m, nil
}
