package generate

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
	"gopkg.in/yaml.v3"
)

// template is a single generation request, loaded from a batch file or
// built from command line flags.
type template struct {
	Model        string `json:"model,omitempty" yaml:"model,omitempty" csv:"model"`
	Prompt       string `json:"prompt,omitempty" yaml:"prompt,omitempty" csv:"prompt"`
	Lyrics       string `json:"lyrics,omitempty" yaml:"lyrics,omitempty" csv:"lyrics"`
	Style        string `json:"style,omitempty" yaml:"style,omitempty" csv:"style"`
	Title        string `json:"title,omitempty" yaml:"title,omitempty" csv:"title"`
	Duration     int    `json:"duration,omitempty" yaml:"duration,omitempty" csv:"duration"`
	Instrumental bool   `json:"instrumental,omitempty" yaml:"instrumental,omitempty" csv:"instrumental"`
}

func (t template) String() string {
	return fmt.Sprintf("{%s, p: %s, s: %s, i: %v}", t.Model, t.Prompt, t.Style, t.Instrumental)
}

// loadTemplates reads a batch file of generation requests. The format
// is chosen by extension: json, yaml or csv.
func loadTemplates(path string) ([]template, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("generate: couldn't read input file %s: %w", path, err)
	}
	var tmpls []template
	switch ext := filepath.Ext(path); ext {
	case ".json":
		if err := json.Unmarshal(b, &tmpls); err != nil {
			return nil, fmt.Errorf("generate: couldn't parse input file %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &tmpls); err != nil {
			return nil, fmt.Errorf("generate: couldn't parse input file %s: %w", path, err)
		}
	case ".csv":
		if err := gocsv.UnmarshalBytes(b, &tmpls); err != nil {
			return nil, fmt.Errorf("generate: couldn't parse input file %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("generate: unknown input file extension %s", ext)
	}
	if len(tmpls) == 0 {
		return nil, fmt.Errorf("generate: input file %s is empty", path)
	}
	return tmpls, nil
}
