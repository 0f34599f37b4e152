package generate

import (
	"os"
	"path/filepath"
	"testing"
)

func writeInput(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("couldn't write input file: %v", err)
	}
	return path
}

func TestLoadTemplates(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name: "json",
			file: "input.json",
			content: `[
  {"model": "suno", "prompt": "a dreamy synthwave track"},
  {"model": "nuro", "prompt": "ambient piano", "instrumental": true}
]`,
		},
		{
			name: "yaml",
			file: "input.yaml",
			content: `- model: suno
  prompt: a dreamy synthwave track
- model: nuro
  prompt: ambient piano
  instrumental: true
`,
		},
		{
			name: "csv",
			file: "input.csv",
			content: `model,prompt,lyrics,style,title,duration,instrumental
suno,a dreamy synthwave track,,,,0,false
nuro,ambient piano,,,,0,true
`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeInput(t, tt.file, tt.content)
			tmpls, err := loadTemplates(path)
			if err != nil {
				t.Fatalf("couldn't load templates: %v", err)
			}
			if len(tmpls) != 2 {
				t.Fatalf("invalid number of templates: %d", len(tmpls))
			}
			if tmpls[0].Model != "suno" || tmpls[0].Prompt != "a dreamy synthwave track" {
				t.Errorf("invalid first template: %+v", tmpls[0])
			}
			if tmpls[1].Model != "nuro" || !tmpls[1].Instrumental {
				t.Errorf("invalid second template: %+v", tmpls[1])
			}
		})
	}
}

func TestLoadTemplatesErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{name: "unknown extension", file: "input.txt", content: "prompt"},
		{name: "empty list", file: "input.json", content: "[]"},
		{name: "invalid json", file: "input.json", content: "{"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeInput(t, tt.file, tt.content)
			if _, err := loadTemplates(path); err == nil {
				t.Error("expected error")
			}
		})
	}
}
