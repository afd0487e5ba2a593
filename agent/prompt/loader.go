// Package prompt owns the embedded system prompt for the
// language-generation collaborator.
package prompt

import (
	_ "embed"
	"fmt"
	"strings"
	"text/template"
)

//go:embed template/system.txt
var systemRaw string

var systemTemplate = template.Must(template.New("system").Parse(strings.TrimSpace(systemRaw)))

// SystemData carries everything the system prompt interpolates.
type SystemData struct {
	StoreName     string
	Currency      string
	DeliveryFee   string
	FreeThreshold string
	Products      string
	Categories    string
	Context       string
}

// RenderSystem fills the system prompt template.
func RenderSystem(data SystemData) (string, error) {
	var b strings.Builder
	if err := systemTemplate.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render system prompt: %w", err)
	}
	return b.String(), nil
}
