package tabs

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"clickloop/internal/adapter/tui/theme"
	"clickloop/internal/domain"
)

// ConfigModel shows the saved cycle settings above the process config
// rendered as YAML with secrets masked.
type ConfigModel struct {
	Viewport viewport.Model
	settings domain.Settings
	yaml     string
	ready    bool
}

// NewConfig creates a config viewer tab.
func NewConfig() ConfigModel {
	return ConfigModel{settings: domain.DefaultSettings()}
}

// SetSize sets dimensions.
func (m *ConfigModel) SetSize(w, h int) {
	if !m.ready {
		m.Viewport = viewport.New(w, h-1)
		m.Viewport.MouseWheelEnabled = true
		m.ready = true
	} else {
		m.Viewport.Width = w
		m.Viewport.Height = h - 1
	}
	m.refresh()
}

// SetYAML sets the process configuration text.
func (m *ConfigModel) SetYAML(yaml string) {
	m.yaml = MaskSecrets(yaml)
	m.refresh()
}

// SetSettings sets the saved cycle settings.
func (m *ConfigModel) SetSettings(s domain.Settings) {
	m.settings = s
	m.refresh()
}

func (m *ConfigModel) refresh() {
	if !m.ready {
		return
	}
	var sb strings.Builder
	sb.WriteString(theme.Bold.Render("Settings") + "\n")
	fmt.Fprintf(&sb, "  mode: %s\n", m.settings.Mode)
	fmt.Fprintf(&sb, "  globalInterval: %d\n", m.settings.GlobalInterval)
	fmt.Fprintf(&sb, "  maxTotalIterations: %d\n", m.settings.MaxTotalIterations)
	if m.settings.UserAgent != "" {
		fmt.Fprintf(&sb, "  userAgent: %s\n", m.settings.UserAgent)
	}
	if m.yaml != "" {
		sb.WriteString("\n" + theme.Bold.Render("Config") + "\n" + m.yaml)
	}
	m.Viewport.SetContent(sb.String())
}

// Update handles viewport scrolling.
func (m ConfigModel) Update(msg tea.Msg) (ConfigModel, tea.Cmd) {
	if !m.ready {
		return m, nil
	}
	var cmd tea.Cmd
	m.Viewport, cmd = m.Viewport.Update(msg)
	return m, cmd
}

// View renders the config tab.
func (m ConfigModel) View() string {
	if !m.ready {
		return ""
	}
	return theme.TextMuted.Render("  Read-only view (secrets masked). Edit with: clickloop settings set") + "\n" + m.Viewport.View()
}

// MaskSecrets replaces values of known secret keys with asterisks.
func MaskSecrets(yaml string) string {
	secretKeys := []string{"api_key", "token", "secret", "passphrase"}
	lines := strings.Split(yaml, "\n")
	for i, line := range lines {
		trimmed := strings.TrimLeft(strings.TrimSpace(line), "- ")
		for _, key := range secretKeys {
			if !strings.HasPrefix(trimmed, key+":") {
				continue
			}
			idx := strings.Index(line, key+":") + len(key) + 1
			val := strings.TrimSpace(line[idx:])
			if val != "" && val != `""` && val != "''" {
				lines[i] = line[:idx] + " ****"
			}
		}
	}
	return strings.Join(lines, "\n")
}
