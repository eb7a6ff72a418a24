package wechat

import (
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// Template maps a notification kind onto a WeChat subscribe-message template
type Template struct {
	TemplateID string `yaml:"template_id"`
	// Page may contain {ref_id}, replaced with the notification's reference id
	Page string `yaml:"page"`
	// Fields maps WeChat data keys (thing1, time2 ...) to notification data keys
	Fields map[string]string `yaml:"fields"`
}

// Catalogue is the set of templates keyed by notification kind
type Catalogue struct {
	Templates map[string]Template `yaml:"templates"`
}

// LoadTemplates reads a YAML template catalogue. A missing file yields an empty
// catalogue so that WeChat delivery is simply skipped.
func LoadTemplates(path string) (*Catalogue, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Catalogue{Templates: map[string]Template{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read wechat templates: %w", err)
	}
	return ParseTemplates(raw)
}

// ParseTemplates decodes a YAML template catalogue
func ParseTemplates(raw []byte) (*Catalogue, error) {
	var c Catalogue
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("parse wechat templates: %w", err)
	}
	if c.Templates == nil {
		c.Templates = map[string]Template{}
	}
	for kind, t := range c.Templates {
		if t.TemplateID == "" {
			return nil, fmt.Errorf("wechat template %s: template_id is required", kind)
		}
	}
	return &c, nil
}

// Lookup returns the template configured for a kind
func (c *Catalogue) Lookup(kind string) (Template, bool) {
	if c == nil {
		return Template{}, false
	}
	t, ok := c.Templates[kind]
	return t, ok
}

// PagePath renders the page path for a reference id
func (t Template) PagePath(refID string) string {
	return strings.ReplaceAll(t.Page, "{ref_id}", refID)
}

// Render builds the template data from notification values, truncating each
// value to the limit WeChat enforces for the field type.
func (t Template) Render(data map[string]string) map[string]string {
	out := make(map[string]string, len(t.Fields))
	for wxKey, dataKey := range t.Fields {
		v, ok := data[dataKey]
		if !ok || v == "" {
			v = "-"
		}
		out[wxKey] = truncate(v, fieldLimit(wxKey))
	}
	return out
}

// fieldLimit returns the maximum rune length for a WeChat data key. Keys are
// named by type prefix followed by a sequence number.
func fieldLimit(key string) int {
	switch {
	case strings.HasPrefix(key, "thing"):
		return 20
	case strings.HasPrefix(key, "character_string"):
		return 32
	case strings.HasPrefix(key, "phrase"):
		return 5
	case strings.HasPrefix(key, "name"):
		return 10
	case strings.HasPrefix(key, "amount"), strings.HasPrefix(key, "number"):
		return 32
	default:
		return 20
	}
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	r := []rune(s)
	if limit <= 1 {
		return string(r[:limit])
	}
	return string(r[:limit-1]) + "…"
}
