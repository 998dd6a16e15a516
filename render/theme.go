package render

import (
	"fmt"
	"sort"
	"strings"

	theme "github.com/goliatone/go-theme"
)

// Theme tokens understood by the form template.
const (
	TokenPrimaryColor     = "primaryColor"
	TokenBackgroundColor  = "backgroundColor"
	TokenBorderColor      = "borderColor"
	TokenTextColor        = "textColor"
	TokenDestructiveColor = "destructiveColor"
	TokenMutedTextColor   = "mutedTextColor"
)

var TokenNames = []string{
	TokenPrimaryColor,
	TokenBackgroundColor,
	TokenBorderColor,
	TokenTextColor,
	TokenDestructiveColor,
	TokenMutedTextColor,
}

const (
	DefaultThemeName = "hrdesk"
	// VariantChat is the palette used when a form is embedded in the chat transcript.
	VariantChat = "chat"
)

// DefaultManifest is the built-in theme. The base tokens are the engine
// defaults; the chat variant matches the chat transcript.
func DefaultManifest() *theme.Manifest {
	return &theme.Manifest{
		Name:    DefaultThemeName,
		Version: "1.0.0",
		Tokens: map[string]string{
			TokenPrimaryColor:     "bg-blue-600 hover:bg-blue-700",
			TokenBackgroundColor:  "bg-white",
			TokenBorderColor:      "border-gray-300",
			TokenTextColor:        "text-gray-900",
			TokenDestructiveColor: "text-red-600",
			TokenMutedTextColor:   "text-gray-500",
		},
		Assets: theme.Assets{
			Prefix: "https://cdn.tailwindcss.com",
			Files: map[string]string{
				"stylesheet": "3.4.16",
			},
		},
		Variants: map[string]theme.Variant{
			VariantChat: {
				Tokens: map[string]string{
					TokenPrimaryColor:     "bg-black hover:bg-gray-700",
					TokenBackgroundColor:  "bg-gray-50",
					TokenBorderColor:      "border-gray-400",
					TokenTextColor:        "text-gray-800",
					TokenDestructiveColor: "text-red-500",
					TokenMutedTextColor:   "text-gray-500",
				},
			},
		},
	}
}

// Themes holds the registered manifests and resolves renderer configs from
// them. It satisfies theme.ThemeSelector.
type Themes struct {
	provider       theme.ThemeProvider
	manifests      map[string]*theme.Manifest
	defaultTheme   string
	defaultVariant string
}

var _ theme.ThemeSelector = (*Themes)(nil)

// NewThemes registers the manifests, DefaultManifest first when none are given.
func NewThemes(defaultVariant string, manifests ...*theme.Manifest) (*Themes, error) {
	if len(manifests) == 0 {
		manifests = []*theme.Manifest{DefaultManifest()}
	}
	registry := theme.NewRegistry()
	t := &Themes{
		provider:       registry,
		manifests:      make(map[string]*theme.Manifest, len(manifests)),
		defaultTheme:   manifests[0].Name,
		defaultVariant: defaultVariant,
	}
	for _, m := range manifests {
		if m == nil {
			continue
		}
		if err := registry.Register(m); err != nil {
			return nil, fmt.Errorf("register theme %q: %w", m.Name, err)
		}
		t.manifests[m.Name] = m
	}
	if defaultVariant != "" {
		if _, ok := t.manifests[t.defaultTheme].Variants[defaultVariant]; !ok {
			return nil, fmt.Errorf("theme %q has no variant %q", t.defaultTheme, defaultVariant)
		}
	}
	return t, nil
}

// Provider exposes the underlying go-theme registry.
func (t *Themes) Provider() theme.ThemeProvider {
	return t.provider
}

// Select picks a theme and variant, falling back to the defaults for empty names.
func (t *Themes) Select(name, variant string, _ ...theme.QueryOption) (*theme.Selection, error) {
	if name == "" {
		name = t.defaultTheme
		if variant == "" {
			variant = t.defaultVariant
		}
	}
	m, ok := t.manifests[name]
	if !ok {
		return nil, fmt.Errorf("unknown theme %q", name)
	}
	if variant != "" {
		if _, ok := m.Variants[variant]; !ok {
			return nil, fmt.Errorf("theme %q has no variant %q", name, variant)
		}
	}
	return &theme.Selection{Theme: name, Variant: variant, Manifest: m}, nil
}

// Resolve flattens a selection into renderer settings. Token precedence is
// base, then variant, then overrides. Unknown override keys are ignored.
func (t *Themes) Resolve(sel *theme.Selection, overrides map[string]string) *theme.RendererConfig {
	cfg := &theme.RendererConfig{
		Theme:   sel.Theme,
		Variant: sel.Variant,
		Tokens:  map[string]string{},
		CSSVars: map[string]string{},
	}
	m := sel.Manifest
	if m == nil {
		m = t.manifests[sel.Theme]
	}
	files := map[string]string{}
	prefix := ""
	if m != nil {
		for k, v := range m.Tokens {
			cfg.Tokens[k] = v
		}
		for k, v := range m.Assets.Files {
			files[k] = v
		}
		prefix = m.Assets.Prefix
		if v, ok := m.Variants[sel.Variant]; ok {
			for k, val := range v.Tokens {
				cfg.Tokens[k] = val
			}
			for k, val := range v.Assets.Files {
				files[k] = val
			}
			if v.Assets.Prefix != "" {
				prefix = v.Assets.Prefix
			}
		}
	}
	for _, k := range TokenNames {
		if v := strings.TrimSpace(overrides[k]); v != "" {
			cfg.Tokens[k] = v
		}
	}
	for k, v := range cfg.Tokens {
		cfg.CSSVars["--"+k] = v
	}
	cfg.AssetURL = func(key string) string {
		file, ok := files[key]
		if !ok || file == "" {
			return ""
		}
		if prefix == "" {
			return file
		}
		return strings.TrimRight(prefix, "/") + "/" + strings.TrimLeft(file, "/")
	}
	return cfg
}

// Variants lists the variants of the named theme.
func (t *Themes) Variants(name string) []string {
	m, ok := t.manifests[name]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(m.Variants))
	for k := range m.Variants {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
