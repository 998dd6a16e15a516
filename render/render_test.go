package render

import (
	"bytes"
	"strings"
	"testing"

	theme "github.com/goliatone/go-theme"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tbxark/hrdesk/form"
	"github.com/tbxark/hrdesk/types"
)

func leaveSpec() types.FormSpec {
	return types.FormSpec{
		Title:       "Leave Request Form",
		Description: "Tell us <b>when</b> you are away.",
		Fields: []types.FieldSpec{
			{Name: "name", Label: "Name", Type: types.FieldText, Required: true, Placeholder: "Jane Doe"},
			{Name: "email", Label: "Email", Type: types.FieldEmail, HelperText: "<script>alert(1)</script>Work address"},
			{Name: "kind", Label: "Leave Type", Type: types.FieldSelect, Options: []types.Option{
				{Value: "annual", Label: "Annual"},
				{Value: "sick", Label: "Sick"},
			}},
			{Name: "agree", Label: "I confirm", Type: types.FieldCheckbox},
		},
		SubmitButtonText: "Send request",
	}
}

func newRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := New(nil)
	require.NoError(t, err)
	return r
}

func renderForm(t *testing.T, r *Renderer, f *form.Form, opts Options) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, r.RenderForm(&buf, f, opts))
	return buf.String()
}

func TestRenderEditableForm(t *testing.T) {
	r := newRenderer(t)
	f := form.New(leaveSpec(), form.WithInitialValues(types.Values{"kind": "sick"}))
	html := renderForm(t, r, f, Options{Action: "/forms/call_1"})

	assert.Contains(t, html, `id="field-name"`)
	assert.Contains(t, html, `for="field-email"`)
	assert.Contains(t, html, `action="/forms/call_1"`)
	assert.Contains(t, html, "Select Leave Type")
	assert.Contains(t, html, `<option value="sick" selected>Sick</option>`)
	assert.Contains(t, html, `<option value="annual">Annual</option>`)
	assert.Contains(t, html, `<span class="text-red-600">*</span>`)
	assert.Contains(t, html, "Send request")
	assert.Contains(t, html, "bg-blue-600")
	assert.Contains(t, html, "Work address")
	assert.NotContains(t, html, "<script>")
	assert.NotContains(t, html, "<b>")
	assert.NotContains(t, html, " disabled")
	assert.NotContains(t, html, SubmittedNotice)

	checkbox := strings.Index(html, `id="field-agree"`)
	label := strings.Index(html, `<label for="field-agree"`)
	require.True(t, checkbox > 0 && label > checkbox, "checkbox label follows the input")
}

func TestRenderShowsErrors(t *testing.T) {
	r := newRenderer(t)
	f := form.New(leaveSpec())
	require.NoError(t, f.SetField("email", "bob@"))
	_, ok := f.Validate()
	require.False(t, ok)
	html := renderForm(t, r, f, Options{})
	assert.Contains(t, html, "Name is required.")
	assert.Contains(t, html, "Invalid email address.")
	assert.Contains(t, html, `value="bob@"`)
}

func TestRenderLockedForm(t *testing.T) {
	r := newRenderer(t)
	f := form.New(leaveSpec(), form.WithLocked(), form.WithInitialValues(types.Values{
		"name":  "Asha",
		"agree": true,
	}))
	html := renderForm(t, r, f, Options{Variant: VariantChat})

	assert.Contains(t, html, SubmittedNotice)
	assert.Contains(t, html, `value="Asha"`)
	assert.Contains(t, html, " checked")
	assert.Contains(t, html, " disabled")
	assert.Contains(t, html, `data-locked="true"`)
	assert.NotContains(t, html, "<button")
	assert.Contains(t, html, "border-gray-400")
	assert.Contains(t, html, "text-red-500")
}

func TestRenderLoadingForm(t *testing.T) {
	r := newRenderer(t)
	html := renderForm(t, r, form.New(leaveSpec()), Options{Loading: true})
	assert.Contains(t, html, "Submitting...")
	assert.Contains(t, html, "<button")
	assert.Contains(t, html, " disabled>Submitting...")
}

func TestRenderEscapesValues(t *testing.T) {
	r := newRenderer(t)
	f := form.New(leaveSpec(), form.WithInitialValues(types.Values{"name": `"><script>x</script>`}))
	html := renderForm(t, r, f, Options{})
	assert.NotContains(t, html, "<script>x</script>")
}

func TestRenderThemeOverrides(t *testing.T) {
	r := newRenderer(t)
	html := renderForm(t, r, form.New(leaveSpec()), Options{
		Overrides: map[string]string{TokenPrimaryColor: "bg-emerald-600", "unknown": "x"},
	})
	assert.Contains(t, html, "bg-emerald-600")
	assert.NotContains(t, html, "bg-blue-600")

	var buf bytes.Buffer
	err := r.RenderForm(&buf, form.New(leaveSpec()), Options{Theme: "missing"})
	assert.Error(t, err)
}

func TestThemesResolve(t *testing.T) {
	themes, err := NewThemes(VariantChat)
	require.NoError(t, err)

	sel, err := themes.Select("", "")
	require.NoError(t, err)
	assert.Equal(t, DefaultThemeName, sel.Theme)
	assert.Equal(t, VariantChat, sel.Variant)

	cfg := themes.Resolve(sel, nil)
	assert.Equal(t, "bg-black hover:bg-gray-700", cfg.Tokens[TokenPrimaryColor])
	assert.Equal(t, "bg-gray-50", cfg.CSSVars["--"+TokenBackgroundColor])
	assert.Equal(t, "https://cdn.tailwindcss.com/3.4.16", cfg.AssetURL("stylesheet"))
	assert.Equal(t, "", cfg.AssetURL("missing"))

	sel, err = themes.Select(DefaultThemeName, "")
	require.NoError(t, err)
	assert.Equal(t, "bg-white", themes.Resolve(sel, nil).Tokens[TokenBackgroundColor])

	_, err = themes.Select(DefaultThemeName, "dark")
	assert.Error(t, err)
	assert.Equal(t, []string{VariantChat}, themes.Variants(DefaultThemeName))

	_, err = NewThemes("dark")
	assert.Error(t, err)
}

func TestThemesCustomManifest(t *testing.T) {
	themes, err := NewThemes("", &theme.Manifest{
		Name:    "acme",
		Version: "1.0.0",
		Tokens:  map[string]string{TokenPrimaryColor: "bg-pink-500"},
	})
	require.NoError(t, err)
	r, err := New(themes)
	require.NoError(t, err)
	html := renderForm(t, r, form.New(leaveSpec()), Options{})
	assert.Contains(t, html, "bg-pink-500")
}

func TestRenderChatPage(t *testing.T) {
	r := newRenderer(t)
	var buf bytes.Buffer
	require.NoError(t, r.RenderChat(&buf, ChatPage{
		ConversationID: "conv_import_001",
		Messages: []ChatMessage{
			{Role: "user", Content: "I need leave <now>"},
			{Role: "assistant", Content: "Please fill in the form.", FormID: "call_1"},
		},
	}))
	html := buf.String()
	assert.Contains(t, html, "Company Assistant")
	assert.Contains(t, html, `data-conversation="conv_import_001"`)
	assert.Contains(t, html, `data-form-id="call_1"`)
	assert.Contains(t, html, "I need leave &lt;now&gt;")
	assert.Contains(t, html, "bg-gray-50")
	assert.Contains(t, html, "/api/chat")
}
