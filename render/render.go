package render

import (
	"embed"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"
	theme "github.com/goliatone/go-theme"
	"github.com/microcosm-cc/bluemonday"
	"github.com/tbxark/hrdesk/form"
	"github.com/tbxark/hrdesk/types"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	formTemplate = "templates/form.html"
	chatTemplate = "templates/chat.html"

	SubmittedNotice = "✅ Form submitted successfully"
	submittingLabel = "Submitting..."
)

// Options controls one form rendering.
type Options struct {
	Theme     string
	Variant   string
	Overrides map[string]string
	// Action is the URL the form posts to. Empty renders no action attribute.
	Action string
	// Loading disables the submit button while the surrounding page is busy.
	Loading bool
	// Notice is shown above a locked form. It defaults to SubmittedNotice.
	Notice string
}

type Renderer struct {
	themes *Themes
	policy *bluemonday.Policy

	mu    sync.Mutex
	set   *pongo2.TemplateSet
	cache map[string]*pongo2.Template
}

func New(themes *Themes) (*Renderer, error) {
	if themes == nil {
		var err error
		themes, err = NewThemes("")
		if err != nil {
			return nil, err
		}
	}
	return &Renderer{
		themes: themes,
		policy: bluemonday.StrictPolicy(),
		set:    pongo2.NewSet("hrdesk", pongo2.NewFSLoader(templateFS)),
		cache:  make(map[string]*pongo2.Template),
	}, nil
}

func (r *Renderer) Themes() *Themes {
	return r.themes
}

func (r *Renderer) template(path string) (*pongo2.Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if tpl, ok := r.cache[path]; ok {
		return tpl, nil
	}
	tpl, err := r.set.FromFile(path)
	if err != nil {
		return nil, fmt.Errorf("load template %q: %w", path, err)
	}
	r.cache[path] = tpl
	return tpl, nil
}

type optionView struct {
	Value    string
	Label    string
	Selected bool
}

type fieldView struct {
	ID          string
	Name        string
	Label       string
	Type        string
	Required    bool
	Placeholder string
	HelperText  string
	Options     []optionView
	Value       string
	Checked     bool
	Error       string
}

type formView struct {
	Title       string
	Description string
	Fields      []fieldView
	SubmitText  string
	Action      string
	Locked      bool
	Busy        bool
	Notice      string
}

func (r *Renderer) clean(s string) string {
	return strings.TrimSpace(r.policy.Sanitize(s))
}

func (r *Renderer) buildForm(f *form.Form, opts Options) formView {
	spec := f.Spec()
	values := f.Values()
	errs := f.Errors()
	view := formView{
		Title:       r.clean(spec.Title),
		Description: r.clean(spec.Description),
		SubmitText:  r.clean(spec.SubmitButtonText),
		Action:      opts.Action,
		Locked:      f.Locked(),
		Busy:        f.Submitting() || opts.Loading,
	}
	if view.SubmitText == "" {
		view.SubmitText = "Submit"
	}
	if view.Busy {
		view.SubmitText = submittingLabel
	}
	if view.Locked {
		view.Notice = opts.Notice
		if view.Notice == "" {
			view.Notice = SubmittedNotice
		}
	}
	for _, field := range spec.Fields {
		fv := fieldView{
			ID:          "field-" + field.Name,
			Name:        field.Name,
			Label:       r.clean(field.Label),
			Type:        string(field.Type),
			Required:    field.Required,
			Placeholder: r.clean(field.Placeholder),
			HelperText:  r.clean(field.HelperText),
			Error:       errs[field.Name],
		}
		switch field.Type {
		case types.FieldCheckbox:
			fv.Checked = values.Bool(field.Name)
		default:
			fv.Value = values.String(field.Name)
		}
		if field.Type == types.FieldSelect {
			fv.Options = make([]optionView, 0, len(field.Options))
			for _, o := range field.Options {
				fv.Options = append(fv.Options, optionView{
					Value:    o.Value,
					Label:    r.clean(o.Label),
					Selected: o.Value == fv.Value && fv.Value != "",
				})
			}
		}
		view.Fields = append(view.Fields, fv)
	}
	return view
}

func (r *Renderer) selectTheme(name, variant string, overrides map[string]string) (*theme.RendererConfig, error) {
	sel, err := r.themes.Select(name, variant)
	if err != nil {
		return nil, err
	}
	return r.themes.Resolve(sel, overrides), nil
}

// RenderForm writes the HTML fragment for f.
func (r *Renderer) RenderForm(w io.Writer, f *form.Form, opts Options) error {
	cfg, err := r.selectTheme(opts.Theme, opts.Variant, opts.Overrides)
	if err != nil {
		return err
	}
	tpl, err := r.template(formTemplate)
	if err != nil {
		return err
	}
	err = tpl.ExecuteWriter(pongo2.Context{
		"form":  r.buildForm(f, opts),
		"theme": cfg.Tokens,
	}, w)
	if err != nil {
		return fmt.Errorf("render form: %w", err)
	}
	return nil
}

// ChatMessage is one transcript entry on the chat page. FormID points at a
// form fragment the page loads from /forms/{id}.
type ChatMessage struct {
	Role    string
	Content string
	FormID  string
}

type ChatPage struct {
	Title          string
	ConversationID string
	Messages       []ChatMessage
	Theme          string
	Variant        string
}

func (r *Renderer) RenderChat(w io.Writer, page ChatPage) error {
	variant := page.Variant
	if page.Theme == "" && variant == "" {
		variant = VariantChat
	}
	cfg, err := r.selectTheme(page.Theme, variant, nil)
	if err != nil {
		return err
	}
	tpl, err := r.template(chatTemplate)
	if err != nil {
		return err
	}
	if page.Title == "" {
		page.Title = "Company Assistant"
	}
	err = tpl.ExecuteWriter(pongo2.Context{
		"page":       page,
		"theme":      cfg.Tokens,
		"stylesheet": cfg.AssetURL("stylesheet"),
	}, w)
	if err != nil {
		return fmt.Errorf("render chat: %w", err)
	}
	return nil
}
