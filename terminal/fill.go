// Package terminal fills forms interactively in a terminal.
package terminal

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tbxark/hrdesk/form"
	"github.com/tbxark/hrdesk/types"
)

// MaxRounds bounds how many times Fill re-asks invalid fields.
const MaxRounds = 5

const noneOption = "(none)"

// Fill asks for every field of f, then submits. Fields that fail validation
// are asked again until the submission passes or MaxRounds is reached.
func Fill(ctx context.Context, d Driver, f *form.Form, complete form.Completion) error {
	if f.Locked() {
		return form.ErrLocked
	}
	spec := f.Spec()
	header := spec.Title
	if spec.Description != "" {
		header += "\n" + spec.Description
	}
	if err := d.Info(ctx, header); err != nil {
		return err
	}

	pending := spec.Fields
	for round := 1; ; round++ {
		for _, field := range pending {
			if err := askField(ctx, d, f, field); err != nil {
				return err
			}
		}
		err := f.Submit(ctx, complete)
		var verr *form.ValidationError
		if !errors.As(err, &verr) {
			return err
		}
		if round >= MaxRounds {
			return err
		}
		pending = pending[:0:0]
		var sb strings.Builder
		sb.WriteString("Some fields need your attention:")
		for _, field := range spec.Fields {
			if msg, ok := verr.Errors[field.Name]; ok {
				pending = append(pending, field)
				sb.WriteString("\n- " + msg)
			}
		}
		if err := d.Info(ctx, sb.String()); err != nil {
			return err
		}
	}
}

func promptMessage(field types.FieldSpec) string {
	if field.Required {
		return field.Label + " *"
	}
	return field.Label
}

func promptHelp(field types.FieldSpec) string {
	if field.HelperText != "" {
		return field.HelperText
	}
	return field.Placeholder
}

func askField(ctx context.Context, d Driver, f *form.Form, field types.FieldSpec) error {
	values := f.Values()
	msg := promptMessage(field)
	help := promptHelp(field)
	switch field.Type {
	case types.FieldCheckbox:
		current := values.Bool(field.Name)
		answer, err := d.Confirm(ctx, ConfirmConfig{Message: msg, Default: current, Help: help})
		if err != nil {
			return err
		}
		if answer == current {
			return nil
		}
		return f.SetField(field.Name, answer)
	case types.FieldSelect:
		if len(field.Options) == 0 {
			return d.Info(ctx, fmt.Sprintf("%s has no options to choose from.", field.Label))
		}
		labels := make([]string, 0, len(field.Options)+1)
		defaultIndex := 0
		if !field.Required {
			labels = append(labels, noneOption)
		}
		offset := len(labels)
		current := values.String(field.Name)
		for i, o := range field.Options {
			labels = append(labels, o.Label)
			if o.Value == current {
				defaultIndex = i + offset
			}
		}
		idx, err := d.Select(ctx, SelectConfig{Message: msg, Options: labels, DefaultIndex: defaultIndex, Help: help})
		if err != nil {
			return err
		}
		value := ""
		if idx >= offset && idx-offset < len(field.Options) {
			value = field.Options[idx-offset].Value
		}
		return f.SetField(field.Name, value)
	case types.FieldPassword:
		answer, err := d.Password(ctx, InputConfig{Message: msg, Default: values.String(field.Name), Help: help})
		if err != nil {
			return err
		}
		return f.SetField(field.Name, answer)
	case types.FieldTextarea:
		answer, err := d.TextArea(ctx, TextAreaConfig{Message: msg, Default: values.String(field.Name), Help: help})
		if err != nil {
			return err
		}
		return f.SetField(field.Name, strings.TrimSpace(answer))
	default:
		if field.Type == types.FieldDate && help == "" {
			help = "YYYY-MM-DD"
		}
		answer, err := d.Input(ctx, InputConfig{Message: msg, Default: values.String(field.Name), Help: help})
		if err != nil {
			return err
		}
		return f.SetField(field.Name, strings.TrimSpace(answer))
	}
}

// Summary describes the submitted values of a form.
func Summary(f *form.Form) string {
	spec := f.Spec()
	return types.FormatValues(&spec, f.Values())
}
