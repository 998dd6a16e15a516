package terminal

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tbxark/hrdesk/form"
	"github.com/tbxark/hrdesk/types"
)

// scriptedDriver answers prompts from queues keyed by prompt message.
type scriptedDriver struct {
	inputs   map[string][]string
	confirms map[string][]bool
	selects  map[string][]int
	asked    []string
	infos    []string
	selected []SelectConfig
}

func (d *scriptedDriver) pop(msg string) string {
	d.asked = append(d.asked, msg)
	q := d.inputs[msg]
	if len(q) == 0 {
		return ""
	}
	d.inputs[msg] = q[1:]
	return q[0]
}

func (d *scriptedDriver) Input(ctx context.Context, cfg InputConfig) (string, error) {
	return d.pop(cfg.Message), nil
}

func (d *scriptedDriver) Password(ctx context.Context, cfg InputConfig) (string, error) {
	return d.pop(cfg.Message), nil
}

func (d *scriptedDriver) TextArea(ctx context.Context, cfg TextAreaConfig) (string, error) {
	return d.pop(cfg.Message), nil
}

func (d *scriptedDriver) Confirm(ctx context.Context, cfg ConfirmConfig) (bool, error) {
	d.asked = append(d.asked, cfg.Message)
	q := d.confirms[cfg.Message]
	if len(q) == 0 {
		return cfg.Default, nil
	}
	d.confirms[cfg.Message] = q[1:]
	return q[0], nil
}

func (d *scriptedDriver) Select(ctx context.Context, cfg SelectConfig) (int, error) {
	d.asked = append(d.asked, cfg.Message)
	d.selected = append(d.selected, cfg)
	q := d.selects[cfg.Message]
	if len(q) == 0 {
		return cfg.DefaultIndex, nil
	}
	d.selects[cfg.Message] = q[1:]
	return q[0], nil
}

func (d *scriptedDriver) Info(ctx context.Context, msg string) error {
	d.infos = append(d.infos, msg)
	return nil
}

func ticketSpec() types.FormSpec {
	return types.FormSpec{
		Title: "Leave Request Form",
		Fields: []types.FieldSpec{
			{Name: "fullName", Label: "Full Name", Type: types.FieldText, Required: true},
			{Name: "email", Label: "Email", Type: types.FieldEmail, Required: true},
			{Name: "priority", Label: "Priority", Type: types.FieldSelect, Required: true, Options: []types.Option{
				{Value: "low", Label: "Low"}, {Value: "medium", Label: "Medium"}, {Value: "high", Label: "High"},
			}},
			{Name: "details", Label: "Details", Type: types.FieldTextarea},
			{Name: "urgent", Label: "Urgent", Type: types.FieldCheckbox},
		},
	}
}

func TestFillReasksInvalidFields(t *testing.T) {
	d := &scriptedDriver{
		inputs: map[string][]string{
			"Full Name *": {"Asha"},
			"Email *":     {"bob@", "asha@corp.com"},
			"Details":     {"  two days  "},
		},
		confirms: map[string][]bool{"Urgent": {true}},
		selects:  map[string][]int{"Priority *": {2}},
	}
	f := form.New(ticketSpec())
	var got types.Values
	calls := 0
	err := Fill(context.Background(), d, f, func(ctx context.Context, values types.Values) error {
		calls++
		got = values
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, types.Values{
		"fullName": "Asha",
		"email":    "asha@corp.com",
		"priority": "high",
		"details":  "two days",
		"urgent":   true,
	}, got)

	assert.Equal(t, []string{"Full Name *", "Email *", "Priority *", "Details", "Urgent", "Email *"}, d.asked)
	require.Len(t, d.infos, 2)
	assert.Equal(t, "Leave Request Form", d.infos[0])
	assert.Contains(t, d.infos[1], "Invalid email address.")
	assert.Equal(t, []string{"Low", "Medium", "High"}, d.selected[0].Options)
}

func TestFillOptionalSelectOffersNone(t *testing.T) {
	spec := types.FormSpec{
		Title: "Survey",
		Fields: []types.FieldSpec{
			{Name: "team", Label: "Team", Type: types.FieldSelect, Options: []types.Option{{Value: "hr", Label: "HR"}}},
		},
		Prefill: map[string]any{"team": "hr"},
	}
	d := &scriptedDriver{selects: map[string][]int{"Team": {0}}}
	f := form.New(spec)
	require.Equal(t, "hr", f.Values()["team"])

	var got types.Values
	require.NoError(t, Fill(context.Background(), d, f, func(ctx context.Context, values types.Values) error {
		got = values
		return nil
	}))
	assert.Equal(t, []string{noneOption, "HR"}, d.selected[0].Options)
	assert.Equal(t, 1, d.selected[0].DefaultIndex)
	assert.Equal(t, "", got["team"])
}

func TestFillGivesUpAfterMaxRounds(t *testing.T) {
	d := &scriptedDriver{inputs: map[string][]string{}}
	f := form.New(types.FormSpec{
		Title:  "Name",
		Fields: []types.FieldSpec{{Name: "name", Label: "Name", Type: types.FieldText, Required: true}},
	})
	err := Fill(context.Background(), d, f, func(ctx context.Context, values types.Values) error {
		t.Fatal("completion must not run")
		return nil
	})
	var verr *form.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Name is required.", verr.Errors["name"])
	assert.Len(t, d.asked, MaxRounds)
}

func TestFillLockedForm(t *testing.T) {
	f := form.New(ticketSpec(), form.WithLocked())
	err := Fill(context.Background(), &scriptedDriver{}, f, nil)
	assert.ErrorIs(t, err, form.ErrLocked)
}

func TestFillStopsOnDriverError(t *testing.T) {
	f := form.New(ticketSpec())
	err := Fill(context.Background(), &abortingDriver{}, f, nil)
	assert.ErrorIs(t, err, ErrAborted)
}

type abortingDriver struct{ scriptedDriver }

func (abortingDriver) Info(ctx context.Context, msg string) error { return nil }

func (abortingDriver) Input(ctx context.Context, cfg InputConfig) (string, error) {
	return "", ErrAborted
}

func TestSummaryMasksPasswords(t *testing.T) {
	f := form.New(types.FormSpec{
		Title: "Account",
		Fields: []types.FieldSpec{
			{Name: "user", Label: "User", Type: types.FieldText},
			{Name: "secret", Label: "Secret", Type: types.FieldPassword},
		},
	}, form.WithInitialValues(types.Values{"user": "asha", "secret": "hunter2"}))
	out := Summary(f)
	assert.Contains(t, out, "asha")
	assert.NotContains(t, out, "hunter2")
}
