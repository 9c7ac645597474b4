// Package prompt drives an authoring session from a terminal.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
)

// ErrAborted is returned when the user interrupts a prompt with Ctrl+C.
var ErrAborted = errors.New("prompt: aborted")

// InputConfig describes a single-line answer.
type InputConfig struct {
	Message string
	Default string
	Help    string
}

// ConfirmConfig describes a yes/no question.
type ConfirmConfig struct {
	Message string
	Default bool
	Help    string
}

// SelectConfig describes a choice among Options. DefaultIndex applies to
// single choices, Defaults to multiple ones.
type SelectConfig struct {
	Message      string
	Options      []string
	DefaultIndex int
	Defaults     []int
	Help         string
}

// TextAreaConfig describes a multi-line answer.
type TextAreaConfig struct {
	Message string
	Default string
	Help    string
}

// Driver asks the questions of an authoring run. Tests script it; the CLI
// uses the survey-backed terminal driver.
type Driver interface {
	Input(ctx context.Context, cfg InputConfig) (string, error)
	Confirm(ctx context.Context, cfg ConfirmConfig) (bool, error)
	Select(ctx context.Context, cfg SelectConfig) (int, error)
	MultiSelect(ctx context.Context, cfg SelectConfig) ([]int, error)
	TextArea(ctx context.Context, cfg TextAreaConfig) (string, error)
	Info(ctx context.Context, msg string) error
}

// choicePageSize keeps long catalog option lists scrollable.
const choicePageSize = 12

type terminalDriver struct {
	out io.Writer
}

// NewSurveyDriver returns the interactive terminal driver. Section headers
// and notices are written to out (stdout when nil).
func NewSurveyDriver(out io.Writer) Driver {
	if out == nil {
		out = os.Stdout
	}
	return &terminalDriver{out: out}
}

// ask runs one survey prompt unless ctx is already done. An interrupt
// becomes ErrAborted.
func (d *terminalDriver) ask(ctx context.Context, p survey.Prompt, answer any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := survey.AskOne(p, answer, survey.WithShowCursor(true))
	if errors.Is(err, terminal.InterruptErr) {
		return ErrAborted
	}
	return err
}

func (d *terminalDriver) Input(ctx context.Context, cfg InputConfig) (string, error) {
	var answer string
	err := d.ask(ctx, &survey.Input{Message: cfg.Message, Default: cfg.Default, Help: cfg.Help}, &answer)
	return answer, err
}

func (d *terminalDriver) Confirm(ctx context.Context, cfg ConfirmConfig) (bool, error) {
	var answer bool
	err := d.ask(ctx, &survey.Confirm{Message: cfg.Message, Default: cfg.Default, Help: cfg.Help}, &answer)
	return answer, err
}

func (d *terminalDriver) Select(ctx context.Context, cfg SelectConfig) (int, error) {
	q := &survey.Select{Message: cfg.Message, Options: cfg.Options, Help: cfg.Help, PageSize: choicePageSize}
	if chosen := choicesAt(cfg.Options, []int{cfg.DefaultIndex}); len(chosen) == 1 {
		q.Default = chosen[0]
	}
	var answer string
	if err := d.ask(ctx, q, &answer); err != nil {
		return -1, err
	}
	return slices.Index(cfg.Options, answer), nil
}

func (d *terminalDriver) MultiSelect(ctx context.Context, cfg SelectConfig) ([]int, error) {
	q := &survey.MultiSelect{Message: cfg.Message, Options: cfg.Options, Help: cfg.Help, PageSize: choicePageSize}
	if chosen := choicesAt(cfg.Options, cfg.Defaults); len(chosen) > 0 {
		q.Default = chosen
	}
	var answers []string
	if err := d.ask(ctx, q, &answers); err != nil {
		return nil, err
	}
	var picked []int
	for i, option := range cfg.Options {
		if slices.Contains(answers, option) {
			picked = append(picked, i)
		}
	}
	return picked, nil
}

func (d *terminalDriver) TextArea(ctx context.Context, cfg TextAreaConfig) (string, error) {
	var answer string
	err := d.ask(ctx, &survey.Multiline{Message: cfg.Message, Default: cfg.Default, Help: cfg.Help}, &answer)
	return answer, err
}

func (d *terminalDriver) Info(ctx context.Context, msg string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(d.out, msg)
	return err
}

// choicesAt returns the options at the in-range indices.
func choicesAt(options []string, indices []int) []string {
	var out []string
	for _, idx := range indices {
		if idx >= 0 && idx < len(options) {
			out = append(out, options[idx])
		}
	}
	return out
}
