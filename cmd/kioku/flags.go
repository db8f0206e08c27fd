package main

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

// dateFlag is a calendar day given as YYYY-MM-DD. The zero value means today.
type dateFlag struct {
	day time.Time
}

var _ pflag.Value = (*dateFlag)(nil)

func (f *dateFlag) Set(s string) error {
	day, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return fmt.Errorf("expected YYYY-MM-DD: %w", err)
	}
	f.day = day
	return nil
}

func (f *dateFlag) String() string {
	if f.day.IsZero() {
		return ""
	}
	return f.day.Format(time.DateOnly)
}

func (f *dateFlag) Type() string {
	return "date"
}

// modeFlag accepts the submission modes.
type modeFlag string

var _ pflag.Value = (*modeFlag)(nil)

func (f *modeFlag) Set(s string) error {
	switch s {
	case "learn", "practice":
		*f = modeFlag(s)
		return nil
	}
	return fmt.Errorf("must be learn or practice")
}

func (f *modeFlag) String() string {
	return string(*f)
}

func (f *modeFlag) Type() string {
	return "mode"
}
