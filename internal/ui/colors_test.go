package ui

import (
	"strings"
	"testing"
)

func TestPalette(t *testing.T) {
	p := NewPalette("#7D56F4", "#04B575", "#FF0000", "#FFA500", "#626262")

	for name, render := range map[string]func(string) string{
		"title": p.Title,
		"ok":    p.OK,
		"err":   p.Err,
		"warn":  p.Warn,
		"help":  p.Help,
	} {
		t.Run(name, func(t *testing.T) {
			if got := render("room ABCDEF"); !strings.Contains(got, "room ABCDEF") {
				t.Errorf("rendered text lost its content: %q", got)
			}
		})
	}

	t.Run("package helpers use the default palette", func(t *testing.T) {
		if OK("done") != styles.OK("done") {
			t.Error("OK should render with the default palette")
		}
		if Warn("careful") != styles.Warn("careful") {
			t.Error("Warn should render with the default palette")
		}
	})
}
