package cli

import (
	"strings"
	"testing"
)

func TestPrintTable(t *testing.T) {
	buf := captureTerminal(t)
	Table([][]string{
		{"Kind", "Namespace", "Name"},
		{"configmap", "ckan-cloud", "app"},
	})
	if !strings.Contains(buf.String(), "ckan-cloud") {
		t.Fatalf("table row missing from output: %s", buf.String())
	}
}

func TestPrintTableEmpty(t *testing.T) {
	buf := captureTerminal(t)
	Table([][]string{})
	TableBoxed([][]string{})
	if buf.Len() != 0 {
		t.Fatalf("expected no output for empty tables, got %q", buf.String())
	}
}

func TestPrinterColors(t *testing.T) {
	if Green("test") == "" || Yellow("test") == "" || Red("test") == "" {
		t.Error("color helpers should return non-empty strings")
	}
}

func TestPrinterQuietMode(t *testing.T) {
	buf := captureTerminal(t)
	p := &Printer{Quiet: true}

	p.Section("test")
	p.Info("test")
	p.SpinnerStart("test")(true, "done")
	if buf.Len() != 0 {
		t.Fatalf("quiet printer wrote %q", buf.String())
	}

	p.Warn("careful")
	if !strings.Contains(buf.String(), "careful") {
		t.Fatalf("warnings must print in quiet mode, got %q", buf.String())
	}
}
