package cli

import (
	"github.com/pterm/pterm"
)

// Printer renders messages and tables on the terminal with pterm. Command
// results meant for scripts go to the command's output writer instead.
type Printer struct {
	// Quiet suppresses informational output.
	Quiet bool
}

// DefaultPrinter is the printer used by the package-level helpers.
var DefaultPrinter = &Printer{}

// Section prints a section header.
func (p *Printer) Section(title string) {
	if p.Quiet {
		return
	}
	pterm.Println()
	pterm.DefaultSection.Println(title)
}

// Info prints an informational message.
func (p *Printer) Info(msg string) {
	if p.Quiet {
		return
	}
	pterm.Info.Println(msg)
}

// Success prints a success message.
func (p *Printer) Success(msg string) {
	pterm.Success.Println(msg)
}

// Warn prints a warning message.
func (p *Printer) Warn(msg string) {
	pterm.Warning.Println(msg)
}

// Table prints a table whose first row is the header.
func (p *Printer) Table(data [][]string) {
	if len(data) == 0 {
		return
	}
	if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
		pterm.Error.Println("failed to render table:", err)
	}
}

// TableBoxed prints a table with box borders.
func (p *Printer) TableBoxed(data [][]string) {
	if len(data) == 0 {
		return
	}
	if err := pterm.DefaultTable.WithHasHeader().WithBoxed().WithData(data).Render(); err != nil {
		pterm.Error.Println("failed to render table:", err)
	}
}

// Header prints a full-width banner.
func (p *Printer) Header(title string) {
	pterm.DefaultHeader.WithFullWidth().WithBackgroundStyle(pterm.NewStyle(pterm.BgCyan)).Println(title)
}

// SpinnerStart starts a spinner and returns the function that stops it.
func (p *Printer) SpinnerStart(msg string) func(success bool, finalMsg string) {
	if p.Quiet {
		return func(bool, string) {}
	}
	spinner, _ := pterm.DefaultSpinner.Start(msg)
	return func(success bool, finalMsg string) {
		if success {
			spinner.Success(finalMsg)
		} else {
			spinner.Fail(finalMsg)
		}
	}
}

// Section prints a section header.
func Section(title string) { DefaultPrinter.Section(title) }

// Info prints an info message.
func Info(msg string) { DefaultPrinter.Info(msg) }

// Success prints a success message.
func Success(msg string) { DefaultPrinter.Success(msg) }

// Warn prints a warning message.
func Warn(msg string) { DefaultPrinter.Warn(msg) }

// Table prints a table.
func Table(data [][]string) { DefaultPrinter.Table(data) }

// TableBoxed prints a boxed table.
func TableBoxed(data [][]string) { DefaultPrinter.TableBoxed(data) }

// Header prints a header banner.
func Header(title string) { DefaultPrinter.Header(title) }

// Green returns green text.
func Green(msg string) string { return pterm.Green(msg) }

// Yellow returns yellow text.
func Yellow(msg string) string { return pterm.Yellow(msg) }

// Red returns red text.
func Red(msg string) string { return pterm.Red(msg) }

// SpinnerStart starts a spinner.
func SpinnerStart(msg string) func(success bool, finalMsg string) {
	return DefaultPrinter.SpinnerStart(msg)
}
