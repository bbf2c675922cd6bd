// Package cli holds the terminal output helpers shared by the commands.
package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
)

var (
	bold   = color.New(color.Bold).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed, color.Bold).SprintFunc()
)

type Printer struct {
	out io.Writer
}

func NewPrinter(out io.Writer) *Printer {
	return &Printer{
		out: out,
	}
}

func (p *Printer) Println(a ...any) {
	fmt.Fprintln(p.out, a...)
}

func (p *Printer) Print(a ...any) {
	fmt.Fprint(p.out, a...)
}

func (p *Printer) Printf(format string, a ...any) {
	fmt.Fprintf(p.out, format, a...)
}

// PrintSuccess prints a line prefixed with a green check mark.
func (p *Printer) PrintSuccess(msg string) {
	p.Printf("%s %s\n", green("✓"), msg)
}

// PrintWarning prints a line prefixed with a yellow marker.
func (p *Printer) PrintWarning(msg string) {
	p.Printf("%s %s\n", yellow("!"), msg)
}

// PrintFatal prints a line that needs the operator's attention.
func (p *Printer) PrintFatal(msg string) {
	p.Printf("%s %s\n", red("✗"), msg)
}

// PrintKeyValue prints "key: value" with the key in bold.
func (p *Printer) PrintKeyValue(key, value string) {
	p.Printf("%s: %s\n", bold(key), value)
}

// PrintTable prints rows as left-aligned columns separated by two spaces.
// The header row, if any, is printed in bold.
func (p *Printer) PrintTable(header []string, rows [][]string) {
	p.Print(FormatTable(header, rows, bold))
}

// FormatTable aligns columns by display width, so wide runes line up.
func FormatTable(header []string, rows [][]string, style func(...any) string) string {
	all := rows
	if len(header) > 0 {
		all = append([][]string{header}, rows...)
	}

	var widths []int
	for _, row := range all {
		for i, cell := range row {
			if i >= len(widths) {
				widths = append(widths, 0)
			}
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}

	var b strings.Builder
	for r, row := range all {
		var line strings.Builder
		for i, cell := range row {
			if i == len(row)-1 {
				line.WriteString(cell)
				break
			}
			line.WriteString(runewidth.FillRight(cell, widths[i]))
			line.WriteString("  ")
		}
		text := line.String()
		if r == 0 && len(header) > 0 && style != nil {
			text = style(text)
		}
		b.WriteString(text)
		b.WriteByte('\n')
	}
	return b.String()
}
