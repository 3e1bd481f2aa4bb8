package cmd

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/OpenTraceLab/OpenTraceEDM/pkg/diag"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
)

func printTitle(format string, args ...any) {
	fmt.Println(titleStyle.Render(fmt.Sprintf(format, args...)))
}

// printWarnings lists warnings, at most limit of them unless verbose.
func printWarnings(ws []diag.Warning, limit int) {
	if len(ws) == 0 {
		return
	}
	fmt.Printf("Warnings: %d\n", len(ws))
	for i, w := range ws {
		if !verbose && limit > 0 && i == limit {
			fmt.Printf("  ... and %d more warnings\n", len(ws)-limit)
			break
		}
		fmt.Println("  " + warningStyle.Render(w.Error()))
	}
}
