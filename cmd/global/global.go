package global

import (
	"bytes"

	"github.com/mgutz/ansi"
	"github.com/tomlazar/table"
	"github.com/vivekchamoli/legion2go/internal/ui"
)

var (
	CfgFile string
	NoColor bool
	NoStyle bool
	Verbose bool
)

func TableConfig() *table.Config {
	return &table.Config{
		ShowIndex:       false,
		Color:           !NoColor,
		AlternateColors: true,
		TitleColorCode:  ansi.ColorCode("white+buf"),
		AltColorCodes: []string{
			ansi.ColorCode("white"),
			ansi.ColorCode("white:236"),
		},
	}
}

// PrintTable renders the table to the console, tables without rows are skipped
func PrintTable(tab table.Table) {
	if tab.Rows == nil {
		return
	}
	var buf bytes.Buffer
	if err := tab.WriteTable(&buf, TableConfig()); err != nil {
		ui.Fatal("Error printing table: %v", err)
	}
	ui.Printfln("%s", buf.String())
}
