package widgets

import (
	"fmt"
	"strings"
)

// KeySection is a titled block of bindings in the headless help screen.
type KeySection struct {
	Title string
	Keys  []KeyBinding
}

type KeyBinding struct {
	Key  string
	Desc string
}

// RenderKeyHelp renders sections as plain text separated by blank lines,
// with every description starting in the same column.
func RenderKeyHelp(sections []KeySection) string {
	col := 0
	for _, sec := range sections {
		for _, b := range sec.Keys {
			col = max(col, len(b.Key))
		}
	}

	var sb strings.Builder
	for i, sec := range sections {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		block := make([]string, 0, len(sec.Keys)+1)
		if sec.Title != "" {
			block = append(block, sec.Title)
		}
		for _, b := range sec.Keys {
			block = append(block, fmt.Sprintf("  %-*s  %s", col, b.Key, b.Desc))
		}
		sb.WriteString(strings.Join(block, "\n"))
	}
	return sb.String()
}
