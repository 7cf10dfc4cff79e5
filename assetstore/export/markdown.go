package export

import (
	"bufio"
	"io"
	"strings"
)

// Markdown writes a pipe table. Pipes in values are escaped and line breaks
// become <br>.
var Markdown = &Format{
	Name:      "markdown",
	Extension: ".md",
	Write: func(w io.Writer, t *Table) error {
		bw := bufio.NewWriter(w)
		writeMarkdownRow(bw, t.Headers)

		sep := make([]string, len(t.Headers))
		for i := range sep {
			sep[i] = "---"
		}
		writeMarkdownRow(bw, sep)

		for _, row := range t.Rows {
			writeMarkdownRow(bw, row)
		}
		return bw.Flush()
	},
}

var markdownCell = strings.NewReplacer("|", `\|`, "\r\n", "<br>", "\n", "<br>")

func writeMarkdownRow(w *bufio.Writer, cells []string) {
	w.WriteString("|")
	for _, c := range cells {
		w.WriteString(" ")
		w.WriteString(markdownCell.Replace(c))
		w.WriteString(" |")
	}
	w.WriteString("\n")
}

func init() {
	mustRegister(Markdown)
}
