package analyze

import (
	"fmt"
	"io"
	"strings"

	"github.com/lakshaymaurya-felt/oriondoctor/internal/core"
)

// TreeOptions bounds what PrintTree shows.
type TreeOptions struct {
	// MaxDepth limits recursion; 0 means unlimited.
	MaxDepth int
	// MinSize hides entries smaller than this many bytes.
	MinSize int64
	// MaxChildren caps the entries listed per level; 0 means 20.
	MaxChildren int
	// Annotate returns an optional suffix for an entry, such as an impact tier.
	Annotate func(*DirEntry) string
}

// PrintTree writes a plain-text tree of the scan results to w.
func PrintTree(w io.Writer, root *DirEntry, opts TreeOptions) {
	if root == nil {
		fmt.Fprintln(w, "  No data to display.")
		return
	}
	if opts.MaxChildren <= 0 {
		opts.MaxChildren = 20
	}

	fmt.Fprintf(w, "  Disk usage: %s\n", root.Path)
	fmt.Fprintln(w, "  "+strings.Repeat("-", 58))
	fmt.Fprintln(w)

	printEntry(w, root, "", true, 0, opts)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "  "+strings.Repeat("-", 58))
	fmt.Fprintf(w, "  Total: %s\n", core.FormatSize(root.Size))
}

// printEntry uses ASCII connectors (+-- \-- |) so output survives any
// terminal or pipe.
func printEntry(w io.Writer, entry *DirEntry, prefix string, isLast bool, depth int, opts TreeOptions) {
	if entry == nil {
		return
	}
	if opts.MaxDepth > 0 && depth > opts.MaxDepth {
		return
	}
	if opts.MinSize > 0 && entry.Size < opts.MinSize && depth > 0 {
		return
	}

	connector := "+-- "
	childPrefix := "|   "
	if isLast {
		connector = "\\-- "
		childPrefix = "    "
	}
	if depth == 0 {
		connector = ""
		childPrefix = ""
	}

	dirMarker := ""
	if entry.IsDir {
		dirMarker = "/"
	}
	note := ""
	if opts.Annotate != nil {
		if s := opts.Annotate(entry); s != "" {
			note = "  [" + s + "]"
		}
	}

	fmt.Fprintf(w, "  %s%s%s%s  %s%s\n", prefix, connector, entry.Name, dirMarker, core.FormatSize(entry.Size), note)

	if !entry.IsDir || len(entry.Children) == 0 {
		return
	}

	// Children are already sorted by the scanner.
	shown := entry.Children
	remaining := 0
	if len(shown) > opts.MaxChildren {
		remaining = len(shown) - opts.MaxChildren
		shown = shown[:opts.MaxChildren]
	}
	for i, child := range shown {
		isChildLast := i == len(shown)-1 && remaining == 0
		printEntry(w, child, prefix+childPrefix, isChildLast, depth+1, opts)
	}
	if remaining > 0 {
		fmt.Fprintf(w, "  %s\\-- ... and %d more entries\n", prefix+childPrefix, remaining)
	}
}
