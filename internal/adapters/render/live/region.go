package live

import (
	"io"
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// Region redraws a block of terminal lines in place. Each Draw moves the
// cursor back over the previous frame and erases it before writing. Lines
// wider than the terminal are cut so that none of them wraps, keeping the
// line count exact.
type Region struct {
	out   io.Writer
	width int
	lines int
}

// NewRegion draws to out. A width of zero or less disables truncation.
func NewRegion(out io.Writer, width int) *Region {
	return &Region{out: out, width: width}
}

func (r *Region) Draw(view string) error {
	view = strings.TrimSuffix(view, "\n")
	rows := strings.Split(view, "\n")
	if r.width > 0 {
		for i, row := range rows {
			rows[i] = ansi.Truncate(row, r.width, "")
		}
	}

	var b strings.Builder
	if r.lines > 0 {
		b.WriteString(ansi.CursorUp(r.lines))
		b.WriteString("\r")
		b.WriteString(ansi.EraseScreenBelow)
	}
	for _, row := range rows {
		b.WriteString(row)
		b.WriteString("\n")
	}

	if _, err := io.WriteString(r.out, b.String()); err != nil {
		return err
	}
	r.lines = len(rows)
	return nil
}

// Close leaves the last frame on screen.
func (r *Region) Close() error {
	r.lines = 0
	return nil
}
