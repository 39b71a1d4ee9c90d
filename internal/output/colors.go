package output

import "github.com/fatih/color"

// palette holds the colors used by the text report.
type palette struct {
	Header *color.Color
	Label  *color.Color
	Value  *color.Color
	Pass   *color.Color
	Warn   *color.Color
	Fail   *color.Color
}

func newPalette(noColor bool) palette {
	p := palette{
		Header: color.New(color.FgCyan, color.Bold),
		Label:  color.New(color.FgWhite),
		Value:  color.New(color.FgWhite, color.Bold),
		Pass:   color.New(color.FgGreen, color.Bold),
		Warn:   color.New(color.FgYellow),
		Fail:   color.New(color.FgRed, color.Bold),
	}
	if noColor {
		for _, c := range []*color.Color{p.Header, p.Label, p.Value, p.Pass, p.Warn, p.Fail} {
			c.DisableColor()
		}
	}
	return p
}
