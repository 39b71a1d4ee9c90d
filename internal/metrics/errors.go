package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os/exec"
	"strings"
	"unicode"

	"github.com/torosent/tickmeter/internal/runner"
)

// Error labels used in the breakdown of failed runs.
const (
	LabelTimeout     = "Timeout"
	LabelCanceled    = "Canceled"
	LabelHTTPStatus  = "HTTP error response"
	LabelExitStatus  = "Non-zero exit status"
	LabelNoCommand   = "Command not found"
	LabelNetwork     = "Network error"
	LabelRequestURL  = "Request URL error"
	LabelOther       = "Other error"
	labelUnknownType = "Unknown error"
)

// ErrorLabel classifies the error that failed a run. Known failure kinds are
// matched through the wrap chain; anything else is named after its type.
func ErrorLabel(err error) string {
	if err == nil {
		return labelUnknownType
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return LabelTimeout
	}
	if errors.Is(err, context.Canceled) {
		return LabelCanceled
	}

	var httpErr *runner.HTTPError
	if errors.As(err, &httpErr) {
		return LabelHTTPStatus
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return LabelExitStatus
	}
	if errors.Is(err, exec.ErrNotFound) {
		return LabelNoCommand
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return LabelTimeout
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return LabelNetwork + " (" + opErr.Op + ")"
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return LabelRequestURL
	}
	return typeLabel(fmt.Sprintf("%T", err))
}

// typeLabel turns "*pkg/path.SomeTypeError" into "Some Type Error (path)".
// Plain errors.New and fmt.Errorf values carry no useful type and share
// LabelOther.
func typeLabel(name string) string {
	name = strings.TrimLeft(strings.TrimSpace(name), "*")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	pkg, typ, found := strings.Cut(name, ".")
	if !found {
		pkg, typ = "", name
	}
	switch pkg {
	case "errors", "fmt":
		return LabelOther
	}

	words := splitCamel(typ)
	if words == "" {
		return labelUnknownType
	}
	if pkg == "" || pkg == "main" {
		return words
	}
	return words + " (" + pkg + ")"
}

// splitCamel inserts a space at each lower-to-upper boundary and before the
// last capital of an acronym run, then upper-cases the first letter:
// "OpError" -> "Op Error", "HTTPTimeout" -> "HTTP Timeout".
func splitCamel(s string) string {
	runes := []rune(s)
	var b strings.Builder
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prev := runes[i-1]
			acronymEnd := unicode.IsUpper(prev) && i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || acronymEnd {
				b.WriteByte(' ')
			}
		}
		if i == 0 {
			r = unicode.ToUpper(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}
