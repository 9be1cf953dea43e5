// Package preview evaluates the editable product preview component in a
// closed sandbox and extracts the structural signals the behavioral test
// battery asserts on. The dialect it accepts is deliberately small: the
// component may only reference what it declares in the same file, so
// evaluation can never touch the network, the filesystem, or the host
// process.
package preview

import (
	"errors"
	"fmt"
	"strings"
)

// PreviewSignals summarizes what the rendered component tree contains.
type PreviewSignals struct {
	Texts       []string
	AriaLabels  []string
	ButtonTexts []string
	ButtonCount int
	ClassNames  []string
}

// NormalizedClasses joins every collected className for regex matching.
func (s *PreviewSignals) NormalizedClasses() string {
	return strings.Join(s.ClassNames, " ")
}

// previewError carries a message meant to surface to the requester as-is.
type previewError struct{ msg string }

func (e *previewError) Error() string { return e.msg }

func userErrorf(format string, args ...any) error {
	return &previewError{msg: fmt.Sprintf(format, args...)}
}

var (
	errMissingDefaultExport = &previewError{msg: "Editable preview must export a default React component function."}
	errClassComponent       = &previewError{msg: "Editable preview must use function components only."}
)

// Compile parses and renders the component once, discarding the tree.
// It is the cheapest way to answer "does this source evaluate at all".
func Compile(source string) error {
	_, err := evaluate(source)
	return err
}

// Inspect renders the component and walks the resulting tree.
func Inspect(source string) (*PreviewSignals, error) {
	root, err := evaluate(source)
	if err != nil {
		return nil, err
	}
	signals := &PreviewSignals{}
	inspectNode(root, signals)
	return signals, nil
}

func evaluate(source string) (node, error) {
	prog, err := parse(source)
	if err != nil {
		return nil, wrapEvalError(err)
	}
	root, err := render(prog)
	if err != nil {
		return nil, wrapEvalError(err)
	}
	return root, nil
}

func wrapEvalError(err error) error {
	var pe *previewError
	if errors.As(err, &pe) {
		return err
	}
	return fmt.Errorf("Updated preview source could not be evaluated: %w", err)
}

func inspectNode(n node, signals *PreviewSignals) {
	switch n := n.(type) {
	case *textNode:
		signals.Texts = append(signals.Texts, n.value)
	case *listNode:
		for _, item := range n.items {
			inspectNode(item, signals)
		}
	case *elementNode:
		if class := n.attrs["className"]; class != "" {
			signals.ClassNames = append(signals.ClassNames, class)
		}
		if label := n.attrs["aria-label"]; label != "" {
			signals.AriaLabels = append(signals.AriaLabels, label)
		}
		if n.tag == "button" {
			signals.ButtonCount++
			if label := strings.TrimSpace(strings.Join(collectText(n.children), " ")); label != "" {
				signals.ButtonTexts = append(signals.ButtonTexts, label)
			}
		}
		for _, child := range n.children {
			inspectNode(child, signals)
		}
	}
}

func collectText(nodes []node) []string {
	var out []string
	for _, n := range nodes {
		switch n := n.(type) {
		case *textNode:
			out = append(out, n.value)
		case *listNode:
			out = append(out, collectText(n.items)...)
		case *elementNode:
			out = append(out, collectText(n.children)...)
		}
	}
	return out
}
