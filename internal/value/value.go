// Package value implements enbu's branded string types: distinct newtypes
// over string that can only be constructed through a validating function,
// so a css selector can never be passed where a url is expected.
package value

import (
	"fmt"
	"strings"
)

// ValidationError is returned by a branded-value constructor when the raw
// input fails its shape check. It carries the offending string so callers
// (the step parser, mainly) can surface it in a diagnostic.
type ValidationError struct {
	Kind string // e.g. "css", "xpath", "url"
	Raw  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s value: %q", e.Kind, e.Raw)
}

// Selector is the common interface satisfied by all selector-kind branded
// values. A command carries exactly one of these.
type Selector interface {
	fmt.Stringer
	MarshalDriverArg() string
	selectorKind() string
	// Reconstruct re-validates raw and returns a new Selector of the same
	// concrete kind. Used by the env expander, which must not keep a
	// branded value's old text after substituting ${VAR} tokens into it.
	Reconstruct(raw string) (Selector, error)
}

// SelectorKind returns the branded kind name ("css", "xpath",
// "interactableText", "ref") of a Selector, for diagnostics.
func SelectorKind(s Selector) string { return s.selectorKind() }

// CSSSelector is a validated CSS selector string.
type CSSSelector struct{ raw string }

// NewCSSSelector validates s and returns a CSSSelector. A valid CSS selector
// is non-empty and begins with one of a-z A-Z # . [ : *.
func NewCSSSelector(s string) (CSSSelector, error) {
	if !looksLikeCSS(s) {
		return CSSSelector{}, &ValidationError{Kind: "css", Raw: s}
	}
	return CSSSelector{raw: s}, nil
}

func looksLikeCSS(s string) bool {
	if s == "" {
		return false
	}
	c := s[0]
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		return true
	case c == '#' || c == '.' || c == '[' || c == ':' || c == '*':
		return true
	default:
		return false
	}
}

func (c CSSSelector) String() string          { return c.raw }
func (c CSSSelector) MarshalDriverArg() string { return c.raw }
func (c CSSSelector) selectorKind() string     { return "css" }
func (c CSSSelector) Reconstruct(raw string) (Selector, error) { return NewCSSSelector(raw) }

// XPathSelector is a validated XPath expression; must start with "/".
type XPathSelector struct{ raw string }

// NewXPathSelector validates s and returns an XPathSelector.
func NewXPathSelector(s string) (XPathSelector, error) {
	if s == "" || !strings.HasPrefix(s, "/") {
		return XPathSelector{}, &ValidationError{Kind: "xpath", Raw: s}
	}
	return XPathSelector{raw: s}, nil
}

func (x XPathSelector) String() string          { return x.raw }
func (x XPathSelector) MarshalDriverArg() string { return x.raw }
func (x XPathSelector) selectorKind() string     { return "xpath" }
func (x XPathSelector) Reconstruct(raw string) (Selector, error) { return NewXPathSelector(raw) }

// InteractableText is a text match against an element of interactive role
// (button, link, textbox).
type InteractableText struct{ raw string }

// NewInteractableText validates s and returns an InteractableText.
func NewInteractableText(s string) (InteractableText, error) {
	if s == "" {
		return InteractableText{}, &ValidationError{Kind: "interactableText", Raw: s}
	}
	return InteractableText{raw: s}, nil
}

func (t InteractableText) String() string          { return t.raw }
func (t InteractableText) MarshalDriverArg() string { return t.raw }
func (t InteractableText) selectorKind() string     { return "interactableText" }
func (t InteractableText) Reconstruct(raw string) (Selector, error) { return NewInteractableText(raw) }

// Ref is an opaque "@eN" handle returned by a prior snapshot operation.
type Ref struct{ raw string }

// NewRef validates s and returns a Ref.
func NewRef(s string) (Ref, error) {
	if s == "" {
		return Ref{}, &ValidationError{Kind: "ref", Raw: s}
	}
	return Ref{raw: s}, nil
}

func (r Ref) String() string          { return r.raw }
func (r Ref) MarshalDriverArg() string { return r.raw }
func (r Ref) selectorKind() string     { return "ref" }
func (r Ref) Reconstruct(raw string) (Selector, error) { return NewRef(raw) }

// URL is a validated, non-empty URL string.
type URL struct{ raw string }

// NewURL validates s and returns a URL.
func NewURL(s string) (URL, error) {
	if strings.TrimSpace(s) == "" {
		return URL{}, &ValidationError{Kind: "url", Raw: s}
	}
	return URL{raw: s}, nil
}

func (u URL) String() string          { return u.raw }
func (u URL) MarshalDriverArg() string { return u.raw }

// FilePath is a validated, non-empty filesystem path.
type FilePath struct{ raw string }

// NewFilePath validates s and returns a FilePath.
func NewFilePath(s string) (FilePath, error) {
	if strings.TrimSpace(s) == "" {
		return FilePath{}, &ValidationError{Kind: "path", Raw: s}
	}
	return FilePath{raw: s}, nil
}

func (p FilePath) String() string          { return p.raw }
func (p FilePath) MarshalDriverArg() string { return p.raw }

// KeyboardKey is a validated, non-empty keyboard key name (e.g. "Enter").
type KeyboardKey struct{ raw string }

// NewKeyboardKey validates s and returns a KeyboardKey.
func NewKeyboardKey(s string) (KeyboardKey, error) {
	if strings.TrimSpace(s) == "" {
		return KeyboardKey{}, &ValidationError{Kind: "key", Raw: s}
	}
	return KeyboardKey{raw: s}, nil
}

func (k KeyboardKey) String() string          { return k.raw }
func (k KeyboardKey) MarshalDriverArg() string { return k.raw }

// JsExpression is a validated, non-empty JavaScript expression string.
type JsExpression struct{ raw string }

// NewJsExpression validates s and returns a JsExpression.
func NewJsExpression(s string) (JsExpression, error) {
	if strings.TrimSpace(s) == "" {
		return JsExpression{}, &ValidationError{Kind: "js", Raw: s}
	}
	return JsExpression{raw: s}, nil
}

func (j JsExpression) String() string          { return j.raw }
func (j JsExpression) MarshalDriverArg() string { return j.raw }
