// Package command defines enbu's tagged command union — the typed model
// that the permissive YAML flow surface is validated into — and the
// two-stage schema validators (internal/command/schema.go) that build it.
package command

import "github.com/enbu-dev/enbu/internal/value"

// Tag identifies a command kind. A step carries exactly one Tag.
type Tag string

const (
	TagOpen            Tag = "open"
	TagClick           Tag = "click"
	TagDblClick        Tag = "dblclick"
	TagHover           Tag = "hover"
	TagFocus           Tag = "focus"
	TagScrollIntoView  Tag = "scrollIntoView"
	TagType            Tag = "type"
	TagFill            Tag = "fill"
	TagPress           Tag = "press"
	TagSelect          Tag = "select"
	TagCheck           Tag = "check"
	TagUncheck         Tag = "uncheck"
	TagUpload          Tag = "upload"
	TagDrag            Tag = "drag"
	TagScroll          Tag = "scroll"
	TagWait            Tag = "wait"
	TagScreenshot      Tag = "screenshot"
	TagSnapshot        Tag = "snapshot"
	TagEval            Tag = "eval"
	TagAssertVisible   Tag = "assertVisible"
	TagAssertNotVisible Tag = "assertNotVisible"
	TagAssertEnabled   Tag = "assertEnabled"
	TagAssertChecked   Tag = "assertChecked"
)

// Command is the tagged union every parsed step reduces to. Each concrete
// type below is a variant; type-switch on the interface to dispatch.
type Command interface {
	Tag() Tag
}

// OpenCommand navigates to a URL.
type OpenCommand struct {
	URL value.URL
}

func (OpenCommand) Tag() Tag { return TagOpen }

// SelectorCommand covers the commands whose only payload is a selector:
// click, dblclick, hover, focus, scrollIntoView, check, uncheck, and the
// four assert* commands. CommandTag distinguishes which one.
type SelectorCommand struct {
	CommandTag Tag
	Selector   value.Selector
}

func (c SelectorCommand) Tag() Tag { return c.CommandTag }

// TypeCommand covers type and fill: a selector plus a string value typed
// into it. CommandTag distinguishes "type" from "fill".
type TypeCommand struct {
	CommandTag Tag
	Selector   value.Selector
	Value      string
}

func (c TypeCommand) Tag() Tag { return c.CommandTag }

// PressCommand sends a single keyboard key.
type PressCommand struct {
	Key value.KeyboardKey
}

func (PressCommand) Tag() Tag { return TagPress }

// SelectCommand chooses an option by value in a <select>-like element.
type SelectCommand struct {
	Selector value.Selector
	Value    string
}

func (SelectCommand) Tag() Tag { return TagSelect }

// UploadCommand attaches one or more files to a file input.
type UploadCommand struct {
	Selector value.Selector
	Files    []value.FilePath
}

func (UploadCommand) Tag() Tag { return TagUpload }

// DragCommand drags from a source selector to a target selector.
type DragCommand struct {
	Source value.Selector
	Target value.Selector
}

func (DragCommand) Tag() Tag { return TagDrag }

// ScrollDirection is one of the four cardinal scroll directions.
type ScrollDirection string

const (
	ScrollUp    ScrollDirection = "up"
	ScrollDown  ScrollDirection = "down"
	ScrollLeft  ScrollDirection = "left"
	ScrollRight ScrollDirection = "right"
)

// ScrollCommand scrolls the page or an element by amount in direction.
type ScrollCommand struct {
	Direction ScrollDirection
	Amount    float64
}

func (ScrollCommand) Tag() Tag { return TagScroll }

// WaitState is the element state a wait command polls for.
type WaitState string

const (
	WaitVisible  WaitState = "visible"
	WaitHidden   WaitState = "hidden"
	WaitAttached WaitState = "attached"
	WaitDetached WaitState = "detached"
)

// WaitCommand either sleeps for a fixed duration (Ms set, Selector nil) or
// polls a selector for a target State.
type WaitCommand struct {
	Ms       *int
	Selector value.Selector
	State    WaitState
}

func (WaitCommand) Tag() Tag { return TagWait }

// ScreenshotCommand captures the page (or, with FullPage, the full
// scrollable area) to Path.
type ScreenshotCommand struct {
	Path     value.FilePath
	FullPage bool
}

func (ScreenshotCommand) Tag() Tag { return TagScreenshot }

// SnapshotCommand takes an accessibility snapshot, populating refs usable
// by later steps. It carries no fields.
type SnapshotCommand struct{}

func (SnapshotCommand) Tag() Tag { return TagSnapshot }

// EvalCommand runs a JavaScript expression in the page context.
type EvalCommand struct {
	Script value.JsExpression
}

func (EvalCommand) Tag() Tag { return TagEval }
