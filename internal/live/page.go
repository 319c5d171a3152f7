package live

import (
	"html/template"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
)

// Patch operations understood by the browser shim.
const (
	OpHTML        = "html"         // replace the inner HTML of target
	OpText        = "text"         // replace the text content of target
	OpPrepend     = "prepend"      // insert HTML as first child of target
	OpAppend      = "append"       // insert HTML as last child of target
	OpAfter       = "after"        // insert HTML after target
	OpReplace     = "replace"      // replace target, or append to parent when missing
	OpRemove      = "remove"       // remove target
	OpAddClass    = "add-class"    // add the classes in value
	OpRemoveClass = "remove-class" // remove the classes in value
	OpAttr        = "attr"         // set attribute name to value
	OpProp        = "prop"         // set DOM property name to value
	OpShow        = "show"
	OpHide        = "hide"
	OpNavigate    = "navigate" // full-page navigation to value
	OpOpen        = "open"     // open value in a new window
	OpCopy        = "copy"     // copy value to the clipboard
	OpDialog      = "dialog"   // open a modal built from html
	OpSubmit      = "submit"   // natively submit the form at target
)

// Patch is one DOM mutation.
type Patch struct {
	Op     string        `json:"op"`
	Target string        `json:"target,omitempty"`
	HTML   template.HTML `json:"html,omitempty"`
	Text   string        `json:"text,omitempty"`
	Name   string        `json:"name,omitempty"`
	Value  string        `json:"value,omitempty"`
	Parent string        `json:"parent,omitempty"`
}

// Page is the DOM-scoped root a widget mutates.
type Page interface {
	Apply(p Patch)
}

// ─── Patch constructors ───────────────────────────────────────────────────────

func SetHTML(target string, html template.HTML) Patch {
	return Patch{Op: OpHTML, Target: target, HTML: html}
}

func SetText(target, text string) Patch {
	return Patch{Op: OpText, Target: target, Text: text}
}

func Prepend(target string, html template.HTML) Patch {
	return Patch{Op: OpPrepend, Target: target, HTML: html}
}

func Append(target string, html template.HTML) Patch {
	return Patch{Op: OpAppend, Target: target, HTML: html}
}

func After(target string, html template.HTML) Patch {
	return Patch{Op: OpAfter, Target: target, HTML: html}
}

// Replace swaps target for html, appending html to parent if target is absent.
func Replace(target, parent string, html template.HTML) Patch {
	return Patch{Op: OpReplace, Target: target, Parent: parent, HTML: html}
}

func Remove(target string) Patch {
	return Patch{Op: OpRemove, Target: target}
}

func AddClass(target string, classes ...string) Patch {
	return Patch{Op: OpAddClass, Target: target, Value: strings.Join(classes, " ")}
}

func RemoveClass(target string, classes ...string) Patch {
	return Patch{Op: OpRemoveClass, Target: target, Value: strings.Join(classes, " ")}
}

func SetAttr(target, name, value string) Patch {
	return Patch{Op: OpAttr, Target: target, Name: name, Value: value}
}

// SetProp sets a DOM property; booleans travel as "true" and "false".
func SetProp(target, name, value string) Patch {
	return Patch{Op: OpProp, Target: target, Name: name, Value: value}
}

func Show(target string) Patch { return Patch{Op: OpShow, Target: target} }

func Hide(target string) Patch { return Patch{Op: OpHide, Target: target} }

func Navigate(url string) Patch { return Patch{Op: OpNavigate, Value: url} }

func Open(url string) Patch { return Patch{Op: OpOpen, Value: url} }

func Copy(text string) Patch { return Patch{Op: OpCopy, Value: text} }

func Dialog(html template.HTML) Patch { return Patch{Op: OpDialog, HTML: html} }

func Submit(form string) Patch { return Patch{Op: OpSubmit, Target: form} }

// ─── Recorder ─────────────────────────────────────────────────────────────────

// Recorder is a Page that keeps every patch. It is safe for concurrent use.
type Recorder struct {
	mu      sync.Mutex
	patches []Patch
}

func (r *Recorder) Apply(p Patch) {
	r.mu.Lock()
	r.patches = append(r.patches, p)
	r.mu.Unlock()
}

// Patches returns a copy of the recorded patches.
func (r *Recorder) Patches() []Patch {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Patch, len(r.patches))
	copy(out, r.patches)
	return out
}

// Find returns the recorded patches with the given op and target.
func (r *Recorder) Find(op, target string) []Patch {
	var out []Patch
	for _, p := range r.Patches() {
		if p.Op == op && p.Target == target {
			out = append(out, p)
		}
	}
	return out
}

// Last returns the most recent patch with the given op and target.
func (r *Recorder) Last(op, target string) (Patch, bool) {
	found := r.Find(op, target)
	if len(found) == 0 {
		return Patch{}, false
	}
	return found[len(found)-1], true
}

// Reset forgets every recorded patch.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.patches = nil
	r.mu.Unlock()
}

// ─── Stream page ──────────────────────────────────────────────────────────────

// StreamPage buffers patches for the Server-Sent-Events stream of a session.
type StreamPage struct {
	ch      chan Patch
	dropped atomic.Int64
	log     *slog.Logger
}

// NewStreamPage returns a page buffering up to size patches.
func NewStreamPage(size int, log *slog.Logger) *StreamPage {
	return &StreamPage{ch: make(chan Patch, size), log: log}
}

// Apply queues a patch. When the browser stops reading and the buffer is
// full, the patch is dropped.
func (s *StreamPage) Apply(p Patch) {
	select {
	case s.ch <- p:
	default:
		n := s.dropped.Add(1)
		s.log.Warn("patch dropped, stream buffer full", "op", p.Op, "target", p.Target, "dropped", n)
	}
}

// Patches is drained by the stream handler.
func (s *StreamPage) Patches() <-chan Patch { return s.ch }
