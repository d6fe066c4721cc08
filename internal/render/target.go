package render

import (
	"log/slog"
	"sync"
)

// InvalidInputMessage is shown in place of a code the symbology rejected.
const InvalidInputMessage = "Invalid input"

// Target is a single display slot. Every Draw fully replaces what the slot
// held before; render failures become a placeholder and are never returned.
type Target struct {
	mu       sync.RWMutex
	style    Style
	logger   *slog.Logger
	artifact *Artifact
	failed   bool
}

func NewTarget(style Style, logger *slog.Logger) *Target {
	if logger == nil {
		logger = slog.Default()
	}
	return &Target{style: style, logger: logger}
}

// Draw renders text into the slot. Blank text clears it.
func (t *Target) Draw(text string, kind Kind, ink RGBColor) {
	artifact, err := Render(text, kind, ink, t.style)
	failed := false
	if err != nil {
		t.logger.Warn("showing placeholder for unrenderable code", "kind", kind, "error", err)
		artifact = Placeholder(InvalidInputMessage, ink, t.style)
		failed = true
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.artifact = artifact
	t.failed = failed
}

// Artifact returns the current content of the slot, or nil when empty.
func (t *Target) Artifact() *Artifact {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.artifact
}

// Failed reports whether the slot currently shows the placeholder.
func (t *Target) Failed() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.failed
}

func (t *Target) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.artifact = nil
	t.failed = false
}

func (t *Target) Style() Style {
	return t.style
}
