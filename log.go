package childminder

import (
	"log/slog"

	"github.com/tinkerbay/childminder/internal/core"
)

// SetLogger replaces the package-level logger used by childminder. If l
// is nil, the logger resets to slog.Default() with a component attribute.
// Safe to call concurrently with running controllers.
func SetLogger(l *slog.Logger) {
	core.SetLogger(l)
}
