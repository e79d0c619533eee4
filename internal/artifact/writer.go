package artifact

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/MahdiFarnaghi/intelli-geo/internal/domain"
	"github.com/MahdiFarnaghi/intelli-geo/internal/logging"
)

// ErrNoArtifact is returned when a response carries no extractable workflow.
// Nothing is written to disk in that case.
var ErrNoArtifact = errors.New("response contains no extractable workflow")

// Writer saves extracted workflows under the artifacts directory.
type Writer struct {
	dir string
	log *logging.Logger
}

// NewWriter creates a writer rooted at dir.
func NewWriter(dir string, log *logging.Logger) *Writer {
	return &Writer{dir: dir, log: log.Sub("artifact")}
}

// Dir returns the artifacts directory.
func (w *Writer) Dir() string {
	return w.dir
}

// Save extracts the workflow of the given kind from the response and writes
// it as model_{title}_{seq} with the extension matching the kind. It returns
// the written path, or ErrNoArtifact when extraction yields nothing.
func (w *Writer) Save(response string, workflow domain.WorkflowKind, conversationTitle string, seq int) (string, error) {
	var content, ext string
	switch workflow {
	case domain.WorkflowWithModel:
		content = ExtractXML(response)
		ext = ".model3"
	case domain.WorkflowWithCode, domain.WorkflowWithToolbox:
		content = ExtractCode(response)
		ext = ".py"
	default:
		return "", fmt.Errorf("workflow kind %q produces no artifact", workflow)
	}

	if content == "" {
		return "", ErrNoArtifact
	}

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating artifacts directory: %w", err)
	}

	fileName := fmt.Sprintf("model_%s_%d%s", sanitizeTitle(conversationTitle), seq, ext)
	path := filepath.Join(w.dir, fileName)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("writing artifact: %w", err)
	}

	w.log.Info().Str("path", path).Str("workflow", string(workflow)).Msg("saved workflow artifact")
	return path, nil
}

// sanitizeTitle keeps conversation titles filesystem-safe.
func sanitizeTitle(title string) string {
	var b strings.Builder
	for _, r := range title {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "untitled"
	}
	return b.String()
}
