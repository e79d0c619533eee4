package artifact

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/MahdiFarnaghi/intelli-geo/internal/domain"
	"github.com/MahdiFarnaghi/intelli-geo/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractCode(t *testing.T) {
	response := "Here is the script:\n```python\nimport processing\nprocessing.run(\"native:buffer\", params)\n```\nRun it from the console."

	code := ExtractCode(response)
	assert.Equal(t, "import processing\nprocessing.run(\"native:buffer\", params)", code)
}

func TestExtractCode_NoFence(t *testing.T) {
	assert.Equal(t, "", ExtractCode("no code here"))
	assert.Equal(t, "", ExtractCode("```xml\n<model/>\n```"))
}

func TestExtractCode_FirstFenceWins(t *testing.T) {
	response := "```python\nfirst\n```\nand\n```python\nsecond\n```"
	assert.Equal(t, "first", ExtractCode(response))
}

func TestExtractXML(t *testing.T) {
	response := "The model:\n```xml\n<Option type=\"Map\"></Option>\n```"
	assert.Equal(t, `<Option type="Map"></Option>`, ExtractXML(response))
}

func TestExtractXML_TruncatedFence(t *testing.T) {
	// No closing fence: recover up to the last '>' after the marker.
	response := "```xml\n<Option type=\"Map\"><child/></Option"
	assert.Equal(t, "", ExtractXML("nothing"))
	assert.Equal(t, "\n<Option type=\"Map\"><child/>", ExtractXML(response))
}

func testWriter(t *testing.T) *Writer {
	t.Helper()
	return NewWriter(t.TempDir(), logging.New(nil, "silent"))
}

func TestWriter_Save_Code(t *testing.T) {
	w := testWriter(t)

	path, err := w.Save("```python\nprint('hi')\n```", domain.WorkflowWithCode, "Flood mapping", 4)
	require.NoError(t, err)
	assert.Equal(t, "model_Flood_mapping_4.py", filepath.Base(path))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "print('hi')", string(content))
}

func TestWriter_Save_Model(t *testing.T) {
	w := testWriter(t)

	path, err := w.Save("```xml\n<model/>\n```", domain.WorkflowWithModel, "demo", 0)
	require.NoError(t, err)
	assert.Equal(t, "model_demo_0.model3", filepath.Base(path))
}

func TestWriter_Save_Toolbox(t *testing.T) {
	w := testWriter(t)

	path, err := w.Save("```python\nclass Algo: pass\n```", domain.WorkflowWithToolbox, "demo", 1)
	require.NoError(t, err)
	assert.Equal(t, ".py", filepath.Ext(path))
}

func TestWriter_Save_NoArtifact(t *testing.T) {
	w := testWriter(t)

	_, err := w.Save("sorry, I can only chat about that", domain.WorkflowWithCode, "demo", 0)
	assert.ErrorIs(t, err, ErrNoArtifact)

	// Nothing must be written when extraction fails.
	entries, readErr := os.ReadDir(w.Dir())
	if readErr == nil {
		assert.Empty(t, entries)
	}
}

func TestWriter_Save_EmptyWorkflowKind(t *testing.T) {
	w := testWriter(t)
	_, err := w.Save("```python\nx\n```", domain.WorkflowEmpty, "demo", 0)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoArtifact)
}

func TestSanitizeTitle(t *testing.T) {
	assert.Equal(t, "Flood_mapping", sanitizeTitle("Flood mapping"))
	assert.Equal(t, "abc-1_2", sanitizeTitle("a/b\\c-1_2"))
	assert.Equal(t, "untitled", sanitizeTitle("../.."))
}
