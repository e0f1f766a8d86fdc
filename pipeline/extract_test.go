package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractSingleFencedBlock(t *testing.T) {
	raw := "Here is the script you asked for:\n" +
		"```python\n" +
		"print(1)\n" +
		"print(2)\n" +
		"```\n" +
		"Let me know if you need anything else."

	extraction, err := ExtractCode(raw)
	require.NoError(t, err)
	assert.Equal(t, "print(1)\nprint(2)", extraction.Code)
	assert.Equal(t, "python", extraction.Language)
	assert.Equal(t, ConfidenceFenced, extraction.Confidence)
}

func TestExtractFenceInfoStrings(t *testing.T) {
	cases := []struct {
		info string
		lang string
	}{
		{"python3.11", "python3.11"},
		{"Python3", "python3"},
		{"python title=example", "python"},
		{"c++", "c++"},
		{"#!/usr/bin/env", "#!/usr/bin/env"},
	}
	for _, tc := range cases {
		raw := "```" + tc.info + "\nprint(1)\n```\n"
		extraction, err := ExtractCode(raw)
		require.NoError(t, err, "info string %q", tc.info)
		assert.Equal(t, "print(1)", extraction.Code, "info string %q", tc.info)
		assert.Equal(t, tc.lang, extraction.Language, "info string %q", tc.info)
		assert.Equal(t, ConfidenceFenced, extraction.Confidence)
	}
}

func TestExtractTrimsBlankEdgesOnly(t *testing.T) {
	raw := "```\n\n\nimport os\n\nif os.path.exists('x'):\n    print('yes')\n\n\n```"

	extraction, err := ExtractCode(raw)
	require.NoError(t, err)
	assert.Equal(t, "import os\n\nif os.path.exists('x'):\n    print('yes')", extraction.Code)
	assert.Equal(t, "", extraction.Language)
}

func TestExtractUnterminatedFence(t *testing.T) {
	raw := "```python\nprint('truncated output')"

	extraction, err := ExtractCode(raw)
	require.NoError(t, err)
	assert.Equal(t, "print('truncated output')", extraction.Code)
	assert.Equal(t, ConfidenceFenced, extraction.Confidence)
}

func TestExtractMultipleBlocksFails(t *testing.T) {
	raw := "First:\n```python\nprint(1)\n```\nOr alternatively:\n```python\nprint(2)\n```\n"

	_, err := ExtractCode(raw)
	assert.ErrorIs(t, err, ErrAmbiguousBlocks)
}

func TestExtractHeuristicBareCode(t *testing.T) {
	raw := "import os\n\nfor name in ('a', 'b'):\n    os.makedirs(name, exist_ok=True)\n"

	extraction, err := ExtractCode(raw)
	require.NoError(t, err)
	assert.Equal(t, ConfidenceHeuristic, extraction.Confidence)
	assert.Contains(t, extraction.Code, "os.makedirs")
}

func TestExtractProseIsNotCode(t *testing.T) {
	raw := "Sure! The plan would be to create the directories first and then write the files.\n" +
		"After that you should verify the permissions are correct on every entry."

	_, err := ExtractCode(raw)
	assert.ErrorIs(t, err, ErrNoCodeFound)
}

func TestExtractMixedProseAndBareCodeFails(t *testing.T) {
	raw := "Here is what I would do to solve the problem you described above.\n" +
		"import os\nprint(os.getcwd())\n"

	_, err := ExtractCode(raw)
	assert.ErrorIs(t, err, ErrNoCodeFound)
}

func TestExtractEmptyInput(t *testing.T) {
	for _, raw := range []string{"", "   \n\n  ", "```python\n\n```"} {
		_, err := ExtractCode(raw)
		assert.ErrorIs(t, err, ErrNoCodeFound, "input %q", raw)
	}
}
