package pipeline

import (
	"errors"
	"regexp"
	"strings"
)

// Extraction failures. Zero usable code and more than one candidate block are
// distinct conditions; the extractor never guesses between blocks.
var (
	ErrNoCodeFound     = errors.New("no code block found in model output")
	ErrAmbiguousBlocks = errors.New("multiple code blocks found in model output")
)

// Confidence tags how an extraction was obtained.
type Confidence string

const (
	// ConfidenceFenced means exactly one fenced block was isolated.
	ConfidenceFenced Confidence = "fenced"
	// ConfidenceHeuristic means no fences were present and the whole response
	// was accepted as code. Best effort, flagged so callers can tell.
	ConfidenceHeuristic Confidence = "heuristic"
)

// Extraction is the isolated code plus metadata about how it was found.
type Extraction struct {
	Code       string
	Language   string
	Confidence Confidence
}

// Fence opener with an optional info string. The info string is any run of
// non-backtick characters (CommonMark); the first token is the language.
var fenceOpenRe = regexp.MustCompile("^```([^`]*)$")

// Code markers for the fallback path: at least one line has to look like the
// target scripting language before a fenceless response is accepted as code.
var codeMarkerRe = regexp.MustCompile(`^\s*(import\s|from\s+\S+\s+import\s|def\s|class\s|print\(|if\s|for\s|while\s|with\s|try:|return\s|#|@|#!)`)

// Prose sentence: capitalised sentence of several words ending in punctuation.
// One of these anywhere disqualifies the fenceless fallback.
var proseLineRe = regexp.MustCompile(`^[A-Z][A-Za-z']*(?:\s+[\w,'"()-]+){3,}[.!?:]\s*$`)

// ExtractCode isolates the single intended code block from a model response.
// Exactly one fenced block wins; zero fences falls back to treating the whole
// response as code when it contains no narrative text; two or more fenced
// blocks fail rather than guess.
func ExtractCode(raw string) (*Extraction, error) {
	blocks := fencedBlocks(raw)
	switch len(blocks) {
	case 1:
		code := trimBlankEdges(blocks[0].body)
		if code == "" {
			return nil, ErrNoCodeFound
		}
		return &Extraction{Code: code, Language: blocks[0].language, Confidence: ConfidenceFenced}, nil
	case 0:
		code := trimBlankEdges(raw)
		if code == "" || !looksLikeBareCode(code) {
			return nil, ErrNoCodeFound
		}
		return &Extraction{Code: code, Confidence: ConfidenceHeuristic}, nil
	default:
		return nil, ErrAmbiguousBlocks
	}
}

type fencedBlock struct {
	language string
	body     string
}

// fencedBlocks scans line-wise for ``` delimiters. An unterminated open fence
// swallows the rest of the response, matching how models truncate output.
func fencedBlocks(raw string) []fencedBlock {
	lines := strings.Split(raw, "\n")
	var blocks []fencedBlock
	var current []string
	language := ""
	inBlock := false
	for _, line := range lines {
		trimmed := strings.TrimRight(line, "\r")
		if inBlock {
			if strings.TrimSpace(trimmed) == "```" {
				blocks = append(blocks, fencedBlock{language: language, body: strings.Join(current, "\n")})
				current = nil
				inBlock = false
				continue
			}
			current = append(current, trimmed)
			continue
		}
		if m := fenceOpenRe.FindStringSubmatch(strings.TrimSpace(trimmed)); m != nil {
			inBlock = true
			language = ""
			if fields := strings.Fields(m[1]); len(fields) > 0 {
				language = strings.ToLower(fields[0])
			}
			current = nil
		}
	}
	if inBlock {
		blocks = append(blocks, fencedBlock{language: language, body: strings.Join(current, "\n")})
	}
	return blocks
}

// looksLikeBareCode decides whether a fenceless response is plausibly a raw
// script: at least one code-shaped line and no narrative sentences.
func looksLikeBareCode(text string) bool {
	markers := 0
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if proseLineRe.MatchString(strings.TrimSpace(line)) {
			return false
		}
		if codeMarkerRe.MatchString(line) {
			markers++
		}
	}
	return markers > 0
}

// trimBlankEdges drops leading and trailing blank lines without touching the
// indentation of the code itself.
func trimBlankEdges(text string) string {
	lines := strings.Split(text, "\n")
	start, end := 0, len(lines)
	for start < end && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	for end > start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	return strings.Join(lines[start:end], "\n")
}
