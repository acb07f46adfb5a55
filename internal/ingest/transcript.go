package ingest

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/pslang/internal/model"
)

// Format is a transcript encoding.
type Format string

const (
	FormatJSON  Format = "json"
	FormatJSONL Format = "jsonl"
	FormatYAML  Format = "yaml"
	FormatText  Format = "text"
)

// ParseFormat maps a format name to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON, nil
	case "jsonl", "ndjson":
		return FormatJSONL, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "text", "txt":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unknown transcript format %q", s)
	}
}

// DetectFormat guesses a transcript format from the file name, falling back
// to the first non-blank bytes of data.
func DetectFormat(name string, data []byte) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return FormatJSON
	case ".jsonl", ".ndjson":
		return FormatJSONL
	case ".yaml", ".yml":
		return FormatYAML
	case ".txt", ".md":
		return FormatText
	}

	trimmed := bytes.TrimSpace(data)
	switch {
	case bytes.HasPrefix(trimmed, []byte("[")):
		return FormatJSON
	case bytes.HasPrefix(trimmed, []byte("{")):
		if lines := bytes.Count(trimmed, []byte("\n")); lines > 0 && bytes.Contains(trimmed, []byte("}\n{")) {
			return FormatJSONL
		}
		return FormatJSON
	case bytes.HasPrefix(trimmed, []byte("- role:")), bytes.HasPrefix(trimmed, []byte("turns:")):
		return FormatYAML
	default:
		return FormatText
	}
}

type rawTurn struct {
	Role    string `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
}

type rawTranscript struct {
	Turns    []rawTurn `json:"turns" yaml:"turns"`
	Messages []rawTurn `json:"messages" yaml:"messages"`
}

// LoadTranscript decodes data as a conversation. JSON and YAML accept either
// a bare list of {role, content} objects or an object with a "turns" or
// "messages" list. Text expects blocks introduced by "User:", "Assistant:" or
// "System:" lines. Unknown roles and invalid UTF-8 are errors.
func LoadTranscript(data []byte, format Format) ([]model.Turn, error) {
	if !utf8.Valid(data) {
		return nil, ErrInvalidUTF8
	}

	var raw []rawTurn
	var err error
	switch format {
	case FormatJSON:
		raw, err = decodeJSON(data)
	case FormatJSONL:
		raw, err = decodeJSONL(data)
	case FormatYAML:
		raw, err = decodeYAML(data)
	case FormatText:
		raw, err = decodeText(data)
	default:
		return nil, fmt.Errorf("unknown transcript format %q", format)
	}
	if err != nil {
		return nil, err
	}
	return toTurns(raw)
}

func decodeJSON(data []byte) ([]rawTurn, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if trimmed[0] == '[' {
		var turns []rawTurn
		if err := json.Unmarshal(trimmed, &turns); err != nil {
			return nil, fmt.Errorf("parse json transcript: %w", err)
		}
		return turns, nil
	}
	var wrapped rawTranscript
	if err := json.Unmarshal(trimmed, &wrapped); err != nil {
		return nil, fmt.Errorf("parse json transcript: %w", err)
	}
	return wrapped.list(), nil
}

func decodeJSONL(data []byte) ([]rawTurn, error) {
	var turns []rawTurn
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var t rawTurn
		if err := json.Unmarshal(line, &t); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		turns = append(turns, t)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read jsonl transcript: %w", err)
	}
	return turns, nil
}

func decodeYAML(data []byte) ([]rawTurn, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("parse yaml transcript: %w", err)
	}
	if len(node.Content) == 0 {
		return nil, nil
	}
	root := node.Content[0]
	if root.Kind == yaml.SequenceNode {
		var turns []rawTurn
		if err := root.Decode(&turns); err != nil {
			return nil, fmt.Errorf("parse yaml transcript: %w", err)
		}
		return turns, nil
	}
	var wrapped rawTranscript
	if err := root.Decode(&wrapped); err != nil {
		return nil, fmt.Errorf("parse yaml transcript: %w", err)
	}
	return wrapped.list(), nil
}

// decodeText reads "Role: content" blocks. Lines without a role prefix
// continue the current turn.
func decodeText(data []byte) ([]rawTurn, error) {
	var turns []rawTurn
	var body []string
	flush := func() {
		if len(turns) == 0 {
			return
		}
		turns[len(turns)-1].Content = strings.TrimSpace(strings.Join(body, "\n"))
		body = body[:0]
	}

	for i, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if role, rest, ok := rolePrefix(line); ok {
			flush()
			turns = append(turns, rawTurn{Role: role})
			body = append(body, rest)
			continue
		}
		if len(turns) == 0 {
			if strings.TrimSpace(line) == "" {
				continue
			}
			return nil, fmt.Errorf("line %d: text before first role prefix", i+1)
		}
		body = append(body, line)
	}
	flush()
	return turns, nil
}

// rolePrefix splits "User: hello" into ("User", "hello"). Only known role
// names count; "Note: x" is ordinary text.
func rolePrefix(line string) (string, string, bool) {
	name, rest, ok := strings.Cut(line, ":")
	if !ok || strings.ContainsAny(name, " \t") {
		return "", "", false
	}
	if _, err := model.ParseRole(name); err != nil {
		return "", "", false
	}
	return name, strings.TrimPrefix(rest, " "), true
}

func (r rawTranscript) list() []rawTurn {
	if len(r.Turns) > 0 {
		return r.Turns
	}
	return r.Messages
}

func toTurns(raw []rawTurn) ([]model.Turn, error) {
	turns := make([]model.Turn, 0, len(raw))
	for i, r := range raw {
		role, err := model.ParseRole(r.Role)
		if err != nil {
			return nil, fmt.Errorf("turn %d: %w", i+1, err)
		}
		if !utf8.ValidString(r.Content) {
			return nil, fmt.Errorf("turn %d: %w", i+1, ErrInvalidUTF8)
		}
		turns = append(turns, model.Turn{Role: role, Content: r.Content})
	}
	return turns, nil
}

// LoadTranscriptFile reads and decodes a transcript from path ("-" for
// stdin). An empty format is detected from the file name and content.
func LoadTranscriptFile(path, format string, max int) ([]model.Turn, error) {
	s, err := ReadDocumentFile(path, max)
	if err != nil {
		return nil, err
	}
	data := []byte(s)

	f := DetectFormat(path, data)
	if format != "" {
		if f, err = ParseFormat(format); err != nil {
			return nil, err
		}
	}
	return LoadTranscript(data, f)
}
