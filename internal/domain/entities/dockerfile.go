package entities

import (
	"fmt"
	"strings"

	"github.com/moby/buildkit/frontend/dockerfile/parser"
)

// FromInstruction is one base-image instruction found in a Dockerfile.
type FromInstruction struct {
	Line   int    // 1-based line holding the image token
	Column int    // byte offset of the image token within that line
	Token  string // image token exactly as written
	Image  ImageReference
}

// DockerfilePath is a Dockerfile that references the tracked image at least once.
type DockerfilePath struct {
	Repository   Repository
	Path         string
	RawContent   string
	Instructions []FromInstruction
}

// FindFromInstructions returns every `FROM` instruction of content whose image is a
// literal image name. Stage aliases (`FROM builder`) and build-arg references are skipped.
// Content the Dockerfile parser rejects is scanned line by line instead.
func FindFromInstructions(content string) []FromInstruction {
	result, err := parser.Parse(strings.NewReader(content))
	if err != nil || result.AST == nil {
		return scanFromLines(content)
	}

	lines := strings.Split(content, "\n")
	stages := make(map[string]bool)
	var found []FromInstruction

	for _, node := range result.AST.Children {
		if !strings.EqualFold(node.Value, "from") || node.Next == nil {
			continue
		}
		token := node.Next.Value
		alias := stageAlias(node.Next)

		if !stages[strings.ToLower(token)] {
			if instruction, ok := locateToken(lines, node.StartLine, node.EndLine, token); ok {
				found = append(found, instruction)
			}
		}
		if alias != "" {
			stages[strings.ToLower(alias)] = true
		}
	}

	return found
}

// ReferencesImage reports whether any instruction points at the same repository as image.
func ReferencesImage(instructions []FromInstruction, image ImageReference) bool {
	for _, instruction := range instructions {
		if instruction.Image.SameRepository(image) {
			return true
		}
	}
	return false
}

// ApplyUpdateTasks rewrites the image token of every task in content. Bytes outside the
// rewritten tokens are preserved exactly.
func ApplyUpdateTasks(content string, tasks []UpdateTask) (string, error) {
	lines := strings.Split(content, "\n")

	for _, task := range tasks {
		instruction := task.Instruction
		if instruction.Line < 1 || instruction.Line > len(lines) {
			return "", fmt.Errorf("line %d is out of range", instruction.Line)
		}

		line := lines[instruction.Line-1]
		end := instruction.Column + len(instruction.Token)
		if instruction.Column < 0 || end > len(line) || line[instruction.Column:end] != instruction.Token {
			return "", fmt.Errorf("line %d no longer holds %q", instruction.Line, instruction.Token)
		}

		lines[instruction.Line-1] = line[:instruction.Column] + task.Replacement() + line[end:]
	}

	return strings.Join(lines, "\n"), nil
}

func stageAlias(imageNode *parser.Node) string {
	asNode := imageNode.Next
	if asNode == nil || !strings.EqualFold(asNode.Value, "as") || asNode.Next == nil {
		return ""
	}
	return asNode.Next.Value
}

// locateToken finds token within the physical lines [startLine, endLine] of a
// (possibly continued) instruction.
func locateToken(lines []string, startLine, endLine int, token string) (FromInstruction, bool) {
	image, ok := ParseImageReference(token)
	if !ok {
		return FromInstruction{}, false
	}
	if endLine < startLine {
		endLine = startLine
	}

	for lineNumber := startLine; lineNumber <= endLine && lineNumber <= len(lines); lineNumber++ {
		if lineNumber < 1 {
			continue
		}
		line := lines[lineNumber-1]

		column := -1
		if match := fromLinePattern.FindStringSubmatchIndex(line); match != nil && line[match[2]:match[3]] == token {
			column = match[2]
		} else if lineNumber > startLine {
			column = strings.Index(line, token)
		}

		if column >= 0 {
			return FromInstruction{Line: lineNumber, Column: column, Token: token, Image: image}, true
		}
	}

	return FromInstruction{}, false
}

func scanFromLines(content string) []FromInstruction {
	var found []FromInstruction
	for idx, line := range strings.Split(content, "\n") {
		match := fromLinePattern.FindStringSubmatchIndex(line)
		if match == nil {
			continue
		}
		token := line[match[2]:match[3]]
		image, ok := ParseImageReference(token)
		if !ok {
			continue
		}
		found = append(found, FromInstruction{Line: idx + 1, Column: match[2], Token: token, Image: image})
	}
	return found
}
