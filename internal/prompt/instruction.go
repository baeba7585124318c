package prompt

import (
	"fmt"
	"strings"

	"prompt-image-editor/internal/ops"
)

// BuildInstruction renders the model instruction for prompt. applied is the
// operation log as text; an empty log is sent as "none".
func BuildInstruction(prompt, applied string) string {
	if strings.TrimSpace(applied) == "" {
		applied = "none"
	}

	var types []string
	for _, k := range ops.All() {
		switch k {
		case ops.FlipHorizontal, ops.FlipVertical, ops.FreehandBlur:
			continue
		}
		types = append(types, k.String())
	}
	types = append(types, "flip")

	var b strings.Builder
	b.WriteString("You are an image editor assistant.\n")
	b.WriteString("Given a user instruction, generate a compact JSON object with the list of operations and any necessary parameters.\n")
	b.WriteString("Only return JSON. No explanations.\n\n")
	b.WriteString(`The JSON format must be:` + "\n")
	b.WriteString(`{"operations": [{"type": "blur", "intensity": "high"}, {"type": "grayscale"}]}` + "\n\n")
	fmt.Fprintf(&b, "Supported types: %s.\n", strings.Join(types, ", "))
	b.WriteString(`Intensity is one of "low", "medium", "high" and applies to blur, brightness and contrast.` + "\n")
	b.WriteString(`For "flip", always specify the "direction" as either "horizontal" or "vertical".` + "\n\n")
	b.WriteString("Examples:\n")
	b.WriteString(`User: "Apply high blur and grayscale"` + "\n")
	b.WriteString(`Output: {"operations": [{"type": "blur", "intensity": "high"}, {"type": "grayscale"}]}` + "\n")
	b.WriteString(`User: "Flip vertically and apply pencil sketch"` + "\n")
	b.WriteString(`Output: {"operations": [{"type": "flip", "direction": "vertical"}, {"type": "pencilSketch"}]}` + "\n\n")
	fmt.Fprintf(&b, "Already applied operations:\n%s\n\n", applied)
	fmt.Fprintf(&b, "Now, user prompt:\n'%s'\n\nOutput:\n", prompt)
	return b.String()
}
