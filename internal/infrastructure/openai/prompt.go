package openai

import "fmt"

// systemInstruction pins the model to JSON-only output with exactly the
// four fields the parser expects.
const systemInstruction = "You are a nutrition analysis assistant. " +
	"Given a food description, estimate its nutrition facts. " +
	"Respond with only a JSON object containing exactly these numeric fields: " +
	`"calories" (kcal), "fat" (grams), "carbs" (grams), "protein" (grams). ` +
	"No explanations, no markdown, no additional fields."

// buildPrompt renders the fixed user-prompt template for a food
// description. The description goes through verbatim: quantity and
// phrasing nuance matter to the estimate.
func buildPrompt(description string) string {
	return fmt.Sprintf(
		"Estimate the nutrition facts for: %s\n"+
			"The quantity may or may not be specified; if it is not, assume a typical serving size. "+
			"Return only the JSON object.",
		description,
	)
}
