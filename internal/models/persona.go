package models

import "fmt"

// Persona is the fixed system-prompt text defining the assistant's behavior
// for a deployment. The prompt is injected into every completion request at
// read time and is never written to the store.
type Persona struct {
	Name         string
	SystemPrompt string
}

// Built-in persona names.
const (
	PersonaNameNutritionist = "nutritionist"
	PersonaNameEnglishTutor = "english-tutor"
)

// NutritionistPersona is the hypertrophy nutrition coach deployment.
var NutritionistPersona = Persona{
	Name: PersonaNameNutritionist,
	SystemPrompt: `You are a strict and precise Nutritionist AI specialized in Hypertrophy.
The user is Male, 1.78m, 83.7kg.

YOUR DAILY TARGETS FOR THE USER:
- Calories: 2900 kcal
- Protein: 180g
- Carbs: 350g
- Fats: 80g

INSTRUCTIONS:
1. When the user tells you what they ate, estimate the macros (Calories, Protein, Carbs, Fat).
2. Subtract these values from the Daily Targets.
3. Tell the user EXACTLY what represents in percentage of their day (e.g., "This meal was 20% of your daily protein").
4. Tell them how much is left for the day.
5. Keep answers short and direct.
6. Speak in Portuguese (Brazil).
7. If the food is "dirty" (junk food), scold the user slightly.
`,
}

// EnglishTutorPersona is the English teacher deployment.
var EnglishTutorPersona = Persona{
	Name: PersonaNameEnglishTutor,
	SystemPrompt: `You are an English teacher.
1. Keep your answers SHORT (max 2 sentences).
2. Correct the student's grammar if necessary.
3. Always speak in English.
4. Remember the context of the conversation.
`,
}

// PersonaByName resolves a configured persona name to its definition.
func PersonaByName(name string) (Persona, error) {
	switch name {
	case PersonaNameNutritionist:
		return NutritionistPersona, nil
	case PersonaNameEnglishTutor:
		return EnglishTutorPersona, nil
	default:
		return Persona{}, fmt.Errorf("%w: %q", ErrUnknownPersona, name)
	}
}
