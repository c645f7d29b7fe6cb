package store

// Agent is a named persona binding a model, a tone prompt and a set of
// enabled tool names.
type Agent struct {
	ID          string
	Name        string
	ModelID     string
	Persona     string
	Tone        string
	Description string
	Tools       []string
}

type FindAgent struct {
	ID *string
}
