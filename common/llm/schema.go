package llm

import "github.com/invopop/jsonschema"

// GenerateSchema reflects T into an inline JSON schema for structured output.
func GenerateSchema[T any]() any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}
