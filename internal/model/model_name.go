package model

import "fmt"

type ModelName string

const (
	ModelGPT4o     ModelName = "gpt-4o"
	ModelGPT4oMini ModelName = "gpt-4o-mini"

	DefaultModel = ModelGPT4oMini
)

// ParseModelName maps a request value onto a supported model. Empty selects DefaultModel.
func ParseModelName(raw string) (ModelName, error) {
	switch ModelName(raw) {
	case "":
		return DefaultModel, nil
	case ModelGPT4o, ModelGPT4oMini:
		return ModelName(raw), nil
	default:
		return "", fmt.Errorf("unsupported model %q", raw)
	}
}
