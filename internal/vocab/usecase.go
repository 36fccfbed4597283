package vocab

import "encoding/json"

// UseCaseCategory is the fixed category of a UseCase.
type UseCaseCategory string

const (
	UseAttribution     UseCaseCategory = "attribution"
	UseRetargeting     UseCaseCategory = "retargeting"
	UsePersonalization UseCaseCategory = "personalization"
	UseAITraining      UseCaseCategory = "ai_training"
	UseDistribution    UseCaseCategory = "distribution"
	UseAnalytics       UseCaseCategory = "analytics"
	UseSupport         UseCaseCategory = "support"

	UseCustom UseCaseCategory = "custom"
)

var useCaseCategories = []UseCaseCategory{
	UseAttribution, UseRetargeting, UsePersonalization, UseAITraining,
	UseDistribution, UseAnalytics, UseSupport,
}

var useCaseTokens = func() map[string]struct{} {
	tokens := make([]string, len(useCaseCategories))
	for i, c := range useCaseCategories {
		tokens[i] = string(c)
	}
	return tokenSet(tokens)
}()

// UseCases lists the fixed use-case vocabulary.
func UseCases() []UseCaseCategory {
	out := make([]UseCaseCategory, len(useCaseCategories))
	copy(out, useCaseCategories)
	return out
}

// UseCase is a canonicalized permitted use.
type UseCase struct {
	category UseCaseCategory
	value    string
}

// NewUseCase canonicalizes raw; unknown values become custom use cases.
func NewUseCase(raw string) UseCase {
	v, custom := canonicalize(raw, useCaseTokens)
	if custom {
		return UseCase{category: UseCustom, value: v}
	}
	return UseCase{category: UseCaseCategory(v), value: v}
}

// NewUseCases canonicalizes every entry of raw, keeping order.
func NewUseCases(raw []string) []UseCase {
	if len(raw) == 0 {
		return nil
	}
	out := make([]UseCase, len(raw))
	for i, r := range raw {
		out[i] = NewUseCase(r)
	}
	return out
}

func (u UseCase) Category() UseCaseCategory { return u.category }
func (u UseCase) Value() string             { return u.value }
func (u UseCase) String() string            { return u.value }
func (u UseCase) IsCustom() bool            { return u.category == UseCustom }

func (u UseCase) MarshalJSON() ([]byte, error) { return json.Marshal(u.value) }

func (u *UseCase) UnmarshalJSON(data []byte) error {
	s, err := unmarshalString(data, "use case")
	if err != nil {
		return err
	}
	*u = NewUseCase(s)
	return nil
}
