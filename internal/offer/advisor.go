package offer

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// AudienceAdvice is the advisor's recommendation for campaign targeting.
type AudienceAdvice struct {
	SuggestedInterests []string `json:"suggested_interests"`
	Rationale          string   `json:"rationale"`
	ConfidenceScore    float64  `json:"confidence_score"`
}

// AudienceAdvisor suggests diner interest categories for a location and
// cuisine. With a generator it asks the model; without one, or on failure, it
// answers from a cuisine heuristic table.
type AudienceAdvisor struct {
	gen    Generator
	logger *zap.Logger
}

func NewAudienceAdvisor(gen Generator, logger *zap.Logger) *AudienceAdvisor {
	return &AudienceAdvisor{gen: gen, logger: logger}
}

func (a *AudienceAdvisor) SuggestInterests(ctx context.Context, city, state, cuisine, daypart string) AudienceAdvice {
	if a.gen != nil {
		advice, err := a.suggestWithAI(ctx, city, state, cuisine, daypart)
		if err == nil {
			return advice
		}
		a.logger.Error("ai audience suggestion failed, using heuristics", zap.Error(err))
	}
	return a.heuristics(city, state, cuisine, daypart)
}

var (
	rationaleSplitRe = regexp.MustCompile(`(?i)RATIONALE:\s*`)
	interestsLabelRe = regexp.MustCompile(`(?i)INTERESTS:\s*`)
)

func (a *AudienceAdvisor) suggestWithAI(ctx context.Context, city, state, cuisine, daypart string) (AudienceAdvice, error) {
	if daypart == "" {
		daypart = "all day"
	}
	prompt := fmt.Sprintf(
		"As a restaurant marketing expert, suggest the most effective customer interest categories for %s, %s.\n\n"+
			"Cuisine: %s\nTarget time: %s\n\n"+
			"Provide 3-5 specific categories.\n\n"+
			"INTERESTS: a, b, c\n"+
			"RATIONALE: brief explanation",
		city, state, cuisine, daypart)

	out, err := a.gen.Complete(ctx, "You are a restaurant marketing expert.", prompt, 150, 0.3)
	if err != nil {
		return AudienceAdvice{}, err
	}
	interests, rationale := parseAdvice(strings.TrimSpace(out))
	score := 0.5
	if len(interests) > 0 {
		score = 0.85
	}
	return AudienceAdvice{SuggestedInterests: interests, Rationale: rationale, ConfidenceScore: score}, nil
}

func parseAdvice(response string) ([]string, string) {
	if response == "" {
		return nil, ""
	}
	parts := rationaleSplitRe.Split(response, 2)
	interestsPart := strings.TrimSpace(interestsLabelRe.ReplaceAllString(parts[0], ""))
	rationale := ""
	if len(parts) > 1 {
		rationale = strings.TrimSpace(parts[1])
	}
	var interests []string
	for _, i := range strings.Split(interestsPart, ",") {
		if i = strings.TrimSpace(i); i != "" {
			interests = append(interests, i)
		}
	}
	if len(interests) > 5 {
		interests = interests[:5]
	}
	return interests, rationale
}

var cuisineInterests = []struct {
	key       string
	interests []string
}{
	{"italian", []string{"fine_dining", "wine_lovers", "family_dining"}},
	{"mexican", []string{"casual_dining", "groups", "happy_hour"}},
	{"chinese", []string{"takeout", "family_dining", "lunch_crowd"}},
	{"american", []string{"sports_bars", "family_dining", "comfort_food"}},
	{"japanese", []string{"sushi_lovers", "fine_dining", "date_night"}},
	{"thai", []string{"spicy_food", "healthy_eating", "lunch_crowd"}},
	{"indian", []string{"spicy_food", "vegetarian", "ethnic_cuisine"}},
	{"french", []string{"fine_dining", "wine_lovers", "romantic_dining"}},
	{"seafood", []string{"fresh_seafood", "coastal_dining", "fine_dining"}},
	{"steakhouse", []string{"meat_lovers", "business_dining", "special_occasions"}},
}

var daypartInterests = map[string][]string{
	"breakfast":  {"coffee_lovers", "early_birds", "business_breakfast"},
	"lunch":      {"lunch_crowd", "business_lunch", "quick_service"},
	"dinner":     {"dinner_out", "date_night", "family_dining"},
	"late_night": {"nightlife", "late_night_dining", "bar_food"},
}

func (a *AudienceAdvisor) heuristics(city, state, cuisine, daypart string) AudienceAdvice {
	c := strings.ToLower(cuisine)
	interests := []string{"local_dining", "good_food", "restaurants"}
	for _, entry := range cuisineInterests {
		if strings.Contains(c, entry.key) {
			interests = entry.interests
			break
		}
	}
	if daypart != "" {
		interests = append(interests, daypartInterests[strings.ToLower(daypart)]...)
	}

	seen := make(map[string]struct{})
	var uniq []string
	for _, i := range interests {
		if _, ok := seen[i]; ok {
			continue
		}
		seen[i] = struct{}{}
		uniq = append(uniq, i)
		if len(uniq) == 5 {
			break
		}
	}

	rationale := fmt.Sprintf("Selected interests for %s in %s, %s. ", cuisine, city, state)
	if daypart != "" {
		rationale += fmt.Sprintf("Optimized for %s. ", daypart)
	}
	rationale += "These categories typically drive engagement for similar restaurants."
	return AudienceAdvice{SuggestedInterests: uniq, Rationale: rationale, ConfidenceScore: 0.65}
}
