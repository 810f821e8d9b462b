// Package onboarding holds the learning-style questionnaire and the rules
// that turn a set of answers into a profiles.LearningStyle.
package onboarding

import (
	"errors"
	"fmt"

	"github.com/jrsteele09/learnpath/internal/utils"
	"github.com/jrsteele09/learnpath/profiles"
)

var (
	ErrUnanswered    = errors.New("question not answered")
	ErrUnknownAnswer = errors.New("unknown answer")
)

type Option struct {
	ID    string
	Label string
	Style profiles.LearningStyle
}

type Question struct {
	ID      string
	Prompt  string
	Options []Option
}

// Styles lists every learning style in tie-break order.
var Styles = []profiles.LearningStyle{
	profiles.StyleVisual,
	profiles.StyleAuditory,
	profiles.StyleReading,
	profiles.StyleKinesthetic,
}

// Questions is the questionnaire shown to new users.
var Questions = []Question{
	{
		ID:     "new-topic",
		Prompt: "When you start a new topic, what helps most?",
		Options: []Option{
			{ID: "a", Label: "Diagrams and videos", Style: profiles.StyleVisual},
			{ID: "b", Label: "Someone explaining it out loud", Style: profiles.StyleAuditory},
			{ID: "c", Label: "A well written article", Style: profiles.StyleReading},
			{ID: "d", Label: "Jumping in and trying it", Style: profiles.StyleKinesthetic},
		},
	},
	{
		ID:     "remember",
		Prompt: "What do you remember best after a lesson?",
		Options: []Option{
			{ID: "a", Label: "The slides and charts", Style: profiles.StyleVisual},
			{ID: "b", Label: "What was said", Style: profiles.StyleAuditory},
			{ID: "c", Label: "My notes", Style: profiles.StyleReading},
			{ID: "d", Label: "The exercises I did", Style: profiles.StyleKinesthetic},
		},
	},
	{
		ID:     "directions",
		Prompt: "How do you prefer to get directions?",
		Options: []Option{
			{ID: "a", Label: "A map", Style: profiles.StyleVisual},
			{ID: "b", Label: "Spoken turn by turn", Style: profiles.StyleAuditory},
			{ID: "c", Label: "Written steps", Style: profiles.StyleReading},
			{ID: "d", Label: "Walk it once with someone", Style: profiles.StyleKinesthetic},
		},
	},
	{
		ID:     "stuck",
		Prompt: "When you get stuck, you usually...",
		Options: []Option{
			{ID: "a", Label: "Sketch the problem", Style: profiles.StyleVisual},
			{ID: "b", Label: "Talk it through", Style: profiles.StyleAuditory},
			{ID: "c", Label: "Look it up in the docs", Style: profiles.StyleReading},
			{ID: "d", Label: "Experiment until it works", Style: profiles.StyleKinesthetic},
		},
	},
	{
		ID:     "free-time",
		Prompt: "Which would you pick for an evening of learning?",
		Options: []Option{
			{ID: "a", Label: "A documentary", Style: profiles.StyleVisual},
			{ID: "b", Label: "A podcast", Style: profiles.StyleAuditory},
			{ID: "c", Label: "A book", Style: profiles.StyleReading},
			{ID: "d", Label: "A hands-on workshop", Style: profiles.StyleKinesthetic},
		},
	},
}

// Result is the outcome of scoring a questionnaire.
type Result struct {
	Style profiles.LearningStyle
	Tally map[profiles.LearningStyle]int
}

// Score tallies answers (question id to option id) against questions. Every
// question must be answered. Ties go to the style listed first in Styles.
func Score(questions []Question, answers map[string]string) (Result, error) {
	tally := make(map[profiles.LearningStyle]int, len(Styles))
	for _, q := range questions {
		answer, ok := answers[q.ID]
		if !ok || answer == "" {
			return Result{}, fmt.Errorf("[Score] %s: %w", q.ID, ErrUnanswered)
		}
		opt, ok := q.option(answer)
		if !ok {
			return Result{}, fmt.Errorf("[Score] %s=%q: %w", q.ID, answer, ErrUnknownAnswer)
		}
		tally[opt.Style]++
	}

	best := Styles[0]
	for _, style := range Styles[1:] {
		if tally[style] > tally[best] {
			best = style
		}
	}
	return Result{Style: best, Tally: tally}, nil
}

func (q Question) option(id string) (Option, bool) {
	for _, opt := range q.Options {
		if opt.ID == id {
			return opt, true
		}
	}
	return Option{}, false
}

// Patch is the profile update that records a completed questionnaire.
func (r Result) Patch() profiles.Patch {
	return profiles.Patch{LearningStyle: utils.Ptr(r.Style), EvaluationCompleted: utils.Ptr(true)}
}
