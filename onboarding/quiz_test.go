package onboarding_test

import (
	"testing"

	"github.com/jrsteele09/learnpath/onboarding"
	"github.com/jrsteele09/learnpath/profiles"
	"github.com/stretchr/testify/require"
)

func answersAll(option string) map[string]string {
	answers := make(map[string]string, len(onboarding.Questions))
	for _, q := range onboarding.Questions {
		answers[q.ID] = option
	}
	return answers
}

func TestScoreMajority(t *testing.T) {
	answers := answersAll("d")
	answers["new-topic"] = "a"

	result, err := onboarding.Score(onboarding.Questions, answers)
	require.NoError(t, err)
	require.Equal(t, profiles.StyleKinesthetic, result.Style)
	require.Equal(t, 4, result.Tally[profiles.StyleKinesthetic])
	require.Equal(t, 1, result.Tally[profiles.StyleVisual])
}

func TestScoreTieBreak(t *testing.T) {
	tests := []struct {
		name    string
		answers map[string]string
		want    profiles.LearningStyle
	}{
		{
			name:    "reading beats kinesthetic",
			answers: map[string]string{"new-topic": "c", "remember": "d", "directions": "c", "stuck": "d", "free-time": "b"},
			want:    profiles.StyleReading,
		},
		{
			name:    "visual beats everything",
			answers: map[string]string{"new-topic": "d", "remember": "a", "directions": "b", "stuck": "a", "free-time": "b"},
			want:    profiles.StyleVisual,
		},
		{
			name:    "auditory beats reading",
			answers: map[string]string{"new-topic": "c", "remember": "b", "directions": "b", "stuck": "c", "free-time": "d"},
			want:    profiles.StyleAuditory,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := onboarding.Score(onboarding.Questions, tt.answers)
			require.NoError(t, err)
			require.Equal(t, tt.want, result.Style)
		})
	}
}

func TestScoreRejectsIncompleteAnswers(t *testing.T) {
	answers := answersAll("a")
	delete(answers, "stuck")

	_, err := onboarding.Score(onboarding.Questions, answers)
	require.ErrorIs(t, err, onboarding.ErrUnanswered)
}

func TestScoreRejectsUnknownOption(t *testing.T) {
	answers := answersAll("a")
	answers["remember"] = "z"

	_, err := onboarding.Score(onboarding.Questions, answers)
	require.ErrorIs(t, err, onboarding.ErrUnknownAnswer)
}

func TestResultPatch(t *testing.T) {
	patch := onboarding.Result{Style: profiles.StyleAuditory}.Patch()

	require.Nil(t, patch.XP)
	require.NotNil(t, patch.LearningStyle)
	require.Equal(t, profiles.StyleAuditory, *patch.LearningStyle)
	require.NotNil(t, patch.EvaluationCompleted)
	require.True(t, *patch.EvaluationCompleted)

	var p profiles.Profile
	patch.Apply(&p, p.UpdatedAt)
	require.True(t, p.Completed())
	require.Equal(t, profiles.StyleAuditory, p.LearningStyle)
}
