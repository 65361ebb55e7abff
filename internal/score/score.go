// Package score implements the scoring helper (§4.G): per-question
// correctness, a weighted score, and a percentage against a quiz's total
// point value. Grounded on
// original_source/backend/app/services/score_quiz.py.
package score

import "math"

// Question is one quiz question as seen by the scorer.
type Question struct {
	ID            string
	CorrectAnswer string
	PointsWeight  float64
}

// QuestionResult is the per-question detail line of a QuizResult.
type QuestionResult struct {
	QuestionID    string  `json:"question_id"`
	UserAnswer    *string `json:"user_answer"`
	CorrectAnswer string  `json:"correct_answer"`
	IsCorrect     bool    `json:"is_correct"`
	PointsWeight  float64 `json:"points_weight"`
}

// QuizResult is the full outcome of scoring one submission.
type QuizResult struct {
	Score            float64          `json:"score"`
	Percentage       float64          `json:"percentage"`
	QuestionsCorrect int              `json:"questions_correct"`
	QuestionsTotal   int              `json:"questions_total"`
	DetailedResults  []QuestionResult `json:"detailed_results"`
	Status           string           `json:"status"`
}

// Quiz scores a submission: userAnswers maps question ID to the answer the
// student gave; an absent key is treated as unanswered (never correct),
// matching dict.get(...) returning None in the original. totalPoints of 0
// yields a percentage of 0 rather than dividing by zero.
func Quiz(questions []Question, userAnswers map[string]string, totalPoints float64) QuizResult {
	result := QuizResult{
		QuestionsTotal:  len(questions),
		DetailedResults: make([]QuestionResult, 0, len(questions)),
		Status:          "completed",
	}

	for _, q := range questions {
		answer, answered := userAnswers[q.ID]
		isCorrect := answered && answer == q.CorrectAnswer

		var userAnswer *string
		if answered {
			a := answer
			userAnswer = &a
		}

		if isCorrect {
			result.QuestionsCorrect++
			result.Score += q.PointsWeight
		}

		result.DetailedResults = append(result.DetailedResults, QuestionResult{
			QuestionID:    q.ID,
			UserAnswer:    userAnswer,
			CorrectAnswer: q.CorrectAnswer,
			IsCorrect:     isCorrect,
			PointsWeight:  q.PointsWeight,
		})
	}

	if totalPoints > 0 {
		result.Percentage = round2(result.Score / totalPoints * 100)
	}

	return result
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
