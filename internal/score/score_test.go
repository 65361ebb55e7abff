package score

import "testing"

func TestQuizAllCorrect(t *testing.T) {
	questions := []Question{
		{ID: "1", CorrectAnswer: "A", PointsWeight: 10},
		{ID: "2", CorrectAnswer: "B", PointsWeight: 15},
	}
	result := Quiz(questions, map[string]string{"1": "A", "2": "B"}, 25)

	if result.Score != 25 {
		t.Errorf("Score = %v, want 25", result.Score)
	}
	if result.Percentage != 100.0 {
		t.Errorf("Percentage = %v, want 100.0", result.Percentage)
	}
	if result.QuestionsCorrect != 2 || result.QuestionsTotal != 2 {
		t.Errorf("correct/total = %d/%d, want 2/2", result.QuestionsCorrect, result.QuestionsTotal)
	}
	if result.Status != "completed" {
		t.Errorf("Status = %q, want completed", result.Status)
	}
	if len(result.DetailedResults) != 2 {
		t.Fatalf("len(DetailedResults) = %d, want 2", len(result.DetailedResults))
	}
}

func TestQuizAllWrong(t *testing.T) {
	questions := []Question{
		{ID: "1", CorrectAnswer: "A", PointsWeight: 10},
		{ID: "2", CorrectAnswer: "B", PointsWeight: 15},
	}
	result := Quiz(questions, map[string]string{"1": "C", "2": "D"}, 25)

	if result.Score != 0 {
		t.Errorf("Score = %v, want 0", result.Score)
	}
	if result.Percentage != 0.0 {
		t.Errorf("Percentage = %v, want 0.0", result.Percentage)
	}
	if result.QuestionsCorrect != 0 || result.QuestionsTotal != 2 {
		t.Errorf("correct/total = %d/%d, want 0/2", result.QuestionsCorrect, result.QuestionsTotal)
	}
}

func TestQuizPartialCorrect(t *testing.T) {
	questions := []Question{
		{ID: "1", CorrectAnswer: "A", PointsWeight: 10},
		{ID: "2", CorrectAnswer: "B", PointsWeight: 20},
	}
	result := Quiz(questions, map[string]string{"1": "A", "2": "C"}, 30)

	if result.Score != 10 {
		t.Errorf("Score = %v, want 10", result.Score)
	}
	if result.Percentage != 33.33 {
		t.Errorf("Percentage = %v, want 33.33", result.Percentage)
	}
	if result.QuestionsCorrect != 1 {
		t.Errorf("QuestionsCorrect = %d, want 1", result.QuestionsCorrect)
	}
}

func TestQuizMissingAnswers(t *testing.T) {
	questions := []Question{
		{ID: "1", CorrectAnswer: "A", PointsWeight: 10},
		{ID: "2", CorrectAnswer: "B", PointsWeight: 10},
	}
	result := Quiz(questions, map[string]string{"1": "A"}, 20)

	if result.Score != 10 {
		t.Errorf("Score = %v, want 10", result.Score)
	}
	if result.Percentage != 50.0 {
		t.Errorf("Percentage = %v, want 50.0", result.Percentage)
	}
	if result.QuestionsCorrect != 1 || result.QuestionsTotal != 2 {
		t.Errorf("correct/total = %d/%d, want 1/2", result.QuestionsCorrect, result.QuestionsTotal)
	}
	missing := result.DetailedResults[1]
	if missing.UserAnswer != nil {
		t.Errorf("expected a nil UserAnswer for the unanswered question, got %v", *missing.UserAnswer)
	}
}

func TestQuizEmptyAnswers(t *testing.T) {
	questions := []Question{{ID: "1", CorrectAnswer: "A", PointsWeight: 10}}
	result := Quiz(questions, map[string]string{}, 10)

	if result.Score != 0 || result.Percentage != 0.0 {
		t.Errorf("Score/Percentage = %v/%v, want 0/0.0", result.Score, result.Percentage)
	}
	if result.QuestionsCorrect != 0 || result.QuestionsTotal != 1 {
		t.Errorf("correct/total = %d/%d, want 0/1", result.QuestionsCorrect, result.QuestionsTotal)
	}
}

func TestQuizZeroTotalPoints(t *testing.T) {
	questions := []Question{{ID: "1", CorrectAnswer: "A", PointsWeight: 0}}
	result := Quiz(questions, map[string]string{"1": "A"}, 0)

	if result.Score != 0 {
		t.Errorf("Score = %v, want 0", result.Score)
	}
	if result.Percentage != 0 {
		t.Errorf("Percentage = %v, want 0 (handled without dividing by zero)", result.Percentage)
	}
	if result.QuestionsCorrect != 1 {
		t.Errorf("QuestionsCorrect = %d, want 1 (still counts as correct)", result.QuestionsCorrect)
	}
	if result.QuestionsTotal != 1 {
		t.Errorf("QuestionsTotal = %d, want 1", result.QuestionsTotal)
	}
}

func TestQuizDetailedResults(t *testing.T) {
	questions := []Question{
		{ID: "q1", CorrectAnswer: "A", PointsWeight: 5},
		{ID: "q2", CorrectAnswer: "B", PointsWeight: 10},
	}
	result := Quiz(questions, map[string]string{"q1": "A", "q2": "C"}, 15)

	detailed := result.DetailedResults
	if len(detailed) != 2 {
		t.Fatalf("len(DetailedResults) = %d, want 2", len(detailed))
	}

	if detailed[0].QuestionID != "q1" {
		t.Errorf("detailed[0].QuestionID = %q, want q1", detailed[0].QuestionID)
	}
	if detailed[0].UserAnswer == nil || *detailed[0].UserAnswer != "A" {
		t.Errorf("detailed[0].UserAnswer = %v, want A", detailed[0].UserAnswer)
	}
	if !detailed[0].IsCorrect {
		t.Errorf("detailed[0].IsCorrect = false, want true")
	}
	if detailed[0].PointsWeight != 5 {
		t.Errorf("detailed[0].PointsWeight = %v, want 5", detailed[0].PointsWeight)
	}

	if detailed[1].QuestionID != "q2" {
		t.Errorf("detailed[1].QuestionID = %q, want q2", detailed[1].QuestionID)
	}
	if detailed[1].UserAnswer == nil || *detailed[1].UserAnswer != "C" {
		t.Errorf("detailed[1].UserAnswer = %v, want C", detailed[1].UserAnswer)
	}
	if detailed[1].IsCorrect {
		t.Errorf("detailed[1].IsCorrect = true, want false")
	}
	if detailed[1].PointsWeight != 10 {
		t.Errorf("detailed[1].PointsWeight = %v, want 10", detailed[1].PointsWeight)
	}
}
