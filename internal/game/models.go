// Package game runs one play-through of a theme: shuffle, answer, advance,
// summarise.
package game

import "errors"

var (
	ErrNoQuestions      = errors.New("game: no questions available")
	ErrNotInProgress    = errors.New("game: session not in progress")
	ErrAlreadyAnswered  = errors.New("game: question already answered")
	ErrNotAnswered      = errors.New("game: current question not answered")
	ErrChoiceOutOfRange = errors.New("game: choice out of range")
	ErrNotFinished      = errors.New("game: session not finished")
)

type State int

const (
	NotStarted State = iota
	InProgress
	Finished
)

func (s State) String() string {
	switch s {
	case InProgress:
		return "in_progress"
	case Finished:
		return "finished"
	default:
		return "not_started"
	}
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Record is one answered question.
// Choice and CorrectAnswer are 1-based option indexes.
type Record struct {
	QuestionID    int    `json:"questionId"`
	Question      string `json:"questionText"`
	Choice        int    `json:"userChoice"`
	ChoiceText    string `json:"userText"`
	CorrectAnswer int    `json:"correctAnswer"`
	CorrectText   string `json:"correctText"`
	IsCorrect     bool   `json:"isCorrect"`
	Explanation   string `json:"explanation"`
}

type Summary struct {
	ThemeID       int      `json:"themeId"`
	CorrectCount  int      `json:"correctCount"`
	TotalCount    int      `json:"totalCount"`
	ElapsedMillis int64    `json:"elapsedMillis"`
	Records       []Record `json:"records"`
}
