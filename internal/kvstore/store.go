// Package kvstore is the key/value persistence port the repository, the
// consent gate and game sessions write through.
package kvstore

import (
	"context"
	"errors"
)

// Keys shared by the rest of the module.
const (
	KeyCategories = "quiz-categories"
	KeyThemes     = "quiz-themes"
	KeyQuestions  = "quiz-questions"

	KeyConsent = "youtubeConsent"

	KeyGameStartTime = "gameStartTime"
	KeyGameID        = "gameId"
)

var ErrEmptyKey = errors.New("kvstore: empty key")

// Store is a flat string key/value store. Get reports ok=false for a
// missing key; Remove of a missing key is not an error.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}
