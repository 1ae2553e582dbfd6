package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/pigwin-3/historie-q/internal/quiz"
)

// MountAdmin registers the category/theme/question editor endpoints.
func MountAdmin(r chi.Router, repo *quiz.Repository, src quiz.Source) {
	r.Get("/categories", ListCategoriesHandler(repo))
	r.Post("/categories", CreateCategoryHandler(repo))
	r.Put("/categories/{id}", UpdateCategoryHandler(repo))
	r.Delete("/categories/{id}", DeleteCategoryHandler(repo))

	r.Get("/themes", ListThemesHandler(repo))
	r.Post("/themes", CreateThemeHandler(repo))
	r.Put("/themes/{id}", UpdateThemeHandler(repo))
	r.Delete("/themes/{id}", DeleteThemeHandler(repo))

	r.Get("/themes/{id}/questions", ListQuestionsHandler(repo))
	r.Post("/themes/{id}/questions", CreateQuestionHandler(repo))
	r.Get("/themes/{id}/questions/next-id", NextQuestionIDHandler(repo))
	r.Put("/themes/{id}/questions/{qnID}", UpdateQuestionHandler(repo))
	r.Delete("/themes/{id}/questions/{qnID}", DeleteQuestionHandler(repo))

	r.Post("/admin/reload", ReloadHandler(repo, src))
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// folder and file names end up as paths in the exported tree
	_ = v.RegisterValidation("safename", func(fl validator.FieldLevel) bool {
		return quiz.SafeName(fl.Field().String())
	})
	return v
}

// valid rejects form input with missing fields before it reaches the
// repository. Option/answer ranges are checked again by the repository.
func valid(w http.ResponseWriter, v any) bool {
	err := validate.Struct(v)
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return false
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: %s", fe.Field(), fe.Tag()))
	}
	http.Error(w, "invalid input: "+strings.Join(msgs, ", "), http.StatusBadRequest)
	return false
}

func ListCategoriesHandler(repo *quiz.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, repo.Categories())
	}
}

func CreateCategoryHandler(repo *quiz.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var c quiz.Category
		if !decode(w, r, &c) {
			return
		}
		if !valid(w, c) {
			return
		}
		if err := repo.CreateCategory(r.Context(), c); err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, c)
	}
}

func UpdateCategoryHandler(repo *quiz.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var c quiz.Category
		if !decode(w, r, &c) {
			return
		}
		if !valid(w, c) {
			return
		}
		if err := repo.UpdateCategory(r.Context(), chi.URLParam(r, "id"), c); err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, c)
	}
}

func DeleteCategoryHandler(repo *quiz.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := repo.DeleteCategory(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeErr(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// GET /themes?category=norse
func ListThemesHandler(repo *quiz.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, repo.ThemeViews(r.URL.Query().Get("category")))
	}
}

func CreateThemeHandler(repo *quiz.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var t quiz.Theme
		if !decode(w, r, &t) {
			return
		}
		if !valid(w, t) {
			return
		}
		if err := repo.CreateTheme(r.Context(), t); err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, t)
	}
}

func UpdateThemeHandler(repo *quiz.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := intParam(w, r, "id")
		if !ok {
			return
		}
		var t quiz.Theme
		if !decode(w, r, &t) {
			return
		}
		if !valid(w, t) {
			return
		}
		if err := repo.UpdateTheme(r.Context(), id, t); err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, t)
	}
}

func DeleteThemeHandler(repo *quiz.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := intParam(w, r, "id")
		if !ok {
			return
		}
		if err := repo.DeleteTheme(r.Context(), id); err != nil {
			writeErr(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func ListQuestionsHandler(repo *quiz.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := intParam(w, r, "id")
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, repo.QuestionsForTheme(id))
	}
}

func NextQuestionIDHandler(repo *quiz.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := intParam(w, r, "id")
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"qnID": repo.NextQuestionID(id)})
	}
}

// questionBody decodes a question and pins it to the theme in the URL when
// the body leaves themeID out.
func questionBody(w http.ResponseWriter, r *http.Request, themeID int) (quiz.Question, bool) {
	var q quiz.Question
	if !decode(w, r, &q) {
		return q, false
	}
	if q.ThemeID == 0 {
		q.ThemeID = themeID
	}
	return q, valid(w, q)
}

func CreateQuestionHandler(repo *quiz.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := intParam(w, r, "id")
		if !ok {
			return
		}
		q, ok := questionBody(w, r, id)
		if !ok {
			return
		}
		saved, err := repo.CreateQuestion(r.Context(), q)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, saved)
	}
}

func UpdateQuestionHandler(repo *quiz.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := intParam(w, r, "id")
		if !ok {
			return
		}
		qnID, ok := intParam(w, r, "qnID")
		if !ok {
			return
		}
		q, ok := questionBody(w, r, id)
		if !ok {
			return
		}
		if q.ID == 0 {
			q.ID = qnID
		}
		if err := repo.UpdateQuestion(r.Context(), id, qnID, q); err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, q)
	}
}

func DeleteQuestionHandler(repo *quiz.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := intParam(w, r, "id")
		if !ok {
			return
		}
		qnID, ok := intParam(w, r, "qnID")
		if !ok {
			return
		}
		if err := repo.DeleteQuestion(r.Context(), id, qnID); err != nil {
			writeErr(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// POST /admin/reload drops the saved snapshot and reads the files again.
func ReloadHandler(repo *quiz.Repository, src quiz.Source) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rep, err := repo.Reset(r.Context(), src)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		writeJSON(w, http.StatusOK, rep)
	}
}
