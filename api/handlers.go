package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"golang.org/x/crypto/bcrypt"
)

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		writeServerError(w)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	w.Write(data)
}

func composeJSONError(err error) string {
	jsonError := map[string]string{
		"error": err.Error(),
	}
	result, err := json.Marshal(jsonError)
	if err != nil {
		slog.Error("composing error response failed", "error", err)
		return ""
	}
	return string(result)
}

func writeError(w http.ResponseWriter, err error, statusCode int) {
	h := w.Header()
	h.Del("Content-Length")
	h.Set("Content-Type", "application/json")
	h.Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(statusCode)
	fmt.Fprintln(w, composeJSONError(err))
}

func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeError(w, errors.New(msg), http.StatusUnauthorized)
}

func writeServerError(w http.ResponseWriter) {
	writeError(w, errors.New("internal server error"), http.StatusInternalServerError)
}

func writeDetail(w http.ResponseWriter, detail string) {
	writeJSON(w, http.StatusOK, map[string]string{"detail": detail})
}

func idParam(r *http.Request) (int, error) {
	return strconv.Atoi(r.PathValue("id"))
}

func (app *application) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	healthCheck := struct {
		Status      string `json:"status"`
		Environment string `json:"environment"`
		Version     string `json:"version"`
	}{
		Status:      "available",
		Environment: app.config.env,
		Version:     version,
	}
	writeJSON(w, http.StatusOK, healthCheck)
}

func (app *application) authenticateUserHandler(w http.ResponseWriter, r *http.Request) {
	err := r.ParseForm()
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}
	username := r.PostFormValue("username")
	password := r.PostFormValue("password")
	if username == "" || password == "" {
		writeUnauthorized(w, "username and password must be provided")
		return
	}
	u, err := app.storage.getUserByEmail(username)
	if err != nil {
		slog.Error("user lookup failed", "error", err)
		writeServerError(w)
		return
	}
	if u == nil {
		writeUnauthorized(w, "incorrect username or password")
		return
	}
	err = bcrypt.CompareHashAndPassword(u.HashedPassword, []byte(password))
	if err != nil {
		writeUnauthorized(w, "incorrect username or password")
		return
	}
	token, err := issueToken(u.Email, u.ID, app.config.jwt.secret, app.config.jwt.ttl)
	if err != nil {
		slog.Error("token signing failed", "error", err)
		writeServerError(w)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}{
		AccessToken: token,
		TokenType:   "bearer",
	})
}

func (app *application) createUserHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email    string `json:"email"`
		Name     string `json:"name"`
		Password string `json:"password"`
	}
	err := json.NewDecoder(r.Body).Decode(&input)
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}
	v := newValidator()
	v.checkRequired(input.Name, "name")
	v.checkEmail(input.Email)
	v.checkPassword(input.Password)
	if v.hasErrors() {
		writeError(w, v.toError(), http.StatusBadRequest)
		return
	}
	existing, err := app.storage.getUserByEmail(input.Email)
	if err != nil {
		slog.Error("user lookup failed", "error", err)
		writeServerError(w)
		return
	}
	if existing != nil {
		writeError(w, errors.New("Email already registered"), http.StatusBadRequest)
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		slog.Error("password hashing failed", "error", err)
		writeServerError(w)
		return
	}
	u := &user{
		Email:          input.Email,
		Name:           input.Name,
		HashedPassword: hash,
	}
	err = app.storage.insertUser(u)
	if err != nil {
		if errors.Is(err, errDuplicate) {
			writeError(w, errors.New("Email already registered"), http.StatusBadRequest)
			return
		}
		slog.Error("user insert failed", "error", err)
		writeServerError(w)
		return
	}
	if app.mailer != nil {
		go app.mailer.sendWelcome(u)
	}
	writeJSON(w, http.StatusCreated, u)
}

func (app *application) getUsersHandler(w http.ResponseWriter, r *http.Request) {
	users, err := app.storage.getUsers()
	if err != nil {
		slog.Error("user list failed", "error", err)
		writeServerError(w)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (app *application) updateUserHandler(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, errors.New("invalid id parameter"), http.StatusBadRequest)
		return
	}
	u, err := app.storage.getUserByID(id)
	if err != nil {
		slog.Error("user lookup failed", "error", err)
		writeServerError(w)
		return
	}
	if u == nil {
		writeError(w, errors.New("User not found"), http.StatusNotFound)
		return
	}
	var input struct {
		Email    string `json:"email"`
		Name     string `json:"name"`
		Password string `json:"password"`
	}
	err = json.NewDecoder(r.Body).Decode(&input)
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}
	v := newValidator()
	v.checkRequired(input.Name, "name")
	v.checkEmail(input.Email)
	if v.hasErrors() {
		writeError(w, v.toError(), http.StatusBadRequest)
		return
	}
	if input.Email != u.Email {
		existing, err := app.storage.getUserByEmail(input.Email)
		if err != nil {
			slog.Error("user lookup failed", "error", err)
			writeServerError(w)
			return
		}
		if existing != nil {
			writeError(w, errors.New("Email already registered"), http.StatusBadRequest)
			return
		}
	}
	u.Email = input.Email
	u.Name = input.Name
	err = app.storage.updateUser(u)
	if err != nil {
		if errors.Is(err, errDuplicate) {
			writeError(w, errors.New("Email already registered"), http.StatusBadRequest)
			return
		}
		slog.Error("user update failed", "error", err)
		writeServerError(w)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (app *application) deleteUserHandler(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, errors.New("invalid id parameter"), http.StatusBadRequest)
		return
	}
	u, err := app.storage.getUserByID(id)
	if err != nil {
		slog.Error("user lookup failed", "error", err)
		writeServerError(w)
		return
	}
	if u == nil {
		writeError(w, errors.New("User not found"), http.StatusNotFound)
		return
	}
	err = app.storage.deleteUser(id)
	if err != nil {
		if errors.Is(err, errRestricted) {
			writeError(w, errors.New("User has existing tasks"), http.StatusBadRequest)
			return
		}
		slog.Error("user delete failed", "error", err)
		writeServerError(w)
		return
	}
	writeDetail(w, "User deleted")
}

func (app *application) createPlanHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Name        string  `json:"name"`
		Description *string `json:"description"`
	}
	err := json.NewDecoder(r.Body).Decode(&input)
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}
	v := newValidator()
	v.checkRequired(input.Name, "name")
	if v.hasErrors() {
		writeError(w, v.toError(), http.StatusBadRequest)
		return
	}
	existing, err := app.storage.getPlanByName(input.Name)
	if err != nil {
		slog.Error("plan lookup failed", "error", err)
		writeServerError(w)
		return
	}
	if existing != nil {
		writeError(w, errors.New("Plan name already exists"), http.StatusBadRequest)
		return
	}
	p := &plan{
		Name:        input.Name,
		Description: input.Description,
	}
	err = app.storage.insertPlan(p)
	if err != nil {
		if errors.Is(err, errDuplicate) {
			writeError(w, errors.New("Plan name already exists"), http.StatusBadRequest)
			return
		}
		slog.Error("plan insert failed", "error", err)
		writeServerError(w)
		return
	}
	if u := getUserFromRequest(r); u != nil {
		slog.Info("plan created", "plan", p.Name, "by", u.Email)
	}
	writeJSON(w, http.StatusCreated, p)
}

func (app *application) getPlansHandler(w http.ResponseWriter, r *http.Request) {
	plans, err := app.storage.getPlans()
	if err != nil {
		slog.Error("plan list failed", "error", err)
		writeServerError(w)
		return
	}
	writeJSON(w, http.StatusOK, plans)
}

func (app *application) updatePlanHandler(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, errors.New("invalid id parameter"), http.StatusBadRequest)
		return
	}
	p, err := app.storage.getPlanByID(id)
	if err != nil {
		slog.Error("plan lookup failed", "error", err)
		writeServerError(w)
		return
	}
	if p == nil {
		writeError(w, errors.New("Plan not found"), http.StatusNotFound)
		return
	}
	var input struct {
		Name        string  `json:"name"`
		Description *string `json:"description"`
	}
	err = json.NewDecoder(r.Body).Decode(&input)
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}
	v := newValidator()
	v.checkRequired(input.Name, "name")
	if v.hasErrors() {
		writeError(w, v.toError(), http.StatusBadRequest)
		return
	}
	if input.Name != p.Name {
		existing, err := app.storage.getPlanByName(input.Name)
		if err != nil {
			slog.Error("plan lookup failed", "error", err)
			writeServerError(w)
			return
		}
		if existing != nil {
			writeError(w, errors.New("Plan name already exists"), http.StatusBadRequest)
			return
		}
	}
	p.Name = input.Name
	p.Description = input.Description
	err = app.storage.updatePlan(p)
	if err != nil {
		if errors.Is(err, errDuplicate) {
			writeError(w, errors.New("Plan name already exists"), http.StatusBadRequest)
			return
		}
		slog.Error("plan update failed", "error", err)
		writeServerError(w)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (app *application) deletePlanHandler(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, errors.New("invalid id parameter"), http.StatusBadRequest)
		return
	}
	p, err := app.storage.getPlanByID(id)
	if err != nil {
		slog.Error("plan lookup failed", "error", err)
		writeServerError(w)
		return
	}
	if p == nil {
		writeError(w, errors.New("Plan not found"), http.StatusNotFound)
		return
	}
	err = app.storage.deletePlan(id)
	if err != nil {
		if errors.Is(err, errRestricted) {
			writeError(w, errors.New("Plan has existing tasks"), http.StatusBadRequest)
			return
		}
		slog.Error("plan delete failed", "error", err)
		writeServerError(w)
		return
	}
	writeDetail(w, "Plan deleted")
}

// checkTaskReferences verifies that the user and plan a task points at exist.
// It writes the failure response itself and reports whether the caller may
// proceed.
func (app *application) checkTaskReferences(w http.ResponseWriter, userID, planID int) bool {
	u, err := app.storage.getUserByID(userID)
	if err != nil {
		slog.Error("user lookup failed", "error", err)
		writeServerError(w)
		return false
	}
	if u == nil {
		writeError(w, errors.New("User does not exist"), http.StatusBadRequest)
		return false
	}
	p, err := app.storage.getPlanByID(planID)
	if err != nil {
		slog.Error("plan lookup failed", "error", err)
		writeServerError(w)
		return false
	}
	if p == nil {
		writeError(w, errors.New("Plan does not exist"), http.StatusBadRequest)
		return false
	}
	return true
}

func (app *application) createTaskHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Title       string  `json:"title"`
		Description *string `json:"description"`
		UserID      int     `json:"user_id"`
		PlanID      int     `json:"plan_id"`
	}
	err := json.NewDecoder(r.Body).Decode(&input)
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}
	v := newValidator()
	v.checkRequired(input.Title, "title")
	if v.hasErrors() {
		writeError(w, v.toError(), http.StatusBadRequest)
		return
	}
	if !app.checkTaskReferences(w, input.UserID, input.PlanID) {
		return
	}
	t := &task{
		Title:       input.Title,
		Description: input.Description,
		UserID:      input.UserID,
		PlanID:      input.PlanID,
	}
	err = app.storage.insertTask(t)
	if err != nil {
		if errors.Is(err, errRestricted) {
			writeError(w, errors.New("User or Plan does not exist"), http.StatusBadRequest)
			return
		}
		slog.Error("task insert failed", "error", err)
		writeServerError(w)
		return
	}
	if u := getUserFromRequest(r); u != nil {
		slog.Info("task created", "task", t.Title, "by", u.Email)
	}
	writeJSON(w, http.StatusCreated, t)
}

func (app *application) getTasksHandler(w http.ResponseWriter, r *http.Request) {
	tasks, err := app.storage.getTasks()
	if err != nil {
		slog.Error("task list failed", "error", err)
		writeServerError(w)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (app *application) updateTaskHandler(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, errors.New("invalid id parameter"), http.StatusBadRequest)
		return
	}
	t, err := app.storage.getTaskByID(id)
	if err != nil {
		slog.Error("task lookup failed", "error", err)
		writeServerError(w)
		return
	}
	if t == nil {
		writeError(w, errors.New("Task not found"), http.StatusNotFound)
		return
	}
	var input struct {
		Title       string  `json:"title"`
		Description *string `json:"description"`
		UserID      int     `json:"user_id"`
		PlanID      int     `json:"plan_id"`
	}
	err = json.NewDecoder(r.Body).Decode(&input)
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}
	v := newValidator()
	v.checkRequired(input.Title, "title")
	if v.hasErrors() {
		writeError(w, v.toError(), http.StatusBadRequest)
		return
	}
	if !app.checkTaskReferences(w, input.UserID, input.PlanID) {
		return
	}
	t.Title = input.Title
	t.Description = input.Description
	t.UserID = input.UserID
	t.PlanID = input.PlanID
	err = app.storage.updateTask(t)
	if err != nil {
		if errors.Is(err, errRestricted) {
			writeError(w, errors.New("User or Plan does not exist"), http.StatusBadRequest)
			return
		}
		slog.Error("task update failed", "error", err)
		writeServerError(w)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (app *application) deleteTaskHandler(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, errors.New("invalid id parameter"), http.StatusBadRequest)
		return
	}
	t, err := app.storage.getTaskByID(id)
	if err != nil {
		slog.Error("task lookup failed", "error", err)
		writeServerError(w)
		return
	}
	if t == nil {
		writeError(w, errors.New("Task not found"), http.StatusNotFound)
		return
	}
	err = app.storage.deleteTask(id)
	if err != nil {
		slog.Error("task delete failed", "error", err)
		writeServerError(w)
		return
	}
	writeDetail(w, "Task deleted")
}
