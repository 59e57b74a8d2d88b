package main

type user struct {
	ID             int    `json:"id"`
	Email          string `json:"email"`
	Name           string `json:"name"`
	HashedPassword []byte `json:"-"`
}

type plan struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

type task struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	UserID      int     `json:"user_id"`
	PlanID      int     `json:"plan_id"`
}
