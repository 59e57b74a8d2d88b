package main

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"
)

var (
	errDuplicate  = errors.New("duplicate value")
	errRestricted = errors.New("record has dependents")
)

func openDB(cfg config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.db.dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.db.maxOpenConnections)
	db.SetMaxIdleConns(cfg.db.maxIdleConnections)
	db.SetConnMaxIdleTime(cfg.db.maxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = db.PingContext(ctx)
	if err != nil {
		return nil, err
	}

	return db, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id bigserial PRIMARY KEY,
	email text UNIQUE NOT NULL,
	name text NOT NULL,
	hashed_password text NOT NULL
);

CREATE TABLE IF NOT EXISTS plans (
	id bigserial PRIMARY KEY,
	name text UNIQUE NOT NULL,
	description text
);

CREATE TABLE IF NOT EXISTS tasks (
	id bigserial PRIMARY KEY,
	title text NOT NULL,
	description text,
	user_id bigint NOT NULL REFERENCES users (id) ON DELETE RESTRICT,
	plan_id bigint NOT NULL REFERENCES plans (id) ON DELETE RESTRICT
);`

func createTables(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err := db.ExecContext(ctx, schema)
	return err
}

type storage interface {
	getUserByEmail(email string) (*user, error)
	getUserByID(id int) (*user, error)
	getUsers() ([]user, error)
	insertUser(u *user) error
	updateUser(u *user) error
	deleteUser(id int) error

	getPlanByName(name string) (*plan, error)
	getPlanByID(id int) (*plan, error)
	getPlans() ([]plan, error)
	insertPlan(p *plan) error
	updatePlan(p *plan) error
	deletePlan(id int) error

	getTaskByID(id int) (*task, error)
	getTasks() ([]task, error)
	insertTask(t *task) error
	updateTask(t *task) error
	deleteTask(id int) error
}

// mapConstraintError translates the driver's constraint violations to the
// sentinels handlers branch on. Uniqueness and foreign keys are pre-checked
// at the handler level; the database constraints backstop races.
func mapConstraintError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			return errDuplicate
		case "23503":
			return errRestricted
		}
	}
	return err
}

type postgresStorage struct {
	db *sql.DB
}

func newPostgresStorage(db *sql.DB) *postgresStorage {
	return &postgresStorage{db: db}
}

func (s *postgresStorage) getUserByEmail(email string) (*user, error) {
	query := `SELECT id, email, name, hashed_password
			  FROM users
			  WHERE email = $1`
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	row := s.db.QueryRowContext(ctx, query, email)
	var u user
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.HashedPassword)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, nil
		default:
			return nil, err
		}
	}
	return &u, nil
}

func (s *postgresStorage) getUserByID(id int) (*user, error) {
	query := `SELECT id, email, name, hashed_password
			  FROM users
			  WHERE id = $1`
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	row := s.db.QueryRowContext(ctx, query, id)
	var u user
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.HashedPassword)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, nil
		default:
			return nil, err
		}
	}
	return &u, nil
}

func (s *postgresStorage) getUsers() ([]user, error) {
	query := `SELECT id, email, name, hashed_password
			  FROM users
			  ORDER BY id`
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	users := []user{}
	for rows.Next() {
		var u user
		err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.HashedPassword)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *postgresStorage) insertUser(u *user) error {
	query := `INSERT INTO users (email, name, hashed_password)
			  VALUES ($1, $2, $3)
			  RETURNING id`
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	row := s.db.QueryRowContext(ctx, query, u.Email, u.Name, u.HashedPassword)
	err := row.Scan(&u.ID)
	if err != nil {
		return mapConstraintError(err)
	}
	return nil
}

func (s *postgresStorage) updateUser(u *user) error {
	query := `UPDATE users SET email = $1, name = $2
			  WHERE id = $3`
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := s.db.ExecContext(ctx, query, u.Email, u.Name, u.ID)
	if err != nil {
		return mapConstraintError(err)
	}
	return nil
}

func (s *postgresStorage) deleteUser(id int) error {
	query := `DELETE FROM users
			  WHERE id = $1`
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return mapConstraintError(err)
	}
	return nil
}

func (s *postgresStorage) getPlanByName(name string) (*plan, error) {
	query := `SELECT id, name, description
			  FROM plans
			  WHERE name = $1`
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	row := s.db.QueryRowContext(ctx, query, name)
	var p plan
	err := row.Scan(&p.ID, &p.Name, &p.Description)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, nil
		default:
			return nil, err
		}
	}
	return &p, nil
}

func (s *postgresStorage) getPlanByID(id int) (*plan, error) {
	query := `SELECT id, name, description
			  FROM plans
			  WHERE id = $1`
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	row := s.db.QueryRowContext(ctx, query, id)
	var p plan
	err := row.Scan(&p.ID, &p.Name, &p.Description)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, nil
		default:
			return nil, err
		}
	}
	return &p, nil
}

func (s *postgresStorage) getPlans() ([]plan, error) {
	query := `SELECT id, name, description
			  FROM plans
			  ORDER BY id`
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	plans := []plan{}
	for rows.Next() {
		var p plan
		err := rows.Scan(&p.ID, &p.Name, &p.Description)
		if err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

func (s *postgresStorage) insertPlan(p *plan) error {
	query := `INSERT INTO plans (name, description)
			  VALUES ($1, $2)
			  RETURNING id`
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	row := s.db.QueryRowContext(ctx, query, p.Name, p.Description)
	err := row.Scan(&p.ID)
	if err != nil {
		return mapConstraintError(err)
	}
	return nil
}

func (s *postgresStorage) updatePlan(p *plan) error {
	query := `UPDATE plans SET name = $1, description = $2
			  WHERE id = $3`
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := s.db.ExecContext(ctx, query, p.Name, p.Description, p.ID)
	if err != nil {
		return mapConstraintError(err)
	}
	return nil
}

func (s *postgresStorage) deletePlan(id int) error {
	query := `DELETE FROM plans
			  WHERE id = $1`
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return mapConstraintError(err)
	}
	return nil
}

func (s *postgresStorage) getTaskByID(id int) (*task, error) {
	query := `SELECT id, title, description, user_id, plan_id
			  FROM tasks
			  WHERE id = $1`
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	row := s.db.QueryRowContext(ctx, query, id)
	var t task
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.UserID, &t.PlanID)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, nil
		default:
			return nil, err
		}
	}
	return &t, nil
}

func (s *postgresStorage) getTasks() ([]task, error) {
	query := `SELECT id, title, description, user_id, plan_id
			  FROM tasks
			  ORDER BY id`
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	tasks := []task{}
	for rows.Next() {
		var t task
		err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.UserID, &t.PlanID)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (s *postgresStorage) insertTask(t *task) error {
	query := `INSERT INTO tasks (title, description, user_id, plan_id)
			  VALUES ($1, $2, $3, $4)
			  RETURNING id`
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	row := s.db.QueryRowContext(ctx, query, t.Title, t.Description, t.UserID, t.PlanID)
	err := row.Scan(&t.ID)
	if err != nil {
		return mapConstraintError(err)
	}
	return nil
}

func (s *postgresStorage) updateTask(t *task) error {
	query := `UPDATE tasks SET title = $1, description = $2, user_id = $3, plan_id = $4
			  WHERE id = $5`
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := s.db.ExecContext(ctx, query, t.Title, t.Description, t.UserID, t.PlanID, t.ID)
	if err != nil {
		return mapConstraintError(err)
	}
	return nil
}

func (s *postgresStorage) deleteTask(id int) error {
	query := `DELETE FROM tasks
			  WHERE id = $1`
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := s.db.ExecContext(ctx, query, id)
	return err
}
