package main

import (
	"sort"
	"sync"
)

// memoryStorage is a map-backed storage used by the handler tests. It
// enforces the same uniqueness and foreign-key rules as the Postgres schema
// so handlers see identical sentinel errors.
type memoryStorage struct {
	mu         sync.Mutex
	users      map[int]user
	plans      map[int]plan
	tasks      map[int]task
	lastUserID int
	lastPlanID int
	lastTaskID int
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{
		users: make(map[int]user),
		plans: make(map[int]plan),
		tasks: make(map[int]task),
	}
}

func (s *memoryStorage) getUserByEmail(email string) (*user, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, nil
}

func (s *memoryStorage) getUserByID(id int) (*user, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (s *memoryStorage) getUsers() ([]user, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users := []user{}
	for _, u := range s.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (s *memoryStorage) insertUser(u *user) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, other := range s.users {
		if other.Email == u.Email {
			return errDuplicate
		}
	}
	s.lastUserID++
	u.ID = s.lastUserID
	s.users[u.ID] = *u
	return nil
}

func (s *memoryStorage) updateUser(u *user) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, other := range s.users {
		if other.ID != u.ID && other.Email == u.Email {
			return errDuplicate
		}
	}
	s.users[u.ID] = *u
	return nil
}

func (s *memoryStorage) deleteUser(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tasks {
		if t.UserID == id {
			return errRestricted
		}
	}
	delete(s.users, id)
	return nil
}

func (s *memoryStorage) getPlanByName(name string) (*plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.plans {
		if p.Name == name {
			p := p
			return &p, nil
		}
	}
	return nil, nil
}

func (s *memoryStorage) getPlanByID(id int) (*plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.plans[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (s *memoryStorage) getPlans() ([]plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	plans := []plan{}
	for _, p := range s.plans {
		plans = append(plans, p)
	}
	sort.Slice(plans, func(i, j int) bool { return plans[i].ID < plans[j].ID })
	return plans, nil
}

func (s *memoryStorage) insertPlan(p *plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, other := range s.plans {
		if other.Name == p.Name {
			return errDuplicate
		}
	}
	s.lastPlanID++
	p.ID = s.lastPlanID
	s.plans[p.ID] = *p
	return nil
}

func (s *memoryStorage) updatePlan(p *plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, other := range s.plans {
		if other.ID != p.ID && other.Name == p.Name {
			return errDuplicate
		}
	}
	s.plans[p.ID] = *p
	return nil
}

func (s *memoryStorage) deletePlan(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tasks {
		if t.PlanID == id {
			return errRestricted
		}
	}
	delete(s.plans, id)
	return nil
}

func (s *memoryStorage) getTaskByID(id int) (*task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (s *memoryStorage) getTasks() ([]task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tasks := []task{}
	for _, t := range s.tasks {
		tasks = append(tasks, t)
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	return tasks, nil
}

func (s *memoryStorage) insertTask(t *task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[t.UserID]; !ok {
		return errRestricted
	}
	if _, ok := s.plans[t.PlanID]; !ok {
		return errRestricted
	}
	s.lastTaskID++
	t.ID = s.lastTaskID
	s.tasks[t.ID] = *t
	return nil
}

func (s *memoryStorage) updateTask(t *task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[t.UserID]; !ok {
		return errRestricted
	}
	if _, ok := s.plans[t.PlanID]; !ok {
		return errRestricted
	}
	s.tasks[t.ID] = *t
	return nil
}

func (s *memoryStorage) deleteTask(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tasks, id)
	return nil
}
